package models

import "time"

// LedgerPosting is one committed engine operation, ready to be replayed into an external ledger.
// Reference is the operation id shared by every transfer of the operation.
type LedgerPosting struct {
	Reference string
	Timestamp time.Time
	Legs      []PostingLeg
}

// PostingLeg is a single token movement inside a posting
type PostingLeg struct {
	Kind        string
	Asset       string // UMN notation, e.g. "USDC/6"
	Source      string // token account address; empty when minted
	Destination string
	Amount      uint64
}
