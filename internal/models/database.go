package models

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Mint represents a fungible token kind known to the ledger
type Mint struct {
	Address   solana.PublicKey `db:"address"`
	Symbol    string           `db:"symbol"`
	Decimals  uint8            `db:"decimals"`
	Authority solana.PublicKey `db:"authority"`
	Supply    uint64           `db:"supply"`
	CreatedAt time.Time        `db:"created_at"`
}

// TokenAccount represents current balance state of a single token account (hot data)
type TokenAccount struct {
	Address        solana.PublicKey `db:"address"`
	Mint           solana.PublicKey `db:"mint"`
	Owner          solana.PublicKey `db:"owner"`
	Amount         uint64           `db:"amount"`
	LastTransferId string           `db:"last_transfer_id"`
	Version        int64            `db:"version"`
	UpdatedAt      time.Time        `db:"updated_at"`
}

// Transfer represents an immutable token movement (cold data).
// Source is the zero key for mint-to transfers.
type Transfer struct {
	Id          string           `db:"id"`
	Reference   string           `db:"reference"`
	Kind        string           `db:"kind"`
	Mint        solana.PublicKey `db:"mint"`
	Source      solana.PublicKey `db:"source"`
	Destination solana.PublicKey `db:"destination"`
	Amount      uint64           `db:"amount"`
	Mirrored    bool             `db:"mirrored"`
	CreatedAt   time.Time        `db:"created_at"`
}

// AccountEntry is the per-account side of a transfer with before/after balances
type AccountEntry struct {
	Id            string           `db:"id"`
	TransferId    string           `db:"transfer_id"`
	Account       solana.PublicKey `db:"account"`
	Kind          string           `db:"kind"`
	Amount        decimal.Decimal  `db:"amount"` // signed: negative for debits
	BalanceBefore uint64           `db:"balance_before"`
	BalanceAfter  uint64           `db:"balance_after"`
	CreatedAt     time.Time        `db:"created_at"`
}

// PresaleConfig holds everything the engine knows about a single presale
type PresaleConfig struct {
	Key              solana.PublicKey `db:"key"`
	Authority        solana.PublicKey `db:"authority"`
	ControlAddress   solana.PublicKey `db:"control_address"`
	ControlBump      uint8            `db:"control_bump"`
	FractionMint     solana.PublicKey `db:"fraction_mint"`
	PaymentMint      solana.PublicKey `db:"payment_mint"`
	AccessMint       solana.PublicKey `db:"access_mint"`
	FractionTreasury solana.PublicKey `db:"fraction_treasury"`
	PaymentTreasury  solana.PublicKey `db:"payment_treasury"`
	AccessTreasury   solana.PublicKey `db:"access_treasury"`
	Price            uint64           `db:"price"`
	MaxAmount        uint64           `db:"max_amount"`
	FractionsSold    uint64           `db:"fractions_sold"`
	Started          bool             `db:"started"`
	PresaleStart     time.Time        `db:"presale_start"`
	PresaleEnd       time.Time        `db:"presale_end"`
	VestingEnd       time.Time        `db:"vesting_end"`
	CreatedAt        time.Time        `db:"created_at"`
}

// VestingRecord binds a buyer to the custodial account holding their locked fractions
type VestingRecord struct {
	Key            solana.PublicKey `db:"key"`
	Owner          solana.PublicKey `db:"owner"`
	Presale        solana.PublicKey `db:"presale"`
	VestingAccount solana.PublicKey `db:"vesting_account"`
	Bump           uint8            `db:"bump"`
	CreatedAt      time.Time        `db:"created_at"`
}
