package store

import (
	"context"
	"errors"

	"fraction-presale-go/internal/models"

	"github.com/gagliardetto/solana-go"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("not found")
	ErrAlreadyExists          = errors.New("already exists")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOwnerMismatch          = errors.New("owner does not match")
	ErrMintMismatch           = errors.New("account not associated with this mint")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrOverflow               = errors.New("amount overflow")
)

// CreateMintParams contains the parameters for registering a mint.
type CreateMintParams struct {
	Address   solana.PublicKey
	Symbol    string
	Decimals  uint8
	Authority solana.PublicKey
}

// CreateTokenAccountParams contains the parameters for opening a token account.
type CreateTokenAccountParams struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
}

// TransferParams moves Amount of Mint from Source to Destination.
// Authority must own Source. Reference groups every transfer of one operation.
type TransferParams struct {
	Reference   string
	Kind        string
	Mint        solana.PublicKey
	Source      solana.PublicKey
	Destination solana.PublicKey
	Authority   solana.PublicKey
	Amount      uint64
}

// MintToParams issues new supply into Destination. Authority must be the mint authority.
type MintToParams struct {
	Reference   string
	Mint        solana.PublicKey
	Destination solana.PublicKey
	Authority   solana.PublicKey
	Amount      uint64
}

// LedgerTx is the view of the ledger available inside a single atomic unit of work.
type LedgerTx interface {
	// --- Mints & accounts ---
	CreateMint(ctx context.Context, params CreateMintParams) (*models.Mint, error)
	GetMint(ctx context.Context, address solana.PublicKey) (*models.Mint, error)
	CreateTokenAccount(ctx context.Context, params CreateTokenAccountParams) (*models.TokenAccount, error)
	GetTokenAccount(ctx context.Context, address solana.PublicKey) (*models.TokenAccount, error)

	// --- Movements ---
	MintTo(ctx context.Context, params MintToParams) (*models.Transfer, error)
	Transfer(ctx context.Context, params TransferParams) (*models.Transfer, error)

	// --- Presale state ---
	InsertPresale(ctx context.Context, presale *models.PresaleConfig) error
	GetPresale(ctx context.Context, key solana.PublicKey) (*models.PresaleConfig, error)
	UpdatePresaleState(ctx context.Context, presale *models.PresaleConfig) error
	InsertVestingRecord(ctx context.Context, record *models.VestingRecord) error
	GetVestingRecord(ctx context.Context, key solana.PublicKey) (*models.VestingRecord, error)
}

// LedgerStore defines the contract that every backend must satisfy.
type LedgerStore interface {
	// RunInTx executes fn atomically: every write lands or none does.
	RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// --- Reads ---
	GetMint(ctx context.Context, address solana.PublicKey) (*models.Mint, error)
	GetTokenAccount(ctx context.Context, address solana.PublicKey) (*models.TokenAccount, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]models.TokenAccount, error)
	GetPresale(ctx context.Context, key solana.PublicKey) (*models.PresaleConfig, error)
	ListPresales(ctx context.Context) ([]models.PresaleConfig, error)
	GetVestingRecord(ctx context.Context, key solana.PublicKey) (*models.VestingRecord, error)
	GetTransferHistory(ctx context.Context, account solana.PublicKey, limit, offset int) ([]models.Transfer, error)
	ReconcileBalance(ctx context.Context, account solana.PublicKey) error

	// --- Mirror outbox ---
	ListUnmirroredTransfers(ctx context.Context, limit int) ([]models.Transfer, error)
	MarkMirrored(ctx context.Context, reference string) error

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
