package presale

import (
	"context"
	"fmt"
	"time"

	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transfer kinds recorded by engine operations
const (
	KindAddFractions      = "add_fractions"
	KindRemoveFractions   = "remove_fractions"
	KindPurchaseAccess    = "purchase_access"
	KindPurchasePayment   = "purchase_payment"
	KindPurchaseFractions = "purchase_fractions"
	KindCollectFunds      = "collect_funds"
	KindUnlockFractions   = "unlock_fractions"
)

// Deadlines are kept at whole seconds
const timeResolution = time.Second

// Engine runs presale operations against a ledger store. Each call is one
// atomic step: every validation happens before the first effect, and all
// effects commit together or not at all.
type Engine struct {
	store     store.LedgerStore
	programID solana.PublicKey
	now       func() time.Time
	locks     *lockSet
}

type Option func(*Engine)

// WithClock replaces the wall clock used for presale and vesting deadlines
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(ledger store.LedgerStore, programID solana.PublicKey, opts ...Option) *Engine {
	if programID.IsZero() {
		programID = DefaultProgramID
	}
	e := &Engine{
		store:     ledger,
		programID: programID,
		now:       time.Now,
		locks:     newLockSet(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(timeResolution)
}

func (e *Engine) ProgramID() solana.PublicKey {
	return e.programID
}

// Treasuries are the presale-owned accounts a caller passes with an operation.
// They must match the accounts bound at initialization.
type Treasuries struct {
	Fraction solana.PublicKey
	Payment  solana.PublicKey
	Access   solana.PublicKey
}

// TreasuriesOf returns the treasuries bound to a stored presale
func TreasuriesOf(p *models.PresaleConfig) Treasuries {
	return Treasuries{
		Fraction: p.FractionTreasury,
		Payment:  p.PaymentTreasury,
		Access:   p.AccessTreasury,
	}
}

type InitializeParams struct {
	Authority    solana.PublicKey
	Presale      solana.PublicKey // fresh key when zero
	FractionMint solana.PublicKey
	PaymentMint  solana.PublicKey
	AccessMint   solana.PublicKey
	Price        uint64 // payment units per fraction, scaled by 1e9
	MaxAmount    uint64
	PresaleEnd   time.Time
	VestingEnd   time.Time
}

type AdjustFractionsParams struct {
	Presale    solana.PublicKey
	Authority  solana.PublicKey
	Treasuries Treasuries
	// Account is the authority's fraction account: the source when adding, the destination when removing.
	Account solana.PublicKey
	Amount  uint64
}

type StartPresaleParams struct {
	Presale   solana.PublicKey
	Authority solana.PublicKey
}

type CollectFundsParams struct {
	Presale     solana.PublicKey
	Authority   solana.PublicKey
	Treasuries  Treasuries
	Destination solana.PublicKey
}

type InitVestingParams struct {
	Presale    solana.PublicKey
	Owner      solana.PublicKey
	Treasuries Treasuries
}

type PurchaseParams struct {
	Presale        solana.PublicKey
	Buyer          solana.PublicKey
	Treasuries     Treasuries
	PaymentAccount solana.PublicKey
	AccessAccount  solana.PublicKey
	VestingAccount solana.PublicKey
	Amount         uint64
}

type UnlockParams struct {
	Presale        solana.PublicKey
	Owner          solana.PublicKey
	Treasuries     Treasuries
	VestingAccount solana.PublicKey
	Destination    solana.PublicKey
}

// run executes fn under the resource locks and inside one ledger transaction
func (e *Engine) run(ctx context.Context, keys []solana.PublicKey, fn func(tx store.LedgerTx) error) error {
	release := e.locks.acquire(keys...)
	defer release()
	return e.store.RunInTx(ctx, fn)
}

func newOperationRef() string {
	return uuid.New().String()
}

func (e *Engine) loadPresale(ctx context.Context, tx store.LedgerTx, key solana.PublicKey) (*models.PresaleConfig, error) {
	p, err := tx.GetPresale(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load presale: %w", err)
	}
	return p, nil
}

func loadAccount(ctx context.Context, tx store.LedgerTx, role string, address solana.PublicKey) (*models.TokenAccount, error) {
	account, err := tx.GetTokenAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s account: %w", role, err)
	}
	return account, nil
}

// requireTreasuries checks the passed treasuries against the presale, fraction first
func requireTreasuries(op string, p *models.PresaleConfig, passed Treasuries, fraction, payment, access bool) error {
	if fraction {
		if err := requireHasOne(op, "fraction_treasury", p.FractionTreasury, passed.Fraction); err != nil {
			return err
		}
	}
	if payment {
		if err := requireHasOne(op, "payment_treasury", p.PaymentTreasury, passed.Payment); err != nil {
			return err
		}
	}
	if access {
		if err := requireHasOne(op, "access_treasury", p.AccessTreasury, passed.Access); err != nil {
			return err
		}
	}
	return nil
}

func presaleFields(p *models.PresaleConfig) []zap.Field {
	return []zap.Field{
		zap.String("presale", p.Key.String()),
		zap.String("authority", p.Authority.String()),
	}
}
