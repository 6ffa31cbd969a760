package presale

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"fraction-presale-go/internal/database"
	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

var (
	scenarioStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scenarioEnd   = scenarioStart.Add(7 * 24 * time.Hour)
	vestingEnd    = scenarioStart.Add(30 * 24 * time.Hour)
)

const (
	scenarioPrice  uint64 = 100_000_000 // 0.1 payment unit per fraction
	scenarioMax    uint64 = 1_000
	scenarioSupply uint64 = 1_000_000
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testMint struct {
	address   solana.PublicKey
	authority solana.PublicKey
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	db        *database.Service
	engine    *Engine
	clock     *testClock
	authority solana.PublicKey

	fraction testMint
	payment  testMint
	access   testMint

	// authority-owned accounts
	authorityFraction solana.PublicKey
	authorityPayment  solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	service := database.NewServiceFromDB(db)
	require.NoError(t, service.InitSchema())

	clock := &testClock{now: scenarioStart.Add(-time.Hour)}
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		db:        service,
		engine:    New(service, DefaultProgramID, WithClock(clock.Now)),
		clock:     clock,
		authority: solana.NewWallet().PublicKey(),
	}

	f.fraction = f.createMint("FRAC", 0)
	f.payment = f.createMint("USDC", 6)
	f.access = f.createMint("ACCESS", 0)

	f.authorityFraction = f.createAccount(f.fraction.address, f.authority)
	f.authorityPayment = f.createAccount(f.payment.address, f.authority)
	f.mintTo(f.fraction, f.authorityFraction, scenarioSupply)
	return f
}

func (f *fixture) createMint(symbol string, decimals uint8) testMint {
	f.t.Helper()
	m := testMint{address: solana.NewWallet().PublicKey(), authority: solana.NewWallet().PublicKey()}
	err := f.db.RunInTx(f.ctx, func(tx store.LedgerTx) error {
		_, err := tx.CreateMint(f.ctx, store.CreateMintParams{
			Address:   m.address,
			Symbol:    symbol,
			Decimals:  decimals,
			Authority: m.authority,
		})
		return err
	})
	require.NoError(f.t, err)
	return m
}

func (f *fixture) createAccount(mint, owner solana.PublicKey) solana.PublicKey {
	f.t.Helper()
	address := solana.NewWallet().PublicKey()
	err := f.db.RunInTx(f.ctx, func(tx store.LedgerTx) error {
		_, err := tx.CreateTokenAccount(f.ctx, store.CreateTokenAccountParams{Address: address, Mint: mint, Owner: owner})
		return err
	})
	require.NoError(f.t, err)
	return address
}

func (f *fixture) mintTo(m testMint, destination solana.PublicKey, amount uint64) {
	f.t.Helper()
	err := f.db.RunInTx(f.ctx, func(tx store.LedgerTx) error {
		_, err := tx.MintTo(f.ctx, store.MintToParams{
			Reference:   newOperationRef(),
			Mint:        m.address,
			Destination: destination,
			Authority:   m.authority,
			Amount:      amount,
		})
		return err
	})
	require.NoError(f.t, err)
}

func (f *fixture) balance(address solana.PublicKey) uint64 {
	f.t.Helper()
	account, err := f.db.GetTokenAccount(f.ctx, address)
	require.NoError(f.t, err)
	return account.Amount
}

func (f *fixture) presale(key solana.PublicKey) *models.PresaleConfig {
	f.t.Helper()
	p, err := f.db.GetPresale(f.ctx, key)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) initialize() *models.PresaleConfig {
	f.t.Helper()
	p, err := f.engine.Initialize(f.ctx, InitializeParams{
		Authority:    f.authority,
		FractionMint: f.fraction.address,
		PaymentMint:  f.payment.address,
		AccessMint:   f.access.address,
		Price:        scenarioPrice,
		MaxAmount:    scenarioMax,
		PresaleEnd:   scenarioEnd,
		VestingEnd:   vestingEnd,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) addFractions(p *models.PresaleConfig, amount uint64) error {
	return f.engine.AddFractionsForSale(f.ctx, AdjustFractionsParams{
		Presale:    p.Key,
		Authority:  f.authority,
		Treasuries: TreasuriesOf(p),
		Account:    f.authorityFraction,
		Amount:     amount,
	})
}

func (f *fixture) start(p *models.PresaleConfig) {
	f.t.Helper()
	f.clock.Set(scenarioStart)
	require.NoError(f.t, f.engine.StartPresale(f.ctx, StartPresaleParams{Presale: p.Key, Authority: f.authority}))
}

// openPresale is an initialized, stocked and started presale
func (f *fixture) openPresale() *models.PresaleConfig {
	f.t.Helper()
	p := f.initialize()
	require.NoError(f.t, f.addFractions(p, scenarioSupply))
	f.start(p)
	return f.presale(p.Key)
}

type testBuyer struct {
	owner   solana.PublicKey
	payment solana.PublicKey
	access  solana.PublicKey
	wallet  solana.PublicKey // plain fraction account for unlocked tokens
	record  *models.VestingRecord
}

func (f *fixture) newBuyer(p *models.PresaleConfig, funds, accessTokens uint64) *testBuyer {
	f.t.Helper()
	b := &testBuyer{owner: solana.NewWallet().PublicKey()}
	b.payment = f.createAccount(f.payment.address, b.owner)
	b.access = f.createAccount(f.access.address, b.owner)
	b.wallet = f.createAccount(f.fraction.address, b.owner)
	if funds > 0 {
		f.mintTo(f.payment, b.payment, funds)
	}
	if accessTokens > 0 {
		f.mintTo(f.access, b.access, accessTokens)
	}

	record, err := f.engine.InitVestingAccount(f.ctx, InitVestingParams{
		Presale:    p.Key,
		Owner:      b.owner,
		Treasuries: TreasuriesOf(p),
	})
	require.NoError(f.t, err)
	b.record = record
	return b
}

func (f *fixture) purchase(p *models.PresaleConfig, b *testBuyer, amount uint64) error {
	return f.engine.PurchaseFractions(f.ctx, PurchaseParams{
		Presale:        p.Key,
		Buyer:          b.owner,
		Treasuries:     TreasuriesOf(p),
		PaymentAccount: b.payment,
		AccessAccount:  b.access,
		VestingAccount: b.record.VestingAccount,
		Amount:         amount,
	})
}

func (f *fixture) unlock(p *models.PresaleConfig, b *testBuyer) (uint64, error) {
	return f.engine.UnlockFractions(f.ctx, UnlockParams{
		Presale:        p.Key,
		Owner:          b.owner,
		Treasuries:     TreasuriesOf(p),
		VestingAccount: b.record.VestingAccount,
		Destination:    b.wallet,
	})
}

// reconcileAll checks every account's balance against its entry history
func (f *fixture) reconcileAll(accounts ...solana.PublicKey) {
	f.t.Helper()
	for _, a := range accounts {
		require.NoError(f.t, f.db.ReconcileBalance(f.ctx, a), "reconcile %s", a)
	}
}

func TestLockSet_ReleasesEntries(t *testing.T) {
	locks := newLockSet()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	release := locks.acquire(b, a, a)
	require.Equal(t, 2, locks.size())
	release()
	require.Equal(t, 0, locks.size())
}

func TestLockSet_Serializes(t *testing.T) {
	locks := newLockSet()
	key := solana.NewWallet().PublicKey()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire(key)
			defer release()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxInside)
	require.Equal(t, 0, locks.size())
}

func TestControlAddress_Deterministic(t *testing.T) {
	presale := solana.NewWallet().PublicKey()

	first, bump, err := ControlAddress(DefaultProgramID, presale)
	require.NoError(t, err)
	second, bump2, err := ControlAddress(DefaultProgramID, presale)
	require.NoError(t, err)
	require.True(t, first.Equals(second))
	require.Equal(t, bump, bump2)

	owner := solana.NewWallet().PublicKey()
	vesting, _, err := VestingAddress(DefaultProgramID, owner, presale)
	require.NoError(t, err)
	require.False(t, vesting.Equals(first))

	other, _, err := VestingAddress(DefaultProgramID, solana.NewWallet().PublicKey(), presale)
	require.NoError(t, err)
	require.False(t, vesting.Equals(other))
}
