package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fraction-presale-go/internal/database"
	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	postings []models.LedgerPosting
	failNext error
}

func (s *recordingSink) PostOperation(_ context.Context, posting models.LedgerPosting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.postings = append(s.postings, posting)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.postings)
}

type ledgerFixture struct {
	t         *testing.T
	ctx       context.Context
	db        *database.Service
	mint      solana.PublicKey
	authority solana.PublicKey
	owner     solana.PublicKey
	from      solana.PublicKey
	to        solana.PublicKey
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	service := database.NewServiceFromDB(db)
	require.NoError(t, service.InitSchema())

	f := &ledgerFixture{
		t:         t,
		ctx:       context.Background(),
		db:        service,
		mint:      solana.NewWallet().PublicKey(),
		authority: solana.NewWallet().PublicKey(),
		owner:     solana.NewWallet().PublicKey(),
		from:      solana.NewWallet().PublicKey(),
		to:        solana.NewWallet().PublicKey(),
	}

	err = service.RunInTx(f.ctx, func(tx store.LedgerTx) error {
		if _, err := tx.CreateMint(f.ctx, store.CreateMintParams{
			Address: f.mint, Symbol: "USDC", Decimals: 6, Authority: f.authority,
		}); err != nil {
			return err
		}
		for _, addr := range []solana.PublicKey{f.from, f.to} {
			if _, err := tx.CreateTokenAccount(f.ctx, store.CreateTokenAccountParams{
				Address: addr, Mint: f.mint, Owner: f.owner,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return f
}

// operation mints amount into from and moves half of it to to, under one reference
func (f *ledgerFixture) operation(ref string, amount uint64) {
	f.t.Helper()
	err := f.db.RunInTx(f.ctx, func(tx store.LedgerTx) error {
		if _, err := tx.MintTo(f.ctx, store.MintToParams{
			Reference: ref, Mint: f.mint, Destination: f.from, Authority: f.authority, Amount: amount,
		}); err != nil {
			return err
		}
		_, err := tx.Transfer(f.ctx, store.TransferParams{
			Reference:   ref,
			Kind:        "settle",
			Mint:        f.mint,
			Source:      f.from,
			Destination: f.to,
			Authority:   f.owner,
			Amount:      amount / 2,
		})
		return err
	})
	require.NoError(f.t, err)
}

func (f *ledgerFixture) pending() int {
	f.t.Helper()
	transfers, err := f.db.ListUnmirroredTransfers(f.ctx, 1000)
	require.NoError(f.t, err)
	return len(transfers)
}

func TestSyncOnce_PostsOneTransactionPerOperation(t *testing.T) {
	f := newLedgerFixture(t)
	f.operation("op-1", 1_000)
	f.operation("op-2", 500)

	sink := &recordingSink{}
	m := New(f.db, sink, models.MirrorConfig{BatchSize: 50})

	n, err := m.SyncOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, f.pending())

	require.Len(t, sink.postings, 2)
	first := sink.postings[0]
	assert.Equal(t, "op-1", first.Reference)
	assert.False(t, first.Timestamp.IsZero())
	require.Len(t, first.Legs, 2)

	assert.Equal(t, database.TransferKindMintTo, first.Legs[0].Kind)
	assert.Equal(t, "USDC/6", first.Legs[0].Asset)
	assert.Empty(t, first.Legs[0].Source)
	assert.Equal(t, f.from.String(), first.Legs[0].Destination)
	assert.Equal(t, uint64(1_000), first.Legs[0].Amount)

	assert.Equal(t, "settle", first.Legs[1].Kind)
	assert.Equal(t, f.from.String(), first.Legs[1].Source)
	assert.Equal(t, f.to.String(), first.Legs[1].Destination)
	assert.Equal(t, uint64(500), first.Legs[1].Amount)

	assert.Equal(t, "op-2", sink.postings[1].Reference)

	n, err = m.SyncOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSyncOnce_FailureKeepsOperationPending(t *testing.T) {
	f := newLedgerFixture(t)
	f.operation("op-1", 100)
	f.operation("op-2", 200)

	sink := &recordingSink{failNext: errors.New("stack unavailable")}
	m := New(f.db, sink, models.MirrorConfig{BatchSize: 50})

	n, err := m.SyncOnce(f.ctx)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 4, f.pending(), "later operations must not overtake a failed one")

	n, err = m.SyncOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"op-1", "op-2"}, []string{sink.postings[0].Reference, sink.postings[1].Reference})
}

func TestSyncOnce_FullBatchHoldsBackLastOperation(t *testing.T) {
	f := newLedgerFixture(t)
	for i := 1; i <= 5; i++ {
		f.operation(fmt.Sprintf("op-%d", i), uint64(i*10))
	}

	sink := &recordingSink{}
	m := New(f.db, sink, models.MirrorConfig{BatchSize: minBatchSize})

	n, err := m.SyncOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = m.SyncOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for i, p := range sink.postings {
		assert.Equal(t, fmt.Sprintf("op-%d", i+1), p.Reference)
		assert.Len(t, p.Legs, 2)
	}
}

func TestNew_Defaults(t *testing.T) {
	m := New(nil, &recordingSink{}, models.MirrorConfig{})
	assert.Equal(t, defaultPollingInterval, m.pollingInterval)
	assert.Equal(t, defaultBatchSize, m.batchSize)

	m = New(nil, &recordingSink{}, models.MirrorConfig{BatchSize: 2})
	assert.Equal(t, minBatchSize, m.batchSize)
}

func TestStartStop(t *testing.T) {
	f := newLedgerFixture(t)
	f.operation("op-1", 100)

	sink := &recordingSink{}
	m := New(f.db, sink, models.MirrorConfig{PollingInterval: 10 * time.Millisecond})
	m.Start(f.ctx)

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 10*time.Millisecond)
	m.Stop()
	assert.Equal(t, 0, f.pending())
}

func TestGroupByReference(t *testing.T) {
	transfers := []models.Transfer{
		{Reference: "a"}, {Reference: "a"}, {Reference: "b"}, {Reference: "c"}, {Reference: "c"},
	}
	groups := groupByReference(transfers)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)
	assert.Len(t, groups[2], 2)
	assert.Nil(t, groupByReference(nil))
}

type fixedBalances map[string]uint64

func (b fixedBalances) GetAccountBalance(_ context.Context, address, asset string) (uint64, error) {
	return b[address+"|"+asset], nil
}

func TestVerify(t *testing.T) {
	f := newLedgerFixture(t)
	f.operation("op-1", 1_000)

	m := New(f.db, &recordingSink{}, models.MirrorConfig{})

	remote := fixedBalances{
		f.from.String() + "|USDC/6": 500,
		f.to.String() + "|USDC/6":   500,
	}
	require.NoError(t, m.Verify(f.ctx, remote, f.from))
	require.NoError(t, m.Verify(f.ctx, remote, f.to))

	remote[f.to.String()+"|USDC/6"] = 499
	assert.ErrorContains(t, m.Verify(f.ctx, remote, f.to), "mirrored 499")
}
