package presale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitVestingAccount(t *testing.T) {
	f := newFixture(t)
	p := f.initialize()
	b := f.newBuyer(p, 0, 0)

	key, bump, err := VestingAddress(DefaultProgramID, b.owner, p.Key)
	require.NoError(t, err)
	assert.True(t, b.record.Key.Equals(key))
	assert.Equal(t, bump, b.record.Bump)

	account, err := f.db.GetTokenAccount(f.ctx, b.record.VestingAccount)
	require.NoError(t, err)
	assert.Zero(t, account.Amount)
	assert.True(t, account.Owner.Equals(key))
	assert.True(t, account.Mint.Equals(f.fraction.address))

	_, err = f.engine.InitVestingAccount(f.ctx, InitVestingParams{
		Presale:    p.Key,
		Owner:      b.owner,
		Treasuries: TreasuriesOf(p),
	})
	require.ErrorIs(t, err, ErrVestingAlreadyInitialized)

	stored, err := f.db.GetVestingRecord(f.ctx, key)
	require.NoError(t, err)
	assert.True(t, stored.VestingAccount.Equals(b.record.VestingAccount))
}

func TestUnlockFractions(t *testing.T) {
	f := newFixture(t)
	p := f.openPresale()
	b := f.newBuyer(p, 1_000, 1)

	// nothing vested yet: emptiness is reported even before the deadline
	_, err := f.unlock(p, b)
	require.ErrorIs(t, err, ErrVestingAccountEmpty)
	assert.Equal(t, "There are no tokens vested in the account", err.Error())

	require.NoError(t, f.purchase(p, b, 700))

	f.clock.Set(vestingEnd.Add(-time.Second))
	_, err = f.unlock(p, b)
	require.ErrorIs(t, err, ErrVestingPeriodNotFinished)
	assert.Equal(t, "The vesting period has not finished", err.Error())
	assert.Equal(t, uint64(700), f.balance(b.record.VestingAccount))

	f.clock.Set(vestingEnd)
	unlocked, err := f.unlock(p, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(700), unlocked)
	assert.Zero(t, f.balance(b.record.VestingAccount))
	assert.Equal(t, uint64(700), f.balance(b.wallet))

	_, err = f.unlock(p, b)
	require.ErrorIs(t, err, ErrVestingAccountEmpty)

	f.reconcileAll(b.record.VestingAccount, b.wallet, p.FractionTreasury)
}

func TestUnlockFractions_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	p := f.openPresale()
	b := f.newBuyer(p, 1_000, 1)
	thief := f.newBuyer(p, 0, 0)
	require.NoError(t, f.purchase(p, b, 10))
	f.clock.Set(vestingEnd)

	_, err := f.engine.UnlockFractions(f.ctx, UnlockParams{
		Presale:        p.Key,
		Owner:          thief.owner,
		Treasuries:     TreasuriesOf(p),
		VestingAccount: b.record.VestingAccount,
		Destination:    thief.wallet,
	})
	require.ErrorIs(t, err, ErrConstraintViolated)

	_, err = f.engine.UnlockFractions(f.ctx, UnlockParams{
		Presale:        p.Key,
		Owner:          b.owner,
		Treasuries:     TreasuriesOf(p),
		VestingAccount: b.record.VestingAccount,
		Destination:    thief.wallet,
	})
	require.ErrorIs(t, err, ErrConstraintViolated)

	assert.Equal(t, uint64(10), f.balance(b.record.VestingAccount))
}

func TestUnlockFractions_AfterPresaleEndStillAllowed(t *testing.T) {
	f := newFixture(t)
	p := f.openPresale()
	b := f.newBuyer(p, 1_000, 1)
	require.NoError(t, f.purchase(p, b, 1_000))

	f.clock.Set(vestingEnd.Add(24 * time.Hour))
	require.ErrorIs(t, f.purchase(p, b, 1), ErrPresaleFinished)

	unlocked, err := f.unlock(p, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), unlocked)
}
