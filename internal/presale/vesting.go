package presale

import (
	"context"
	"errors"
	"fmt"

	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

func (e *Engine) loadVestingRecord(ctx context.Context, tx store.LedgerTx, key solana.PublicKey) (*models.VestingRecord, error) {
	record, err := tx.GetVestingRecord(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load vesting record: %w", err)
	}
	return record, nil
}

// InitVestingAccount provisions the caller's vesting record for a presale together with
// an empty fraction account owned by that record
func (e *Engine) InitVestingAccount(ctx context.Context, params InitVestingParams) (*models.VestingRecord, error) {
	const op = "init_vesting"

	vesting, err := vestingAuthority(e.programID, params.Owner, params.Presale)
	if err != nil {
		return nil, err
	}

	var record *models.VestingRecord
	err = e.run(ctx, []solana.PublicKey{params.Presale, vesting.address}, func(tx store.LedgerTx) error {
		p, err := e.loadPresale(ctx, tx, params.Presale)
		if err != nil {
			return err
		}
		if err := requireTreasuries(op, p, params.Treasuries, true, true, false); err != nil {
			return err
		}

		_, err = tx.GetVestingRecord(ctx, vesting.address)
		switch {
		case err == nil:
			return reject(op, ErrVestingAlreadyInitialized,
				zap.String("owner", params.Owner.String()), zap.String("presale", p.Key.String()))
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to check vesting record: %w", err)
		}

		account, err := tx.CreateTokenAccount(ctx, store.CreateTokenAccountParams{
			Address: solana.NewWallet().PublicKey(),
			Mint:    p.FractionMint,
			Owner:   vesting.address,
		})
		if err != nil {
			return fmt.Errorf("failed to create vesting account: %w", err)
		}

		record = &models.VestingRecord{
			Key:            vesting.address,
			Owner:          params.Owner,
			Presale:        p.Key,
			VestingAccount: account.Address,
			Bump:           vesting.bump,
			CreatedAt:      e.clock(),
		}
		return tx.InsertVestingRecord(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Vesting account initialized",
		zap.String("presale", params.Presale.String()),
		zap.String("owner", params.Owner.String()),
		zap.String("vesting_record", record.Key.String()),
		zap.String("vesting_account", record.VestingAccount.String()))
	return record, nil
}

// UnlockFractions releases the whole vested balance to an owner account once vesting has ended
func (e *Engine) UnlockFractions(ctx context.Context, params UnlockParams) (uint64, error) {
	const op = "unlock_fractions"
	ref := newOperationRef()

	vesting, err := vestingAuthority(e.programID, params.Owner, params.Presale)
	if err != nil {
		return 0, err
	}

	var unlocked uint64
	err = e.run(ctx, []solana.PublicKey{params.Presale, vesting.address}, func(tx store.LedgerTx) error {
		p, err := e.loadPresale(ctx, tx, params.Presale)
		if err != nil {
			return err
		}
		if err := requireTreasuries(op, p, params.Treasuries, true, true, false); err != nil {
			return err
		}

		destination, err := loadAccount(ctx, tx, "destination", params.Destination)
		if err != nil {
			return err
		}
		if err := requireConstraint(op, destination.Mint.Equals(p.FractionMint), "to_account.mint == fraction_treasury.mint"); err != nil {
			return err
		}
		if err := requireConstraint(op, destination.Owner.Equals(params.Owner), "to_account.owner == signer"); err != nil {
			return err
		}

		vestingAccount, err := loadAccount(ctx, tx, "vesting", params.VestingAccount)
		if err != nil {
			return err
		}
		if err := requireConstraint(op, vestingAccount.Mint.Equals(p.FractionMint), "vesting_account.mint == fraction_treasury.mint"); err != nil {
			return err
		}
		if err := requireConstraint(op, vestingAccount.Owner.Equals(vesting.address), "vesting_account.owner == vesting record"); err != nil {
			return err
		}

		record, err := e.loadVestingRecord(ctx, tx, vesting.address)
		if err != nil {
			return err
		}
		if err := requireHasOne(op, "vesting_account", record.VestingAccount, params.VestingAccount); err != nil {
			return err
		}
		if err := requireHasOne(op, "signer", record.Owner, params.Owner); err != nil {
			return err
		}

		if vestingAccount.Amount == 0 {
			return reject(op, ErrVestingAccountEmpty, zap.String("vesting_account", vestingAccount.Address.String()))
		}
		if e.clock().Before(p.VestingEnd) {
			return reject(op, ErrVestingPeriodNotFinished,
				zap.String("presale", p.Key.String()), zap.Time("vesting_end", p.VestingEnd))
		}

		if _, err := vesting.transfer(ctx, tx, ref, KindUnlockFractions,
			p.FractionMint, vestingAccount.Address, destination.Address, vestingAccount.Amount); err != nil {
			return err
		}
		unlocked = vestingAccount.Amount
		return nil
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("Fractions unlocked",
		zap.String("presale", params.Presale.String()),
		zap.String("owner", params.Owner.String()),
		zap.String("reference", ref),
		zap.Uint64("amount", unlocked))
	return unlocked, nil
}
