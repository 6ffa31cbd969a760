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

// Initialize creates a presale and its three empty treasuries, all owned by the presale control address
func (e *Engine) Initialize(ctx context.Context, params InitializeParams) (*models.PresaleConfig, error) {
	const op = "initialize"

	key := params.Presale
	if key.IsZero() {
		key = solana.NewWallet().PublicKey()
	}

	zap.L().Info("Initializing presale",
		zap.String("presale", key.String()),
		zap.String("authority", params.Authority.String()),
		zap.Uint64("price", params.Price),
		zap.Uint64("max_amount", params.MaxAmount),
		zap.Time("presale_end", params.PresaleEnd),
		zap.Time("vesting_end", params.VestingEnd))

	if params.Authority.IsZero() {
		return nil, fmt.Errorf("presale authority is required")
	}
	if err := requireConstraint(op, !params.FractionMint.Equals(params.PaymentMint), "fraction_mint != payment_mint"); err != nil {
		return nil, err
	}
	if !params.PresaleEnd.Before(params.VestingEnd) {
		zap.L().Warn("Presale ends at or after vesting end; buyers can unlock as soon as they purchase",
			zap.String("presale", key.String()),
			zap.Time("presale_end", params.PresaleEnd),
			zap.Time("vesting_end", params.VestingEnd))
	}

	control, err := presaleAuthority(e.programID, key)
	if err != nil {
		return nil, err
	}

	presale := &models.PresaleConfig{
		Key:              key,
		Authority:        params.Authority,
		ControlAddress:   control.address,
		ControlBump:      control.bump,
		FractionMint:     params.FractionMint,
		PaymentMint:      params.PaymentMint,
		AccessMint:       params.AccessMint,
		FractionTreasury: solana.NewWallet().PublicKey(),
		PaymentTreasury:  solana.NewWallet().PublicKey(),
		AccessTreasury:   solana.NewWallet().PublicKey(),
		Price:            params.Price,
		MaxAmount:        params.MaxAmount,
		PresaleEnd:       params.PresaleEnd.UTC().Truncate(timeResolution),
		VestingEnd:       params.VestingEnd.UTC().Truncate(timeResolution),
		CreatedAt:        e.clock(),
	}

	err = e.run(ctx, []solana.PublicKey{key}, func(tx store.LedgerTx) error {
		treasuries := []struct {
			role    string
			address solana.PublicKey
			mint    solana.PublicKey
		}{
			{"access", presale.AccessTreasury, presale.AccessMint},
			{"fraction", presale.FractionTreasury, presale.FractionMint},
			{"payment", presale.PaymentTreasury, presale.PaymentMint},
		}
		for _, t := range treasuries {
			if _, err := tx.GetMint(ctx, t.mint); err != nil {
				return fmt.Errorf("failed to load %s mint: %w", t.role, err)
			}
			if _, err := tx.CreateTokenAccount(ctx, store.CreateTokenAccountParams{
				Address: t.address,
				Mint:    t.mint,
				Owner:   control.address,
			}); err != nil {
				return fmt.Errorf("failed to create %s treasury: %w", t.role, err)
			}
		}
		return tx.InsertPresale(ctx, presale)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Presale initialized",
		zap.String("presale", presale.Key.String()),
		zap.String("control_address", presale.ControlAddress.String()),
		zap.String("fraction_treasury", presale.FractionTreasury.String()),
		zap.String("payment_treasury", presale.PaymentTreasury.String()),
		zap.String("access_treasury", presale.AccessTreasury.String()))
	return presale, nil
}

// AddFractionsForSale moves fractions from an authority-owned account into the fraction treasury
func (e *Engine) AddFractionsForSale(ctx context.Context, params AdjustFractionsParams) error {
	const op = "add_fractions"
	ref := newOperationRef()

	err := e.run(ctx, []solana.PublicKey{params.Presale}, func(tx store.LedgerTx) error {
		p, err := e.loadPresale(ctx, tx, params.Presale)
		if err != nil {
			return err
		}
		if err := requireTreasuries(op, p, params.Treasuries, true, true, false); err != nil {
			return err
		}
		if err := requireHasOne(op, "authority", p.Authority, params.Authority); err != nil {
			return err
		}

		source, err := loadAccount(ctx, tx, "source", params.Account)
		if err != nil {
			return err
		}
		if err := requireConstraint(op, source.Mint.Equals(p.FractionMint), "from_account.mint == fraction_treasury.mint"); err != nil {
			return err
		}
		if err := requireConstraint(op, source.Owner.Equals(params.Authority), "from_account.owner == authority"); err != nil {
			return err
		}

		if params.Amount == 0 {
			return reject(op, ErrAmountIsZero)
		}
		if source.Amount < params.Amount {
			return reject(op, ErrNotEnoughTokensInAccount,
				zap.Uint64("balance", source.Amount), zap.Uint64("amount", params.Amount))
		}

		_, err = tx.Transfer(ctx, store.TransferParams{
			Reference:   ref,
			Kind:        KindAddFractions,
			Mint:        p.FractionMint,
			Source:      source.Address,
			Destination: p.FractionTreasury,
			Authority:   params.Authority,
			Amount:      params.Amount,
		})
		return err
	})
	if err != nil {
		return err
	}

	zap.L().Info("Fractions added for sale",
		zap.String("presale", params.Presale.String()),
		zap.String("reference", ref),
		zap.Uint64("amount", params.Amount))
	return nil
}

// RemoveFractionsForSale moves unsold fractions from the treasury back to an authority-owned account
func (e *Engine) RemoveFractionsForSale(ctx context.Context, params AdjustFractionsParams) error {
	const op = "remove_fractions"
	ref := newOperationRef()

	err := e.run(ctx, []solana.PublicKey{params.Presale}, func(tx store.LedgerTx) error {
		p, err := e.loadPresale(ctx, tx, params.Presale)
		if err != nil {
			return err
		}
		if err := requireTreasuries(op, p, params.Treasuries, true, true, false); err != nil {
			return err
		}
		if err := requireHasOne(op, "authority", p.Authority, params.Authority); err != nil {
			return err
		}

		destination, err := loadAccount(ctx, tx, "destination", params.Account)
		if err != nil {
			return err
		}
		if err := requireConstraint(op, destination.Mint.Equals(p.FractionMint), "to_account.mint == fraction_treasury.mint"); err != nil {
			return err
		}
		if err := requireConstraint(op, destination.Owner.Equals(params.Authority), "to_account.owner == authority"); err != nil {
			return err
		}

		if params.Amount == 0 {
			return reject(op, ErrAmountIsZero)
		}
		treasury, err := loadAccount(ctx, tx, "fraction treasury", p.FractionTreasury)
		if err != nil {
			return err
		}
		if treasury.Amount < params.Amount {
			return reject(op, ErrNotEnoughTokensInTreasury,
				zap.Uint64("treasury_balance", treasury.Amount), zap.Uint64("amount", params.Amount))
		}

		control, err := presaleAuthority(e.programID, p.Key)
		if err != nil {
			return err
		}
		_, err = control.transfer(ctx, tx, ref, KindRemoveFractions,
			p.FractionMint, p.FractionTreasury, destination.Address, params.Amount)
		return err
	})
	if err != nil {
		return err
	}

	zap.L().Info("Fractions removed from sale",
		zap.String("presale", params.Presale.String()),
		zap.String("reference", ref),
		zap.Uint64("amount", params.Amount))
	return nil
}

// StartPresale opens purchasing. A presale starts at most once.
func (e *Engine) StartPresale(ctx context.Context, params StartPresaleParams) error {
	const op = "start_presale"

	var started *models.PresaleConfig
	err := e.run(ctx, []solana.PublicKey{params.Presale}, func(tx store.LedgerTx) error {
		p, err := e.loadPresale(ctx, tx, params.Presale)
		if err != nil {
			return err
		}
		if err := requireHasOne(op, "authority", p.Authority, params.Authority); err != nil {
			return err
		}
		if p.Started {
			return reject(op, ErrPresaleAlreadyStarted, zap.String("presale", p.Key.String()))
		}

		p.Started = true
		p.PresaleStart = e.clock()
		started = p
		return tx.UpdatePresaleState(ctx, p)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Presale started",
		append(presaleFields(started), zap.Time("presale_start", started.PresaleStart))...)
	return nil
}

// CollectFunds drains the payment treasury into an authority-owned account and returns the amount moved.
// An empty treasury is not an error.
func (e *Engine) CollectFunds(ctx context.Context, params CollectFundsParams) (uint64, error) {
	const op = "collect_funds"
	ref := newOperationRef()

	var collected uint64
	err := e.run(ctx, []solana.PublicKey{params.Presale}, func(tx store.LedgerTx) error {
		p, err := e.loadPresale(ctx, tx, params.Presale)
		if err != nil {
			return err
		}
		if err := requireTreasuries(op, p, params.Treasuries, false, true, false); err != nil {
			return err
		}
		if err := requireHasOne(op, "authority", p.Authority, params.Authority); err != nil {
			return err
		}

		destination, err := loadAccount(ctx, tx, "destination", params.Destination)
		if err != nil {
			return err
		}
		if err := requireConstraint(op, destination.Mint.Equals(p.PaymentMint), "to_account.mint == payment_treasury.mint"); err != nil {
			return err
		}
		if err := requireConstraint(op, destination.Owner.Equals(params.Authority), "to_account.owner == authority"); err != nil {
			return err
		}

		treasury, err := loadAccount(ctx, tx, "payment treasury", p.PaymentTreasury)
		if err != nil {
			return err
		}
		if treasury.Amount == 0 {
			return nil
		}

		control, err := presaleAuthority(e.programID, p.Key)
		if err != nil {
			return err
		}
		if _, err := control.transfer(ctx, tx, ref, KindCollectFunds,
			p.PaymentMint, p.PaymentTreasury, destination.Address, treasury.Amount); err != nil {
			return err
		}
		collected = treasury.Amount
		return nil
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("Funds collected",
		zap.String("presale", params.Presale.String()),
		zap.String("reference", ref),
		zap.Uint64("amount", collected))
	return collected, nil
}

// IsRejection reports whether err is a presale rejection rather than an infrastructure failure
func IsRejection(err error) bool {
	var presaleErr *Error
	return errors.As(err, &presaleErr)
}
