package presale

import (
	"context"
	"math"
	"math/big"

	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// PriceDecimals is the fixed-point scale of a presale price
	PriceDecimals = 9

	// accessTokenUnit is what a buyer hands over per purchase
	accessTokenUnit uint64 = 1
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// PurchaseCost returns price*amount/1e9 truncated toward zero.
// ok is false when the result does not fit in a token amount.
func PurchaseCost(price, amount uint64) (cost uint64, ok bool) {
	d := rawDecimal(price).Mul(rawDecimal(amount)).Shift(-PriceDecimals).Truncate(0)
	if d.GreaterThan(maxUint64) {
		return 0, false
	}
	return d.BigInt().Uint64(), true
}

func rawDecimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// PurchaseFractions sells amount fractions to the buyer. The buyer hands over one access token,
// pays into the payment treasury and receives the fractions into their vesting account.
func (e *Engine) PurchaseFractions(ctx context.Context, params PurchaseParams) error {
	const op = "purchase_fractions"
	ref := newOperationRef()

	vesting, err := vestingAuthority(e.programID, params.Buyer, params.Presale)
	if err != nil {
		return err
	}

	var cost uint64
	err = e.run(ctx, []solana.PublicKey{params.Presale, vesting.address}, func(tx store.LedgerTx) error {
		p, err := e.loadPresale(ctx, tx, params.Presale)
		if err != nil {
			return err
		}
		if err := requireTreasuries(op, p, params.Treasuries, true, true, true); err != nil {
			return err
		}

		access, err := loadAccount(ctx, tx, "access", params.AccessAccount)
		if err != nil {
			return err
		}
		if err := requireConstraint(op, access.Mint.Equals(p.AccessMint), "presale.access_mint == access_account.mint"); err != nil {
			return err
		}

		payment, err := loadAccount(ctx, tx, "payment", params.PaymentAccount)
		if err != nil {
			return err
		}
		if err := requireConstraint(op, payment.Mint.Equals(p.PaymentMint), "from_account.mint == payment_treasury.mint"); err != nil {
			return err
		}
		if err := requireConstraint(op, payment.Owner.Equals(params.Buyer), "from_account.owner == signer"); err != nil {
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
		if err := requireHasOne(op, "signer", record.Owner, params.Buyer); err != nil {
			return err
		}

		if err := requireConstraint(op, access.Owner.Equals(params.Buyer), "access_account.owner == signer"); err != nil {
			return err
		}

		if !p.Started {
			return reject(op, ErrPresaleNotStarted, zap.String("presale", p.Key.String()))
		}
		if !e.clock().Before(p.PresaleEnd) {
			return reject(op, ErrPresaleFinished,
				zap.String("presale", p.Key.String()), zap.Time("presale_end", p.PresaleEnd))
		}
		if params.Amount == 0 {
			return reject(op, ErrAmountIsZero)
		}
		if params.Amount > p.MaxAmount {
			return reject(op, ErrAmountTooLarge,
				zap.Uint64("amount", params.Amount), zap.Uint64("max_amount", p.MaxAmount))
		}
		if access.Amount < accessTokenUnit {
			return reject(op, ErrMissingAccessToken, zap.String("buyer", params.Buyer.String()))
		}

		var ok bool
		cost, ok = PurchaseCost(p.Price, params.Amount)
		if !ok {
			return reject(op, ErrNumericalOverflow,
				zap.Uint64("price", p.Price), zap.Uint64("amount", params.Amount))
		}
		if payment.Amount < cost {
			return reject(op, ErrInsufficientFunds,
				zap.Uint64("balance", payment.Amount), zap.Uint64("cost", cost))
		}

		treasury, err := loadAccount(ctx, tx, "fraction treasury", p.FractionTreasury)
		if err != nil {
			return err
		}
		if treasury.Amount < params.Amount {
			return reject(op, ErrNotEnoughTokensInTreasury,
				zap.Uint64("treasury_balance", treasury.Amount), zap.Uint64("amount", params.Amount))
		}
		if p.FractionsSold > math.MaxUint64-params.Amount {
			return reject(op, ErrNumericalOverflow, zap.Uint64("fractions_sold", p.FractionsSold))
		}

		if _, err := tx.Transfer(ctx, store.TransferParams{
			Reference:   ref,
			Kind:        KindPurchaseAccess,
			Mint:        p.AccessMint,
			Source:      access.Address,
			Destination: p.AccessTreasury,
			Authority:   params.Buyer,
			Amount:      accessTokenUnit,
		}); err != nil {
			return err
		}

		// A zero cost (cheap fractions, truncated) still hands over the access token.
		if cost > 0 {
			if _, err := tx.Transfer(ctx, store.TransferParams{
				Reference:   ref,
				Kind:        KindPurchasePayment,
				Mint:        p.PaymentMint,
				Source:      payment.Address,
				Destination: p.PaymentTreasury,
				Authority:   params.Buyer,
				Amount:      cost,
			}); err != nil {
				return err
			}
		}

		control, err := presaleAuthority(e.programID, p.Key)
		if err != nil {
			return err
		}
		if _, err := control.transfer(ctx, tx, ref, KindPurchaseFractions,
			p.FractionMint, p.FractionTreasury, vestingAccount.Address, params.Amount); err != nil {
			return err
		}

		p.FractionsSold += params.Amount
		return tx.UpdatePresaleState(ctx, p)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Fractions purchased",
		zap.String("presale", params.Presale.String()),
		zap.String("buyer", params.Buyer.String()),
		zap.String("reference", ref),
		zap.Uint64("amount", params.Amount),
		zap.Uint64("cost", cost))
	return nil
}
