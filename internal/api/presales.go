/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/presale"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ListPresales returns every known presale
func (s *PresaleService) ListPresales(ctx context.Context) ([]models.PresaleView, error) {
	presales, err := s.store.ListPresales(ctx)
	if err != nil {
		zap.L().Error("Failed to list presales", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve presales")
	}

	units := newUnitCache(s.store)
	result := make([]models.PresaleView, 0, len(presales))
	for i := range presales {
		view, err := s.presaleView(ctx, units, &presales[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *view)
	}
	return result, nil
}

// GetPresale returns the current state of one presale including treasury balances
func (s *PresaleService) GetPresale(ctx context.Context, key solana.PublicKey) (*models.PresaleView, error) {
	p, err := s.store.GetPresale(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("presale %s: %w", key, store.ErrNotFound)
		}
		zap.L().Error("Failed to get presale", zap.String("presale", key.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve presale")
	}
	return s.presaleView(ctx, newUnitCache(s.store), p)
}

func (s *PresaleService) presaleView(ctx context.Context, units *unitCache, p *models.PresaleConfig) (*models.PresaleView, error) {
	fractionDecimals, err := units.decimals(ctx, p.FractionMint)
	if err != nil {
		return nil, err
	}
	paymentDecimals, err := units.decimals(ctx, p.PaymentMint)
	if err != nil {
		return nil, err
	}

	forSale, err := s.store.GetTokenAccount(ctx, p.FractionTreasury)
	if err != nil {
		zap.L().Error("Failed to get fraction treasury", zap.String("presale", p.Key.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve presale treasuries")
	}
	funds, err := s.store.GetTokenAccount(ctx, p.PaymentTreasury)
	if err != nil {
		zap.L().Error("Failed to get payment treasury", zap.String("presale", p.Key.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve presale treasuries")
	}

	view := &models.PresaleView{
		Key:              p.Key.String(),
		Authority:        p.Authority.String(),
		ControlAddress:   p.ControlAddress.String(),
		FractionMint:     p.FractionMint.String(),
		PaymentMint:      p.PaymentMint.String(),
		AccessMint:       p.AccessMint.String(),
		FractionTreasury: p.FractionTreasury.String(),
		PaymentTreasury:  p.PaymentTreasury.String(),
		AccessTreasury:   p.AccessTreasury.String(),
		Price:            ToUnits(p.Price, presale.PriceDecimals),
		MaxAmount:        ToUnits(p.MaxAmount, fractionDecimals),
		FractionsSold:    ToUnits(p.FractionsSold, fractionDecimals),
		FractionsForSale: ToUnits(forSale.Amount, fractionDecimals),
		FundsCollectable: ToUnits(funds.Amount, paymentDecimals),
		Started:          p.Started,
		PresaleEnd:       p.PresaleEnd,
		VestingEnd:       p.VestingEnd,
	}
	if p.Started {
		start := p.PresaleStart
		view.PresaleStart = &start
	}
	return view, nil
}

// GetVestingRecord returns the vesting state of an owner in a presale
func (s *PresaleService) GetVestingRecord(ctx context.Context, presaleKey, owner solana.PublicKey) (*models.VestingView, error) {
	key, _, err := presale.VestingAddress(s.programID, owner, presaleKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vesting address: %w", err)
	}

	p, err := s.store.GetPresale(ctx, presaleKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("presale %s: %w", presaleKey, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve presale")
	}

	record, err := s.store.GetVestingRecord(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("vesting record for %s: %w", owner, store.ErrNotFound)
		}
		zap.L().Error("Failed to get vesting record", zap.String("owner", owner.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve vesting record")
	}

	account, err := s.store.GetTokenAccount(ctx, record.VestingAccount)
	if err != nil {
		zap.L().Error("Failed to get vesting account", zap.String("vesting_account", record.VestingAccount.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve vesting account")
	}
	decimals, err := newUnitCache(s.store).decimals(ctx, account.Mint)
	if err != nil {
		return nil, err
	}

	return &models.VestingView{
		Key:            record.Key.String(),
		Owner:          record.Owner.String(),
		Presale:        record.Presale.String(),
		VestingAccount: record.VestingAccount.String(),
		Locked:         ToUnits(account.Amount, decimals),
		UnlocksAt:      p.VestingEnd,
	}, nil
}

// ToUnits converts raw token units to human units of a mint with the given precision
func ToUnits(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// FromUnits converts human units back to raw token units, rejecting excess precision
func FromUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	raw := amount.Shift(int32(decimals))
	if !raw.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}
	if raw.IsNegative() || raw.BigInt().BitLen() > 64 {
		return 0, fmt.Errorf("amount %s is out of range", amount)
	}
	return raw.BigInt().Uint64(), nil
}

type unitCache struct {
	store  store.LedgerStore
	byMint map[solana.PublicKey]*models.Mint
}

func newUnitCache(ledger store.LedgerStore) *unitCache {
	return &unitCache{store: ledger, byMint: make(map[solana.PublicKey]*models.Mint)}
}

func (c *unitCache) mint(ctx context.Context, address solana.PublicKey) (*models.Mint, error) {
	if m, ok := c.byMint[address]; ok {
		return m, nil
	}
	m, err := c.store.GetMint(ctx, address)
	if err != nil {
		zap.L().Error("Failed to get mint", zap.String("mint", address.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve mint")
	}
	c.byMint[address] = m
	return m, nil
}

func (c *unitCache) decimals(ctx context.Context, address solana.PublicKey) (uint8, error) {
	m, err := c.mint(ctx, address)
	if err != nil {
		return 0, err
	}
	return m.Decimals, nil
}
