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

	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GetAccountBalance returns the current balance of a token account in human units
func (s *PresaleService) GetAccountBalance(ctx context.Context, address solana.PublicKey) (*models.AccountBalance, error) {
	if address.IsZero() {
		return nil, fmt.Errorf("account address is required")
	}

	account, err := s.store.GetTokenAccount(ctx, address)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", address, store.ErrNotFound)
		}
		zap.L().Error("Failed to get account balance", zap.String("account", address.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balance")
	}

	mint, err := newUnitCache(s.store).mint(ctx, account.Mint)
	if err != nil {
		return nil, err
	}

	return &models.AccountBalance{
		Address: account.Address.String(),
		Mint:    account.Mint.String(),
		Symbol:  mint.Symbol,
		Owner:   account.Owner.String(),
		Balance: ToUnits(account.Amount, mint.Decimals),
		Raw:     account.Amount,
	}, nil
}

// GetOwnerBalances returns every token account held by an owner
func (s *PresaleService) GetOwnerBalances(ctx context.Context, owner solana.PublicKey) ([]models.AccountBalance, error) {
	accounts, err := s.store.GetTokenAccountsByOwner(ctx, owner)
	if err != nil {
		zap.L().Error("Failed to get owner balances", zap.String("owner", owner.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balances")
	}

	units := newUnitCache(s.store)
	result := make([]models.AccountBalance, len(accounts))
	for i, account := range accounts {
		mint, err := units.mint(ctx, account.Mint)
		if err != nil {
			return nil, err
		}
		result[i] = models.AccountBalance{
			Address: account.Address.String(),
			Mint:    account.Mint.String(),
			Symbol:  mint.Symbol,
			Owner:   account.Owner.String(),
			Balance: ToUnits(account.Amount, mint.Decimals),
			Raw:     account.Amount,
		}
	}
	return result, nil
}

// GetTransferHistory returns paginated transfers touching a token account, newest first
func (s *PresaleService) GetTransferHistory(ctx context.Context, address solana.PublicKey, limit, offset int) ([]models.TransferRecord, error) {
	if address.IsZero() {
		return nil, fmt.Errorf("account address is required")
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	transfers, err := s.store.GetTransferHistory(ctx, address, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transfer history",
			zap.String("account", address.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transfer history")
	}

	units := newUnitCache(s.store)
	result := make([]models.TransferRecord, len(transfers))
	for i, tx := range transfers {
		decimals, err := units.decimals(ctx, tx.Mint)
		if err != nil {
			return nil, err
		}

		direction := "in"
		if tx.Source.Equals(address) {
			direction = "out"
		}

		record := models.TransferRecord{
			Id:          tx.Id,
			Reference:   tx.Reference,
			Kind:        tx.Kind,
			Destination: tx.Destination.String(),
			Amount:      ToUnits(tx.Amount, decimals),
			Direction:   direction,
			CreatedAt:   tx.CreatedAt,
		}
		if !tx.Source.IsZero() {
			record.Source = tx.Source.String()
		}
		result[i] = record
	}

	return result, nil
}
