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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Symbols double as ledger asset codes, so they follow the uppercase asset notation.
var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,16}$`)

func (t *Tx) CreateMint(ctx context.Context, params store.CreateMintParams) (*models.Mint, error) {
	zap.L().Info("Creating mint",
		zap.String("address", params.Address.String()),
		zap.String("symbol", params.Symbol),
		zap.Uint8("decimals", params.Decimals))

	if params.Address.IsZero() {
		return nil, fmt.Errorf("mint address cannot be empty")
	}
	if !symbolPattern.MatchString(params.Symbol) {
		return nil, fmt.Errorf("invalid mint symbol %q: must match %s", params.Symbol, symbolPattern.String())
	}

	now := time.Now().UTC()
	_, err := t.tx.ExecContext(ctx, queryInsertMint,
		params.Address.String(), params.Symbol, params.Decimals, params.Authority.String(), now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: mint %s (%s)", store.ErrAlreadyExists, params.Address, params.Symbol)
		}
		zap.L().Error("Failed to insert mint", zap.String("address", params.Address.String()), zap.Error(err))
		return nil, fmt.Errorf("unable to insert mint: %w", err)
	}

	return getMint(ctx, t.tx, params.Address)
}

func (t *Tx) GetMint(ctx context.Context, address solana.PublicKey) (*models.Mint, error) {
	return getMint(ctx, t.tx, address)
}

func (s *Service) GetMint(ctx context.Context, address solana.PublicKey) (*models.Mint, error) {
	zap.L().Debug("Querying mint", zap.String("address", address.String()))
	return getMint(ctx, s.db, address)
}

func getMint(ctx context.Context, q queryer, address solana.PublicKey) (*models.Mint, error) {
	var mint models.Mint
	var addressStr, authorityStr, supplyStr string
	err := q.QueryRowContext(ctx, queryGetMint, address.String()).Scan(
		&addressStr, &mint.Symbol, &mint.Decimals, &authorityStr, &supplyStr, &mint.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: mint %s", store.ErrNotFound, address)
		}
		return nil, fmt.Errorf("unable to query mint: %w", err)
	}

	if err := decodeKeys(
		keyField{&mint.Address, addressStr},
		keyField{&mint.Authority, authorityStr},
	); err != nil {
		return nil, err
	}
	mint.Supply, err = parseAmount(supplyStr)
	if err != nil {
		return nil, err
	}
	return &mint, nil
}

func (t *Tx) CreateTokenAccount(ctx context.Context, params store.CreateTokenAccountParams) (*models.TokenAccount, error) {
	zap.L().Debug("Creating token account",
		zap.String("address", params.Address.String()),
		zap.String("mint", params.Mint.String()),
		zap.String("owner", params.Owner.String()))

	if params.Address.IsZero() || params.Owner.IsZero() {
		return nil, fmt.Errorf("token account address and owner are required")
	}

	if _, err := getMint(ctx, t.tx, params.Mint); err != nil {
		return nil, err
	}

	_, err := t.tx.ExecContext(ctx, queryInsertTokenAccount,
		params.Address.String(), params.Mint.String(), params.Owner.String(), time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: token account %s", store.ErrAlreadyExists, params.Address)
		}
		zap.L().Error("Failed to insert token account", zap.String("address", params.Address.String()), zap.Error(err))
		return nil, fmt.Errorf("unable to insert token account: %w", err)
	}

	return getTokenAccount(ctx, t.tx, params.Address)
}

func (t *Tx) GetTokenAccount(ctx context.Context, address solana.PublicKey) (*models.TokenAccount, error) {
	return getTokenAccount(ctx, t.tx, address)
}

func (s *Service) GetTokenAccount(ctx context.Context, address solana.PublicKey) (*models.TokenAccount, error) {
	zap.L().Debug("Querying token account", zap.String("address", address.String()))
	return getTokenAccount(ctx, s.db, address)
}

func (s *Service) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]models.TokenAccount, error) {
	zap.L().Debug("Querying token accounts by owner", zap.String("owner", owner.String()))

	rows, err := s.db.QueryContext(ctx, queryGetTokenAccountsByOwner, owner.String())
	if err != nil {
		zap.L().Error("Failed to query token accounts", zap.String("owner", owner.String()), zap.Error(err))
		return nil, fmt.Errorf("unable to query token accounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []models.TokenAccount
	for rows.Next() {
		account, err := scanTokenAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during token account row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating token account rows: %w", err)
	}

	return accounts, nil
}

func getTokenAccount(ctx context.Context, q queryer, address solana.PublicKey) (*models.TokenAccount, error) {
	account, err := scanTokenAccount(q.QueryRowContext(ctx, queryGetTokenAccount, address.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: token account %s", store.ErrNotFound, address)
		}
		return nil, err
	}
	return account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTokenAccount(row rowScanner) (*models.TokenAccount, error) {
	var account models.TokenAccount
	var addressStr, mintStr, ownerStr, amountStr string
	err := row.Scan(&addressStr, &mintStr, &ownerStr, &amountStr,
		&account.LastTransferId, &account.Version, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan token account: %w", err)
	}

	if err := decodeKeys(
		keyField{&account.Address, addressStr},
		keyField{&account.Mint, mintStr},
		keyField{&account.Owner, ownerStr},
	); err != nil {
		return nil, err
	}
	account.Amount, err = parseAmount(amountStr)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
