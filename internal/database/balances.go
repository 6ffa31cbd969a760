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
	"fmt"

	"fraction-presale-go/internal/models"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetTransferHistory returns paginated transfers touching an account, newest first
func (s *Service) GetTransferHistory(ctx context.Context, account solana.PublicKey, limit, offset int) ([]models.Transfer, error) {
	zap.L().Debug("Getting transfer history",
		zap.String("account", account.String()),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransferHistory, account.String(), account.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer history: %w", err)
	}
	return collectTransfers(rows)
}

// ListUnmirroredTransfers returns the oldest transfers not yet posted to the external ledger
func (s *Service) ListUnmirroredTransfers(ctx context.Context, limit int) ([]models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUnmirroredTransfers, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmirrored transfers: %w", err)
	}
	return collectTransfers(rows)
}

// MarkMirrored flags every transfer of an operation as posted
func (s *Service) MarkMirrored(ctx context.Context, reference string) error {
	result, err := s.db.ExecContext(ctx, queryMarkMirrored, reference)
	if err != nil {
		return fmt.Errorf("failed to mark transfers mirrored: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	zap.L().Debug("Marked transfers mirrored", zap.String("reference", reference), zap.Int64("count", n))
	return nil
}

func collectTransfers(rows *sql.Rows) ([]models.Transfer, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transfers []models.Transfer
	for rows.Next() {
		var transfer models.Transfer
		var mintStr, sourceStr, destinationStr, amountStr string
		err := rows.Scan(&transfer.Id, &transfer.Reference, &transfer.Kind,
			&mintStr, &sourceStr, &destinationStr, &amountStr,
			&transfer.Mirrored, &transfer.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}

		if err := decodeKeys(
			keyField{&transfer.Mint, mintStr},
			keyField{&transfer.Source, sourceStr},
			keyField{&transfer.Destination, destinationStr},
		); err != nil {
			return nil, err
		}
		transfer.Amount, err = parseAmount(amountStr)
		if err != nil {
			return nil, err
		}

		transfers = append(transfers, transfer)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transfer row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transfer rows: %w", err)
	}

	return transfers, nil
}

// ReconcileBalance verifies that the current account balance matches the sum of its entries
func (s *Service) ReconcileBalance(ctx context.Context, account solana.PublicKey) error {
	zap.L().Info("Reconciling balance", zap.String("account", account.String()))

	current, err := s.GetTokenAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryGetAccountEntryAmounts, account.String())
	if err != nil {
		return fmt.Errorf("failed to calculate balance from entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	// Summed in Go: SQLite SUM over TEXT would go through float64.
	calculated := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return fmt.Errorf("failed to scan entry amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse entry amount '%s': %w", amountStr, err)
		}
		calculated = calculated.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating entry rows: %w", err)
	}

	currentBalance := decimalAmount(current.Amount)
	if !currentBalance.Equal(calculated) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("account", account.String()),
			zap.String("current_balance", currentBalance.String()),
			zap.String("calculated_balance", calculated.String()),
			zap.String("difference", currentBalance.Sub(calculated).String()))
		return fmt.Errorf("balance mismatch: current=%s, calculated=%s", currentBalance.String(), calculated.String())
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("account", account.String()),
		zap.String("balance", currentBalance.String()))
	return nil
}
