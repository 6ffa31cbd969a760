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
	"math"
	"time"

	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TransferKindMintTo = "mint_to"

	journalTokenAccount = "token_account"
	journalMintSupply   = "mint_supply"
)

// Transfer moves tokens between two accounts of the same mint. The authority must own the source.
func (t *Tx) Transfer(ctx context.Context, params store.TransferParams) (*models.Transfer, error) {
	zap.L().Info("Processing transfer",
		zap.String("reference", params.Reference),
		zap.String("kind", params.Kind),
		zap.String("mint", params.Mint.String()),
		zap.String("source", params.Source.String()),
		zap.String("destination", params.Destination.String()),
		zap.Uint64("amount", params.Amount))

	if params.Amount == 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}
	if params.Source.Equals(params.Destination) {
		return nil, fmt.Errorf("source and destination must differ: %s", params.Source)
	}

	source, err := getTokenAccount(ctx, t.tx, params.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to load source account: %w", err)
	}
	destination, err := getTokenAccount(ctx, t.tx, params.Destination)
	if err != nil {
		return nil, fmt.Errorf("failed to load destination account: %w", err)
	}

	if !source.Mint.Equals(params.Mint) {
		return nil, fmt.Errorf("%w: source %s holds %s", store.ErrMintMismatch, source.Address, source.Mint)
	}
	if !destination.Mint.Equals(params.Mint) {
		return nil, fmt.Errorf("%w: destination %s holds %s", store.ErrMintMismatch, destination.Address, destination.Mint)
	}
	if !source.Owner.Equals(params.Authority) {
		return nil, fmt.Errorf("%w: source %s is owned by %s", store.ErrOwnerMismatch, source.Address, source.Owner)
	}
	if source.Amount < params.Amount {
		return nil, fmt.Errorf("%w: source %s holds %d, requested %d",
			store.ErrInsufficientFunds, source.Address, source.Amount, params.Amount)
	}
	if destination.Amount > math.MaxUint64-params.Amount {
		return nil, fmt.Errorf("%w: destination %s", store.ErrOverflow, destination.Address)
	}

	transfer, err := t.insertTransfer(ctx, params.Reference, params.Kind, params.Mint, params.Source, params.Destination, params.Amount)
	if err != nil {
		return nil, err
	}

	if err := t.applyEntry(ctx, transfer, source, -1); err != nil {
		return nil, err
	}
	if err := t.applyEntry(ctx, transfer, destination, 1); err != nil {
		return nil, err
	}

	if err := t.addJournalEntries(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	zap.L().Info("Transfer processed successfully",
		zap.String("transfer_id", transfer.Id),
		zap.String("source_balance", formatAmount(source.Amount-params.Amount)),
		zap.String("destination_balance", formatAmount(destination.Amount+params.Amount)))

	return transfer, nil
}

// MintTo creates new supply into a destination account. The authority must be the mint authority.
func (t *Tx) MintTo(ctx context.Context, params store.MintToParams) (*models.Transfer, error) {
	zap.L().Info("Processing mint",
		zap.String("reference", params.Reference),
		zap.String("mint", params.Mint.String()),
		zap.String("destination", params.Destination.String()),
		zap.Uint64("amount", params.Amount))

	if params.Amount == 0 {
		return nil, fmt.Errorf("mint amount must be positive")
	}

	mint, err := getMint(ctx, t.tx, params.Mint)
	if err != nil {
		return nil, err
	}
	if !mint.Authority.Equals(params.Authority) {
		return nil, fmt.Errorf("%w: mint %s authority is %s", store.ErrOwnerMismatch, mint.Address, mint.Authority)
	}
	if mint.Supply > math.MaxUint64-params.Amount {
		return nil, fmt.Errorf("%w: mint %s supply", store.ErrOverflow, mint.Address)
	}

	destination, err := getTokenAccount(ctx, t.tx, params.Destination)
	if err != nil {
		return nil, fmt.Errorf("failed to load destination account: %w", err)
	}
	if !destination.Mint.Equals(params.Mint) {
		return nil, fmt.Errorf("%w: destination %s holds %s", store.ErrMintMismatch, destination.Address, destination.Mint)
	}

	transfer, err := t.insertTransfer(ctx, params.Reference, TransferKindMintTo, params.Mint, solana.PublicKey{}, params.Destination, params.Amount)
	if err != nil {
		return nil, err
	}

	result, err := t.tx.ExecContext(ctx, queryUpdateMintSupply,
		formatAmount(mint.Supply+params.Amount), mint.Address.String(), formatAmount(mint.Supply))
	if err != nil {
		return nil, fmt.Errorf("failed to update mint supply: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return nil, fmt.Errorf("mint supply update failed - %w", err)
	}

	if err := t.applyEntry(ctx, transfer, destination, 1); err != nil {
		return nil, err
	}

	if err := t.addJournalEntries(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	zap.L().Info("Mint processed successfully",
		zap.String("transfer_id", transfer.Id),
		zap.String("symbol", mint.Symbol),
		zap.String("new_supply", formatAmount(mint.Supply+params.Amount)))

	return transfer, nil
}

func (t *Tx) insertTransfer(ctx context.Context, reference, kind string, mint, source, destination solana.PublicKey, amount uint64) (*models.Transfer, error) {
	transfer := &models.Transfer{
		Id:          uuid.New().String(),
		Reference:   reference,
		Kind:        kind,
		Mint:        mint,
		Source:      source,
		Destination: destination,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := t.tx.ExecContext(ctx, queryInsertTransfer,
		transfer.Id, transfer.Reference, transfer.Kind, mint.String(),
		formatKey(source), destination.String(), formatAmount(amount), transfer.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transfer: %w", err)
	}
	return transfer, nil
}

// applyEntry records one side of a transfer and moves the account balance (with optimistic locking).
// sign is -1 for the debited side and 1 for the credited side.
func (t *Tx) applyEntry(ctx context.Context, transfer *models.Transfer, account *models.TokenAccount, sign int) error {
	before := account.Amount
	after := before + transfer.Amount
	amount := decimalAmount(transfer.Amount)
	if sign < 0 {
		after = before - transfer.Amount
		amount = amount.Neg()
	}

	_, err := t.tx.ExecContext(ctx, queryInsertAccountEntry,
		uuid.New().String(), transfer.Id, account.Address.String(), transfer.Kind,
		amount.String(), formatAmount(before), formatAmount(after), transfer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert account entry: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, queryUpdateTokenAccountAmount,
		formatAmount(after), transfer.Id, transfer.CreatedAt, account.Address.String(), account.Version)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return fmt.Errorf("balance update failed for %s - %w", account.Address, err)
	}

	account.Amount = after
	account.Version++
	account.LastTransferId = transfer.Id
	return nil
}

// addJournalEntries creates double-entry bookkeeping entries.
// The destination is debited; the source, or the mint supply for mint-to, is credited.
func (t *Tx) addJournalEntries(ctx context.Context, transfer *models.Transfer) error {
	type journalEntry struct {
		accountType  string
		accountId    string
		debitAmount  string
		creditAmount string
	}

	amount := formatAmount(transfer.Amount)
	entries := []journalEntry{
		{journalTokenAccount, transfer.Destination.String(), amount, "0"},
	}
	if transfer.Source.IsZero() {
		entries = append(entries, journalEntry{journalMintSupply, transfer.Mint.String(), "0", amount})
	} else {
		entries = append(entries, journalEntry{journalTokenAccount, transfer.Source.String(), "0", amount})
	}

	for _, entry := range entries {
		_, err := t.tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), transfer.Id, entry.accountType, entry.accountId,
			entry.debitAmount, entry.creditAmount, transfer.CreatedAt)
		if err != nil {
			return err
		}
	}

	return nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrConcurrentModification
	}
	return nil
}
