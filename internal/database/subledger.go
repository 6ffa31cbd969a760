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
	"database/sql"

	"fraction-presale-go/internal/store"
)

// Compile-time check: *Tx must satisfy store.LedgerTx.
var _ store.LedgerTx = (*Tx)(nil)

// Tx is the transactional view of the ledger handed to RunInTx callbacks
type Tx struct {
	tx *sql.Tx
}

func (s *Service) InitSchema() error {
	schema := `
	-- Mints (token kinds)
	CREATE TABLE IF NOT EXISTS mints (
		address TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		decimals INTEGER NOT NULL,
		authority TEXT NOT NULL,
		supply TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Token Accounts Table (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS token_accounts (
		address TEXT PRIMARY KEY,
		mint TEXT NOT NULL REFERENCES mints(address),
		owner TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		last_transfer_id TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_token_accounts_owner ON token_accounts(owner);
	CREATE INDEX IF NOT EXISTS idx_token_accounts_mint ON token_accounts(mint);

	-- Transfers Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL,
		kind TEXT NOT NULL,
		mint TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		destination TEXT NOT NULL,
		amount TEXT NOT NULL,
		mirrored INTEGER NOT NULL DEFAULT 0,
		seq INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_reference ON transfers(reference);
	CREATE INDEX IF NOT EXISTS idx_transfers_source ON transfers(source);
	CREATE INDEX IF NOT EXISTS idx_transfers_destination ON transfers(destination);
	CREATE INDEX IF NOT EXISTS idx_transfers_mirrored ON transfers(mirrored, seq);

	-- Per-account entries with before/after balances
	CREATE TABLE IF NOT EXISTS account_entries (
		id TEXT PRIMARY KEY,
		transfer_id TEXT NOT NULL REFERENCES transfers(id),
		account TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_account_entries_account ON account_entries(account);
	CREATE INDEX IF NOT EXISTS idx_account_entries_transfer_id ON account_entries(transfer_id);

	-- Journal Entries for Double-Entry Bookkeeping
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transfer_id TEXT NOT NULL,
		account_type TEXT NOT NULL,
		account_id TEXT NOT NULL,
		debit_amount TEXT NOT NULL DEFAULT '0',
		credit_amount TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journal_transfer_id ON journal_entries(transfer_id);
	CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_type, account_id);

	-- Presale configuration, one row per presale
	CREATE TABLE IF NOT EXISTS presales (
		key TEXT PRIMARY KEY,
		authority TEXT NOT NULL,
		control_address TEXT NOT NULL,
		control_bump INTEGER NOT NULL,
		fraction_mint TEXT NOT NULL,
		payment_mint TEXT NOT NULL,
		access_mint TEXT NOT NULL,
		fraction_treasury TEXT NOT NULL UNIQUE,
		payment_treasury TEXT NOT NULL UNIQUE,
		access_treasury TEXT NOT NULL UNIQUE,
		price TEXT NOT NULL,
		max_amount TEXT NOT NULL,
		fractions_sold TEXT NOT NULL DEFAULT '0',
		started INTEGER NOT NULL DEFAULT 0,
		presale_start INTEGER NOT NULL DEFAULT 0,
		presale_end INTEGER NOT NULL,
		vesting_end INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_presales_authority ON presales(authority);

	-- Vesting records, at most one per (owner, presale)
	CREATE TABLE IF NOT EXISTS vesting_records (
		key TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		presale TEXT NOT NULL REFERENCES presales(key),
		vesting_account TEXT NOT NULL UNIQUE,
		bump INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(owner, presale)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}
