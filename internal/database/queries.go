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

const (
	// Mint queries
	queryInsertMint = `
		INSERT INTO mints (address, symbol, decimals, authority, supply, created_at)
		VALUES (?, ?, ?, ?, '0', ?)`

	queryGetMint = `
		SELECT address, symbol, decimals, authority, supply, created_at
		FROM mints
		WHERE address = ?`

	queryUpdateMintSupply = `
		UPDATE mints SET supply = ? WHERE address = ? AND supply = ?`

	// Token account queries
	queryInsertTokenAccount = `
		INSERT INTO token_accounts (address, mint, owner, amount, last_transfer_id, version, updated_at)
		VALUES (?, ?, ?, '0', '', 1, ?)`

	queryGetTokenAccount = `
		SELECT address, mint, owner, amount, last_transfer_id, version, updated_at
		FROM token_accounts
		WHERE address = ?`

	queryGetTokenAccountsByOwner = `
		SELECT address, mint, owner, amount, last_transfer_id, version, updated_at
		FROM token_accounts
		WHERE owner = ?
		ORDER BY mint, address`

	queryUpdateTokenAccountAmount = `
		UPDATE token_accounts
		SET amount = ?, last_transfer_id = ?, version = version + 1, updated_at = ?
		WHERE address = ? AND version = ?`

	// Transfer queries
	queryInsertTransfer = `
		INSERT INTO transfers (id, reference, kind, mint, source, destination, amount, mirrored, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, (SELECT COALESCE(MAX(seq), 0) + 1 FROM transfers), ?)`

	queryInsertAccountEntry = `
		INSERT INTO account_entries (id, transfer_id, account, kind, amount, balance_before, balance_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transfer_id, account_type, account_id, debit_amount, credit_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetTransferHistory = `
		SELECT id, reference, kind, mint, source, destination, amount, mirrored, created_at
		FROM transfers
		WHERE source = ? OR destination = ?
		ORDER BY seq DESC
		LIMIT ? OFFSET ?`

	queryGetAccountEntryAmounts = `
		SELECT amount
		FROM account_entries
		WHERE account = ?`

	queryGetUnmirroredTransfers = `
		SELECT id, reference, kind, mint, source, destination, amount, mirrored, created_at
		FROM transfers
		WHERE mirrored = 0
		ORDER BY seq
		LIMIT ?`

	queryMarkMirrored = `
		UPDATE transfers SET mirrored = 1 WHERE reference = ?`

	// Presale queries
	queryInsertPresale = `
		INSERT INTO presales (
			key, authority, control_address, control_bump, fraction_mint, payment_mint, access_mint,
			fraction_treasury, payment_treasury, access_treasury, price, max_amount, fractions_sold,
			started, presale_start, presale_end, vesting_end, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetPresale = `
		SELECT key, authority, control_address, control_bump, fraction_mint, payment_mint, access_mint,
		       fraction_treasury, payment_treasury, access_treasury, price, max_amount, fractions_sold,
		       started, presale_start, presale_end, vesting_end, created_at
		FROM presales
		WHERE key = ?`

	queryListPresales = `
		SELECT key, authority, control_address, control_bump, fraction_mint, payment_mint, access_mint,
		       fraction_treasury, payment_treasury, access_treasury, price, max_amount, fractions_sold,
		       started, presale_start, presale_end, vesting_end, created_at
		FROM presales
		ORDER BY created_at, key`

	queryUpdatePresaleState = `
		UPDATE presales
		SET fractions_sold = ?, started = ?, presale_start = ?
		WHERE key = ?`

	// Vesting queries
	queryInsertVestingRecord = `
		INSERT INTO vesting_records (key, owner, presale, vesting_account, bump, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetVestingRecord = `
		SELECT key, owner, presale, vesting_account, bump, created_at
		FROM vesting_records
		WHERE key = ?`
)
