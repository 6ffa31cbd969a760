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

	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

func (t *Tx) InsertPresale(ctx context.Context, p *models.PresaleConfig) error {
	zap.L().Info("Storing presale",
		zap.String("key", p.Key.String()),
		zap.String("authority", p.Authority.String()),
		zap.Uint64("price", p.Price),
		zap.Uint64("max_amount", p.MaxAmount))

	_, err := t.tx.ExecContext(ctx, queryInsertPresale,
		p.Key.String(), p.Authority.String(), p.ControlAddress.String(), p.ControlBump,
		p.FractionMint.String(), p.PaymentMint.String(), p.AccessMint.String(),
		p.FractionTreasury.String(), p.PaymentTreasury.String(), p.AccessTreasury.String(),
		formatAmount(p.Price), formatAmount(p.MaxAmount), formatAmount(p.FractionsSold),
		p.Started, formatUnix(p.PresaleStart), formatUnix(p.PresaleEnd), formatUnix(p.VestingEnd),
		p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: presale %s", store.ErrAlreadyExists, p.Key)
		}
		return fmt.Errorf("unable to insert presale: %w", err)
	}
	return nil
}

func (t *Tx) GetPresale(ctx context.Context, key solana.PublicKey) (*models.PresaleConfig, error) {
	return getPresale(ctx, t.tx, key)
}

func (s *Service) GetPresale(ctx context.Context, key solana.PublicKey) (*models.PresaleConfig, error) {
	zap.L().Debug("Querying presale", zap.String("key", key.String()))
	return getPresale(ctx, s.db, key)
}

// UpdatePresaleState persists the mutable part of a presale: sold counter and start state
func (t *Tx) UpdatePresaleState(ctx context.Context, p *models.PresaleConfig) error {
	result, err := t.tx.ExecContext(ctx, queryUpdatePresaleState,
		formatAmount(p.FractionsSold), p.Started, formatUnix(p.PresaleStart), p.Key.String())
	if err != nil {
		return fmt.Errorf("failed to update presale state: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: presale %s", store.ErrNotFound, p.Key)
	}
	return nil
}

func (s *Service) ListPresales(ctx context.Context) ([]models.PresaleConfig, error) {
	rows, err := s.db.QueryContext(ctx, queryListPresales)
	if err != nil {
		zap.L().Error("Failed to list presales", zap.Error(err))
		return nil, fmt.Errorf("unable to list presales: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var presales []models.PresaleConfig
	for rows.Next() {
		p, err := scanPresale(rows)
		if err != nil {
			return nil, err
		}
		presales = append(presales, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presale rows: %w", err)
	}
	return presales, nil
}

func getPresale(ctx context.Context, q queryer, key solana.PublicKey) (*models.PresaleConfig, error) {
	p, err := scanPresale(q.QueryRowContext(ctx, queryGetPresale, key.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: presale %s", store.ErrNotFound, key)
		}
		return nil, err
	}
	return p, nil
}

func scanPresale(row rowScanner) (*models.PresaleConfig, error) {
	var p models.PresaleConfig
	var key, authority, control, fractionMint, paymentMint, accessMint string
	var fractionTreasury, paymentTreasury, accessTreasury string
	var price, maxAmount, sold string
	var start, end, vestingEnd int64

	err := row.Scan(&key, &authority, &control, &p.ControlBump,
		&fractionMint, &paymentMint, &accessMint,
		&fractionTreasury, &paymentTreasury, &accessTreasury,
		&price, &maxAmount, &sold,
		&p.Started, &start, &end, &vestingEnd, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan presale: %w", err)
	}

	if err := decodeKeys(
		keyField{&p.Key, key},
		keyField{&p.Authority, authority},
		keyField{&p.ControlAddress, control},
		keyField{&p.FractionMint, fractionMint},
		keyField{&p.PaymentMint, paymentMint},
		keyField{&p.AccessMint, accessMint},
		keyField{&p.FractionTreasury, fractionTreasury},
		keyField{&p.PaymentTreasury, paymentTreasury},
		keyField{&p.AccessTreasury, accessTreasury},
	); err != nil {
		return nil, err
	}

	if p.Price, err = parseAmount(price); err != nil {
		return nil, err
	}
	if p.MaxAmount, err = parseAmount(maxAmount); err != nil {
		return nil, err
	}
	if p.FractionsSold, err = parseAmount(sold); err != nil {
		return nil, err
	}
	p.PresaleStart = parseUnix(start)
	p.PresaleEnd = parseUnix(end)
	p.VestingEnd = parseUnix(vestingEnd)
	return &p, nil
}

func (t *Tx) InsertVestingRecord(ctx context.Context, r *models.VestingRecord) error {
	zap.L().Info("Storing vesting record",
		zap.String("key", r.Key.String()),
		zap.String("owner", r.Owner.String()),
		zap.String("presale", r.Presale.String()))

	_, err := t.tx.ExecContext(ctx, queryInsertVestingRecord,
		r.Key.String(), r.Owner.String(), r.Presale.String(), r.VestingAccount.String(), r.Bump, r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: vesting record %s", store.ErrAlreadyExists, r.Key)
		}
		return fmt.Errorf("unable to insert vesting record: %w", err)
	}
	return nil
}

func (t *Tx) GetVestingRecord(ctx context.Context, key solana.PublicKey) (*models.VestingRecord, error) {
	return getVestingRecord(ctx, t.tx, key)
}

func (s *Service) GetVestingRecord(ctx context.Context, key solana.PublicKey) (*models.VestingRecord, error) {
	zap.L().Debug("Querying vesting record", zap.String("key", key.String()))
	return getVestingRecord(ctx, s.db, key)
}

func getVestingRecord(ctx context.Context, q queryer, key solana.PublicKey) (*models.VestingRecord, error) {
	var r models.VestingRecord
	var keyStr, owner, presale, account string
	err := q.QueryRowContext(ctx, queryGetVestingRecord, key.String()).Scan(
		&keyStr, &owner, &presale, &account, &r.Bump, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: vesting record %s", store.ErrNotFound, key)
		}
		return nil, fmt.Errorf("unable to query vesting record: %w", err)
	}

	if err := decodeKeys(
		keyField{&r.Key, keyStr},
		keyField{&r.Owner, owner},
		keyField{&r.Presale, presale},
		keyField{&r.VestingAccount, account},
	); err != nil {
		return nil, err
	}
	return &r, nil
}
