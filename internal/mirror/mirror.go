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

package mirror

import (
	"context"
	"fmt"
	"time"

	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 100

	// no engine operation writes more transfers than this
	minBatchSize = 8
)

// Sink receives committed operations, one posting per operation reference.
// Post must be idempotent on the posting reference.
type Sink interface {
	PostOperation(ctx context.Context, posting models.LedgerPosting) error
}

// BalanceSource reports raw balances held by the external ledger
type BalanceSource interface {
	GetAccountBalance(ctx context.Context, address, asset string) (uint64, error)
}

// Mirror replays committed transfers from the local ledger into an external ledger
type Mirror struct {
	store           store.LedgerStore
	sink            Sink
	pollingInterval time.Duration
	batchSize       int

	mints map[solana.PublicKey]*models.Mint

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a mirror that drains the store's outbox into sink
func New(ledger store.LedgerStore, sink Sink, cfg models.MirrorConfig) *Mirror {
	interval := cfg.PollingInterval
	if interval <= 0 {
		interval = defaultPollingInterval
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	} else if batch < minBatchSize {
		batch = minBatchSize
	}
	return &Mirror{
		store:           ledger,
		sink:            sink,
		pollingInterval: interval,
		batchSize:       batch,
		mints:           make(map[solana.PublicKey]*models.Mint),
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start begins polling in the background
func (m *Mirror) Start(ctx context.Context) {
	zap.L().Info("Starting ledger mirror",
		zap.Duration("polling_interval", m.pollingInterval),
		zap.Int("batch_size", m.batchSize))
	go m.pollLoop(ctx)
}

// Stop gracefully stops the mirror
func (m *Mirror) Stop() {
	zap.L().Info("Stopping ledger mirror")
	close(m.stopChan)
	<-m.doneChan
	zap.L().Info("Ledger mirror stopped")
}

func (m *Mirror) pollLoop(ctx context.Context) {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.pollingInterval)
	defer ticker.Stop()

	m.drain(ctx)

	for {
		select {
		case <-ticker.C:
			m.drain(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain syncs batches until the outbox is empty or a sync fails
func (m *Mirror) drain(ctx context.Context) {
	for {
		n, err := m.SyncOnce(ctx)
		if err != nil {
			zap.L().Error("Mirror sync failed", zap.Error(err))
			return
		}
		if n == 0 {
			return
		}
	}
}

// SyncOnce posts up to one batch of pending operations and returns how many were mirrored.
// Operations are posted in commit order; the first failure stops the batch so later
// operations never land ahead of an earlier one.
func (m *Mirror) SyncOnce(ctx context.Context) (int, error) {
	transfers, err := m.store.ListUnmirroredTransfers(ctx, m.batchSize)
	if err != nil {
		return 0, err
	}
	groups := groupByReference(transfers)

	// A full batch may cut the last operation short; leave it for the next round.
	if len(transfers) == m.batchSize && len(groups) > 1 {
		groups = groups[:len(groups)-1]
	}

	mirrored := 0
	for _, group := range groups {
		posting, err := m.posting(ctx, group)
		if err != nil {
			return mirrored, err
		}
		if err := m.sink.PostOperation(ctx, posting); err != nil {
			return mirrored, fmt.Errorf("failed to mirror operation %s: %w", posting.Reference, err)
		}
		if err := m.store.MarkMirrored(ctx, posting.Reference); err != nil {
			return mirrored, err
		}
		mirrored++
	}

	if mirrored > 0 {
		zap.L().Info("Mirrored operations", zap.Int("count", mirrored))
	}
	return mirrored, nil
}

func (m *Mirror) posting(ctx context.Context, group []models.Transfer) (models.LedgerPosting, error) {
	posting := models.LedgerPosting{
		Reference: group[0].Reference,
		Timestamp: group[0].CreatedAt,
		Legs:      make([]models.PostingLeg, 0, len(group)),
	}
	for _, t := range group {
		mint, err := m.mint(ctx, t.Mint)
		if err != nil {
			return posting, err
		}
		leg := models.PostingLeg{
			Kind:        t.Kind,
			Asset:       assetOf(mint),
			Destination: t.Destination.String(),
			Amount:      t.Amount,
		}
		if !t.Source.IsZero() {
			leg.Source = t.Source.String()
		}
		posting.Legs = append(posting.Legs, leg)
	}
	return posting, nil
}

// mint resolves mint metadata; mints are immutable apart from supply, so they are cached
func (m *Mirror) mint(ctx context.Context, address solana.PublicKey) (*models.Mint, error) {
	if mint, ok := m.mints[address]; ok {
		return mint, nil
	}
	mint, err := m.store.GetMint(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mint %s: %w", address, err)
	}
	m.mints[address] = mint
	return mint, nil
}

// groupByReference splits transfers into consecutive runs sharing a reference
func groupByReference(transfers []models.Transfer) [][]models.Transfer {
	var groups [][]models.Transfer
	for i, t := range transfers {
		if i == 0 || t.Reference != transfers[i-1].Reference {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], t)
	}
	return groups
}

// Verify compares a token account's local balance with the mirrored one.
// Run it after the outbox is drained; pending operations show up as drift.
func (m *Mirror) Verify(ctx context.Context, remote BalanceSource, address solana.PublicKey) error {
	account, err := m.store.GetTokenAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", address, err)
	}
	mint, err := m.mint(ctx, account.Mint)
	if err != nil {
		return err
	}
	mirrored, err := remote.GetAccountBalance(ctx, address.String(), assetOf(mint))
	if err != nil {
		return fmt.Errorf("failed to load mirrored balance for %s: %w", address, err)
	}
	if mirrored != account.Amount {
		zap.L().Error("Mirrored balance drift",
			zap.String("account", address.String()),
			zap.Uint64("local", account.Amount),
			zap.Uint64("mirrored", mirrored))
		return fmt.Errorf("account %s: local balance %d, mirrored %d", address, account.Amount, mirrored)
	}
	zap.L().Debug("Mirrored balance verified", zap.String("account", address.String()), zap.Uint64("balance", mirrored))
	return nil
}

func assetOf(mint *models.Mint) string {
	return fmt.Sprintf("%s/%d", mint.Symbol, mint.Decimals)
}
