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
	"fmt"

	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
)

// PresaleService provides the read-only API over presales, vesting records and token accounts
type PresaleService struct {
	store     store.LedgerStore
	programID solana.PublicKey
}

func NewPresaleService(ledger store.LedgerStore, programID solana.PublicKey) *PresaleService {
	return &PresaleService{
		store:     ledger,
		programID: programID,
	}
}

func (s *PresaleService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
