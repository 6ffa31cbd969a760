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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PresaleView is the externally readable state of a presale
type PresaleView struct {
	Key              string          `json:"key"`
	Authority        string          `json:"authority"`
	ControlAddress   string          `json:"control_address"`
	FractionMint     string          `json:"fraction_mint"`
	PaymentMint      string          `json:"payment_mint"`
	AccessMint       string          `json:"access_mint"`
	FractionTreasury string          `json:"fraction_treasury"`
	PaymentTreasury  string          `json:"payment_treasury"`
	AccessTreasury   string          `json:"access_treasury"`
	Price            decimal.Decimal `json:"price"`
	MaxAmount        decimal.Decimal `json:"max_amount"`
	FractionsSold    decimal.Decimal `json:"fractions_sold"`
	FractionsForSale decimal.Decimal `json:"fractions_for_sale"`
	FundsCollectable decimal.Decimal `json:"funds_collectable"`
	Started          bool            `json:"started"`
	PresaleStart     *time.Time      `json:"presale_start,omitempty"`
	PresaleEnd       time.Time       `json:"presale_end"`
	VestingEnd       time.Time       `json:"vesting_end"`
}

// VestingView is the externally readable state of a buyer's vesting record
type VestingView struct {
	Key            string          `json:"key"`
	Owner          string          `json:"owner"`
	Presale        string          `json:"presale"`
	VestingAccount string          `json:"vesting_account"`
	Locked         decimal.Decimal `json:"locked"`
	UnlocksAt      time.Time       `json:"unlocks_at"`
}

// AccountBalance represents a token account balance in human units
type AccountBalance struct {
	Address string          `json:"address"`
	Mint    string          `json:"mint"`
	Symbol  string          `json:"symbol"`
	Owner   string          `json:"owner"`
	Balance decimal.Decimal `json:"balance"`
	Raw     uint64          `json:"raw"`
}

// TransferRecord represents a transfer in an account's history
type TransferRecord struct {
	Id          string          `json:"id"`
	Reference   string          `json:"reference"`
	Kind        string          `json:"kind"`
	Source      string          `json:"source,omitempty"`
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   string          `json:"direction"` // "in", "out"
	CreatedAt   time.Time       `json:"created_at"`
}
