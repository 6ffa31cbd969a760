package database

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Amounts are stored as decimal TEXT so uint64 values survive SQLite's signed INTEGER and REAL affinities.

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

func decimalAmount(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func formatAmount(v uint64) string {
	return decimalAmount(v).String()
}

func parseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", s, err)
	}
	if d.IsNegative() || !d.IsInteger() || d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount '%s' is not a valid token amount", s)
	}
	return d.BigInt().Uint64(), nil
}

func formatKey(k solana.PublicKey) string {
	if k.IsZero() {
		return ""
	}
	return k.String()
}

func parseKey(s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, nil
	}
	k, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to parse public key '%s': %w", s, err)
	}
	return k, nil
}

// keyField pairs a scanned base58 column with the key it decodes into
type keyField struct {
	dst *solana.PublicKey
	src string
}

func decodeKeys(fields ...keyField) error {
	for _, f := range fields {
		k, err := parseKey(f.src)
		if err != nil {
			return err
		}
		*f.dst = k
	}
	return nil
}

func formatUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func parseUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}
