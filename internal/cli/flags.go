package cli

import (
	"context"
	"fmt"

	"fraction-presale-go/internal/api"
	"fraction-presale-go/internal/common"
	"fraction-presale-go/internal/models"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func keyFlag(cmd *cobra.Command, name string) (solana.PublicKey, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("--%s is required", name)
	}
	return common.ParseKey(name, value)
}

// optionalKeyFlag returns the zero key when the flag is unset
func optionalKeyFlag(cmd *cobra.Command, name string) (solana.PublicKey, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil || value == "" {
		return solana.PublicKey{}, err
	}
	return common.ParseKey(name, value)
}

// amountFlag reads a human amount and converts it to raw units of mint
func amountFlag(ctx context.Context, services *common.Services, cmd *cobra.Command, name string, mint solana.PublicKey) (uint64, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return 0, err
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s %q: %w", name, value, err)
	}
	m, err := services.DbService.GetMint(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to load mint %s: %w", mint, err)
	}
	return api.FromUnits(amount, m.Decimals)
}

func presaleFlag(ctx context.Context, services *common.Services, cmd *cobra.Command) (*models.PresaleConfig, error) {
	key, err := keyFlag(cmd, "presale")
	if err != nil {
		return nil, err
	}
	p, err := services.DbService.GetPresale(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load presale %s: %w", key, err)
	}
	return p, nil
}

func rawAmount(ctx context.Context, services *common.Services, mint solana.PublicKey, raw uint64) string {
	m, err := services.DbService.GetMint(ctx, mint)
	if err != nil {
		return fmt.Sprintf("%d", raw)
	}
	return api.ToUnits(raw, m.Decimals).String() + " " + m.Symbol
}
