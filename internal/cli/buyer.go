package cli

import (
	"context"
	"fmt"
	"time"

	"fraction-presale-go/internal/common"
	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/presale"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

func newVestingCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vesting",
		Short: "Manage buyer vesting records",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the vesting record and custodial account for a buyer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			p, err := presaleFlag(ctx, services, cmd)
			if err != nil {
				return err
			}
			owner, err := keyFlag(cmd, "owner")
			if err != nil {
				return err
			}
			if _, err := services.Engine.InitVestingAccount(ctx, presale.InitVestingParams{
				Presale:    p.Key,
				Owner:      owner,
				Treasuries: presale.TreasuriesOf(p),
			}); err != nil {
				return err
			}
			return printVesting(cmd, opts, services, "Vesting initialized", p.Key, owner)
		},
	}
	initCmd.Flags().String("presale", "", "presale key")
	initCmd.Flags().String("owner", "", "buyer public key")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a buyer's locked fractions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			key, err := keyFlag(cmd, "presale")
			if err != nil {
				return err
			}
			owner, err := keyFlag(cmd, "owner")
			if err != nil {
				return err
			}
			return printVesting(cmd, opts, services, "Vesting", key, owner)
		},
	}
	showCmd.Flags().String("presale", "", "presale key")
	showCmd.Flags().String("owner", "", "buyer public key")

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func newPurchaseCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Buy fractions; they stay locked until vesting ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			p, err := presaleFlag(ctx, services, cmd)
			if err != nil {
				return err
			}
			buyer, err := keyFlag(cmd, "buyer")
			if err != nil {
				return err
			}
			payment, err := keyFlag(cmd, "payment-account")
			if err != nil {
				return err
			}
			access, err := keyFlag(cmd, "access-account")
			if err != nil {
				return err
			}
			amount, err := amountFlag(ctx, services, cmd, "amount", p.FractionMint)
			if err != nil {
				return err
			}
			vestingAccount, err := buyerVestingAccount(ctx, services, p.Key, buyer)
			if err != nil {
				return err
			}

			if err := services.Engine.PurchaseFractions(ctx, presale.PurchaseParams{
				Presale:        p.Key,
				Buyer:          buyer,
				Treasuries:     presale.TreasuriesOf(p),
				PaymentAccount: payment,
				AccessAccount:  access,
				VestingAccount: vestingAccount,
				Amount:         amount,
			}); err != nil {
				return err
			}

			cost, _ := presale.PurchaseCost(p.Price, amount)
			return opts.out(cmd).result("Purchase complete", map[string]interface{}{
				"presale":         p.Key.String(),
				"buyer":           buyer.String(),
				"amount":          amount,
				"cost":            cost,
				"vesting_account": vestingAccount.String(),
			}, []common.Field{
				{Label: "Presale", Value: p.Key.String()},
				{Label: "Fractions", Value: rawAmount(ctx, services, p.FractionMint, amount)},
				{Label: "Paid", Value: rawAmount(ctx, services, p.PaymentMint, cost)},
				{Label: "Locked in", Value: vestingAccount.String()},
				{Label: "Unlocks at", Value: p.VestingEnd.Format(time.RFC3339)},
			})
		},
	}
	cmd.Flags().String("presale", "", "presale key")
	cmd.Flags().String("buyer", "", "buyer public key")
	cmd.Flags().String("payment-account", "", "buyer payment token account")
	cmd.Flags().String("access-account", "", "buyer access token account")
	cmd.Flags().String("amount", "", "fractions in whole units")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newUnlockCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Release vested fractions to a buyer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			p, err := presaleFlag(ctx, services, cmd)
			if err != nil {
				return err
			}
			owner, err := keyFlag(cmd, "owner")
			if err != nil {
				return err
			}
			destination, err := keyFlag(cmd, "destination")
			if err != nil {
				return err
			}
			vestingAccount, err := buyerVestingAccount(ctx, services, p.Key, owner)
			if err != nil {
				return err
			}

			unlocked, err := services.Engine.UnlockFractions(ctx, presale.UnlockParams{
				Presale:        p.Key,
				Owner:          owner,
				Treasuries:     presale.TreasuriesOf(p),
				VestingAccount: vestingAccount,
				Destination:    destination,
			})
			if err != nil {
				return err
			}

			return opts.out(cmd).result("Fractions unlocked", map[string]interface{}{
				"presale":  p.Key.String(),
				"owner":    owner.String(),
				"unlocked": unlocked,
			}, []common.Field{
				{Label: "Presale", Value: p.Key.String()},
				{Label: "Unlocked", Value: rawAmount(ctx, services, p.FractionMint, unlocked)},
				{Label: "Destination", Value: destination.String()},
			})
		},
	}
	cmd.Flags().String("presale", "", "presale key")
	cmd.Flags().String("owner", "", "buyer public key")
	cmd.Flags().String("destination", "", "buyer fraction account")
	return cmd
}

// buyerVestingAccount looks up the custodial account bound to the buyer's vesting record
func buyerVestingAccount(ctx context.Context, services *common.Services, presaleKey, owner solana.PublicKey) (solana.PublicKey, error) {
	key, _, err := presale.VestingAddress(services.Engine.ProgramID(), owner, presaleKey)
	if err != nil {
		return solana.PublicKey{}, err
	}
	record, err := services.DbService.GetVestingRecord(ctx, key)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("no vesting record for %s, run 'vesting init' first: %w", owner, err)
	}
	return record.VestingAccount, nil
}

func printVesting(cmd *cobra.Command, opts *RootOptions, services *common.Services, title string, presaleKey, owner solana.PublicKey) error {
	view, err := services.ApiService.GetVestingRecord(cmd.Context(), presaleKey, owner)
	if err != nil {
		return err
	}
	return opts.out(cmd).result(title, view, vestingFields(view))
}

func vestingFields(v *models.VestingView) []common.Field {
	return []common.Field{
		{Label: "Record", Value: v.Key},
		{Label: "Owner", Value: v.Owner},
		{Label: "Vesting account", Value: v.VestingAccount},
		{Label: "Locked", Value: v.Locked.String()},
		{Label: "Unlocks at", Value: v.UnlocksAt.Format(time.RFC3339)},
	}
}
