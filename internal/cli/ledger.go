package cli

import (
	"fmt"
	"strconv"

	"fraction-presale-go/internal/common"
	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newMintCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Create mints and issue supply",
	}
	cmd.AddCommand(newMintCreateCommand(opts))
	cmd.AddCommand(newMintToCommand(opts))
	return cmd
}

func newMintCreateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new mint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			authority, err := keyFlag(cmd, "authority")
			if err != nil {
				return err
			}
			address, err := optionalKeyFlag(cmd, "address")
			if err != nil {
				return err
			}
			if address.IsZero() {
				address = solana.NewWallet().PublicKey()
			}
			symbol, _ := cmd.Flags().GetString("symbol")
			decimals, _ := cmd.Flags().GetUint8("decimals")

			var mint *models.Mint
			err = services.DbService.RunInTx(ctx, func(tx store.LedgerTx) error {
				mint, err = tx.CreateMint(ctx, store.CreateMintParams{
					Address:   address,
					Symbol:    symbol,
					Decimals:  decimals,
					Authority: authority,
				})
				return err
			})
			if err != nil {
				return err
			}

			return opts.out(cmd).result("Mint created", map[string]interface{}{
				"address":  mint.Address.String(),
				"symbol":   mint.Symbol,
				"decimals": mint.Decimals,
			}, []common.Field{
				{Label: "Address", Value: mint.Address.String()},
				{Label: "Symbol", Value: mint.Symbol},
				{Label: "Decimals", Value: strconv.Itoa(int(mint.Decimals))},
			})
		},
	}
	cmd.Flags().String("symbol", "", "mint symbol (A-Z, 0-9)")
	cmd.Flags().Uint8("decimals", 0, "decimal places of one unit")
	cmd.Flags().String("authority", "", "mint authority public key")
	cmd.Flags().String("address", "", "mint address (random when empty)")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("authority")
	return cmd
}

func newMintToCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "to",
		Short: "Issue new supply into a token account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			mint, err := keyFlag(cmd, "mint")
			if err != nil {
				return err
			}
			destination, err := keyFlag(cmd, "to")
			if err != nil {
				return err
			}
			authority, err := keyFlag(cmd, "authority")
			if err != nil {
				return err
			}
			amount, err := amountFlag(ctx, services, cmd, "amount", mint)
			if err != nil {
				return err
			}

			var transfer *models.Transfer
			err = services.DbService.RunInTx(ctx, func(tx store.LedgerTx) error {
				transfer, err = tx.MintTo(ctx, store.MintToParams{
					Reference:   uuid.NewString(),
					Mint:        mint,
					Destination: destination,
					Authority:   authority,
					Amount:      amount,
				})
				return err
			})
			if err != nil {
				return err
			}

			return opts.out(cmd).result("Tokens minted", map[string]interface{}{
				"reference": transfer.Reference,
				"raw":       transfer.Amount,
			}, []common.Field{
				{Label: "Destination", Value: destination.String()},
				{Label: "Amount", Value: rawAmount(ctx, services, mint, amount)},
				{Label: "Reference", Value: transfer.Reference},
			})
		},
	}
	cmd.Flags().String("mint", "", "mint address")
	cmd.Flags().String("to", "", "destination token account")
	cmd.Flags().String("authority", "", "mint authority")
	cmd.Flags().String("amount", "", "amount in whole units (e.g. 12.5)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newAccountCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage token accounts",
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Open a token account for an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			mint, err := keyFlag(cmd, "mint")
			if err != nil {
				return err
			}
			owner, err := keyFlag(cmd, "owner")
			if err != nil {
				return err
			}
			address, err := optionalKeyFlag(cmd, "address")
			if err != nil {
				return err
			}
			if address.IsZero() {
				address = solana.NewWallet().PublicKey()
			}

			err = services.DbService.RunInTx(ctx, func(tx store.LedgerTx) error {
				_, err := tx.CreateTokenAccount(ctx, store.CreateTokenAccountParams{Address: address, Mint: mint, Owner: owner})
				return err
			})
			if err != nil {
				return err
			}

			return opts.out(cmd).result("Account created", map[string]interface{}{
				"address": address.String(),
				"mint":    mint.String(),
				"owner":   owner.String(),
			}, []common.Field{
				{Label: "Address", Value: address.String()},
				{Label: "Mint", Value: mint.String()},
				{Label: "Owner", Value: owner.String()},
			})
		},
	}
	create.Flags().String("mint", "", "mint address")
	create.Flags().String("owner", "", "owner public key")
	create.Flags().String("address", "", "account address (random when empty)")
	cmd.AddCommand(create)
	return cmd
}

func newBalanceCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a token account balance, or every account of an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			account, err := optionalKeyFlag(cmd, "account")
			if err != nil {
				return err
			}
			owner, err := optionalKeyFlag(cmd, "owner")
			if err != nil {
				return err
			}

			var balances []models.AccountBalance
			switch {
			case !account.IsZero():
				b, err := services.ApiService.GetAccountBalance(ctx, account)
				if err != nil {
					return err
				}
				balances = append(balances, *b)
			case !owner.IsZero():
				if balances, err = services.ApiService.GetOwnerBalances(ctx, owner); err != nil {
					return err
				}
			default:
				return fmt.Errorf("one of --account or --owner is required")
			}

			fields := make([]common.Field, 0, len(balances))
			for _, b := range balances {
				fields = append(fields, common.Field{Label: b.Address, Value: b.Balance.String() + " " + b.Symbol})
			}
			return opts.out(cmd).result("Balances", balances, fields)
		},
	}
	cmd.Flags().String("account", "", "token account address")
	cmd.Flags().String("owner", "", "owner public key")
	return cmd
}

func newHistoryCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List transfers touching a token account, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			account, err := keyFlag(cmd, "account")
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			records, err := services.ApiService.GetTransferHistory(ctx, account, limit, offset)
			if err != nil {
				return err
			}

			fields := make([]common.Field, 0, len(records))
			for _, r := range records {
				fields = append(fields, common.Field{
					Label: r.CreatedAt.Format("2006-01-02 15:04:05"),
					Value: fmt.Sprintf("%-3s %s %s", r.Direction, r.Amount.String(), r.Kind),
				})
			}
			return opts.out(cmd).result("Transfer history", records, fields)
		},
	}
	cmd.Flags().String("account", "", "token account address")
	cmd.Flags().Int("limit", 20, "page size (max 100)")
	cmd.Flags().Int("offset", 0, "records to skip")
	return cmd
}

func newReconcileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Verify cached balances against their journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			values, _ := cmd.Flags().GetStringSlice("account")
			if len(values) == 0 {
				return fmt.Errorf("--account is required")
			}

			fields := make([]common.Field, 0, len(values))
			for _, v := range values {
				account, err := common.ParseKey("account", v)
				if err != nil {
					return err
				}
				if err := services.DbService.ReconcileBalance(ctx, account); err != nil {
					return fmt.Errorf("account %s: %w", account, err)
				}
				fields = append(fields, common.Field{Label: account.String(), Value: "ok"})
			}
			return opts.out(cmd).result("Reconciliation", map[string]interface{}{"reconciled": len(values)}, fields)
		},
	}
	cmd.Flags().StringSlice("account", nil, "token account address (repeatable)")
	return cmd
}
