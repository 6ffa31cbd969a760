package cli

import (
	"strconv"
	"time"

	"fraction-presale-go/internal/common"
	"fraction-presale-go/internal/models"
	"fraction-presale-go/internal/presale"

	"github.com/spf13/cobra"
)

func newInitCommand(opts *RootOptions) *cobra.Command {
	var file string
	def := &common.PresaleFile{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a presale and its treasuries",
		Long: `Initialize a presale and its treasuries.

Parameters come from flags or from a YAML file:

  presale init --file presale.yaml

Times are RFC 3339 or a duration from now ("168h").

The --authority key is taken as given. No signature is checked, so anyone
who can run this CLI against the database can act as any authority.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			if file != "" {
				if def, err = common.LoadPresaleFile(file); err != nil {
					return err
				}
			}
			params, err := def.Params()
			if err != nil {
				return err
			}

			p, err := services.Engine.Initialize(ctx, params)
			if err != nil {
				return err
			}
			return printPresale(cmd, opts, services, "Presale initialized", p)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML presale definition")
	cmd.Flags().StringVar(&def.Presale, "presale", "", "presale key (random when empty)")
	cmd.Flags().StringVar(&def.Authority, "authority", "", "presale authority")
	cmd.Flags().StringVar(&def.FractionMint, "fraction-mint", "", "mint of the fractions on sale")
	cmd.Flags().StringVar(&def.PaymentMint, "payment-mint", "", "mint buyers pay with")
	cmd.Flags().StringVar(&def.AccessMint, "access-mint", "", "mint of the access pass")
	cmd.Flags().Uint64Var(&def.Price, "price", 0, "payment base units per fraction base unit, scaled by 1e9")
	cmd.Flags().Uint64Var(&def.MaxAmount, "max", 0, "maximum fractions per purchase, in base units")
	cmd.Flags().StringVar(&def.PresaleEnd, "end", "", "presale end")
	cmd.Flags().StringVar(&def.VestingEnd, "vesting-end", "", "vesting end")
	return cmd
}

func newAddCommand(opts *RootOptions) *cobra.Command {
	return newAdjustCommand(opts, "add", "Move fractions from an authority account into the fraction treasury",
		func(e *presale.Engine, cmd *cobra.Command, params presale.AdjustFractionsParams) error {
			return e.AddFractionsForSale(cmd.Context(), params)
		})
}

func newRemoveCommand(opts *RootOptions) *cobra.Command {
	return newAdjustCommand(opts, "remove", "Return unsold fractions from the treasury to an authority account",
		func(e *presale.Engine, cmd *cobra.Command, params presale.AdjustFractionsParams) error {
			return e.RemoveFractionsForSale(cmd.Context(), params)
		})
}

func newAdjustCommand(opts *RootOptions, use, short string,
	apply func(*presale.Engine, *cobra.Command, presale.AdjustFractionsParams) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
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
			authority, err := keyFlag(cmd, "authority")
			if err != nil {
				return err
			}
			account, err := keyFlag(cmd, "account")
			if err != nil {
				return err
			}
			amount, err := amountFlag(ctx, services, cmd, "amount", p.FractionMint)
			if err != nil {
				return err
			}

			err = apply(services.Engine, cmd, presale.AdjustFractionsParams{
				Presale:    p.Key,
				Authority:  authority,
				Treasuries: presale.TreasuriesOf(p),
				Account:    account,
				Amount:     amount,
			})
			if err != nil {
				return err
			}

			updated, err := services.DbService.GetPresale(ctx, p.Key)
			if err != nil {
				return err
			}
			return printPresale(cmd, opts, services, "Fractions updated", updated)
		},
	}
	cmd.Flags().String("presale", "", "presale key")
	cmd.Flags().String("authority", "", "presale authority")
	cmd.Flags().String("account", "", "authority-owned fraction account")
	cmd.Flags().String("amount", "", "fractions in whole units")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newStartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open the presale for purchases",
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
			authority, err := keyFlag(cmd, "authority")
			if err != nil {
				return err
			}
			if err := services.Engine.StartPresale(ctx, presale.StartPresaleParams{Presale: key, Authority: authority}); err != nil {
				return err
			}
			p, err := services.DbService.GetPresale(ctx, key)
			if err != nil {
				return err
			}
			return printPresale(cmd, opts, services, "Presale started", p)
		},
	}
	cmd.Flags().String("presale", "", "presale key")
	cmd.Flags().String("authority", "", "presale authority")
	return cmd
}

func newCollectCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Drain the payment treasury into an authority account",
		Long: `Drain the payment treasury into an authority account.

The --authority key is taken as given. No signature is checked, so anyone
who can run this CLI against the database can act as any authority.`,
		Args: cobra.NoArgs,
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
			authority, err := keyFlag(cmd, "authority")
			if err != nil {
				return err
			}
			destination, err := keyFlag(cmd, "destination")
			if err != nil {
				return err
			}

			collected, err := services.Engine.CollectFunds(ctx, presale.CollectFundsParams{
				Presale:     p.Key,
				Authority:   authority,
				Treasuries:  presale.TreasuriesOf(p),
				Destination: destination,
			})
			if err != nil {
				return err
			}

			return opts.out(cmd).result("Funds collected", map[string]interface{}{
				"presale":   p.Key.String(),
				"collected": collected,
			}, []common.Field{
				{Label: "Presale", Value: p.Key.String()},
				{Label: "Collected", Value: rawAmount(ctx, services, p.PaymentMint, collected)},
				{Label: "Destination", Value: destination.String()},
			})
		},
	}
	cmd.Flags().String("presale", "", "presale key")
	cmd.Flags().String("authority", "", "presale authority")
	cmd.Flags().String("destination", "", "authority-owned payment account")
	return cmd
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one presale, or list all of them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			key, err := optionalKeyFlag(cmd, "presale")
			if err != nil {
				return err
			}

			if !key.IsZero() {
				view, err := services.ApiService.GetPresale(ctx, key)
				if err != nil {
					return err
				}
				return opts.out(cmd).result("Presale", view, viewFields(view))
			}

			views, err := services.ApiService.ListPresales(ctx)
			if err != nil {
				return err
			}
			fields := make([]common.Field, 0, len(views))
			for _, v := range views {
				fields = append(fields, common.Field{
					Label: v.Key,
					Value: "sold " + v.FractionsSold.String() + ", for sale " + v.FractionsForSale.String() + ", started " + strconv.FormatBool(v.Started),
				})
			}
			return opts.out(cmd).result("Presales", views, fields)
		},
	}
	cmd.Flags().String("presale", "", "presale key")
	return cmd
}

func printPresale(cmd *cobra.Command, opts *RootOptions, services *common.Services, title string, p *models.PresaleConfig) error {
	view, err := services.ApiService.GetPresale(cmd.Context(), p.Key)
	if err != nil {
		return err
	}
	return opts.out(cmd).result(title, view, viewFields(view))
}

func viewFields(v *models.PresaleView) []common.Field {
	start := "-"
	if v.PresaleStart != nil {
		start = v.PresaleStart.Format(time.RFC3339)
	}
	return []common.Field{
		{Label: "Presale", Value: v.Key},
		{Label: "Authority", Value: v.Authority},
		{Label: "Fraction treasury", Value: v.FractionTreasury},
		{Label: "Payment treasury", Value: v.PaymentTreasury},
		{Label: "Access treasury", Value: v.AccessTreasury},
		{Label: "Price", Value: v.Price.String()},
		{Label: "Max amount", Value: v.MaxAmount.String()},
		{Label: "Sold", Value: v.FractionsSold.String()},
		{Label: "For sale", Value: v.FractionsForSale.String()},
		{Label: "Collectable", Value: v.FundsCollectable.String()},
		{Label: "Started", Value: strconv.FormatBool(v.Started)},
		{Label: "Start", Value: start},
		{Label: "End", Value: v.PresaleEnd.Format(time.RFC3339)},
		{Label: "Vesting end", Value: v.VestingEnd.Format(time.RFC3339)},
	}
}
