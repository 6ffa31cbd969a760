package cli

import (
	"context"
	"fmt"

	"fraction-presale-go/internal/common"
	"fraction-presale-go/internal/config"
	"fraction-presale-go/internal/models"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags and the lazily opened services shared by all commands.
type RootOptions struct {
	Format string // "json" | "text"

	cfg      *models.Config
	services *common.Services
	owned    bool // services were opened here and must be closed
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the presale CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presale",
		Short: "Fraction presale with vesting",
		Long:  "Run token presales: stock fractions, sell them against a payment token and an access pass, lock them until vesting ends.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			opts.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newMintCommand(opts))
	cmd.AddCommand(newAccountCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newRemoveCommand(opts))
	cmd.AddCommand(newStartCommand(opts))
	cmd.AddCommand(newCollectCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newVestingCommand(opts))
	cmd.AddCommand(newPurchaseCommand(opts))
	cmd.AddCommand(newUnlockCommand(opts))
	cmd.AddCommand(newBalanceCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

// open loads configuration and connects to the database on first use.
func (o *RootOptions) open(ctx context.Context) (*common.Services, error) {
	if o.services != nil {
		return o.services, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	o.cfg = cfg
	o.services = services
	o.owned = true
	return services, nil
}

func (o *RootOptions) close() {
	if o.owned && o.services != nil {
		o.services.Close()
		o.services = nil
		o.owned = false
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
