package cli

import (
	"fraction-presale-go/internal/common"
	"fraction-presale-go/internal/httpapi"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(opts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only HTTP API, mirroring to Formance when enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			services, err := opts.open(ctx)
			if err != nil {
				return err
			}
			if addr == "" && opts.cfg != nil {
				addr = opts.cfg.HTTP.ListenAddr
			}
			if addr == "" {
				addr = ":8080"
			}

			if opts.cfg != nil && opts.cfg.Mirror.Enabled {
				m, _, err := common.InitializeMirror(ctx, opts.cfg, services.DbService)
				if err != nil {
					return err
				}
				m.Start(ctx)
				defer m.Stop()
			} else {
				zap.L().Info("Ledger mirror disabled")
			}

			return httpapi.Serve(ctx, addr, services.ApiService)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to HTTP_LISTEN_ADDR)")
	return cmd
}
