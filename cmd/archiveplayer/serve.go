package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the player over HTTP",
		Long: "Serve the catalog and playback controls as a JSON API with a\n" +
			"server-sent event stream at /api/events. Audio plays on this host.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireItem(); err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			application, err := ctx.newApplication(false)
			if err != nil {
				return err
			}
			defer func() { _ = application.Shutdown() }()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving item %s on http://%s\n", cfg.Source.ItemID, cfg.Server.Addr)
			if err := application.Serve(runCtx); err != nil && !errors.Is(err, runCtx.Err()) {
				application.Logger().Error("server stopped", slog.Any("error", err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
