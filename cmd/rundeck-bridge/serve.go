package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kirychukyurii/rundeck-bridge/internal/api"
	"github.com/kirychukyurii/rundeck-bridge/pkg/httpserver"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP gateway to Rundeck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Server
			handler := api.NewHandler(a.service(), cfg.BasePath, a.logger)
			srv := httpserver.New(cfg.Addr, handler.Router(), cfg.ReadTimeout, cfg.WriteTimeout, a.logger)

			a.logger.Info("starting rundeck-bridge gateway",
				slog.String("rundeck", a.cfg.Rundeck.URL),
				slog.String("project", a.service().Project()),
				slog.String("base_path", cfg.BasePath),
			)

			if err := srv.Run(cmd.Context()); err != nil {
				return err
			}

			a.logger.Info("shutdown complete")
			return nil
		},
	}
}
