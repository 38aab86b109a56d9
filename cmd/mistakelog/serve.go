package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/mistakelog/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if host, _ := cmd.Flags().GetString("host"); host != "" {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("host", "", "interface to bind (overrides SERVER_HOST)")
	cmd.Flags().Int("port", 0, "port to listen on (overrides SERVER_PORT)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	slog.Info("configuration loaded",
		"addr", a.cfg.Server.Addr(),
		"store", a.cfg.Store.Path,
		"import_max_concurrent", a.cfg.Import.MaxConcurrent,
		"rate_limit_enabled", a.cfg.Rate.Enabled,
	)

	server := web.NewServer(a.service, a.cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := a.service.ImportStatus(); status.Active > 0 {
		slog.Info("waiting for imports to complete", "active", status.Active)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return <-errCh
}
