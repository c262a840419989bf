package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/smartspend/internal/api"
	"github.com/insightdelivered/smartspend/internal/logger"
	"github.com/insightdelivered/smartspend/internal/parser"
	"github.com/insightdelivered/smartspend/internal/store"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.ServerAddr
			}
			return a.withStore(func(s *store.Store) error {
				h := &api.Handler{
					Store:     s,
					Importer:  parser.NewImporter(s, a.log.With().Str("component", "importer").Logger()),
					Log:       a.log.With().Str("component", "api").Logger(),
					StaticDir: a.cfg.StaticDir,
					Now:       a.now,
				}
				return serve(cmd.Context(), a, api.NewApp(h, a.cfg.MaxUploadMB), addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

type listener interface {
	Listen(addr string) error
	ShutdownWithTimeout(timeout time.Duration) error
}

// serve runs srv until it fails or the process is interrupted.
func serve(ctx context.Context, a *app, srv listener, addr string) error {
	log := logger.WithFields(a.log, map[string]interface{}{
		"addr": addr,
		"db":   a.cfg.DatabasePath,
	})

	errc := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting API server")
		errc <- srv.Listen(addr)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	if err := srv.ShutdownWithTimeout(30 * time.Second); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
