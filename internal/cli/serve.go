package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/twentyq/internal/httpapi"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game over HTTP",
		Long: `Serve exposes the game under /api, plus /health and /metrics.
Clients pick a session with the X-Session-ID header; POST /api/sessions
creates one. Without the header every client shares the default session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.settings.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts.settings)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// runServe blocks until ctx is done, then shuts the server down.
func runServe(ctx context.Context, s Settings) error {
	a, err := openApp(s)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	if s.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	}
	h := httpapi.NewHandler(a.sessions, a.coord.Models(), a.log)
	router := httpapi.NewRouter(h, httpapi.Options{
		AllowedOrigins: s.Server.AllowedOrigins,
		Metrics:        a.metrics,
		Logger:         a.log,
	})

	srv := &http.Server{
		Addr:         s.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting HTTP server", zap.String("addr", s.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", s.Server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	timeout := s.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	a.log.Info("server exiting")
	return nil
}
