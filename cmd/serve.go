package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanhnv2901/veribits-cli/internal/api"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run veribits as a local REST gateway",
	Long: `Expose every tool at POST /api/v1/tools/{name} with one uniform JSON
envelope. Calls are forwarded to the configured VeriBits API using the stored
credentials unless the caller supplies its own Authorization or X-API-Key
header.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config.Serve
		logger := appCtx.Logger

		server := api.NewServer(api.Config{
			Tools:          appCtx.Tools,
			Executor:       appCtx.Dispatcher,
			AuthToken:      cfg.AuthToken,
			Logger:         logger,
			CORSOrigins:    cfg.CORSOrigins,
			TrustedProxies: cfg.TrustedProxies,
			RateLimit:      cfg.RateLimit,
			RateBurst:      cfg.RateBurst,
			OnResult: func(res dispatch.Result) {
				maybeRecordTelemetry(appCtx, "serve", res)
			},
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:              cfg.Addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      servingWriteTimeout(appCtx.Config.API.Timeout),
			IdleTimeout:       120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Gateway listening on %s (backend: %s)\n", colorInfo("→"), cfg.Addr, appCtx.Client.BaseURL())
			fmt.Fprintf(cmd.OutOrStdout(), "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

// servingWriteTimeout leaves room for the upstream call. Without a client
// timeout the gateway does not cut responses short either.
func servingWriteTimeout(upstream time.Duration) time.Duration {
	if upstream <= 0 {
		return 0
	}
	return upstream + 5*time.Second
}

func init() {
	serveCmd.Flags().StringVar(&cliConfig.Serve.Addr, "addr", defaultServeAddr, "Address for the gateway")
	serveCmd.Flags().StringVar(&cliConfig.Serve.AuthToken, "auth-token", "", "Optional shared secret required in X-Auth-Token")
	serveCmd.Flags().DurationVar(&cliConfig.Serve.ShutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "Graceful shutdown timeout")
	serveCmd.Flags().StringSliceVar(&cliConfig.Serve.CORSOrigins, "cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().StringSliceVar(&cliConfig.Serve.TrustedProxies, "trusted-proxies", []string{}, "Proxy addresses or CIDRs whose X-Forwarded-For is trusted")
	serveCmd.Flags().IntVar(&cliConfig.Serve.RateLimit, "rate-limit", defaultServeRateLimit, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().IntVar(&cliConfig.Serve.RateBurst, "rate-burst", defaultServeRateBurst, "Rate limit burst size")
	rootCmd.AddCommand(serveCmd)
}
