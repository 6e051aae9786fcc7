// settlectl is the operator CLI for the settlement service: webhook
// endpoint diagnostics and manual subscription teardown.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/garrettladley/settle/internal/config"
	"github.com/garrettladley/settle/internal/provider"
	"github.com/garrettladley/settle/internal/version"
	"github.com/garrettladley/settle/internal/xslog"
)

func main() {
	_ = godotenv.Load()

	logger := xslog.NewLoggerFromEnv(os.Stderr)
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:           "settlectl",
		Short:         "Operate the payment settlement service",
		Version:       version.Get(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(diagCmd())
	rootCmd.AddCommand(cancelCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newProvider(cfg config.Config) (*provider.Client, error) {
	return provider.New(provider.Config{
		SecretKey:         cfg.Stripe.SecretKey,
		MaxNetworkRetries: cfg.Stripe.MaxNetworkRetries,
		Telemetry:         cfg.Stripe.Telemetry,
		CABundlePath:      cfg.Stripe.CABundle,
		TLSMinVersion:     cfg.Stripe.TLSMinVersion,
	})
}
