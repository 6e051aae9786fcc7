package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/garrettladley/settle/internal/cancel"
	"github.com/garrettladley/settle/internal/config"
	"github.com/garrettladley/settle/internal/ledger"
)

func cancelCmd() *cobra.Command {
	var (
		userID         string
		subscriptionID string
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a user's active remote subscriptions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			pool, err := pgxpool.New(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			api, err := newProvider(cfg)
			if err != nil {
				return err
			}

			orchestrator := cancel.New(api, ledger.NewPostgresStore(pool))
			if !orchestrator.CancelAll(cmd.Context(), userID, subscriptionID) {
				return fmt.Errorf("some remote subscriptions were not canceled; see logs")
			}

			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "ledger user id")
	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "ledger subscription id")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("subscription")
	return cmd
}
