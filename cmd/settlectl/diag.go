package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garrettladley/settle/internal/config"
	"github.com/garrettladley/settle/internal/diag"
)

func diagCmd() *cobra.Command {
	var endpointID string

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Check the provider-side webhook endpoint configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if endpointID == "" {
				endpointID = cfg.Stripe.WebhookEndpointID
			}
			if endpointID == "" {
				return fmt.Errorf("no webhook endpoint id: pass --endpoint or set STRIPE_WEBHOOK_ENDPOINT_ID")
			}

			api, err := newProvider(cfg)
			if err != nil {
				return err
			}

			report, err := diag.Check(cmd.Context(), api, endpointID, cfg.SiteURL)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "endpoint:   %s\n", report.EndpointID)
			fmt.Fprintf(out, "url:        %s\n", report.EndpointURL)
			fmt.Fprintf(out, "expected:   %s\n", report.ExpectedURL)
			fmt.Fprintf(out, "status:     %s\n", report.Status)
			if len(report.MissingEvents) > 0 {
				fmt.Fprintf(out, "missing:    %v\n", report.MissingEvents)
			}
			if !report.Healthy() {
				return fmt.Errorf("webhook endpoint configuration drift detected")
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&endpointID, "endpoint", "", "webhook endpoint id (defaults to STRIPE_WEBHOOK_ENDPOINT_ID)")
	return cmd
}
