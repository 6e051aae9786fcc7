// Package diag inspects the provider-side webhook endpoint configuration and
// reports drift from what this service expects to receive.
package diag

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/garrettladley/settle/internal/provider"
	"github.com/garrettladley/settle/internal/webhook"
)

const webhookPath = "/webhooks/stripe"

// Report describes one endpoint check. MissingEvents lists processable event
// types the endpoint is not subscribed to; a "*" subscription covers all of
// them.
type Report struct {
	EndpointID    string
	EndpointURL   string
	ExpectedURL   string
	URLMatches    bool
	Status        string
	MissingEvents []webhook.Type
}

func (r Report) Healthy() bool {
	return r.URLMatches && r.Status == "enabled" && len(r.MissingEvents) == 0
}

// Check fetches the registered webhook endpoint and compares it against the
// URL this service serves and the event types it processes.
func Check(ctx context.Context, api provider.API, endpointID, siteURL string) (*Report, error) {
	endpoint, err := api.GetWebhookEndpoint(ctx, endpointID)
	if err != nil {
		return nil, fmt.Errorf("fetch webhook endpoint %s: %w", endpointID, err)
	}

	expectedURL := strings.TrimRight(siteURL, "/") + webhookPath

	report := &Report{
		EndpointID:  endpointID,
		EndpointURL: endpoint.URL,
		ExpectedURL: expectedURL,
		URLMatches:  endpoint.URL == expectedURL,
		Status:      endpoint.Status,
	}

	if slices.Contains(endpoint.EnabledEvents, "*") {
		return report, nil
	}
	for _, t := range webhook.ProcessableTypes() {
		if !slices.Contains(endpoint.EnabledEvents, string(t)) {
			report.MissingEvents = append(report.MissingEvents, t)
		}
	}
	return report, nil
}
