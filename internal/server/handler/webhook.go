package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/garrettladley/settle/internal/cancel"
	"github.com/garrettladley/settle/internal/settle"
	"github.com/garrettladley/settle/internal/webhook"
	"github.com/garrettladley/settle/internal/xslog"
)

// maxWebhookBody bounds inbound payloads; provider events are a few KB.
const maxWebhookBody = 1 << 16

type Webhook struct {
	engine   *settle.Engine
	canceler *cancel.Orchestrator
}

func NewWebhook(engine *settle.Engine, canceler *cancel.Orchestrator) *Webhook {
	return &Webhook{engine: engine, canceler: canceler}
}

// HandleWebhook handles POST /webhooks/stripe requests. The response status
// is written and flushed the moment the engine emits its ack decision, so
// the provider's delivery timeout cannot fire while slow settlement work
// (price lookups, remote cancellations) is still running.
func (h *Webhook) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := xslog.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logger.WarnContext(ctx, "failed to read webhook body", xslog.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sig := settle.NewAckSignal(func(d settle.Decision) {
		switch d {
		case settle.DecisionAck:
			w.WriteHeader(http.StatusOK)
		case settle.DecisionRetry:
			w.WriteHeader(http.StatusBadRequest)
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	})

	result, err := h.engine.ProcessWebhook(ctx, body, r.Header.Get(webhook.SignatureHeader), sig)

	// Backstop: every request answers exactly once even if the engine
	// returned without deciding.
	if sig.Decision() == settle.DecisionNone {
		logger.ErrorContext(ctx, "engine returned without an ack decision")
		sig.Retry()
	}

	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) ||
			errors.Is(err, webhook.ErrInvalidPayload) ||
			errors.Is(err, webhook.ErrVerification) {
			logger.WarnContext(ctx, "rejected webhook delivery",
				xslog.Decision(sig.Decision().String()),
				xslog.Error(err))
			return
		}
		logger.ErrorContext(ctx, "webhook processing failed",
			xslog.Decision(sig.Decision().String()),
			xslog.Error(err))
		return
	}

	// Response already flushed; anything below is post-ack work.
	if result != nil && h.canceler != nil && shouldCancel(result.Outcome) {
		h.canceler.CancelAll(ctx, result.Metadata.UserID, result.Metadata.SubscriptionID)
	}
}

// shouldCancel reports whether the outcome ends the user's entitlement and
// their remote subscriptions should be torn down.
func shouldCancel(o settle.Outcome) bool {
	return o.Kind == settle.KindRefunded || o.Kind == settle.KindRejected
}
