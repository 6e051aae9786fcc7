// Package webhook verifies and decodes inbound payment-provider webhook
// deliveries into typed events.
package webhook

import (
	"fmt"

	go_json "github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v74"
)

type Type string

const (
	TypeChargeSucceeded Type = "charge.succeeded"
	TypeChargeRefunded  Type = "charge.refunded"
	TypeChargeFailed    Type = "charge.failed"
	TypeRefundFailed    Type = "refund.failed"
)

// processable is the fixed allow-list of event types that feed settlement.
// Providers can be reconfigured (or locally forwarded) to deliver anything;
// everything outside this set is acknowledged and logged, never escalated.
var processable = map[Type]struct{}{
	TypeChargeSucceeded: {},
	TypeChargeRefunded:  {},
	TypeChargeFailed:    {},
	TypeRefundFailed:    {},
}

func (t Type) Processable() bool {
	_, ok := processable[t]
	return ok
}

// ProcessableTypes returns the allow-list in a stable order.
func ProcessableTypes() []Type {
	return []Type{TypeChargeSucceeded, TypeChargeRefunded, TypeChargeFailed, TypeRefundFailed}
}

// Object is the closed union over payload shapes this engine consumes.
// Each consumption point switches exhaustively on the concrete type.
type Object interface {
	settlementObject()
}

type ChargeObject struct {
	Charge *stripe.Charge
}

func (ChargeObject) settlementObject() {}

type RefundObject struct {
	Refund *stripe.Refund
}

func (RefundObject) settlementObject() {}

// RawObject carries the undecoded payload of log-only event types.
type RawObject struct {
	Raw []byte
}

func (RawObject) settlementObject() {}

// Event is a verified, decoded webhook delivery. Created only after
// signature verification succeeds; treated as immutable from then on.
type Event struct {
	ID     string
	Type   Type
	Object Object
}

type envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object go_json.RawMessage `json:"object"`
	} `json:"data"`
}

func parseEnvelope(payload []byte) (*Event, error) {
	var env envelope
	if err := go_json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}

	event := &Event{ID: env.ID, Type: Type(env.Type)}

	switch event.Type {
	case TypeChargeSucceeded, TypeChargeRefunded, TypeChargeFailed:
		var charge stripe.Charge
		if err := go_json.Unmarshal(env.Data.Object, &charge); err != nil {
			return nil, fmt.Errorf("%w: decoding charge: %v", ErrInvalidPayload, err)
		}
		event.Object = ChargeObject{Charge: &charge}
	case TypeRefundFailed:
		var refund stripe.Refund
		if err := go_json.Unmarshal(env.Data.Object, &refund); err != nil {
			return nil, fmt.Errorf("%w: decoding refund: %v", ErrInvalidPayload, err)
		}
		event.Object = RefundObject{Refund: &refund}
	default:
		event.Object = RawObject{Raw: env.Data.Object}
	}

	return event, nil
}
