package xslog

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/garrettladley/settle/internal/version"
)

const keyError = "error"

func Error(err error) slog.Attr {
	return slog.String(keyError, err.Error())
}

func RequestID(requestID string) slog.Attr {
	const requestIDKey = "request_id"
	return slog.String(requestIDKey, requestID)
}

func HTTPStatus(status int) slog.Attr {
	const statusKey = "status"
	return slog.Int(statusKey, status)
}

func Duration(duration time.Duration) slog.Attr {
	const durationKey = "duration"
	return slog.Duration(durationKey, duration)
}

func RequestMethod(r *http.Request) slog.Attr {
	const methodKey = "method"
	return slog.String(methodKey, r.Method)
}

func RequestPath(r *http.Request) slog.Attr {
	const pathKey = "path"
	return slog.String(pathKey, r.URL.Path)
}

func IP(ip string) slog.Attr {
	const ipKey = "ip"
	return slog.String(ipKey, ip)
}

func Version() slog.Attr {
	const versionKey = "version"
	return slog.String(versionKey, version.Get())
}

func Component(component string) slog.Attr {
	const componentKey = "component"
	return slog.String(componentKey, component)
}

func EventType(eventType string) slog.Attr {
	const eventTypeKey = "event_type"
	return slog.String(eventTypeKey, eventType)
}

func EventID(id string) slog.Attr {
	const eventIDKey = "event_id"
	return slog.String(eventIDKey, id)
}

// Hash is the ledger correlation id; attached to the context logger as
// soon as metadata resolution finds it.
func Hash(hash string) slog.Attr {
	const hashKey = "hash"
	return slog.String(hashKey, hash)
}

func Outcome(outcome string) slog.Attr {
	const outcomeKey = "outcome"
	return slog.String(outcomeKey, outcome)
}

func Decision(decision string) slog.Attr {
	const decisionKey = "decision"
	return slog.String(decisionKey, decision)
}

func ChargeID(id string) slog.Attr {
	const chargeIDKey = "charge_id"
	return slog.String(chargeIDKey, id)
}

func SubscriptionID(id string) slog.Attr {
	const subscriptionIDKey = "subscription_id"
	return slog.String(subscriptionIDKey, id)
}

func UserID(id string) slog.Attr {
	const userIDKey = "user_id"
	return slog.String(userIDKey, id)
}

func Currency(code string) slog.Attr {
	const currencyKey = "currency"
	return slog.String(currencyKey, code)
}

func PaymentStatus(status string) slog.Attr {
	const paymentStatusKey = "payment_status"
	return slog.String(paymentStatusKey, status)
}

func FailureCode(code string) slog.Attr {
	const failureCodeKey = "failure_code"
	return slog.String(failureCodeKey, code)
}

func ExpectedAmount(amount string) slog.Attr {
	const expectedAmountKey = "expected_amount"
	return slog.String(expectedAmountKey, amount)
}

func PaidAmount(amount string) slog.Attr {
	const paidAmountKey = "paid_amount"
	return slog.String(paidAmountKey, amount)
}

func Count(count int) slog.Attr {
	const countKey = "count"
	return slog.Int(countKey, count)
}
