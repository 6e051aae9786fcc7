package settle

// Kind classifies what happened to a payment.
type Kind int

const (
	// KindUnhandled covers events outside the allow-list and failed
	// charges: acknowledged and logged, no settlement recorded.
	KindUnhandled Kind = iota
	KindPaid
	KindRefunded
	KindRefundFailed
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindPaid:
		return "paid"
	case KindRefunded:
		return "refunded"
	case KindRefundFailed:
		return "refund_failed"
	case KindRejected:
		return "rejected"
	default:
		return "unhandled"
	}
}

// Reason codes for rejected outcomes.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonInvalidPaymentAmount Reason = "invalid_payment_amount"
	ReasonInvalidPaymentStatus Reason = "invalid_payment_status"
)

// Outcome is the final settlement classification of one processable event.
type Outcome struct {
	Kind   Kind
	Reason Reason
}

var (
	Unhandled    = Outcome{Kind: KindUnhandled}
	Paid         = Outcome{Kind: KindPaid}
	Refunded     = Outcome{Kind: KindRefunded}
	RefundFailed = Outcome{Kind: KindRefundFailed}
)

func Rejected(reason Reason) Outcome {
	return Outcome{Kind: KindRejected, Reason: reason}
}

func (o Outcome) String() string {
	if o.Kind == KindRejected && o.Reason != ReasonNone {
		return o.Kind.String() + ":" + string(o.Reason)
	}
	return o.Kind.String()
}
