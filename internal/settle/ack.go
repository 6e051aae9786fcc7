package settle

// Decision is the redelivery contract with the provider: Ack stops
// redelivery of the event, Retry requests it.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionAck
	DecisionRetry
)

func (d Decision) String() string {
	switch d {
	case DecisionAck:
		return "ack"
	case DecisionRetry:
		return "retry"
	default:
		return "none"
	}
}

// AckSignal emits exactly one Decision per inbound request. The first
// emission wins and triggers the callback (typically flushing the HTTP
// status); later emissions are no-ops. Requests are processed by a single
// goroutine, so no locking is needed.
type AckSignal struct {
	emit     func(Decision)
	decision Decision
}

func NewAckSignal(emit func(Decision)) *AckSignal {
	return &AckSignal{emit: emit}
}

func (s *AckSignal) Ack()   { s.set(DecisionAck) }
func (s *AckSignal) Retry() { s.set(DecisionRetry) }

// Decision returns what was emitted, or DecisionNone if nothing yet.
func (s *AckSignal) Decision() Decision { return s.decision }

func (s *AckSignal) set(d Decision) {
	if s.decision != DecisionNone {
		return
	}
	s.decision = d
	if s.emit != nil {
		s.emit(d)
	}
}
