package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the request header carrying the provider signature.
const SignatureHeader = "Stripe-Signature"

// signingVersion identifies signatures computed with the current scheme.
// Other versions (e.g. v0) are test-mode noise and are skipped.
const signingVersion = "v1"

var (
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrVerification     = errors.New("webhook verification failed")
)

type signedHeader struct {
	timestamp  time.Time
	signatures [][]byte
}

// parseSignatureHeader splits a "t=<unix>,v1=<hex>[,v1=<hex>...]" header.
// Undecodable signature values are skipped rather than rejected so that a
// header mixing schemes still verifies, but a header yielding no timestamp
// or no candidate signatures is malformed.
func parseSignatureHeader(value string) (*signedHeader, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrVerification)
	}

	var hdr signedHeader
	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: malformed signature header", ErrVerification)
		}

		switch parts[0] {
		case "t":
			unix, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed timestamp: %v", ErrVerification, err)
			}
			hdr.timestamp = time.Unix(unix, 0)
		case signingVersion:
			sig, err := hex.DecodeString(parts[1])
			if err != nil {
				continue
			}
			hdr.signatures = append(hdr.signatures, sig)
		}
	}

	if hdr.timestamp.IsZero() {
		return nil, fmt.Errorf("%w: signature header has no timestamp", ErrVerification)
	}
	if len(hdr.signatures) == 0 {
		return nil, fmt.Errorf("%w: signature header has no %s signatures", ErrVerification, signingVersion)
	}
	return &hdr, nil
}

// Verifier authenticates inbound webhook payloads. The signing secret and
// tolerance window are fixed at construction and never mutated.
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

type VerifierOption func(*Verifier)

// WithNow overrides the clock used for the tolerance check.
func WithNow(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(secret string, tolerance time.Duration, opts ...VerifierOption) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("webhook: signing secret is required")
	}
	if tolerance <= 0 {
		return nil, errors.New("webhook: tolerance must be positive")
	}
	v := &Verifier{secret: secret, tolerance: tolerance, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify authenticates payload against header and decodes it into an Event.
//
// Returns ErrInvalidPayload when the payload is not a well-formed event
// envelope, ErrInvalidSignature when no signature matches or the timestamp
// falls outside the tolerance window (replay protection), and
// ErrVerification when the header itself cannot be parsed.
func (v *Verifier) Verify(payload []byte, header string) (*Event, error) {
	hdr, err := parseSignatureHeader(header)
	if err != nil {
		return nil, err
	}

	if drift := v.now().Sub(hdr.timestamp); drift > v.tolerance || drift < -v.tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance window", ErrInvalidSignature)
	}

	expected := computeSignature(hdr.timestamp, payload, v.secret)

	// Every candidate is checked even after a match: headers carry one
	// signature per active secret during rotation, and timing must not
	// reveal which slot matched.
	matched := false
	for _, sig := range hdr.signatures {
		if hmac.Equal(sig, expected) {
			matched = true
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: no matching signature", ErrInvalidSignature)
	}

	// Only authenticated bytes are decoded. A tampered payload fails the
	// HMAC above regardless of whether the tampering broke the JSON.
	return parseEnvelope(payload)
}

// computeSignature returns HMAC-SHA256("{timestamp}.{payload}", secret).
func computeSignature(t time.Time, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", t.Unix())
	mac.Write(payload)
	return mac.Sum(nil)
}
