package provider

import (
	"errors"
	"fmt"
)

// Kind classifies provider failures so callers can branch on structure
// instead of matching message strings.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMissingKey means no API key was configured.
	KindMissingKey
	// KindQuota means the backend rejected the request for rate or quota
	// reasons and a retry later may succeed.
	KindQuota
	// KindExhausted means every fallback candidate failed.
	KindExhausted
	// KindUnsupported means the backend cannot perform the operation,
	// such as speech synthesis on a text-only backend.
	KindUnsupported
	// KindBadStream means the backend returned a malformed or explicit
	// error frame mid-stream.
	KindBadStream
	// KindRequest means the request itself failed, transport or HTTP level.
	KindRequest
)

func (k Kind) String() string {
	switch k {
	case KindMissingKey:
		return "missing_key"
	case KindQuota:
		return "quota"
	case KindExhausted:
		return "exhausted"
	case KindUnsupported:
		return "unsupported"
	case KindBadStream:
		return "bad_stream"
	case KindRequest:
		return "request"
	default:
		return "unknown"
	}
}

// QuotaMessage is shown to the user when the native backend reports
// quota exhaustion.
const QuotaMessage = "Gemini Quota Exceeded. The free tier is busy. Please try again in a moment or add your own API Key in Settings."

// Error is a classified provider failure. Model names the fallback
// candidate that produced it, when one applies.
type Error struct {
	Kind    Kind
	Model   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Model != "" {
		return fmt.Sprintf("provider: %s: %s: %s", e.Kind, e.Model, msg)
	}
	return fmt.Sprintf("provider: %s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err or anything it wraps is a provider Error of
// the given kind. It keeps unwrapping past Errors of other kinds, so an
// exhausted-fallback error still reports the quota failure it wraps.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if pe, ok := err.(*Error); ok && pe.Kind == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
