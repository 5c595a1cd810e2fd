package triage

import (
	"context"
	"errors"

	"github.com/linnemanlabs/argus/internal/alert"
)

var (
	// ErrTimeout means the inference endpoint did not answer within the wait budget.
	ErrTimeout = errors.New("inference timed out")

	// ErrTransport means the inference request failed on the wire or returned a non-2xx status.
	ErrTransport = errors.New("inference transport error")

	// ErrMalformedResponse means the inference endpoint answered with a body that is not valid JSON.
	ErrMalformedResponse = errors.New("malformed inference response")
)

// ErrorKind names a failure class for logs, metrics and API responses.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindInvalidAlert        ErrorKind = "invalid_alert"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindTimeout             ErrorKind = "timeout"
	KindTransport           ErrorKind = "transport_error"
	KindMalformedResponse   ErrorKind = "malformed_response"
)

// KindOf classifies err. Unrecognised errors are reported as transport errors
// since they can only originate from the inference call.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, alert.ErrInvalid):
		return KindInvalidAlert
	case errors.Is(err, alert.ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	default:
		return KindTransport
	}
}
