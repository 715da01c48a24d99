package telemetry

import (
	"context"
	"errors"

	"stockscreener/internal/provider"
)

// Classify maps a provider error to a Reason. nil maps to ReasonOK.
// Anything that is not a known provider condition is treated as transport.
func Classify(err error) Reason {
	var se *provider.StatusError
	switch {
	case err == nil:
		return ReasonOK
	case errors.Is(err, provider.ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, provider.ErrMissingCredential), errors.Is(err, provider.ErrUnauthorized):
		return ReasonCredential
	case errors.As(err, &se):
		return ReasonStatus
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonTransport
	}
}
