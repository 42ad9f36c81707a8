package dispatch

import (
	"errors"

	"github.com/desertthunder/maestro/internal/shared"
)

// Error kinds surfaced to the calling agent. Every dispatcher error maps to
// exactly one of these; raw upstream error bodies are never passed through.
const (
	KindAuthenticationFailure = "authentication_failure"
	KindPremiumRequired       = "premium_required"
	KindNoActiveDevice        = "no_active_device"
	KindNotFound              = "not_found"
	KindRateLimited           = "rate_limited"
	KindInvalidArgument       = "invalid_argument"
	KindUpstreamServerError   = "upstream_server_error"
)

// Kind classifies an error from a dispatcher operation into one of the
// agent-facing error kinds.
func Kind(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return KindAuthenticationFailure
	case errors.Is(err, shared.ErrPremiumRequired):
		return KindPremiumRequired
	case errors.Is(err, shared.ErrNoActiveDevice):
		return KindNoActiveDevice
	case errors.Is(err, shared.ErrNotFound):
		return KindNotFound
	case errors.Is(err, shared.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
		return KindInvalidArgument
	default:
		return KindUpstreamServerError
	}
}
