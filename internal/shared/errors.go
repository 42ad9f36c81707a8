package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("no authenticated user")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Upstream API errors
	ErrUpstream        = fmt.Errorf("upstream server error")
	ErrRateLimited     = fmt.Errorf("rate limited")
	ErrPremiumRequired = fmt.Errorf("spotify premium required")
	ErrNoActiveDevice  = fmt.Errorf("no active device")
	ErrNotFound        = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
