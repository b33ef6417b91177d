package rate

import "errors"

var (
	// ErrRateLimited is returned when a budget is exhausted for the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps counter backend failures.
	ErrStoreUnavailable = errors.New("rate store unavailable")
)
