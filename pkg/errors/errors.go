package founders_errors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access denied")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid argument")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("store unavailable")
	ErrAlreadyExists      = errors.New("already exists")
)

// Now returns the current UTC time truncated to microseconds, the precision
// Postgres keeps for timestamptz.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
