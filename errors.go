package timerq

import "github.com/ghettovoice/timerq/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument = errorutil.ErrInvalidArgument
	// ErrManagerClosed is returned when attempting to schedule
	// a timer on a closed manager.
	ErrManagerClosed Error = "timer manager closed"
)

// Error represents a timerq error.
// See [errorutil.Error].
type Error = errorutil.Error

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}
