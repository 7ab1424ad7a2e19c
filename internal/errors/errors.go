package errors

import (
	"errors"
	"fmt"
)

// Common error values for the dashboard client
var (
	// Session errors
	ErrNotLoggedIn = errors.New("not logged in")

	// Storage errors
	ErrStoreUnavailable = errors.New("token store unavailable")
	ErrStoreCorrupt     = errors.New("token store corrupt")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
