package common

import (
	"errors"
	"fmt"
)

// Error classes shared by services, clients and the HTTP layer. Wrap them with
// fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrInvalidArgument marks malformed caller input. Raised before any I/O.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRateLimited marks an upstream 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable marks any other transport or upstream failure.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrNotFound marks a lookup with no matching entity.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks a mutation attempted by someone other than the owner.
	ErrForbidden = errors.New("forbidden")
)

// InvalidArgument builds an ErrInvalidArgument with a caller-facing message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}
