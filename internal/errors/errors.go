// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchUnavailable is returned when repository metrics could not be fetched.
	ErrFetchUnavailable = errors.New("repository metrics unavailable")
	// ErrValidationFailed is returned when input is rejected before any write.
	ErrValidationFailed = errors.New("validation failed")
	// ErrUnauthenticated is returned when an operation requires an identity and none was given.
	ErrUnauthenticated = fmt.Errorf("%w: requester is not authenticated", ErrValidationFailed)
	// ErrDuplicateRequest is returned when an interest request already exists for the project and requester.
	ErrDuplicateRequest = errors.New("interest request already submitted")
	// ErrInvalidTransition is returned when a decided interest request is decided again.
	ErrInvalidTransition = errors.New("invalid interest request transition")
	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a project or interest request does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNarrativeUnavailable is returned by narrative generators on failure or malformed output.
	ErrNarrativeUnavailable = errors.New("narrative unavailable")
	// ErrNotificationFailed is returned by notification senders when delivery fails.
	ErrNotificationFailed = errors.New("notification failed")
)

// ErrInvalidRepoFormat is returned when a repository URL cannot be resolved to 'owner/name'.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name' or a GitHub URL", e.Repo)
}

// Is reports a malformed repository as unavailable metrics.
func (e *ErrInvalidRepoFormat) Is(target error) bool {
	return target == ErrFetchUnavailable
}

// Validation wraps ErrValidationFailed with a field-level reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}
