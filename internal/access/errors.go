// ABOUTME: Error taxonomy for owner-gated room operations
// ABOUTME: Validation and authorization failures are reported to users, never logged as faults

package access

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInRoom means the caller does not occupy a provisioned room.
	ErrNotInRoom = errors.New("not in a provisioned room")

	// ErrNotAuthorized means the caller lacks the capability the operation needs.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrTargetGone means the kick target left the room after being listed.
	ErrTargetGone = errors.New("target no longer present")

	// ErrNoCandidates means nobody else in the room can be removed.
	ErrNoCandidates = errors.New("no eligible members")
)

// ValidationError reports malformed user input. It is raised before any
// platform call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
