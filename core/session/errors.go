package session

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrForbidden       = errors.New("you are not allowed to perform this operation on the session")
	ErrVersionConflict = errors.New("session was modified concurrently")
)

// NotJoinableError reports that the join window is not open for the caller,
// with human-readable remaining-time context.
type NotJoinableError struct {
	Status    Status
	Completed bool
	Remaining time.Duration // until the join window opens; <= 0 when it is past
}

func (e *NotJoinableError) Error() string {
	if e.Completed {
		return "session has already been completed"
	}
	if e.Status.Timing == TimingEnded {
		return "session has ended"
	}
	if e.Remaining > 0 {
		return fmt.Sprintf("session is not joinable yet; the room opens in %s", e.Remaining.Round(time.Second))
	}
	return "session is no longer joinable"
}

// IsNotJoinable reports whether err (or its cause) is a NotJoinableError.
func IsNotJoinable(err error) (*NotJoinableError, bool) {
	nj, ok := errors.Cause(err).(*NotJoinableError)
	return nj, ok
}
