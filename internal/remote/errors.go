package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Read for users with no stored record.
	ErrNotFound = errors.New("remote: not found")

	// ErrUnavailable wraps transient transport failures (timeouts, refused
	// connections, 5xx). Callers retry and, on exhaustion, queue.
	ErrUnavailable = errors.New("remote: unavailable")

	// ErrPermission marks non-retryable rejections. These are surfaced, not
	// requeued forever.
	ErrPermission = errors.New("remote: permission denied")
)

// StatusError carries an HTTP-ish status from the remote store.
type StatusError struct {
	Code int
	Op   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s: status %d", e.Op, e.Code)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Code >= 500 || e.Code == 429
	case ErrPermission:
		return e.Code == 401 || e.Code == 403
	case ErrNotFound:
		return e.Code == 404
	default:
		return false
	}
}

// Permanent reports whether err is hopeless to retry. Anything not known to
// be permanent is treated as transient, since queuing a retryable error is
// cheaper than dropping a recoverable one.
func Permanent(err error) bool {
	return errors.Is(err, ErrPermission) || errors.Is(err, ErrNotFound)
}
