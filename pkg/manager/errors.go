package manager

import "fmt"

// ErrorCode categorizes a manager operation failure. Fetch failures are
// not re-coded: they propagate as *fetcher.FetchError so callers keep
// the transport-level detail.
type ErrorCode int

const (
	// ErrUnknownTerminus indicates no registered terminus matches the
	// given endpoint ID.
	ErrUnknownTerminus ErrorCode = iota

	// ErrDuplicateTerminus indicates AddTerminus was called with an
	// endpoint ID that is already registered.
	ErrDuplicateTerminus

	// ErrSlotsFull indicates every terminus slot is occupied.
	ErrSlotsFull

	// ErrMapFull indicates a terminus's handle map cannot take another
	// remote-to-local entry.
	ErrMapFull

	// ErrBadHandle indicates a consolidated handle outside every
	// terminus's remap range, or a record too short to carry a common
	// header.
	ErrBadHandle
)

// String returns a short machine-stable name for the error code, used
// in log fields and metrics labels.
func (c ErrorCode) String() string {
	switch c {
	case ErrUnknownTerminus:
		return "unknown_terminus"
	case ErrDuplicateTerminus:
		return "duplicate_terminus"
	case ErrSlotsFull:
		return "slots_full"
	case ErrMapFull:
		return "map_full"
	case ErrBadHandle:
		return "bad_handle"
	default:
		return "unknown"
	}
}

// ManagerError is the error type returned by manager operations that
// fail for manager-level reasons (registration, lookup, capacity).
type ManagerError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *ManagerError) Error() string {
	return fmt.Sprintf("manager: %s: %s", e.Code, e.Message)
}

// Is reports whether target is a *ManagerError with the same Code.
func (e *ManagerError) Is(target error) bool {
	t, ok := target.(*ManagerError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newErr(code ErrorCode, format string, args ...any) *ManagerError {
	return &ManagerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err if it is a *ManagerError.
func CodeOf(err error) (ErrorCode, bool) {
	me, ok := err.(*ManagerError)
	if !ok {
		return 0, false
	}
	return me.Code, true
}
