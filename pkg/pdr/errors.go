package pdr

import "fmt"

// ErrorCode categorizes a repository operation failure.
//
// Repository operations are total functions: they never panic on bad
// input, they return a RepoError instead. Integrators map these codes to
// PLDM completion codes at the command-serving boundary (see
// pkg/transport for the completion code constants).
type ErrorCode int

const (
	// ErrNotFound indicates an unknown record handle on read or remove,
	// or an unknown startHandle on a FindPDR/GetPDR continuation.
	ErrNotFound ErrorCode = iota

	// ErrFull indicates the index has reached its configured maximum
	// record count.
	ErrFull

	// ErrNoSpace indicates the blob does not have enough remaining
	// capacity for a new record.
	ErrNoSpace

	// ErrInvalidOffset indicates a dataTransferHandle at or beyond the
	// end of the addressed record.
	ErrInvalidOffset

	// ErrInvalidLength indicates a malformed common header (e.g. a
	// dataLength that would run the record past the blob, or an
	// indexRecord offset/size combination outside the blob capacity).
	ErrInvalidLength

	// ErrNotReady indicates an operation (e.g. RunInitAgent) was invoked
	// without its required collaborator (e.g. no populate callback).
	ErrNotReady
)

// String returns a short machine-stable name for the error code, used in
// log fields and metrics labels.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrFull:
		return "full"
	case ErrNoSpace:
		return "no_space"
	case ErrInvalidOffset:
		return "invalid_offset"
	case ErrInvalidLength:
		return "invalid_length"
	case ErrNotReady:
		return "not_ready"
	default:
		return "unknown"
	}
}

// RepoError is the error type returned by every pkg/pdr operation that
// can fail. It carries a Code for programmatic dispatch and a Message
// for logs/diagnostics.
type RepoError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *RepoError) Error() string {
	return fmt.Sprintf("pdr: %s: %s", e.Code, e.Message)
}

// Is reports whether target is a *RepoError with the same Code, so
// callers can use errors.Is(err, &RepoError{Code: ErrNotFound}) or more
// conveniently the CodeOf helper / errors.As + Code comparison.
func (e *RepoError) Is(target error) bool {
	t, ok := target.(*RepoError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newErr(code ErrorCode, format string, args ...any) *RepoError {
	return &RepoError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err if it is a *RepoError, and
// reports whether extraction succeeded. A wrapped *RepoError is not
// unwrapped.
func CodeOf(err error) (ErrorCode, bool) {
	re, ok := err.(*RepoError)
	if !ok {
		return 0, false
	}
	return re.Code, true
}
