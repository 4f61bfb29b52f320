package fetcher

import (
	"fmt"

	"github.com/marmos91/pdrhub/pkg/transport"
)

// ErrorCode categorizes a fetch failure.
type ErrorCode int

const (
	// ErrTransport indicates the integrator-supplied transport failed to
	// complete the send-recv round trip.
	ErrTransport ErrorCode = iota

	// ErrCompletion indicates the terminus answered with a non-success
	// completion code.
	ErrCompletion

	// ErrMalformed indicates a response payload that does not parse, or
	// a reassembled record shorter than the common header.
	ErrMalformed

	// ErrOverflow indicates a record whose reassembled size would exceed
	// the fetch context's reassembly buffer.
	ErrOverflow
)

// String returns a short machine-stable name for the error code, used in
// log fields and metrics labels.
func (c ErrorCode) String() string {
	switch c {
	case ErrTransport:
		return "transport"
	case ErrCompletion:
		return "completion"
	case ErrMalformed:
		return "malformed"
	case ErrOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// FetchError is the error type returned by every Fetcher operation that
// can fail. Completion is only meaningful when Code is ErrCompletion.
type FetchError struct {
	Code       ErrorCode
	Command    transport.Command
	Completion transport.CompletionCode
	Message    string
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Code == ErrCompletion {
		return fmt.Sprintf("fetcher: %s: %s answered %s: %s", e.Code, e.Command, e.Completion, e.Message)
	}
	return fmt.Sprintf("fetcher: %s: %s: %s", e.Code, e.Command, e.Message)
}

// Is reports whether target is a *FetchError with the same Code.
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newErr(code ErrorCode, command transport.Command, format string, args ...any) *FetchError {
	return &FetchError{Code: code, Command: command, Message: fmt.Sprintf(format, args...)}
}

func newCompletionErr(command transport.Command, cc transport.CompletionCode) *FetchError {
	return &FetchError{
		Code:       ErrCompletion,
		Command:    command,
		Completion: cc,
		Message:    "non-success completion code",
	}
}

// CodeOf extracts the ErrorCode from err if it is a *FetchError.
func CodeOf(err error) (ErrorCode, bool) {
	fe, ok := err.(*FetchError)
	if !ok {
		return 0, false
	}
	return fe.Code, true
}
