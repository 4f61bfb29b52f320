package transport

import (
	"github.com/marmos91/pdrhub/pkg/pdr"
)

// CompletionCodeFor maps a pkg/pdr operation error to the completion
// code a command handler should place in its response. Errors this
// function does not recognize map to the generic CompletionError.
func CompletionCodeFor(err error) CompletionCode {
	if err == nil {
		return CompletionSuccess
	}

	code, ok := pdr.CodeOf(err)
	if !ok {
		return CompletionError
	}

	switch code {
	case pdr.ErrNotFound:
		return CompletionInvalidRecordHandle
	case pdr.ErrInvalidOffset:
		return CompletionErrorInvalidData
	case pdr.ErrInvalidLength:
		return CompletionErrorInvalidLength
	case pdr.ErrNotReady:
		return CompletionErrorUnsupported
	default:
		// ErrFull and ErrNoSpace have no dedicated wire code; a
		// capacity-exhausted repository answers the generic error.
		return CompletionError
	}
}
