// Package transport defines the wire encoding for the PDR repository's
// five PLDM commands and the abstract send/receive capability a fetcher
// or manager uses to reach a terminus, independent of the underlying
// MCTP binding.
package transport

// Command identifies a PLDM Platform command that this repository
// subsystem implements.
type Command uint8

const (
	CommandGetPDRRepositoryInfo      Command = 0x50
	CommandGetPDR                    Command = 0x51
	CommandFindPDR                   Command = 0x52
	CommandGetPDRRepositorySignature Command = 0x53
	CommandRunInitAgent              Command = 0x58
)

func (c Command) String() string {
	switch c {
	case CommandGetPDRRepositoryInfo:
		return "GetPDRRepositoryInfo"
	case CommandGetPDR:
		return "GetPDR"
	case CommandFindPDR:
		return "FindPDR"
	case CommandGetPDRRepositorySignature:
		return "GetPDRRepositorySignature"
	case CommandRunInitAgent:
		return "RunInitAgent"
	default:
		return "unknown"
	}
}

// CompletionCode is the single-byte status every response carries.
// The six values are the command set's wire table and go on the wire
// unchanged.
type CompletionCode uint8

const (
	CompletionSuccess CompletionCode = 0x00

	// CompletionError is the catch-all for failures no more specific
	// code covers (e.g. a repository out of index or blob capacity
	// during RunInitAgent).
	CompletionError CompletionCode = 0x01

	// CompletionErrorInvalidData covers a request field whose value the
	// responder cannot act on, such as a dataTransferHandle that does
	// not address a valid chunk boundary (pdr.ErrInvalidOffset).
	CompletionErrorInvalidData CompletionCode = 0x02

	// CompletionErrorInvalidLength covers request or record payloads
	// whose length contradicts their declared size (pdr.ErrInvalidLength).
	CompletionErrorInvalidLength CompletionCode = 0x03

	// CompletionErrorUnsupported covers commands the responder does not
	// implement and operations it cannot perform in its current state
	// (e.g. RunInitAgent with no populate source, pdr.ErrNotReady).
	CompletionErrorUnsupported CompletionCode = 0x04

	// CompletionInvalidRecordHandle covers GetPDR/FindPDR lookups
	// against a handle the repository does not recognize as live
	// (pdr.ErrNotFound).
	CompletionInvalidRecordHandle CompletionCode = 0x05
)

func (c CompletionCode) String() string {
	switch c {
	case CompletionSuccess:
		return "success"
	case CompletionError:
		return "error"
	case CompletionErrorInvalidData:
		return "invalid_data"
	case CompletionErrorInvalidLength:
		return "invalid_length"
	case CompletionErrorUnsupported:
		return "unsupported"
	case CompletionInvalidRecordHandle:
		return "invalid_record_handle"
	default:
		return "unknown"
	}
}
