package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so records can be
// aggregated and queried by terminus, command, and handle.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// PLDM command surface
	// ========================================================================
	KeyCommand        = "command"         // PLDM command name: GetPDR, FindPDR, etc.
	KeyCompletionCode = "completion_code" // PLDM completion code from a response
	KeyTransferFlag   = "transfer_flag"   // GetPDR chunk position: start, middle, end
	KeyXferHandle     = "xfer_handle"     // dataTransferHandle (byte offset in record)

	// ========================================================================
	// Terminus identification
	// ========================================================================
	KeyEID            = "eid"             // MCTP endpoint ID of the terminus
	KeyTerminusID     = "tid"             // PLDM terminus ID
	KeyTerminusHandle = "terminus_handle" // PDR terminus handle
	KeyTerminusState  = "terminus_state"  // Manager per-terminus state name

	// ========================================================================
	// Record identification
	// ========================================================================
	KeyRecordHandle = "record_handle" // Record handle in its owning repository
	KeyRemoteHandle = "remote_handle" // Handle as assigned by the remote terminus
	KeyLocalHandle  = "local_handle"  // Remapped handle in the consolidated repo
	KeyPDRType      = "pdr_type"      // PDR type byte from the common header
	KeySize         = "size"          // Record size in bytes (header + body)

	// ========================================================================
	// Repository aggregates
	// ========================================================================
	KeyRecordCount    = "record_count"    // Live record count
	KeyRepositorySize = "repository_size" // Summed live record bytes
	KeySignature      = "signature"       // CRC32 repository signature

	// ========================================================================
	// Change events
	// ========================================================================
	KeyOperation = "operation" // Change-record operation: deleted, added, modified
	KeyFormat    = "format"    // Change-event entry format
	KeyEntries   = "entries"   // Number of entries in a change record

	// ========================================================================
	// Fetch / sync progress
	// ========================================================================
	KeyAttempt        = "attempt"         // Retry attempt number
	KeyMaxRetries     = "max_retries"     // Maximum retry attempts
	KeyRecordsFetched = "records_fetched" // Records fetched so far in a sync
	KeyChunks         = "chunks"          // Chunks reassembled for one record

	// ========================================================================
	// Provisioning (static image seeding)
	// ========================================================================
	KeyPath   = "path"   // Local image file path
	KeyBucket = "bucket" // S3 bucket holding a provisioned image
	KeyKey    = "key"    // S3 object key
	KeyRegion = "region" // S3 region

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Machine-stable error code name
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Command returns a slog.Attr for a PLDM command name
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// CompletionCode returns a slog.Attr for a PLDM completion code
func CompletionCode(code uint8) slog.Attr {
	return slog.Any(KeyCompletionCode, code)
}

// EID returns a slog.Attr for an MCTP endpoint ID
func EID(eid uint8) slog.Attr {
	return slog.Any(KeyEID, eid)
}

// TerminusID returns a slog.Attr for a PLDM terminus ID
func TerminusID(tid uint8) slog.Attr {
	return slog.Any(KeyTerminusID, tid)
}

// TerminusHandle returns a slog.Attr for a PDR terminus handle
func TerminusHandle(h uint16) slog.Attr {
	return slog.Any(KeyTerminusHandle, h)
}

// TerminusState returns a slog.Attr for a manager per-terminus state
func TerminusState(state string) slog.Attr {
	return slog.String(KeyTerminusState, state)
}

// RecordHandle returns a slog.Attr for a record handle (formatted as hex,
// so remapped handles read as their terminus range at a glance)
func RecordHandle(h uint32) slog.Attr {
	return slog.String(KeyRecordHandle, fmt.Sprintf("0x%x", h))
}

// RemoteHandle returns a slog.Attr for a remote terminus's record handle
func RemoteHandle(h uint32) slog.Attr {
	return slog.String(KeyRemoteHandle, fmt.Sprintf("0x%x", h))
}

// LocalHandle returns a slog.Attr for a remapped consolidated-repo handle
func LocalHandle(h uint32) slog.Attr {
	return slog.String(KeyLocalHandle, fmt.Sprintf("0x%x", h))
}

// PDRType returns a slog.Attr for a PDR type byte
func PDRType(t uint8) slog.Attr {
	return slog.Any(KeyPDRType, t)
}

// Size returns a slog.Attr for a record size in bytes
func Size(s uint32) slog.Attr {
	return slog.Any(KeySize, s)
}

// RecordCount returns a slog.Attr for a live record count
func RecordCount(n uint32) slog.Attr {
	return slog.Any(KeyRecordCount, n)
}

// RepositorySize returns a slog.Attr for summed live record bytes
func RepositorySize(n uint32) slog.Attr {
	return slog.Any(KeyRepositorySize, n)
}

// Signature returns a slog.Attr for a CRC32 repository signature
func Signature(sig uint32) slog.Attr {
	return slog.String(KeySignature, fmt.Sprintf("0x%08x", sig))
}

// Operation returns a slog.Attr for a change-record operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Format returns a slog.Attr for a change-event entry format name
func Format(f string) slog.Attr {
	return slog.String(KeyFormat, f)
}

// Entries returns a slog.Attr for a change record's entry count
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// XferHandle returns a slog.Attr for a dataTransferHandle
func XferHandle(h uint32) slog.Attr {
	return slog.Any(KeyXferHandle, h)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// RecordsFetched returns a slog.Attr for sync progress
func RecordsFetched(n uint32) slog.Attr {
	return slog.Any(KeyRecordsFetched, n)
}

// Chunks returns a slog.Attr for the chunk count of a reassembled record
func Chunks(n int) slog.Attr {
	return slog.Int(KeyChunks, n)
}

// Path returns a slog.Attr for a local image file path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Bucket returns a slog.Attr for an S3 bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Key returns a slog.Attr for an S3 object key
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// Region returns a slog.Attr for a cloud region
func Region(r string) slog.Attr {
	return slog.String(KeyRegion, r)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a machine-stable error code name
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}
