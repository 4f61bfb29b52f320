package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for PLDM / PDR operations.
// These follow OpenTelemetry semantic conventions where applicable;
// domain keys use "pldm." for the command surface, "pdr." for record
// attributes, and "event." for change-event attributes.
const (
	// ========================================================================
	// PLDM command surface
	// ========================================================================
	AttrEID            = "pldm.eid"             // MCTP endpoint ID of the terminus
	AttrCommand        = "pldm.command"         // Command name: GetPDR, FindPDR, etc.
	AttrCompletionCode = "pldm.completion_code" // Completion code from a response
	AttrTerminusHandle = "pldm.terminus_handle" // PDR terminus handle
	AttrTerminusID     = "pldm.tid"             // PLDM terminus ID
	AttrTerminusState  = "pldm.terminus_state"  // Manager per-terminus state name

	// ========================================================================
	// Record attributes
	// ========================================================================
	AttrRecordHandle = "pdr.record_handle" // Record handle in its owning repository
	AttrRemoteHandle = "pdr.remote_handle" // Handle as assigned by the remote terminus
	AttrLocalHandle  = "pdr.local_handle"  // Remapped consolidated-repo handle
	AttrPDRType      = "pdr.type"          // PDR type byte from the common header
	AttrRecordSize   = "pdr.size"          // Record size in bytes (header + body)
	AttrXferHandle   = "pdr.xfer_handle"   // dataTransferHandle (byte offset)
	AttrTransferFlag = "pdr.transfer_flag" // Chunk position: start, middle, end

	// ========================================================================
	// Repository aggregates
	// ========================================================================
	AttrRecordCount    = "pdr.record_count"    // Live record count
	AttrRepositorySize = "pdr.repository_size" // Summed live record bytes
	AttrSignature      = "pdr.signature"       // CRC32 repository signature

	// ========================================================================
	// Change events
	// ========================================================================
	AttrEventOperation = "event.operation" // deleted, added, modified, refresh_all
	AttrEventFormat    = "event.format"    // Change-event entry format
	AttrEventEntries   = "event.entries"   // Entry count across all change records

	// ========================================================================
	// Fetch / sync progress
	// ========================================================================
	AttrRecordsFetched = "sync.records_fetched" // Records fetched so far
	AttrAttempt        = "sync.attempt"         // Retry attempt number

	// ========================================================================
	// Provisioning (static image seeding)
	// ========================================================================
	AttrImagePath = "image.path"     // Local image file path
	AttrBucket    = "storage.bucket" // S3 bucket holding a provisioned image
	AttrKey       = "storage.key"    // S3 object key
	AttrRegion    = "storage.region" // S3 region
)

// Span names for operations.
// Format: <component>.<operation>.
const (
	// Manager orchestration spans
	SpanManagerSync            = "manager.sync_terminus"
	SpanManagerSyncAll         = "manager.sync_all"
	SpanManagerCheckForChanges = "manager.check_for_changes"
	SpanManagerAddTerminus     = "manager.add_terminus"
	SpanManagerRemoveTerminus  = "manager.remove_terminus"

	// Event handler spans
	SpanEventHandle = "event.handle"

	// Fetcher spans (one per transport round trip family)
	SpanFetchRepoInfo  = "fetcher.repo_info"
	SpanFetchSignature = "fetcher.signature"
	SpanFetchPDR       = "fetcher.get_pdr"

	// Repository command-serving spans
	SpanRepoGetPDR       = "repo.get_pdr"
	SpanRepoFindPDR      = "repo.find_pdr"
	SpanRepoRunInitAgent = "repo.run_init_agent"

	// Provisioning spans
	SpanProvisionLoad  = "provision.load_image"
	SpanProvisionWatch = "provision.watch_image"
)

// EID returns an attribute for an MCTP endpoint ID
func EID(eid uint8) attribute.KeyValue {
	return attribute.Int(AttrEID, int(eid))
}

// Command returns an attribute for a PLDM command name
func Command(name string) attribute.KeyValue {
	return attribute.String(AttrCommand, name)
}

// CompletionCode returns an attribute for a PLDM completion code
func CompletionCode(code uint8) attribute.KeyValue {
	return attribute.Int(AttrCompletionCode, int(code))
}

// TerminusHandle returns an attribute for a PDR terminus handle
func TerminusHandle(h uint16) attribute.KeyValue {
	return attribute.Int(AttrTerminusHandle, int(h))
}

// TerminusID returns an attribute for a PLDM terminus ID
func TerminusID(tid uint8) attribute.KeyValue {
	return attribute.Int(AttrTerminusID, int(tid))
}

// TerminusState returns an attribute for a manager per-terminus state
func TerminusState(state string) attribute.KeyValue {
	return attribute.String(AttrTerminusState, state)
}

// RecordHandle returns an attribute for a record handle (hex string, so
// remapped handles read as their terminus range at a glance)
func RecordHandle(h uint32) attribute.KeyValue {
	return attribute.String(AttrRecordHandle, fmt.Sprintf("0x%x", h))
}

// RemoteHandle returns an attribute for a remote terminus's record handle
func RemoteHandle(h uint32) attribute.KeyValue {
	return attribute.String(AttrRemoteHandle, fmt.Sprintf("0x%x", h))
}

// LocalHandle returns an attribute for a remapped consolidated-repo handle
func LocalHandle(h uint32) attribute.KeyValue {
	return attribute.String(AttrLocalHandle, fmt.Sprintf("0x%x", h))
}

// PDRType returns an attribute for a PDR type byte
func PDRType(t uint8) attribute.KeyValue {
	return attribute.Int(AttrPDRType, int(t))
}

// RecordSize returns an attribute for a record size in bytes
func RecordSize(size uint32) attribute.KeyValue {
	return attribute.Int64(AttrRecordSize, int64(size))
}

// XferHandle returns an attribute for a dataTransferHandle
func XferHandle(h uint32) attribute.KeyValue {
	return attribute.Int64(AttrXferHandle, int64(h))
}

// TransferFlag returns an attribute for a chunk position name
func TransferFlag(flag string) attribute.KeyValue {
	return attribute.String(AttrTransferFlag, flag)
}

// RecordCount returns an attribute for a live record count
func RecordCount(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrRecordCount, int64(n))
}

// RepositorySize returns an attribute for summed live record bytes
func RepositorySize(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrRepositorySize, int64(n))
}

// Signature returns an attribute for a CRC32 repository signature
func Signature(sig uint32) attribute.KeyValue {
	return attribute.String(AttrSignature, fmt.Sprintf("0x%08x", sig))
}

// EventOperation returns an attribute for a change-record operation name
func EventOperation(op string) attribute.KeyValue {
	return attribute.String(AttrEventOperation, op)
}

// EventFormat returns an attribute for a change-event entry format name
func EventFormat(f string) attribute.KeyValue {
	return attribute.String(AttrEventFormat, f)
}

// EventEntries returns an attribute for an event's total entry count
func EventEntries(n int) attribute.KeyValue {
	return attribute.Int(AttrEventEntries, n)
}

// RecordsFetched returns an attribute for sync progress
func RecordsFetched(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrRecordsFetched, int64(n))
}

// Attempt returns an attribute for retry attempt number
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// ImagePath returns an attribute for a local image file path
func ImagePath(path string) attribute.KeyValue {
	return attribute.String(AttrImagePath, path)
}

// Bucket returns an attribute for S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for S3 object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for cloud region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// StartCommandSpan starts a span for one PLDM command round trip against
// a terminus. This is a convenience function that sets common attributes.
func StartCommandSpan(ctx context.Context, command string, eid uint8, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Command(command),
		EID(eid),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "pldm."+command, trace.WithAttributes(allAttrs...))
}

// StartSyncSpan starts a span for a manager sync operation.
func StartSyncSpan(ctx context.Context, eid uint8, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{EID(eid)}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanManagerSync, trace.WithAttributes(allAttrs...))
}

// StartEventSpan starts a span for change-event handling.
func StartEventSpan(ctx context.Context, eid uint8, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{EID(eid)}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanEventHandle, trace.WithAttributes(allAttrs...))
}
