// Package pldmevent implements the pldmPDRRepositoryChgEvent wire codec
// (DSP0248 §16.14): the format a terminus uses to describe which record
// handles (or PDR types) were added, deleted, or modified, plus a
// ChangeTracker that accumulates local mutations into that format on
// the terminus side.
//
// The wire format is a flat, little-endian, unpadded encoding specific
// to this change-event channel. Every read during Decode is bounds-
// checked against the remaining buffer before it is performed.
package pldmevent

import "fmt"

// Format identifies how a change event's entries are interpreted.
type Format uint8

const (
	// FormatRefreshEntireRepository carries no records: it instructs the
	// receiving manager to discard its consolidated view of this
	// terminus and re-fetch every record from scratch.
	FormatRefreshEntireRepository Format = 0

	// FormatIsPDRTypes means each change entry is a pdrType. The event
	// handler does not apply this format incrementally; it always falls
	// back to a full re-sync.
	FormatIsPDRTypes Format = 1

	// FormatIsPDRHandles means each change entry is a remote record
	// handle. This is the only format the event handler applies
	// incrementally.
	FormatIsPDRHandles Format = 2
)

func (f Format) valid() bool {
	return f == FormatRefreshEntireRepository || f == FormatIsPDRTypes || f == FormatIsPDRHandles
}

func (f Format) String() string {
	switch f {
	case FormatRefreshEntireRepository:
		return "refresh_entire_repository"
	case FormatIsPDRTypes:
		return "pdr_types"
	case FormatIsPDRHandles:
		return "pdr_handles"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// Operation classifies a ChangeRecord's effect on the entries it names.
// The numeric values are wire-significant: records within an event
// must appear in non-decreasing operation order, so deletes always
// precede adds, which precede modifies.
type Operation uint8

const (
	OperationRefreshAllRecords Operation = 0
	OperationRecordsDeleted    Operation = 1
	OperationRecordsAdded      Operation = 2
	OperationRecordsModified   Operation = 3
)

func (op Operation) String() string {
	switch op {
	case OperationRefreshAllRecords:
		return "refresh_all"
	case OperationRecordsDeleted:
		return "deleted"
	case OperationRecordsAdded:
		return "added"
	case OperationRecordsModified:
		return "modified"
	default:
		return fmt.Sprintf("operation(%d)", uint8(op))
	}
}

// MaxEntriesPerRecord and MaxChangeRecords bound a single event: at
// most 16 entries per change record, at most 4 change records per
// event.
const (
	MaxEntriesPerRecord = 16
	MaxChangeRecords    = 4
)

// ChangeRecord groups one operation with the entries it applies to. A
// well-formed record declares at least one entry.
type ChangeRecord struct {
	Operation Operation
	Entries   []uint32
}

// Event is a decoded (or not-yet-encoded) PDR repository change event:
// zero or more ChangeRecords sharing a single entry Format.
type Event struct {
	Format  Format
	Records []ChangeRecord
}
