package pldmevent

// ChangeTracker is the terminus-side accumulator of pending repository
// mutations. It keeps one preconfigured change record per
// operation — deleted, added, modified — each bounded by
// MaxEntriesPerRecord, and composes them into a single Event in the
// wire-mandated delete, add, modify order.
//
// When the pending changes cannot be expressed within the format's
// limits or a caller-supplied byte budget, BuildEvent falls back to a
// FormatRefreshEntireRepository event: the peer is told to re-sync the
// whole repository rather than risk acting on a truncated delta.
type ChangeTracker struct {
	deleted  []uint32
	added    []uint32
	modified []uint32
}

// NewChangeTracker creates an empty tracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{}
}

// RecordDeleted tracks entries as deleted records. Fails with ErrFull,
// appending nothing, if the deleted record cannot hold them all.
func (t *ChangeTracker) RecordDeleted(entries ...uint32) error {
	return t.record(&t.deleted, OperationRecordsDeleted, entries)
}

// RecordAdded tracks entries as newly added records. Fails with ErrFull,
// appending nothing, if the added record cannot hold them all.
func (t *ChangeTracker) RecordAdded(entries ...uint32) error {
	return t.record(&t.added, OperationRecordsAdded, entries)
}

// RecordModified tracks entries as modified records. Fails with
// ErrFull, appending nothing, if the modified record cannot hold them
// all.
func (t *ChangeTracker) RecordModified(entries ...uint32) error {
	return t.record(&t.modified, OperationRecordsModified, entries)
}

func (t *ChangeTracker) record(slot *[]uint32, op Operation, entries []uint32) error {
	if len(*slot)+len(entries) > MaxEntriesPerRecord {
		return newErr(ErrFull, "%s record holds %d of %d entries, cannot take %d more",
			op, len(*slot), MaxEntriesPerRecord, len(entries))
	}
	*slot = append(*slot, entries...)
	return nil
}

// BuildEvent composes the pending changes into an Event carrying the
// given entry format, with records in canonical delete, add, modify
// order and empty operations skipped.
//
// With no pending changes it returns a FormatRefreshEntireRepository
// event, as does any pending set whose encoded size would exceed
// maxSize (a maxSize of 0 disables the byte budget). BuildEvent does
// not clear the tracker; callers clear after the event is known to have
// reached the peer.
func (t *ChangeTracker) BuildEvent(format Format, maxSize int) Event {
	var records []ChangeRecord
	for _, rec := range []struct {
		op      Operation
		entries []uint32
	}{
		{OperationRecordsDeleted, t.deleted},
		{OperationRecordsAdded, t.added},
		{OperationRecordsModified, t.modified},
	} {
		if len(rec.entries) == 0 {
			continue
		}
		entries := make([]uint32, len(rec.entries))
		copy(entries, rec.entries)
		records = append(records, ChangeRecord{Operation: rec.op, Entries: entries})
	}

	if len(records) == 0 {
		return Event{Format: FormatRefreshEntireRepository}
	}
	if maxSize > 0 && encodedSize(records) > maxSize {
		return Event{Format: FormatRefreshEntireRepository}
	}
	return Event{Format: format, Records: records}
}

// encodedSize computes the wire size of an event carrying records
// without encoding it: 2 header bytes, plus 2 header bytes and 4 bytes
// per entry for each record.
func encodedSize(records []ChangeRecord) int {
	size := 2
	for _, rec := range records {
		size += 2 + 4*len(rec.Entries)
	}
	return size
}

// Pending reports whether any changes are waiting to be built.
func (t *ChangeTracker) Pending() bool {
	return len(t.deleted) > 0 || len(t.added) > 0 || len(t.modified) > 0
}

// Clear resets the tracker to empty.
func (t *ChangeTracker) Clear() {
	t.deleted = t.deleted[:0]
	t.added = t.added[:0]
	t.modified = t.modified[:0]
}
