package manager

import (
	"context"

	"github.com/marmos91/pdrhub/internal/logger"
	"github.com/marmos91/pdrhub/pkg/pdr"
)

// The ApplyRemote* operations are the incremental mutations a change
// event translates into: one remote handle at a time, against the
// terminus registered for eid. They mutate the consolidated repository
// and the terminus's handle map together so the mapping bijection
// holds after every successful call. The event handler drives them and
// falls back to a full SyncTerminus when any of them fails.

// ApplyRemoteDelete removes the consolidated record mapped from the
// remote handle. An unknown remote handle is not an error: the record
// was never consolidated (or a duplicate delete arrived), and deletes
// are idempotent.
func (m *Manager) ApplyRemoteDelete(eid uint8, remoteHandle uint32) error {
	slot := m.findSlot(eid)
	if slot < 0 {
		return newErr(ErrUnknownTerminus, "eid %d is not registered", eid)
	}
	t := &m.termini[slot]

	pos := t.lookupLocal(remoteHandle)
	if pos < 0 {
		logger.Debug("delete for unmapped remote handle, skipping",
			logger.KeyEID, eid, logger.KeyRemoteHandle, remoteHandle)
		return nil
	}
	local := t.handleMap[pos].Local

	if err := m.repo.RemoveRecord(local); err != nil {
		return err
	}

	t.handleMap = append(t.handleMap[:pos], t.handleMap[pos+1:]...)
	if t.localRecordCount > 0 {
		t.localRecordCount--
	}
	m.metrics.recordApply("deleted")
	return nil
}

// ApplyRemoteAdd fetches the named record from the terminus and inserts
// it under a freshly remapped handle.
func (m *Manager) ApplyRemoteAdd(ctx context.Context, eid uint8, remoteHandle uint32) error {
	slot := m.findSlot(eid)
	if slot < 0 {
		return newErr(ErrUnknownTerminus, "eid %d is not registered", eid)
	}
	t := &m.termini[slot]

	if err := m.fetcher.FetchByHandle(ctx, eid, t.fetchCtx, remoteHandle); err != nil {
		return err
	}
	record := t.fetchCtx.Record()
	if len(record) < pdr.HeaderSize {
		return newErr(ErrBadHandle, "fetched record of %d bytes is shorter than a common header", len(record))
	}
	hdr, err := pdr.ParseCommonHeader(record)
	if err != nil {
		return err
	}

	if len(t.handleMap) >= m.cfg.MaxHandleMapEntries {
		return newErr(ErrMapFull, "handle map of terminus %d is full (%d entries)", t.eid, len(t.handleMap))
	}

	remapped := remapHandle(slot, t.localHandleSeq)
	t.localHandleSeq++

	if err := m.addRemappedRecord(hdr.PDRType, record[pdr.HeaderSize:], remapped); err != nil {
		return err
	}

	t.handleMap = append(t.handleMap, HandleMapEntry{Remote: remoteHandle, Local: remapped})
	t.localRecordCount++
	m.metrics.recordApply("added")
	return nil
}

// ApplyRemoteModify re-fetches the named record and re-inserts it under
// its existing local handle, so every reference to the consolidated
// handle stays valid across the modification. An unknown remote handle
// is skipped, matching delete's idempotency.
//
// The old record is removed before the re-fetch; if any later step
// fails, the now-dangling mapping is dropped so the map never names a
// record the repository does not hold. The caller's fallback re-sync
// restores the record itself.
func (m *Manager) ApplyRemoteModify(ctx context.Context, eid uint8, remoteHandle uint32) error {
	slot := m.findSlot(eid)
	if slot < 0 {
		return newErr(ErrUnknownTerminus, "eid %d is not registered", eid)
	}
	t := &m.termini[slot]

	pos := t.lookupLocal(remoteHandle)
	if pos < 0 {
		logger.Debug("modify for unmapped remote handle, skipping",
			logger.KeyEID, eid, logger.KeyRemoteHandle, remoteHandle)
		return nil
	}
	local := t.handleMap[pos].Local

	if err := m.repo.RemoveRecord(local); err != nil {
		return err
	}

	dropMapping := func() {
		t.handleMap = append(t.handleMap[:pos], t.handleMap[pos+1:]...)
		if t.localRecordCount > 0 {
			t.localRecordCount--
		}
	}

	if err := m.fetcher.FetchByHandle(ctx, eid, t.fetchCtx, remoteHandle); err != nil {
		dropMapping()
		return err
	}
	record := t.fetchCtx.Record()
	if len(record) < pdr.HeaderSize {
		dropMapping()
		return newErr(ErrBadHandle, "fetched record of %d bytes is shorter than a common header", len(record))
	}
	hdr, err := pdr.ParseCommonHeader(record)
	if err != nil {
		dropMapping()
		return err
	}

	if err := m.addRemappedRecord(hdr.PDRType, record[pdr.HeaderSize:], local); err != nil {
		dropMapping()
		return err
	}

	m.metrics.recordApply("modified")
	return nil
}
