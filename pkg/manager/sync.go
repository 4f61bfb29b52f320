package manager

import (
	"context"

	"github.com/google/uuid"

	"github.com/marmos91/pdrhub/internal/logger"
	"github.com/marmos91/pdrhub/internal/telemetry"
	"github.com/marmos91/pdrhub/pkg/pdr"
)

// syncTraceID returns the correlation ID for one sync operation: the
// active OTel trace ID when tracing is on, otherwise a fresh UUID so
// log lines of the same sync remain groupable.
func syncTraceID(ctx context.Context) string {
	if id := telemetry.TraceID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// SyncTerminus brings the consolidated repository in line with the
// terminus registered for eid.
//
// If the terminus was already synced and its signature has not moved,
// this is a no-op fast path. Otherwise the terminus's prior records are
// purged and its entire remote repository is re-fetched record by
// record, each insertion remapped into the terminus's handle range. Any
// fetch or insertion failure leaves the slot in StateError; the next
// explicit SyncTerminus re-enters StateSyncing.
func (m *Manager) SyncTerminus(ctx context.Context, eid uint8) error {
	ctx, span := telemetry.StartSyncSpan(ctx, eid)
	defer span.End()
	ctx = logger.WithContext(ctx, &logger.LogContext{TraceID: syncTraceID(ctx), EID: eid})

	slot := m.findSlot(eid)
	if slot < 0 {
		return newErr(ErrUnknownTerminus, "eid %d is not registered", eid)
	}
	t := &m.termini[slot]

	oldSig := t.lastSignature
	wasSynced := t.state == StateSynced || t.state == StateStale
	m.setState(slot, StateSyncing)

	snap, err := m.fetcher.FetchRepoInfo(ctx, eid)
	if err != nil {
		m.setState(slot, StateError)
		m.metrics.recordSync(false)
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "sync failed fetching repository info",
			logger.KeyError, err.Error())
		return err
	}
	t.remoteRecordCount = snap.RecordCount
	t.remoteRepoSize = snap.RepositorySize
	t.lastSignature = snap.Signature

	if wasSynced && oldSig != 0 && snap.Signature == oldSig {
		m.setState(slot, StateSynced)
		m.metrics.recordSyncFastPath()
		logger.DebugCtx(ctx, "signature unchanged, skipping re-fetch",
			logger.KeySignature, snap.Signature)
		return nil
	}

	m.purgeTerminus(slot)
	t.fetchCtx.Reset()

	for fetched := uint32(0); fetched < t.remoteRecordCount; fetched++ {
		if err := m.fetcher.FetchOnePDR(ctx, eid, t.fetchCtx); err != nil {
			m.setState(slot, StateError)
			m.metrics.recordSync(false)
			telemetry.RecordError(ctx, err)
			logger.WarnCtx(ctx, "sync failed fetching record",
				logger.KeyRecordsFetched, fetched,
				logger.KeyError, err.Error(),
			)
			return err
		}

		if err := m.consolidateFetched(slot); err != nil {
			m.setState(slot, StateError)
			m.metrics.recordSync(false)
			telemetry.RecordError(ctx, err)
			logger.WarnCtx(ctx, "sync failed consolidating record",
				logger.KeyRecordsFetched, fetched,
				logger.KeyError, err.Error(),
			)
			return err
		}

		if t.fetchCtx.NextRecordHandle == 0 {
			break
		}
	}

	m.setState(slot, StateSynced)
	m.metrics.recordSync(true)
	telemetry.SetAttributes(ctx, telemetry.RecordsFetched(t.fetchCtx.RecordsFetched))
	logger.InfoCtx(ctx, "terminus synced",
		logger.KeyRecordsFetched, t.fetchCtx.RecordsFetched,
		logger.KeySignature, t.lastSignature,
	)
	return nil
}

// consolidateFetched remaps the record sitting in the slot's reassembly
// buffer into the consolidated repository and records its handle
// mapping.
func (m *Manager) consolidateFetched(slot int) error {
	t := &m.termini[slot]

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

	t.handleMap = append(t.handleMap, HandleMapEntry{Remote: hdr.RecordHandle, Local: remapped})
	t.localRecordCount++
	return nil
}

// SyncAll syncs every terminus currently in StateDiscovered or
// StateStale. It attempts each eligible terminus even after an earlier
// one fails, and returns the first failure encountered (nil only when
// every eligible sync succeeded).
func (m *Manager) SyncAll(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanManagerSyncAll)
	defer span.End()

	var firstErr error
	for i := range m.termini {
		if m.termini[i].state != StateDiscovered && m.termini[i].state != StateStale {
			continue
		}
		if err := m.SyncTerminus(ctx, m.termini[i].eid); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CheckForChanges refreshes the terminus's repository info and reports
// whether its signature moved since the last observation. A synced
// terminus whose signature changed transitions to StateStale; the
// records stay queryable until the next SyncTerminus.
func (m *Manager) CheckForChanges(ctx context.Context, eid uint8) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanManagerCheckForChanges)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.EID(eid))

	slot := m.findSlot(eid)
	if slot < 0 {
		return false, newErr(ErrUnknownTerminus, "eid %d is not registered", eid)
	}
	t := &m.termini[slot]

	oldSig := t.lastSignature
	snap, err := m.fetcher.FetchRepoInfo(ctx, eid)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return false, err
	}
	t.remoteRecordCount = snap.RecordCount
	t.remoteRepoSize = snap.RepositorySize
	t.lastSignature = snap.Signature

	changed := oldSig == 0 || snap.Signature != oldSig
	if changed && t.state == StateSynced {
		m.setState(slot, StateStale)
		logger.InfoCtx(ctx, "terminus signature changed, marking stale",
			logger.KeyEID, eid, logger.KeySignature, snap.Signature)
	}
	return changed, nil
}
