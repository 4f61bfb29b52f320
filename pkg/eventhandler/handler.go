// Package eventhandler applies incoming pldmPDRRepositoryChgEvent
// payloads to a manager's consolidated view. Handle-format deltas are
// applied incrementally, one remote handle at a time; everything else —
// refresh instructions, type-format deltas, and any failure partway
// through an incremental apply — converges through a full re-sync of
// the originating terminus, so a partial delta never leaves the
// consolidated repository inconsistent with the remote.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/marmos91/pdrhub/internal/logger"
	"github.com/marmos91/pdrhub/internal/telemetry"
	"github.com/marmos91/pdrhub/pkg/manager"
	"github.com/marmos91/pdrhub/pkg/pldmevent"
)

// Handler applies change events to a Manager.
type Handler struct {
	manager *manager.Manager
	metrics *Metrics
}

// New creates a Handler applying events to m.
func New(m *manager.Manager) *Handler {
	return &Handler{manager: m}
}

// SetMetrics attaches Prometheus instrumentation. Nil is valid and
// disables instrumentation.
func (h *Handler) SetMetrics(m *Metrics) {
	h.metrics = m
}

// HandleEvent decodes and applies one change event from the terminus
// registered for eid.
//
// Decode or validation failures are returned without touching any
// state. Refresh and type-format events delegate to a full
// SyncTerminus. Handle-format events apply incrementally; if any
// sub-operation fails, the handler abandons the delta and falls back to
// a full SyncTerminus, returning an error only if that fallback fails
// too.
func (h *Handler) HandleEvent(ctx context.Context, eid uint8, wire []byte) error {
	ctx, span := telemetry.StartEventSpan(ctx, eid)
	defer span.End()

	event, err := pldmevent.Decode(wire)
	if err != nil {
		h.metrics.recordEvent("invalid")
		telemetry.RecordError(ctx, err)
		return err
	}
	telemetry.SetAttributes(ctx, telemetry.EventFormat(event.Format.String()))
	h.metrics.recordEvent(event.Format.String())

	if event.Format == pldmevent.FormatRefreshEntireRepository || event.Format == pldmevent.FormatIsPDRTypes {
		// Type-based deltas are not applied incrementally; a full
		// re-sync is the safe interpretation of both formats.
		logger.InfoCtx(ctx, "change event requests full re-sync",
			logger.KeyEID, eid, logger.KeyFormat, event.Format.String())
		return h.manager.SyncTerminus(ctx, eid)
	}

	// Fail unknown termini before mutating anything.
	if _, err := h.manager.Status(eid); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	if applyErr := h.applyIncremental(ctx, eid, event); applyErr != nil {
		h.metrics.recordFallback()
		telemetry.RecordError(ctx, applyErr)
		logger.WarnCtx(ctx, "incremental apply failed, falling back to full re-sync",
			logger.KeyEID, eid, logger.KeyError, applyErr.Error())
		return h.manager.SyncTerminus(ctx, eid)
	}
	return nil
}

// applyIncremental walks the event's change records in wire order,
// dispatching each entry to the matching manager mutation. The first
// failing entry aborts the walk.
func (h *Handler) applyIncremental(ctx context.Context, eid uint8, event pldmevent.Event) error {
	for _, rec := range event.Records {
		logger.DebugCtx(ctx, "applying change record",
			logger.KeyEID, eid,
			logger.KeyOperation, rec.Operation.String(),
			logger.KeyEntries, len(rec.Entries),
		)

		for _, remote := range rec.Entries {
			var err error
			switch rec.Operation {
			case pldmevent.OperationRecordsDeleted:
				err = h.manager.ApplyRemoteDelete(eid, remote)
			case pldmevent.OperationRecordsAdded:
				err = h.manager.ApplyRemoteAdd(ctx, eid, remote)
			case pldmevent.OperationRecordsModified:
				err = h.manager.ApplyRemoteModify(ctx, eid, remote)
			default:
				// refreshAllRecords under the handle format is rejected
				// by validation; reaching here means the decoder and
				// validator disagree, which is corruption.
				err = fmt.Errorf("eventhandler: operation %s is not applicable to handle entries", rec.Operation)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
