package pdr

// PopulateFunc repopulates a freshly reset Repository, typically by
// calling AddRecord (or IndexRecord, against a pre-packed image) once
// per record the caller wants present after the rebuild completes.
type PopulateFunc func(r *Repository) error

// RunInitAgent implements command 0x58: it resets the repository to
// empty (state StateUpdateInProgress, blobUsed and index cleared,
// handle allocator restarted at 1), invokes populate to repopulate it,
// and on success marks the repository StateAvailable again.
//
// If populate is nil, RunInitAgent fails with ErrNotReady and leaves the
// repository StateFailed; the rebuild is destructive even on failure,
// no prior data is recoverable. If populate returns an
// error, the repository is left StateFailed with whatever partial state
// populate managed to write before failing.
func (r *Repository) RunInitAgent(populate PopulateFunc) error {
	r.reset()
	r.info.State = StateUpdateInProgress

	if populate == nil {
		r.info.State = StateFailed
		r.metrics.recordError(ErrNotReady)
		return newErr(ErrNotReady, "RunInitAgent requires a populate callback")
	}

	if err := populate(r); err != nil {
		r.info.State = StateFailed
		return err
	}

	r.info.State = StateAvailable
	r.invalidateSignature()
	r.recomputeInfo()
	r.metrics.recordRebuild()
	return nil
}
