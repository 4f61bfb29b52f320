package pdr

// FindPDRResult is the outcome of a FindPDR lookup.
type FindPDRResult struct {
	// RecordHandle is the handle of the matched record.
	RecordHandle uint32

	// NextRecordHandle is the handle of the next live record of the
	// same type after the match, or 0 once the scan is exhausted, so
	// the caller can iterate a type's records across calls.
	NextRecordHandle uint32

	// Data is the matched record's full on-blob bytes (header plus
	// body), borrowed from the blob. It is valid only until the next
	// mutating call to the owning Repository.
	Data []byte
}

// FindPDR locates the next live record of the given pdrType after
// startHandle in index order.
//
// startHandle = 0 begins the scan at the first live record. A non-zero
// startHandle must name a currently live record handle; it is resumed
// from, exclusive, so the same handle is never returned twice across a
// paged scan. A startHandle that names a tombstoned or never-issued
// handle fails with ErrNotFound rather than silently resuming at the
// next live successor — callers that lose their place restart the scan
// with startHandle = 0.
//
// Type filtering is the only match dimension implemented; entity-type
// and container-ID filters remain a defined extension point on the
// request and are not consulted here.
func (r *Repository) FindPDR(pdrType uint8, startHandle uint32) (FindPDRResult, error) {
	startIdx := 0
	if startHandle != 0 {
		idx := r.liveEntryIndex(startHandle)
		if idx < 0 {
			r.metrics.recordError(ErrNotFound)
			return FindPDRResult{}, newErr(ErrNotFound, "startHandle %d does not name a live record", startHandle)
		}
		startIdx = idx + 1
	}

	for i := startIdx; i < len(r.index); i++ {
		e := r.index[i]
		if e.tombstoned() || e.PDRType != pdrType {
			continue
		}

		var next uint32
		for j := i + 1; j < len(r.index); j++ {
			if !r.index[j].tombstoned() && r.index[j].PDRType == pdrType {
				next = r.index[j].RecordHandle
				break
			}
		}

		return FindPDRResult{
			RecordHandle:     e.RecordHandle,
			NextRecordHandle: next,
			Data:             r.blob[e.Offset : e.Offset+e.Size],
		}, nil
	}

	r.metrics.recordError(ErrNotFound)
	return FindPDRResult{}, newErr(ErrNotFound, "no live record of type %d after handle %d", pdrType, startHandle)
}
