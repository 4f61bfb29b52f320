package pdr

// TransferOpFlag selects whether a GetPDR call starts a new multi-part
// transfer or continues one already in progress (DSP0248 GetPDR,
// command 0x51).
type TransferOpFlag uint8

const (
	// TransferOpGetNextPart continues a transfer using the
	// dataTransferHandle returned by the previous chunk.
	TransferOpGetNextPart TransferOpFlag = iota

	// TransferOpGetFirstPart starts a new transfer at the beginning of
	// the addressed record; any supplied dataTransferHandle is ignored.
	TransferOpGetFirstPart
)

// TransferFlag reports a chunk's position within its record's transfer.
// The values are DSP0248's wire encoding and go on the wire unchanged;
// they are not contiguous.
type TransferFlag uint8

const (
	// TransferStart marks the first chunk of a multi-chunk transfer.
	TransferStart TransferFlag = 0x00

	// TransferMiddle marks a chunk that is neither first nor last.
	TransferMiddle TransferFlag = 0x01

	// TransferEnd marks the last chunk of a multi-chunk transfer.
	TransferEnd TransferFlag = 0x04

	// TransferStartAndEnd marks a transfer that fits in a single chunk.
	TransferStartAndEnd TransferFlag = 0x05
)

// GetPDRResult is the outcome of a single GetPDR chunk request.
type GetPDRResult struct {
	// NextRecordHandle is the handle of the record that follows the
	// addressed one in index order, or 0 if the addressed record is the
	// last live record in the repository.
	NextRecordHandle uint32

	// NextDataTransferHandle identifies the next chunk of this record's
	// body to request with TransferOpGetNextPart. It is 0 once
	// TransferFlag is TransferEnd or TransferStartAndEnd.
	NextDataTransferHandle uint32

	TransferFlag TransferFlag

	// Data is a chunk of the record's full on-blob bytes (header plus
	// body), borrowed from the blob. It is valid only until the next
	// mutating call to the owning Repository.
	Data []byte
}

// GetPDR returns one chunk of the record addressed by handle, per
// DSP0248 command 0x51's multi-part transfer contract.
//
// A fresh transfer starts with transferOpFlag = TransferOpGetFirstPart
// and dataTransferHandle ignored. Each subsequent call supplies
// TransferOpGetNextPart and the NextDataTransferHandle from the previous
// result, until TransferFlag reports TransferEnd or TransferStartAndEnd.
//
// A handle of 0 is the reserved wildcard: it addresses the first live
// record in index order, which is how a requester starts enumerating a
// repository whose handles it does not know yet.
//
// Fails with ErrNotFound if handle does not address a live record, or
// with ErrInvalidOffset if dataTransferHandle addresses at or beyond the
// end of the record on a GetNextPart call.
func (r *Repository) GetPDR(handle uint32, transferOpFlag TransferOpFlag, dataTransferHandle uint32) (GetPDRResult, error) {
	var idx int
	if handle == 0 {
		idx = r.firstLiveIndex()
	} else {
		idx = r.liveEntryIndex(handle)
	}
	if idx < 0 {
		r.metrics.recordError(ErrNotFound)
		return GetPDRResult{}, newErr(ErrNotFound, "no live record with handle %d", handle)
	}
	entry := r.index[idx]

	var chunkOffset uint32
	switch transferOpFlag {
	case TransferOpGetFirstPart:
		chunkOffset = 0
	case TransferOpGetNextPart:
		if dataTransferHandle >= entry.Size {
			r.metrics.recordError(ErrInvalidOffset)
			return GetPDRResult{}, newErr(ErrInvalidOffset,
				"dataTransferHandle %d is at or beyond record size %d", dataTransferHandle, entry.Size)
		}
		chunkOffset = dataTransferHandle
	default:
		r.metrics.recordError(ErrInvalidOffset)
		return GetPDRResult{}, newErr(ErrInvalidOffset, "unrecognized transferOpFlag %d", transferOpFlag)
	}

	chunkSize := r.cfg.TransferChunkSize
	remaining := entry.Size - chunkOffset
	if chunkSize > remaining {
		chunkSize = remaining
	}

	start := entry.Offset + chunkOffset
	data := r.blob[start : start+chunkSize]

	isFirst := chunkOffset == 0
	isLast := chunkOffset+chunkSize == entry.Size

	var flag TransferFlag
	var nextHandle uint32
	switch {
	case isFirst && isLast:
		flag = TransferStartAndEnd
	case isFirst:
		flag = TransferStart
		nextHandle = chunkOffset + chunkSize
	case isLast:
		flag = TransferEnd
	default:
		flag = TransferMiddle
		nextHandle = chunkOffset + chunkSize
	}

	var nextRecord uint32
	if next := r.nextLiveIndex(idx); next >= 0 {
		nextRecord = r.index[next].RecordHandle
	}

	return GetPDRResult{
		NextRecordHandle:       nextRecord,
		NextDataTransferHandle: nextHandle,
		TransferFlag:           flag,
		Data:                   data,
	}, nil
}
