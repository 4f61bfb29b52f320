// Package pdr implements the firmware-side PLDM Platform Descriptor
// Record repository: a zero-copy, fixed-capacity, handle-indexed blob
// store with tombstone deletion, a cached CRC32 signature, a multi-chunk
// read protocol, and a rebuild mechanism (DSP0248 PDR repository
// commands).
//
// The repository never parses a record's body past the 10-byte common
// header; schema interpretation is out of scope here. All
// operations are total: they return a *RepoError rather than panicking,
// and none of them allocate on the hot path once a Repository has been
// constructed.
package pdr

import (
	"encoding/binary"
	"hash/crc32"
	"time"
)

// Repository is a fixed-capacity, handle-indexed store of PDR records.
//
// A Repository owns its blob exclusively. GetPDR and FindPDR return
// slices borrowed from that blob; the borrow is valid only until the
// next mutating call (AddRecord, RemoveRecord, RunInitAgent). The core
// is single-threaded and non-reentrant: callers that share a
// Repository across goroutines must serialize access externally.
type Repository struct {
	cfg Config

	blob       []byte
	blobOwned  bool
	blobUsed   uint32
	index      []IndexEntry
	nextHandle uint32

	info RepoInfo
	sig  signatureCache

	metrics *Metrics
}

// New creates an empty Repository with an internally-owned blob sized
// per cfg (zero-valued fields take DefaultConfig's values).
func New(cfg Config) *Repository {
	cfg.applyDefaults()
	r := &Repository{
		cfg:       cfg,
		blob:      make([]byte, cfg.BlobCapacity),
		blobOwned: true,
	}
	r.reset()
	return r
}

// NewExternal creates an empty Repository bound to a caller-owned blob
// buffer, as used when a code-generation pipeline has produced a
// pre-packed static image that the repository should index in place
// rather than copy. len(buf) becomes the effective
// BlobCapacity; cfg.BlobCapacity is ignored.
func NewExternal(cfg Config, buf []byte) *Repository {
	cfg.applyDefaults()
	cfg.BlobCapacity = uint32(len(buf))
	r := &Repository{
		cfg:       cfg,
		blob:      buf,
		blobOwned: false,
	}
	r.reset()
	return r
}

// SetMetrics attaches Prometheus instrumentation. Safe to call once
// during construction; nil is valid and disables instrumentation.
func (r *Repository) SetMetrics(m *Metrics) {
	r.metrics = m
}

// reset zeroes all repository state: blobUsed, index, nextHandle, and
// signature validity. It does not touch the blob bytes themselves (a
// rebuild overwrites them via the populate callback, not by scrubbing).
func (r *Repository) reset() {
	r.blobUsed = 0
	r.index = r.index[:0]
	r.nextHandle = 1
	r.sig = signatureCache{valid: false}
	r.info = RepoInfo{
		State:                     StateAvailable,
		UpdateTimestamp:           time.Now(),
		DataTransferHandleTimeout: 0,
	}
	r.recomputeInfo()
}

// Capacity returns the blob's fixed capacity in bytes.
func (r *Repository) Capacity() uint32 {
	return uint32(len(r.blob))
}

// NextRecordHandle returns the handle that would be assigned to the next
// AddRecord call. Exposed so the manager can save/restore it around
// forced-handle insertion.
func (r *Repository) NextRecordHandle() uint32 {
	return r.nextHandle
}

// SetNextRecordHandle overrides the allocator counter. Used only by the
// manager's forced-handle insertion protocol; core callers
// should never need it.
func (r *Repository) SetNextRecordHandle(h uint32) {
	r.nextHandle = h
}

// AddRecord allocates a fresh handle, writes the common header and body
// at the current high-water mark, and appends an index entry.
//
// Fails with ErrFull if the index is already at cfg.MaxRecords, or with
// ErrNoSpace if the record would not fit in the remaining blob capacity.
// On failure no partial state is written.
func (r *Repository) AddRecord(pdrType uint8, body []byte) (uint32, error) {
	if len(r.index) >= r.cfg.MaxRecords {
		r.metrics.recordError(ErrFull)
		return 0, newErr(ErrFull, "index at capacity (%d records)", r.cfg.MaxRecords)
	}

	size := uint32(HeaderSize + len(body))
	if r.blobUsed+size > uint32(len(r.blob)) {
		r.metrics.recordError(ErrNoSpace)
		return 0, newErr(ErrNoSpace, "record of %d bytes would exceed blob capacity %d (used %d)",
			size, len(r.blob), r.blobUsed)
	}

	handle := r.nextHandle
	r.nextHandle++

	hdr := CommonHeader{
		RecordHandle:       handle,
		HeaderVersion:      HeaderVersion,
		PDRType:            pdrType,
		RecordChangeNumber: 0,
		DataLength:         uint16(len(body)),
	}
	offset := r.blobUsed
	PutCommonHeader(r.blob[offset:offset+HeaderSize], hdr)
	copy(r.blob[offset+HeaderSize:offset+size], body)

	r.index = append(r.index, IndexEntry{
		RecordHandle: handle,
		Offset:       offset,
		Size:         size,
		PDRType:      pdrType,
	})
	r.blobUsed += size

	r.invalidateSignature()
	r.recomputeInfo()

	return handle, nil
}

// IndexRecord registers, without copying, a record already present in
// the blob at the given offset (used when replaying a pre-packed static
// image into a repository bound via NewExternal).
//
// It parses the common header at offset, derives size = 10 + dataLength,
// requires offset+size <= capacity, appends an index entry, and advances
// the handle allocator past the header's recordHandle so subsequent
// AddRecord calls never collide with pre-packed handles.
func (r *Repository) IndexRecord(offset uint32) error {
	if len(r.index) >= r.cfg.MaxRecords {
		r.metrics.recordError(ErrFull)
		return newErr(ErrFull, "index at capacity (%d records)", r.cfg.MaxRecords)
	}
	if offset+HeaderSize > uint32(len(r.blob)) {
		r.metrics.recordError(ErrInvalidLength)
		return newErr(ErrInvalidLength, "offset %d leaves no room for a common header", offset)
	}

	hdr, err := ParseCommonHeader(r.blob[offset : offset+HeaderSize])
	if err != nil {
		r.metrics.recordError(ErrInvalidLength)
		return err
	}

	size := hdr.Size()
	if offset+size > uint32(len(r.blob)) {
		r.metrics.recordError(ErrInvalidLength)
		return newErr(ErrInvalidLength, "record at offset %d (size %d) exceeds blob capacity %d",
			offset, size, len(r.blob))
	}

	r.index = append(r.index, IndexEntry{
		RecordHandle: hdr.RecordHandle,
		Offset:       offset,
		Size:         size,
		PDRType:      hdr.PDRType,
	})
	if hdr.RecordHandle >= r.nextHandle {
		r.nextHandle = hdr.RecordHandle + 1
	}
	if offset+size > r.blobUsed {
		r.blobUsed = offset + size
	}

	r.invalidateSignature()
	r.recomputeInfo()

	return nil
}

// RemoveRecord tombstones the live entry matching handle: O(1), in
// place. The record's body bytes stay in the blob until the next
// RunInitAgent rebuild; only the blob-resident recordHandle is zeroed,
// which marks the dead record in the raw image (0 is reserved and never
// allocated) and moves the repository signature on removal.
//
// Fails with ErrNotFound if no live entry matches handle. Calling
// RemoveRecord twice on the same handle is idempotent in effect (the
// record stays gone) but the second call reports ErrNotFound.
func (r *Repository) RemoveRecord(handle uint32) error {
	for i := range r.index {
		e := &r.index[i]
		if e.tombstoned() || e.RecordHandle != handle {
			continue
		}
		e.Flags |= tombstoneFlag
		binary.LittleEndian.PutUint32(r.blob[e.Offset:e.Offset+4], 0)
		r.invalidateSignature()
		r.recomputeInfo()
		return nil
	}
	r.metrics.recordError(ErrNotFound)
	return newErr(ErrNotFound, "no live record with handle %d", handle)
}

// GetRepositoryInfo returns a snapshot of the cached aggregate info.
func (r *Repository) GetRepositoryInfo() RepoInfo {
	return r.info
}

// GetSignature returns the CRC32 signature over blob[0:blobUsed),
// recomputing it first if the cache was invalidated by a mutation since
// the last call.
func (r *Repository) GetSignature() uint32 {
	if !r.sig.valid {
		r.sig.value = crc32.ChecksumIEEE(r.blob[:r.blobUsed])
		r.sig.valid = true
		r.metrics.recordSignatureRecompute()
	}
	return r.sig.value
}

func (r *Repository) invalidateSignature() {
	r.sig.valid = false
}

// recomputeInfo rebuilds the cached RepoInfo aggregates from the index.
// O(index length); called after every mutation, which keeps reads O(1).
func (r *Repository) recomputeInfo() {
	var count, size, largest uint32
	for _, e := range r.index {
		if e.tombstoned() {
			continue
		}
		count++
		size += e.Size
		if e.Size > largest {
			largest = e.Size
		}
	}
	r.info.RecordCount = count
	r.info.RepositorySize = size
	r.info.LargestRecordSize = largest
	r.info.UpdateTimestamp = time.Now()

	r.metrics.setRecordCount(count)
	r.metrics.setRepositorySize(size)
}

// liveEntryIndex returns the index slice position of the live entry
// with the given handle, or -1 if none matches.
func (r *Repository) liveEntryIndex(handle uint32) int {
	for i, e := range r.index {
		if !e.tombstoned() && e.RecordHandle == handle {
			return i
		}
	}
	return -1
}

// firstLiveIndex returns the index slice position of the first live
// entry in index order, or -1 if the repository is empty.
func (r *Repository) firstLiveIndex() int {
	for i, e := range r.index {
		if !e.tombstoned() {
			return i
		}
	}
	return -1
}

// nextLiveIndex returns the index slice position of the first live
// entry strictly after position i, or -1 if none remains.
func (r *Repository) nextLiveIndex(i int) int {
	for j := i + 1; j < len(r.index); j++ {
		if !r.index[j].tombstoned() {
			return j
		}
	}
	return -1
}
