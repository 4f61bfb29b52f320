package pdr

import "time"

// RepositoryState mirrors the state field returned by
// GetPDRRepositoryInfo (command 0x50).
type RepositoryState uint8

const (
	// StateAvailable indicates the repository is consistent and may be
	// read from.
	StateAvailable RepositoryState = iota

	// StateUpdateInProgress indicates RunInitAgent is rebuilding the
	// repository; reads during this window observe a reset, not-yet-
	// repopulated store.
	StateUpdateInProgress

	// StateFailed indicates the last RunInitAgent invocation could not
	// complete (no populate callback supplied, or populate returned an
	// error).
	StateFailed
)

// tombstoneFlag marks an IndexEntry as logically deleted. The blob bytes
// backing a tombstoned entry stay in place until the next RunInitAgent
// rebuild (tombstones, not compaction), except that RemoveRecord zeroes
// their recordHandle field.
const tombstoneFlag uint8 = 0x01

// IndexEntry is per-record metadata kept outside the blob. Its position
// in the index slice is insertion order and never changes: removal sets
// tombstoneFlag in place rather than shifting later entries.
type IndexEntry struct {
	RecordHandle uint32
	Offset       uint32
	Size         uint32
	PDRType      uint8
	Flags        uint8
}

func (e IndexEntry) tombstoned() bool {
	return e.Flags&tombstoneFlag != 0
}

// RepoInfo is the cached aggregate returned by GetRepositoryInfo.
type RepoInfo struct {
	State                     RepositoryState
	RecordCount               uint32
	RepositorySize            uint32
	LargestRecordSize         uint32
	UpdateTimestamp           time.Time
	DataTransferHandleTimeout uint8
}

// signatureCache holds the cached CRC32 signature over blob[0:blobUsed).
// Any mutation sets valid=false; the next GetSignature call recomputes.
type signatureCache struct {
	value uint32
	valid bool
}

// Config bounds the repository's fixed-capacity resources. Zero-valued
// fields take the defaults of DefaultConfig.
type Config struct {
	// BlobCapacity is the size in bytes of the backing blob. Default 8192.
	BlobCapacity uint32

	// MaxRecords bounds the index length. Default 64.
	MaxRecords int

	// TransferChunkSize bounds a single GetPDR response payload.
	// Default 128.
	TransferChunkSize uint32
}

// DefaultConfig returns the default repository sizing.
func DefaultConfig() Config {
	return Config{
		BlobCapacity:      8192,
		MaxRecords:        64,
		TransferChunkSize: 128,
	}
}

// applyDefaults fills zero-valued fields of cfg with DefaultConfig's
// values, in place.
func (cfg *Config) applyDefaults() {
	d := DefaultConfig()
	if cfg.BlobCapacity == 0 {
		cfg.BlobCapacity = d.BlobCapacity
	}
	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = d.MaxRecords
	}
	if cfg.TransferChunkSize == 0 {
		cfg.TransferChunkSize = d.TransferChunkSize
	}
}
