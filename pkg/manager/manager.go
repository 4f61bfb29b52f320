// Package manager consolidates the PDR repositories of several remote
// termini into one local repository. Each terminus occupies a slot with
// its own state machine; the records it contributes are remapped into a
// disjoint high-order handle range so the origin of any consolidated
// record is recoverable from its handle alone.
//
// Like the repository it wraps, the manager is single-threaded:
// integrators sharing one across goroutines serialize access externally
// (one mutex around manager plus repository is sufficient).
package manager

import (
	"github.com/marmos91/pdrhub/internal/logger"
	"github.com/marmos91/pdrhub/pkg/fetcher"
	"github.com/marmos91/pdrhub/pkg/pdr"
)

// TerminusState is a slot's position in the manager's per-terminus
// state machine.
type TerminusState int

const (
	// StateUnused marks a free slot.
	StateUnused TerminusState = iota

	// StateDiscovered marks a registered terminus whose repository has
	// not been fetched yet.
	StateDiscovered

	// StateSyncing marks a terminus whose repository is being fetched.
	StateSyncing

	// StateSynced marks a terminus whose consolidated records match its
	// last observed signature.
	StateSynced

	// StateStale marks a synced terminus whose signature has since
	// changed; its consolidated records are queryable but outdated.
	StateStale

	// StateError marks a terminus whose last sync failed. Records from
	// before the failure may be partially purged; the next explicit
	// SyncTerminus re-enters StateSyncing.
	StateError
)

func (s TerminusState) String() string {
	switch s {
	case StateUnused:
		return "unused"
	case StateDiscovered:
		return "discovered"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	case StateStale:
		return "stale"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// HandleMapEntry pairs a record handle as assigned by the remote
// terminus with its remapped handle in the consolidated repository.
type HandleMapEntry struct {
	Remote uint32
	Local  uint32
}

// terminus is one slot's full state.
type terminus struct {
	state          TerminusState
	eid            uint8
	tid            uint8
	terminusHandle uint16

	remoteRecordCount uint32
	remoteRepoSize    uint32
	lastSignature     uint32

	localHandleSeq   uint32
	localRecordCount uint32

	fetchCtx  *fetcher.FetchContext
	handleMap []HandleMapEntry
}

// Config bounds the manager's fixed-capacity resources. Zero-valued
// fields take the defaults from DefaultConfig.
type Config struct {
	// MaxTermini bounds the slot table. Default 8; values above 8 are
	// clamped because the remap scheme partitions the handle space into
	// eight ranges.
	MaxTermini int

	// ReassemblyCapacity sizes each terminus's reassembly buffer.
	// Default 256.
	ReassemblyCapacity int

	// MaxHandleMapEntries bounds one terminus's remote-to-local handle
	// map. Default 64, matching the repository's default record limit.
	MaxHandleMapEntries int
}

// DefaultConfig returns the default manager sizing.
func DefaultConfig() Config {
	return Config{
		MaxTermini:          8,
		ReassemblyCapacity:  256,
		MaxHandleMapEntries: 64,
	}
}

func (cfg *Config) applyDefaults() {
	d := DefaultConfig()
	if cfg.MaxTermini <= 0 || cfg.MaxTermini > d.MaxTermini {
		cfg.MaxTermini = d.MaxTermini
	}
	if cfg.ReassemblyCapacity == 0 {
		cfg.ReassemblyCapacity = d.ReassemblyCapacity
	}
	if cfg.MaxHandleMapEntries == 0 {
		cfg.MaxHandleMapEntries = d.MaxHandleMapEntries
	}
}

// Manager owns the consolidated repository and the terminus slot table.
type Manager struct {
	cfg     Config
	repo    *pdr.Repository
	fetcher *fetcher.Fetcher
	termini []terminus
	metrics *Metrics
}

// New creates a Manager consolidating into repo, fetching via f.
func New(repo *pdr.Repository, f *fetcher.Fetcher, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cfg:     cfg,
		repo:    repo,
		fetcher: f,
		termini: make([]terminus, cfg.MaxTermini),
	}
}

// SetMetrics attaches Prometheus instrumentation. Nil is valid and
// disables instrumentation.
func (m *Manager) SetMetrics(mm *Metrics) {
	m.metrics = mm
}

// Repository returns the consolidated repository the manager owns.
func (m *Manager) Repository() *pdr.Repository {
	return m.repo
}

// remapHandle assigns the consolidated handle for the given slot and
// per-terminus sequence number: ((slot+1) << 16) | (seq & 0xFFFF). The
// eight slots map onto disjoint ranges 0x10000-0x1FFFF through
// 0x80000-0x8FFFF, so a handle's slot is recoverable as
// (handle >> 16) - 1.
func remapHandle(slot int, seq uint32) uint32 {
	return uint32(slot+1)<<16 | (seq & 0xFFFF)
}

// slotOfHandle recovers the slot index encoded in a consolidated
// handle, or -1 if the handle lies outside every remap range.
func (m *Manager) slotOfHandle(handle uint32) int {
	slot := int(handle>>16) - 1
	if slot < 0 || slot >= len(m.termini) {
		return -1
	}
	return slot
}

// findSlot returns the slot index registered for eid, or -1.
func (m *Manager) findSlot(eid uint8) int {
	for i := range m.termini {
		if m.termini[i].state != StateUnused && m.termini[i].eid == eid {
			return i
		}
	}
	return -1
}

// AddTerminus registers a terminus in the first free slot, initialized
// to StateDiscovered. Fails with ErrDuplicateTerminus if eid is already
// registered, or ErrSlotsFull if every slot is taken.
func (m *Manager) AddTerminus(eid uint8, terminusHandle uint16, tid uint8) error {
	if m.findSlot(eid) >= 0 {
		return newErr(ErrDuplicateTerminus, "eid %d is already registered", eid)
	}

	for i := range m.termini {
		if m.termini[i].state != StateUnused {
			continue
		}
		m.termini[i] = terminus{
			state:          StateDiscovered,
			eid:            eid,
			tid:            tid,
			terminusHandle: terminusHandle,
			localHandleSeq: 1,
			fetchCtx:       fetcher.NewFetchContext(m.cfg.ReassemblyCapacity),
			handleMap:      make([]HandleMapEntry, 0, m.cfg.MaxHandleMapEntries),
		}
		m.metrics.setTerminusState(i, StateDiscovered)
		logger.Info("terminus registered",
			logger.KeyEID, eid,
			logger.KeyTerminusHandle, terminusHandle,
			logger.KeyTerminusID, tid,
		)
		return nil
	}
	return newErr(ErrSlotsFull, "all %d terminus slots are occupied", len(m.termini))
}

// RemoveTerminus purges every consolidated record the terminus
// contributed and frees its slot. Valid from any state.
func (m *Manager) RemoveTerminus(eid uint8) error {
	slot := m.findSlot(eid)
	if slot < 0 {
		return newErr(ErrUnknownTerminus, "eid %d is not registered", eid)
	}

	m.purgeTerminus(slot)
	m.termini[slot] = terminus{}
	m.metrics.setTerminusState(slot, StateUnused)
	logger.Info("terminus removed", logger.KeyEID, eid)
	return nil
}

// purgeTerminus removes every consolidated record the slot's handle map
// names and resets the slot's local bookkeeping. Records already gone
// from the repository are skipped.
func (m *Manager) purgeTerminus(slot int) {
	t := &m.termini[slot]
	for _, entry := range t.handleMap {
		if err := m.repo.RemoveRecord(entry.Local); err != nil {
			if code, ok := pdr.CodeOf(err); !ok || code != pdr.ErrNotFound {
				logger.Warn("purge could not remove consolidated record",
					logger.KeyEID, t.eid,
					logger.KeyLocalHandle, entry.Local,
					logger.KeyError, err.Error(),
				)
			}
		}
	}
	t.handleMap = t.handleMap[:0]
	t.localHandleSeq = 1
	t.localRecordCount = 0
}

// lookupLocal returns the handle-map position of remote's entry in the
// slot, or -1.
func (t *terminus) lookupLocal(remote uint32) int {
	for i, entry := range t.handleMap {
		if entry.Remote == remote {
			return i
		}
	}
	return -1
}

// addRemappedRecord inserts body into the consolidated repository with
// a pre-chosen handle, preserving the normal allocator counter around
// the insertion. Safe because remapped handles live in ranges the
// incrementing allocator cannot reach, and the manager never mixes
// normal allocations with forced ones on the consolidated repository.
func (m *Manager) addRemappedRecord(pdrType uint8, body []byte, handle uint32) error {
	saved := m.repo.NextRecordHandle()
	m.repo.SetNextRecordHandle(handle)
	_, err := m.repo.AddRecord(pdrType, body)
	m.repo.SetNextRecordHandle(saved)
	return err
}

// LookupOrigin resolves a consolidated record handle to the endpoint ID
// of the terminus that contributed it. Fails with ErrBadHandle if the
// handle lies outside every remap range, or ErrUnknownTerminus if the
// encoded slot is free.
func (m *Manager) LookupOrigin(handle uint32) (uint8, error) {
	slot := m.slotOfHandle(handle)
	if slot < 0 {
		return 0, newErr(ErrBadHandle, "handle 0x%x is outside every terminus range", handle)
	}
	if m.termini[slot].state == StateUnused {
		return 0, newErr(ErrUnknownTerminus, "handle 0x%x maps to a free slot", handle)
	}
	return m.termini[slot].eid, nil
}

// TerminusStatus is a read-only snapshot of one slot, for inspection
// surfaces (CLI, debug API).
type TerminusStatus struct {
	Slot                 int
	State                TerminusState
	EID                  uint8
	TID                  uint8
	TerminusHandle       uint16
	RemoteRecordCount    uint32
	RemoteRepositorySize uint32
	LastSignature        uint32
	LocalRecordCount     uint32
}

// Status returns a snapshot of the terminus registered for eid.
func (m *Manager) Status(eid uint8) (TerminusStatus, error) {
	slot := m.findSlot(eid)
	if slot < 0 {
		return TerminusStatus{}, newErr(ErrUnknownTerminus, "eid %d is not registered", eid)
	}
	return m.statusOf(slot), nil
}

// Termini returns a snapshot of every occupied slot, in slot order.
func (m *Manager) Termini() []TerminusStatus {
	out := make([]TerminusStatus, 0, len(m.termini))
	for i := range m.termini {
		if m.termini[i].state == StateUnused {
			continue
		}
		out = append(out, m.statusOf(i))
	}
	return out
}

func (m *Manager) statusOf(slot int) TerminusStatus {
	t := &m.termini[slot]
	return TerminusStatus{
		Slot:                 slot,
		State:                t.state,
		EID:                  t.eid,
		TID:                  t.tid,
		TerminusHandle:       t.terminusHandle,
		RemoteRecordCount:    t.remoteRecordCount,
		RemoteRepositorySize: t.remoteRepoSize,
		LastSignature:        t.lastSignature,
		LocalRecordCount:     t.localRecordCount,
	}
}

// HandleMap returns a copy of the remote-to-local handle map of the
// terminus registered for eid.
func (m *Manager) HandleMap(eid uint8) ([]HandleMapEntry, error) {
	slot := m.findSlot(eid)
	if slot < 0 {
		return nil, newErr(ErrUnknownTerminus, "eid %d is not registered", eid)
	}
	out := make([]HandleMapEntry, len(m.termini[slot].handleMap))
	copy(out, m.termini[slot].handleMap)
	return out, nil
}

// setState transitions a slot and mirrors the change into metrics.
func (m *Manager) setState(slot int, s TerminusState) {
	m.termini[slot].state = s
	m.metrics.setTerminusState(slot, s)
}
