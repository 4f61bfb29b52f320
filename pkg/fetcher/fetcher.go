// Package fetcher issues the PDR repository read commands against one
// remote terminus over the abstract transport capability: repository
// info and signature snapshots, and multi-chunk GetPDR transfers
// reassembled into a per-terminus fixed-capacity buffer.
//
// The fetcher is a stateless helper over (transport, eid); all walk
// state lives in the caller-owned FetchContext, so the manager keeps
// one context per terminus and one fetcher for the whole fleet.
package fetcher

import (
	"context"

	"github.com/marmos91/pdrhub/internal/logger"
	"github.com/marmos91/pdrhub/internal/telemetry"
	"github.com/marmos91/pdrhub/pkg/pdr"
	"github.com/marmos91/pdrhub/pkg/transport"
)

// Config bounds the fetcher's transfer parameters. Zero-valued fields
// take the defaults from DefaultConfig.
type Config struct {
	// TransferChunkSize is the requestCount sent with each GetPDR
	// request. Default 128.
	TransferChunkSize uint16

	// ReassemblyCapacity bounds a single reassembled record. Default 256.
	ReassemblyCapacity int
}

// DefaultConfig returns the default transfer parameters.
func DefaultConfig() Config {
	return Config{
		TransferChunkSize:  128,
		ReassemblyCapacity: 256,
	}
}

func (cfg *Config) applyDefaults() {
	d := DefaultConfig()
	if cfg.TransferChunkSize == 0 {
		cfg.TransferChunkSize = d.TransferChunkSize
	}
	if cfg.ReassemblyCapacity == 0 {
		cfg.ReassemblyCapacity = d.ReassemblyCapacity
	}
}

// RepoSnapshot is the remote repository's aggregate state as reported
// by GetPDRRepositoryInfo plus its change-detection signature.
type RepoSnapshot struct {
	State             pdr.RepositoryState
	RecordCount       uint32
	RepositorySize    uint32
	LargestRecordSize uint32

	// Signature is the remote CRC32 signature, or a pseudo-signature
	// synthesized from RecordCount and RepositorySize when the terminus
	// does not implement GetPDRRepositorySignature. The pseudo-signature
	// is a heuristic: it distinguishes most mutations, not all.
	Signature uint32
}

// Fetcher reads one terminus's repository over the transport.
type Fetcher struct {
	transport transport.Transport
	cfg       Config
	metrics   *Metrics
}

// New creates a Fetcher over t (zero-valued cfg fields take defaults).
func New(t transport.Transport, cfg Config) *Fetcher {
	cfg.applyDefaults()
	return &Fetcher{transport: t, cfg: cfg}
}

// SetMetrics attaches Prometheus instrumentation. Nil is valid and
// disables instrumentation.
func (f *Fetcher) SetMetrics(m *Metrics) {
	f.metrics = m
}

// Config returns the fetcher's effective transfer parameters.
func (f *Fetcher) Config() Config {
	return f.cfg
}

// FetchRepoInfo issues GetPDRRepositoryInfo followed by
// GetPDRRepositorySignature against eid and returns the combined
// snapshot.
//
// A terminus that does not implement the signature command (or fails
// it) still yields a usable snapshot: the signature degrades to
// recordCount XOR (repoSize << 16) so unchanged-detection keeps
// working, just with weaker discrimination.
func (f *Fetcher) FetchRepoInfo(ctx context.Context, eid uint8) (RepoSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFetchRepoInfo)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.EID(eid))

	cc, payload, err := f.transport.SendRecv(ctx, eid, transport.CommandGetPDRRepositoryInfo, nil)
	if err != nil {
		f.metrics.recordFailure(transport.CommandGetPDRRepositoryInfo, ErrTransport)
		telemetry.RecordError(ctx, err)
		return RepoSnapshot{}, newErr(ErrTransport, transport.CommandGetPDRRepositoryInfo, "%v", err)
	}
	if cc != transport.CompletionSuccess {
		f.metrics.recordFailure(transport.CommandGetPDRRepositoryInfo, ErrCompletion)
		return RepoSnapshot{}, newCompletionErr(transport.CommandGetPDRRepositoryInfo, cc)
	}

	var info transport.GetPDRRepositoryInfoResponse
	if err := info.UnmarshalBinary(payload); err != nil {
		f.metrics.recordFailure(transport.CommandGetPDRRepositoryInfo, ErrMalformed)
		return RepoSnapshot{}, newErr(ErrMalformed, transport.CommandGetPDRRepositoryInfo, "%v", err)
	}

	snap := RepoSnapshot{
		State:             info.State,
		RecordCount:       info.RecordCount,
		RepositorySize:    info.RepositorySize,
		LargestRecordSize: info.LargestRecordSize,
	}
	snap.Signature = f.fetchSignature(ctx, eid, snap.RecordCount, snap.RepositorySize)

	telemetry.SetAttributes(ctx,
		telemetry.RecordCount(snap.RecordCount),
		telemetry.RepositorySize(snap.RepositorySize),
		telemetry.Signature(snap.Signature),
	)
	return snap, nil
}

// fetchSignature issues GetPDRRepositorySignature, falling back to a
// pseudo-signature on any failure so that callers always get a
// change-detection token.
func (f *Fetcher) fetchSignature(ctx context.Context, eid uint8, recordCount, repoSize uint32) uint32 {
	pseudo := recordCount ^ (repoSize << 16)

	cc, payload, err := f.transport.SendRecv(ctx, eid, transport.CommandGetPDRRepositorySignature, nil)
	if err != nil || cc != transport.CompletionSuccess {
		f.metrics.recordPseudoSignature()
		logger.DebugCtx(ctx, "terminus does not provide a repository signature, using pseudo-signature",
			logger.KeyEID, eid, logger.KeyCompletionCode, uint8(cc), logger.KeyError, errString(err))
		return pseudo
	}

	var sig transport.GetPDRRepositorySignatureResponse
	if err := sig.UnmarshalBinary(payload); err != nil {
		f.metrics.recordPseudoSignature()
		logger.DebugCtx(ctx, "malformed signature response, using pseudo-signature",
			logger.KeyEID, eid, logger.KeyError, err.Error())
		return pseudo
	}
	return sig.Signature
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// FetchOnePDR fetches the record addressed by fc.NextRecordHandle (0 =
// first record) in as many GetPDR round trips as its size demands,
// reassembling header plus body into fc's buffer.
//
// On success fc.NextRecordHandle holds the remote's continuation handle
// (0 at end of enumeration), fc.RecordsFetched is incremented, and
// fc.Record() returns the complete record. On failure fc's walk state
// is left as-is so the caller decides whether to retry or abandon.
func (f *Fetcher) FetchOnePDR(ctx context.Context, eid uint8, fc *FetchContext) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFetchPDR)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.EID(eid), telemetry.RecordHandle(fc.NextRecordHandle))

	fc.resetRecord()

	req := transport.GetPDRRequest{
		RecordHandle:       fc.NextRecordHandle,
		DataTransferHandle: 0,
		TransferOpFlag:     pdr.TransferOpGetFirstPart,
		RequestCount:       f.cfg.TransferChunkSize,
		RecordChangeNumber: 0,
	}

	chunks := 0
	for {
		payload, err := req.MarshalBinary()
		if err != nil {
			return newErr(ErrMalformed, transport.CommandGetPDR, "%v", err)
		}

		cc, respBytes, err := f.transport.SendRecv(ctx, eid, transport.CommandGetPDR, payload)
		if err != nil {
			f.metrics.recordFailure(transport.CommandGetPDR, ErrTransport)
			telemetry.RecordError(ctx, err)
			return newErr(ErrTransport, transport.CommandGetPDR, "%v", err)
		}
		if cc != transport.CompletionSuccess {
			f.metrics.recordFailure(transport.CommandGetPDR, ErrCompletion)
			return newCompletionErr(transport.CommandGetPDR, cc)
		}

		var resp transport.GetPDRResponse
		if err := resp.UnmarshalBinary(respBytes); err != nil {
			f.metrics.recordFailure(transport.CommandGetPDR, ErrMalformed)
			return newErr(ErrMalformed, transport.CommandGetPDR, "%v", err)
		}

		if !fc.appendChunk(resp.RecordData) {
			f.metrics.recordFailure(transport.CommandGetPDR, ErrOverflow)
			return newErr(ErrOverflow, transport.CommandGetPDR,
				"record exceeds reassembly capacity %d (have %d, chunk %d)",
				cap(fc.reassembly), fc.length, len(resp.RecordData))
		}
		chunks++
		f.metrics.recordChunk()

		logger.DebugCtx(ctx, "reassembled GetPDR chunk",
			logger.KeyEID, eid,
			logger.KeyRecordHandle, req.RecordHandle,
			logger.KeyXferHandle, req.DataTransferHandle,
			logger.KeyChunks, chunks,
		)

		if resp.TransferFlag == pdr.TransferEnd || resp.TransferFlag == pdr.TransferStartAndEnd {
			fc.NextRecordHandle = resp.NextRecordHandle
			fc.RecordsFetched++
			f.metrics.recordFetched()
			telemetry.SetAttributes(ctx, telemetry.RecordSize(uint32(fc.length)))
			return nil
		}

		req.DataTransferHandle = resp.NextDataTransferHandle
		req.TransferOpFlag = pdr.TransferOpGetNextPart
	}
}

// FetchByHandle fetches exactly the record with the given remote
// handle, leaving the reassembled bytes in fc.Record(). The walk
// continuation in fc.NextRecordHandle is overwritten by the remote's
// answer, so interleaving FetchByHandle with an enumeration walk
// requires the caller to save and restore the continuation itself.
func (f *Fetcher) FetchByHandle(ctx context.Context, eid uint8, fc *FetchContext, remoteHandle uint32) error {
	fc.NextRecordHandle = remoteHandle
	return f.FetchOnePDR(ctx, eid, fc)
}
