// Package fake provides an in-process Transport backed by a real
// pkg/pdr.Repository, so manager and fetcher tests exercise the actual
// wire codec and command dispatch without a network or an MCTP stack.
package fake

import (
	"context"
	"fmt"

	"github.com/marmos91/pdrhub/pkg/pdr"
	"github.com/marmos91/pdrhub/pkg/transport"
)

// LoopbackTransport dispatches SendRecv calls directly against an
// in-process Repository. It ignores eid: a single instance represents
// exactly one terminus.
type LoopbackTransport struct {
	Repo *pdr.Repository

	// Populate, if set, is used to service RunInitAgent requests. A nil
	// Populate makes RunInitAgent fail with CompletionErrorUnsupported,
	// mirroring a firmware image with no code-generated default PDR set.
	Populate pdr.PopulateFunc
}

// New creates a LoopbackTransport over repo.
func New(repo *pdr.Repository) *LoopbackTransport {
	return &LoopbackTransport{Repo: repo}
}

func (t *LoopbackTransport) SendRecv(_ context.Context, _ uint8, command transport.Command, payload []byte) (transport.CompletionCode, []byte, error) {
	switch command {
	case transport.CommandGetPDRRepositoryInfo:
		return t.getPDRRepositoryInfo()
	case transport.CommandGetPDR:
		return t.getPDR(payload)
	case transport.CommandFindPDR:
		return t.findPDR(payload)
	case transport.CommandGetPDRRepositorySignature:
		return t.getPDRRepositorySignature()
	case transport.CommandRunInitAgent:
		return t.runInitAgent()
	default:
		return transport.CompletionErrorUnsupported, nil, fmt.Errorf("fake: unsupported command %s", command)
	}
}

func (t *LoopbackTransport) getPDRRepositoryInfo() (transport.CompletionCode, []byte, error) {
	info := t.Repo.GetRepositoryInfo()
	resp := transport.GetPDRRepositoryInfoResponse{
		State:                     info.State,
		RecordCount:               info.RecordCount,
		RepositorySize:            info.RepositorySize,
		LargestRecordSize:         info.LargestRecordSize,
		DataTransferHandleTimeout: info.DataTransferHandleTimeout,
	}
	buf, err := resp.MarshalBinary()
	return transport.CompletionSuccess, buf, err
}

func (t *LoopbackTransport) getPDR(payload []byte) (transport.CompletionCode, []byte, error) {
	var req transport.GetPDRRequest
	if err := req.UnmarshalBinary(payload); err != nil {
		return transport.CompletionErrorInvalidLength, nil, err
	}

	result, err := t.Repo.GetPDR(req.RecordHandle, req.TransferOpFlag, req.DataTransferHandle)
	if err != nil {
		return transport.CompletionCodeFor(err), nil, nil
	}

	resp := transport.GetPDRResponse{
		NextRecordHandle:       result.NextRecordHandle,
		NextDataTransferHandle: result.NextDataTransferHandle,
		TransferFlag:           result.TransferFlag,
		RecordData:             result.Data,
	}
	buf, err := resp.MarshalBinary()
	return transport.CompletionSuccess, buf, err
}

func (t *LoopbackTransport) findPDR(payload []byte) (transport.CompletionCode, []byte, error) {
	var req transport.FindPDRRequest
	if err := req.UnmarshalBinary(payload); err != nil {
		return transport.CompletionErrorInvalidLength, nil, err
	}

	result, err := t.Repo.FindPDR(req.PDRType, req.StartHandle)
	if err != nil {
		return transport.CompletionCodeFor(err), nil, nil
	}

	resp := transport.FindPDRResponse{
		MatchedHandle:    result.RecordHandle,
		NextRecordHandle: result.NextRecordHandle,
		RecordData:       result.Data,
	}
	buf, err := resp.MarshalBinary()
	return transport.CompletionSuccess, buf, err
}

func (t *LoopbackTransport) getPDRRepositorySignature() (transport.CompletionCode, []byte, error) {
	resp := transport.GetPDRRepositorySignatureResponse{Signature: t.Repo.GetSignature()}
	buf, err := resp.MarshalBinary()
	return transport.CompletionSuccess, buf, err
}

func (t *LoopbackTransport) runInitAgent() (transport.CompletionCode, []byte, error) {
	if err := t.Repo.RunInitAgent(t.Populate); err != nil {
		return transport.CompletionCodeFor(err), nil, nil
	}
	return transport.CompletionSuccess, nil, nil
}
