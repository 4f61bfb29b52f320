// Package debugapi exposes an HTTP introspection surface over the
// repository and manager, for integrators without a PLDM-capable test
// client: repository aggregates, the record index, terminus sync state,
// and the Prometheus metrics endpoint. Every route is a snapshot read,
// with one exception: when an event handler is attached, change-event
// wire payloads can be injected at POST /termini/{eid}/events, standing
// in for the event channel a real transport would deliver.
package debugapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/pdrhub/internal/logger"
	"github.com/marmos91/pdrhub/pkg/eventhandler"
	"github.com/marmos91/pdrhub/pkg/manager"
	"github.com/marmos91/pdrhub/pkg/pdr"
)

// Config configures the debug API listener.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the introspection HTTP server.
type Server struct {
	repo    *pdr.Repository
	manager *manager.Manager
	events  *eventhandler.Handler
	httpSrv *http.Server
}

// New creates a Server over repo and mgr. The Prometheus registry, if
// non-nil, is exposed at /metrics. mgr may be nil when the daemon runs
// without a manager; the termini routes then answer 404. events, if
// non-nil, enables change-event injection at POST /termini/{eid}/events.
func New(repo *pdr.Repository, mgr *manager.Manager, events *eventhandler.Handler, registry *prometheus.Registry, cfg Config) *Server {
	s := &Server{repo: repo, manager: mgr, events: events}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/repo", s.handleRepo)
	r.Get("/records", s.handleRecords)
	r.Get("/records/{handle}", s.handleRecord)
	r.Get("/termini", s.handleTermini)
	r.Get("/termini/{eid}", s.handleTerminus)
	if events != nil {
		r.Post("/termini/{eid}/events", s.handleInjectEvent)
	}
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the HTTP handler, for tests and custom mounting.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe runs the listener until Shutdown.
func (s *Server) ListenAndServe() error {
	logger.Info("debug API listening", "addr", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// RepoResponse is the response body for GET /repo.
type RepoResponse struct {
	State             string `json:"state"`
	RecordCount       uint32 `json:"record_count"`
	RepositorySize    uint32 `json:"repository_size"`
	LargestRecordSize uint32 `json:"largest_record_size"`
	Capacity          uint32 `json:"capacity"`
	Signature         string `json:"signature"`
}

// RecordResponse is one record in GET /records and the response body
// for GET /records/{handle}.
type RecordResponse struct {
	RecordHandle     string `json:"record_handle"`
	PDRType          uint8  `json:"pdr_type"`
	Size             uint32 `json:"size"`
	NextRecordHandle string `json:"next_record_handle,omitempty"`
}

// TerminusResponse is one terminus in GET /termini.
type TerminusResponse struct {
	Slot                 int    `json:"slot"`
	State                string `json:"state"`
	EID                  uint8  `json:"eid"`
	TID                  uint8  `json:"tid"`
	TerminusHandle       uint16 `json:"terminus_handle"`
	RemoteRecordCount    uint32 `json:"remote_record_count"`
	RemoteRepositorySize uint32 `json:"remote_repository_size"`
	LastSignature        string `json:"last_signature"`
	LocalRecordCount     uint32 `json:"local_record_count"`
}

func (s *Server) handleRepo(w http.ResponseWriter, r *http.Request) {
	info := s.repo.GetRepositoryInfo()
	writeJSON(w, http.StatusOK, RepoResponse{
		State:             stateName(info.State),
		RecordCount:       info.RecordCount,
		RepositorySize:    info.RepositorySize,
		LargestRecordSize: info.LargestRecordSize,
		Capacity:          s.repo.Capacity(),
		Signature:         fmt.Sprintf("0x%08x", s.repo.GetSignature()),
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records := make([]RecordResponse, 0)

	handle := uint32(0) // start of enumeration
	for {
		result, err := s.repo.GetPDR(handle, pdr.TransferOpGetFirstPart, 0)
		if err != nil {
			break // empty repository or end of walk
		}
		hdr, err := pdr.ParseCommonHeader(result.Data)
		if err != nil {
			break
		}
		records = append(records, RecordResponse{
			RecordHandle: fmt.Sprintf("0x%x", hdr.RecordHandle),
			PDRType:      hdr.PDRType,
			Size:         hdr.Size(),
		})
		if result.NextRecordHandle == 0 {
			break
		}
		handle = result.NextRecordHandle
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	handle, err := strconv.ParseUint(chi.URLParam(r, "handle"), 0, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "handle must be a 32-bit integer")
		return
	}

	result, err := s.repo.GetPDR(uint32(handle), pdr.TransferOpGetFirstPart, 0)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	hdr, err := pdr.ParseCommonHeader(result.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := RecordResponse{
		RecordHandle: fmt.Sprintf("0x%x", hdr.RecordHandle),
		PDRType:      hdr.PDRType,
		Size:         hdr.Size(),
	}
	if result.NextRecordHandle != 0 {
		resp.NextRecordHandle = fmt.Sprintf("0x%x", result.NextRecordHandle)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTermini(w http.ResponseWriter, r *http.Request) {
	if s.manager == nil {
		writeError(w, http.StatusNotFound, "no manager configured")
		return
	}

	statuses := s.manager.Termini()
	out := make([]TerminusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, terminusResponse(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTerminus(w http.ResponseWriter, r *http.Request) {
	if s.manager == nil {
		writeError(w, http.StatusNotFound, "no manager configured")
		return
	}

	eid, err := strconv.ParseUint(chi.URLParam(r, "eid"), 0, 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, "eid must be an 8-bit integer")
		return
	}

	status, err := s.manager.Status(uint8(eid))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, terminusResponse(status))
}

// handleInjectEvent feeds a raw change-event wire payload (the request
// body) to the event handler as if the terminus had emitted it.
func (s *Server) handleInjectEvent(w http.ResponseWriter, r *http.Request) {
	eid, err := strconv.ParseUint(chi.URLParam(r, "eid"), 0, 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, "eid must be an 8-bit integer")
		return
	}

	wire, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.events.HandleEvent(r.Context(), uint8(eid), wire); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func terminusResponse(st manager.TerminusStatus) TerminusResponse {
	return TerminusResponse{
		Slot:                 st.Slot,
		State:                st.State.String(),
		EID:                  st.EID,
		TID:                  st.TID,
		TerminusHandle:       st.TerminusHandle,
		RemoteRecordCount:    st.RemoteRecordCount,
		RemoteRepositorySize: st.RemoteRepositorySize,
		LastSignature:        fmt.Sprintf("0x%08x", st.LastSignature),
		LocalRecordCount:     st.LocalRecordCount,
	}
}

func stateName(s pdr.RepositoryState) string {
	switch s {
	case pdr.StateAvailable:
		return "available"
	case pdr.StateUpdateInProgress:
		return "update_in_progress"
	case pdr.StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("debug API response encoding failed", logger.KeyError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
