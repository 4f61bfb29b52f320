package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds operation-scoped logging context: which terminus is
// being talked to, which command is in flight, and trace correlation.
// An EID of 0 (the MCTP null EID, never assigned to a terminus) means
// "no terminus bound" and is omitted from output.
type LogContext struct {
	TraceID        string    // OpenTelemetry trace ID
	SpanID         string    // OpenTelemetry span ID
	Command        string    // PLDM command name (GetPDR, FindPDR, etc.)
	EID            uint8     // MCTP endpoint ID of the terminus
	TerminusHandle uint16    // PDR terminus handle
	RecordHandle   uint32    // Record handle the operation addresses
	StartTime      time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext bound to the given terminus EID
func NewLogContext(eid uint8) *LogContext {
	return &LogContext{
		EID:       eid,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:        lc.TraceID,
		SpanID:         lc.SpanID,
		Command:        lc.Command,
		EID:            lc.EID,
		TerminusHandle: lc.TerminusHandle,
		RecordHandle:   lc.RecordHandle,
		StartTime:      lc.StartTime,
	}
}

// WithCommand returns a copy with the PLDM command name set
func (lc *LogContext) WithCommand(command string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Command = command
	}
	return clone
}

// WithTerminus returns a copy with the terminus handle set
func (lc *LogContext) WithTerminus(terminusHandle uint16) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TerminusHandle = terminusHandle
	}
	return clone
}

// WithRecord returns a copy with the record handle set
func (lc *LogContext) WithRecord(recordHandle uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RecordHandle = recordHandle
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
