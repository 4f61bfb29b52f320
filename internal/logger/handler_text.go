package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ANSI escape sequences for the console handler.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// levelStyle maps a slog level to its display name and console color.
func levelStyle(level slog.Level) (name, color string) {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG", ansiGray
	case level < slog.LevelWarn:
		return "INFO", ansiGreen
	case level < slog.LevelError:
		return "WARN", ansiYellow
	default:
		return "ERROR", ansiRed
	}
}

// consoleHandler is a slog.Handler producing single-line
// "[timestamp] [LEVEL] message key=value ..." output, optionally
// colorized when the destination is a terminal. Error fields are
// highlighted so failed syncs and fetches stand out in a scrolling
// daemon log.
type consoleHandler struct {
	opts  *slog.HandlerOptions
	w     io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
	color bool
}

// newConsoleHandler creates a consoleHandler writing to w.
func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions, color bool) *consoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &consoleHandler{
		opts:  opts,
		w:     w,
		mu:    &sync.Mutex{},
		color: color,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes one log record. The line is assembled in a
// local buffer; only the final write takes the shared lock.
func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	name, color := levelStyle(r.Level)
	if !h.color {
		color = ""
	}

	line := make([]byte, 0, 128)
	line = fmt.Appendf(line, "[%s] [", r.Time.Format("2006-01-02 15:04:05"))
	line = h.appendColored(line, color, name)
	line = append(line, "] "...)
	line = append(line, r.Message...)

	for _, attr := range h.attrs {
		line = h.appendAttr(line, attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		line = h.appendAttr(line, a)
		return true
	})
	line = append(line, '\n')

	h.mu.Lock()
	_, err := h.w.Write(line)
	h.mu.Unlock()
	return err
}

// appendAttr appends one " key=value" pair. Empty attrs (e.g. Err(nil))
// are dropped.
func (h *consoleHandler) appendAttr(line []byte, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return line
	}
	a.Value = a.Value.Resolve()

	keyColor := ansiCyan
	if a.Key == KeyError || a.Key == KeyErrorCode {
		keyColor = ansiRed
	}
	if !h.color {
		keyColor = ""
	}

	line = append(line, ' ')
	line = h.appendColored(line, keyColor, a.Key)
	line = append(line, '=')
	return append(line, renderValue(a.Value)...)
}

// appendColored appends s wrapped in the given color, or bare when
// color is empty.
func (h *consoleHandler) appendColored(line []byte, color, s string) []byte {
	if color == "" {
		return append(line, s...)
	}
	line = append(line, color...)
	line = append(line, s...)
	return append(line, ansiReset...)
}

// renderValue formats a slog.Value for single-line text output.
func renderValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return fmt.Sprintf("%d", v.Int64())
	case slog.KindUint64:
		return fmt.Sprintf("%d", v.Uint64())
	case slog.KindFloat64:
		return fmt.Sprintf("%.3f", v.Float64())
	case slog.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		return fmt.Sprintf("%v", v.Any())
	default:
		return v.String()
	}
}

// WithAttrs returns a handler that prepends attrs to every record. The
// write lock is shared with the parent so interleaved children cannot
// tear each other's lines.
func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &consoleHandler{
		opts:  h.opts,
		w:     h.w,
		mu:    h.mu,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
		color: h.color,
	}
}

// WithGroup is accepted but flattens: single-line console output has no
// use for nested groups, and the JSON handler covers structured
// consumers.
func (h *consoleHandler) WithGroup(name string) slog.Handler {
	return h
}
