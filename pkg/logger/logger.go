// Package logger provides a colored slog handler for terminal output.
// Warnings render yellow, errors red, and ingestion milestones green so
// corpus loads are easy to follow in a scrolling log.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// Handler is a slog.Handler that writes colored single-line records.
type Handler struct {
	mu    sync.Mutex
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
	group string
}

// NewHandler creates a colored handler writing to out.
func NewHandler(out io.Writer, level slog.Level) *Handler {
	return &Handler{out: out, level: level}
}

// NewDefaultLogger creates a colored logger writing to stderr.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(NewHandler(os.Stderr, level))
}

// NewLogger creates a colored logger writing to out.
func NewLogger(out io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(out, level))
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	color := h.colorFor(r)

	var b strings.Builder
	b.WriteString(r.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	if color != "" {
		b.WriteString(color)
	}
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		h.writeAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, a)
		return true
	})

	if color != "" {
		b.WriteString(colorReset)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *Handler) writeAttr(b *strings.Builder, a slog.Attr) {
	b.WriteByte(' ')
	if h.group != "" {
		b.WriteString(h.group)
		b.WriteByte('.')
	}
	b.WriteString(a.Key)
	b.WriteByte('=')
	fmt.Fprintf(b, "%v", a.Value.Any())
}

func (h *Handler) colorFor(r slog.Record) string {
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	case isIngestionMilestone(r.Message):
		return colorGreen
	default:
		return ""
	}
}

func isIngestionMilestone(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "registered") ||
		strings.Contains(lower, "ingested") ||
		strings.Contains(lower, "rebuilt")
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &Handler{out: h.out, level: h.level, group: h.group}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	next := &Handler{out: h.out, level: h.level, attrs: h.attrs}
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return next
}

// ParseLevel maps a config string to a slog level. Unknown strings fall
// back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
