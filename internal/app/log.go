package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// studioHandler is a slog.Handler that writes one tab-separated line per
// record:
//
//	<time>\t<LEVEL>\t<message>\t<key=value ...>\trun=<runID>
//
// Values containing whitespace are quoted so a line always splits cleanly on
// tabs. Each record is assembled in a buffer and written in a single call
// under a mutex, so lines from concurrent goroutines (the upload worker logs
// while a CLI operation runs) never interleave in the shared log file.
type studioHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	runID string
	group string
	attrs []slog.Attr // keys already carry their group prefix
}

func newStudioHandler(w io.Writer, runID string) *studioHandler {
	return &studioHandler{mu: &sync.Mutex{}, w: w, runID: runID}
}

func (h *studioHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *studioHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	buf.WriteByte('\t')
	buf.WriteString(r.Level.String())
	buf.WriteByte('\t')
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		appendAttr(&buf, a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&buf, h.prefixed(a.Key), a.Value)
		return true
	})

	fmt.Fprintf(&buf, "\trun=%s\n", h.runID)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *studioHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, slog.Attr{Key: h.prefixed(a.Key), Value: a.Value})
	}
	return h2
}

func (h *studioHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.group = h.prefixed(name)
	return h2
}

func (h *studioHandler) clone() *studioHandler {
	return &studioHandler{
		mu:    h.mu,
		w:     h.w,
		runID: h.runID,
		group: h.group,
		attrs: append([]slog.Attr(nil), h.attrs...),
	}
}

func (h *studioHandler) prefixed(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func appendAttr(buf *bytes.Buffer, key string, value slog.Value) {
	val := value.Resolve().String()
	if strings.ContainsAny(val, " \t") {
		val = strconv.Quote(val)
	}
	fmt.Fprintf(buf, "\t%s=%s", key, val)
}

// newLogger creates a structured logger that writes to both
// logDir/studio.log and stderr. runID tags every line so interleaved runs
// appending to the same file can be told apart. It returns the slog.Logger,
// the open log file (for cleanup), and any error.
func newLogger(logDir string, runID string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "studio.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := newStudioHandler(io.MultiWriter(f, os.Stderr), runID)
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the studio.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
