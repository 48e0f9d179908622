package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestStudioHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 123000000, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "run-123",
			level:   slog.LevelInfo,
			message: "project saved",
			want:    "2024-06-15T14:30:45.123Z\tINFO\tproject saved\trun=run-123\n",
		},
		{
			name:    "debug level",
			runID:   "run-456",
			level:   slog.LevelDebug,
			message: "skipping remote sync",
			want:    "2024-06-15T14:30:45.123Z\tDEBUG\tskipping remote sync\trun=run-456\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-789",
			level:   slog.LevelInfo,
			message: "upload queued",
			attrs:   []slog.Attr{slog.String("item", "vid_1"), slog.Int("progress", 42)},
			want:    "2024-06-15T14:30:45.123Z\tINFO\tupload queued\titem=vid_1\tprogress=42\trun=run-789\n",
		},
		{
			name:    "quotes values containing whitespace",
			runID:   "run-1",
			level:   slog.LevelError,
			message: "upload failed",
			attrs:   []slog.Attr{slog.String("error", "quota exceeded for today")},
			want:    "2024-06-15T14:30:45.123Z\tERROR\tupload failed\terror=\"quota exceeded for today\"\trun=run-1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newStudioHandler(&buf, tt.runID)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestStudioHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newStudioHandler(&buf, "run-1")

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")})

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=vault") {
		t.Errorf("expected pre-set attr component=vault, got: %q", got)
	}
	if !strings.Contains(got, "key=abc") {
		t.Errorf("expected record attr key=abc, got: %q", got)
	}
}

func TestStudioHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := newStudioHandler(&buf, "run-1")
	h2 := h.WithAttrs([]slog.Attr{slog.String("a", "1")}).(*studioHandler)
	h3 := h2.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*studioHandler)

	if len(h2.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h2.attrs))
	}
	if len(h3.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h3.attrs))
	}
}

func TestStudioHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := newStudioHandler(&buf, "run-1").WithGroup("sync")

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "merged", 0)
	r.AddAttrs(slog.String("project", "p1"))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if got := buf.String(); !strings.Contains(got, "sync.project=p1") {
		t.Errorf("expected group-prefixed attr sync.project=p1, got: %q", got)
	}
}

func TestStudioHandler_Enabled(t *testing.T) {
	h := newStudioHandler(&bytes.Buffer{}, "run-1")
	// All levels should be enabled
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !h.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "test-run")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}
	if f == nil {
		t.Fatal("newLogger() returned nil file")
	}
}
