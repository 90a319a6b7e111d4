package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/bridge/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "trace range", level: 1, want: "TRACE"},
		{name: "verbose maps to DEBUG", level: observability.LevelVerbose, want: "DEBUG"},
		{name: "info maps to INFO", level: observability.LevelInfo, want: "INFO"},
		{name: "warning maps to WARN", level: observability.LevelWarning, want: "WARN"},
		{name: "error maps to ERROR", level: observability.LevelError, want: "ERROR"},
		{name: "fatal range", level: 21, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  slog.Level
	}{
		{name: "verbose maps to Debug", level: observability.LevelVerbose, want: slog.LevelDebug},
		{name: "info maps to Info", level: observability.LevelInfo, want: slog.LevelInfo},
		{name: "warning maps to Warn", level: observability.LevelWarning, want: slog.LevelWarn},
		{name: "error maps to Error", level: observability.LevelError, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.SlogLevel(); got != tt.want {
				t.Errorf("Level(%d).SlogLevel() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestSlogObserver_OnEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	obs := observability.NewSlogObserver(logger)

	obs.OnEvent(context.Background(), observability.Event{
		Type:      "bridge.execute.accepted",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "bridge.Execute",
		Data:      map[string]any{"cell_idx": 3},
	})

	out := buf.String()
	if !strings.Contains(out, "bridge.execute.accepted") {
		t.Errorf("log output missing event type: %q", out)
	}
	if !strings.Contains(out, "source=bridge.Execute") {
		t.Errorf("log output missing source attribute: %q", out)
	}
	if !strings.Contains(out, "cell_idx=3") {
		t.Errorf("log output missing data attribute: %q", out)
	}
}

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func TestMultiObserver_FansOut(t *testing.T) {
	first := &captureObserver{}
	second := &captureObserver{}
	multi := observability.NewMultiObserver(first, nil, second)

	multi.OnEvent(context.Background(), observability.Event{Type: "bridge.shutdown"})

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Errorf("fan-out counts = %d, %d, want 1, 1", len(first.events), len(second.events))
	}
}

func TestNoOpObserver_Discards(t *testing.T) {
	// Must not panic with a zero-value event.
	observability.NoOpObserver{}.OnEvent(context.Background(), observability.Event{})
}
