package bridge_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tailored-agentic-units/bridge/bridge"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"go duration string", `"5s"`, 5 * time.Second},
		{"sub-second string", `"250ms"`, 250 * time.Millisecond},
		{"plain number is milliseconds", `1500`, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d bridge.Duration
			if err := json.Unmarshal([]byte(tt.input), &d); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if d.Std() != tt.want {
				t.Errorf("Duration = %v, want %v", d.Std(), tt.want)
			}
		})
	}

	var d bridge.Duration
	if err := json.Unmarshal([]byte(`"not a duration"`), &d); err == nil {
		t.Error("Unmarshal(invalid) error = nil, want parse error")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := bridge.DefaultConfig()
	if cfg.ReadyTimeout.Std() != 30*time.Second {
		t.Errorf("ReadyTimeout = %v, want 30s", cfg.ReadyTimeout.Std())
	}
	if cfg.ReplyTimeout.Std() != 5*time.Second {
		t.Errorf("ReplyTimeout = %v, want 5s", cfg.ReplyTimeout.Std())
	}
	if cfg.CaptureTimeout.Std() != 10*time.Second {
		t.Errorf("CaptureTimeout = %v, want 10s", cfg.CaptureTimeout.Std())
	}
	if cfg.ListenerPoll.Std() != 500*time.Millisecond {
		t.Errorf("ListenerPoll = %v, want 500ms", cfg.ListenerPoll.Std())
	}
	if cfg.DefaultKernel != "python3" {
		t.Errorf("DefaultKernel = %q, want python3", cfg.DefaultKernel)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.json")
	raw := `{
		"reply_timeout": "2s",
		"kernels": {
			"python3": {"argv": ["python3", "-m", "bridge_kernel"], "language": "python"}
		}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := bridge.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ReplyTimeout.Std() != 2*time.Second {
		t.Errorf("ReplyTimeout = %v, want the loaded 2s", cfg.ReplyTimeout.Std())
	}
	// Unset fields keep their defaults.
	if cfg.ReadyTimeout.Std() != 30*time.Second {
		t.Errorf("ReadyTimeout = %v, want default 30s", cfg.ReadyTimeout.Std())
	}
	spec, ok := cfg.Kernels["python3"]
	if !ok || spec.Language != "python" {
		t.Errorf("Kernels[python3] = %+v, want loaded spec", spec)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := bridge.LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("LoadConfig(absent) error = nil, want read failure")
	}
}
