package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tailored-agentic-units/bridge/core/protocol"
	"github.com/tailored-agentic-units/bridge/transport"
)

const (
	defaultReadyTimeout   = 30 * time.Second
	defaultReplyTimeout   = 5 * time.Second
	defaultCaptureTimeout = 10 * time.Second
	defaultListenerPoll   = 500 * time.Millisecond
)

// Duration is a time.Duration that marshals as a Go duration string. JSON
// config files may also supply a plain number, read as milliseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v) * time.Millisecond)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds session-engine initialization parameters. Every blocking
// point in the engine is bounded by one of these durations.
type Config struct {
	// DefaultKernel names the kernel spec used when a start command omits
	// kernel_name.
	DefaultKernel string `json:"default_kernel,omitempty"`

	// ReadyTimeout bounds the post-spawn readiness wait.
	ReadyTimeout Duration `json:"ready_timeout,omitempty"`

	// ReplyTimeout bounds the correlated waits for complete, inspect, and
	// info replies.
	ReplyTimeout Duration `json:"reply_timeout,omitempty"`

	// CaptureTimeout bounds the namespace-capture wait after an execute
	// with user expressions.
	CaptureTimeout Duration `json:"capture_timeout,omitempty"`

	// ListenerPoll bounds each iopub read so the listener observes its
	// stop flag promptly.
	ListenerPoll Duration `json:"listener_poll,omitempty"`

	// Kernels maps kernel names to launchable specs.
	Kernels map[string]transport.Spec `json:"kernels,omitempty"`
}

// DefaultConfig returns a Config with the engine's default bounds. No
// kernel specs are configured by default; they come from the config file.
func DefaultConfig() Config {
	return Config{
		DefaultKernel:  protocol.DefaultKernelName,
		ReadyTimeout:   Duration(defaultReadyTimeout),
		ReplyTimeout:   Duration(defaultReplyTimeout),
		CaptureTimeout: Duration(defaultCaptureTimeout),
		ListenerPoll:   Duration(defaultListenerPoll),
		Kernels:        map[string]transport.Spec{},
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.DefaultKernel != "" {
		c.DefaultKernel = source.DefaultKernel
	}
	if source.ReadyTimeout > 0 {
		c.ReadyTimeout = source.ReadyTimeout
	}
	if source.ReplyTimeout > 0 {
		c.ReplyTimeout = source.ReplyTimeout
	}
	if source.CaptureTimeout > 0 {
		c.CaptureTimeout = source.CaptureTimeout
	}
	if source.ListenerPoll > 0 {
		c.ListenerPoll = source.ListenerPoll
	}
	if len(source.Kernels) > 0 {
		c.Kernels = source.Kernels
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
