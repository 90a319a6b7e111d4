package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Spec describes how to run one kernel: the argv to spawn and the language
// it executes. The analog of an installed kernelspec.
type Spec struct {
	Argv        []string `json:"argv"`
	Language    string   `json:"language"`
	DisplayName string   `json:"display_name,omitempty"`
}

// Manager owns the lifecycle of one kernel peer. Start and Restart yield
// the connection the session engine reads and writes; the engine owns
// closing it.
type Manager interface {
	// Start brings the kernel up and returns its connection.
	Start(ctx context.Context) (Conn, error)
	// Restart tears the kernel down and brings it back, returning a fresh
	// connection. Correlation ids minted before a restart are meaningless
	// afterwards.
	Restart(ctx context.Context) (Conn, error)
	// Interrupt signals the kernel out-of-band without touching local state.
	Interrupt() error
	// Shutdown force-terminates the kernel. Idempotent.
	Shutdown() error
	// IsAlive reports whether the kernel peer is currently up.
	IsAlive() bool
	// ID is the stable kernel identity for this manager's lifetime.
	ID() string
	// Spec returns what is known about the kernel; sparse for attached
	// kernels described only by a connection file.
	Spec() Spec
}

// Launcher creates managers for kernels, either by spawning from a
// configured spec or by attaching through a connection file.
type Launcher struct {
	specs map[string]Spec
}

// NewLauncher creates a Launcher over the given kernel specs, keyed by
// kernel name.
func NewLauncher(specs map[string]Spec) *Launcher {
	return &Launcher{specs: specs}
}

// Launch returns a process manager for the named kernel spec.
func (l *Launcher) Launch(ctx context.Context, kernelName string) (Manager, error) {
	spec, ok := l.specs[kernelName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKernel, kernelName)
	}
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("kernel %s has an empty argv", kernelName)
	}
	return NewProcessManager(kernelName, spec), nil
}

// Attach returns a remote manager for the kernel described by the
// connection file.
func (l *Launcher) Attach(ctx context.Context, connectionFile string) (Manager, error) {
	info, err := ReadConnectionFile(connectionFile)
	if err != nil {
		return nil, err
	}
	return NewRemoteManager(info), nil
}

// Names lists the configured kernel names.
func (l *Launcher) Names() []string {
	names := make([]string, 0, len(l.specs))
	for name := range l.specs {
		names = append(names, name)
	}
	return names
}

// ConnectionInfo is the JSON connection descriptor for attaching to an
// already-running kernel.
type ConnectionInfo struct {
	Transport string `json:"transport"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Language  string `json:"language,omitempty"`
	Key       string `json:"key,omitempty"`
}

// Addr returns the dialable address for the descriptor.
func (ci ConnectionInfo) Addr() string {
	return fmt.Sprintf("%s:%d", ci.IP, ci.Port)
}

// ReadConnectionFile loads and validates a connection descriptor.
func ReadConnectionFile(path string) (ConnectionInfo, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return ConnectionInfo{}, fmt.Errorf("failed to read connection file: %w", err)
	}

	var info ConnectionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return ConnectionInfo{}, fmt.Errorf("failed to parse connection file: %w", err)
	}
	if info.Transport == "" {
		info.Transport = "tcp"
	}
	if info.IP == "" || info.Port == 0 {
		return ConnectionInfo{}, fmt.Errorf("connection file missing ip or port")
	}
	return info, nil
}
