package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
)

// processManager spawns a kernel as a child process and frames messages
// over its stdin/stdout. Kernel stderr passes through to the bridge's
// stderr so kernel diagnostics land next to bridge logs.
type processManager struct {
	name string
	spec Spec
	id   string

	mu     sync.Mutex
	cmd    *exec.Cmd
	conn   Conn
	waitCh chan struct{}
}

// NewProcessManager creates a manager that spawns the kernel from spec.
func NewProcessManager(name string, spec Spec) Manager {
	return &processManager{
		name: name,
		spec: spec,
		id:   uuid.Must(uuid.NewV7()).String(),
	}
}

func (m *processManager) Start(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx)
}

func (m *processManager) startLocked(ctx context.Context) (Conn, error) {
	if m.cmd != nil {
		return nil, fmt.Errorf("kernel %s already started", m.name)
	}

	cmd := exec.Command(m.spec.Argv[0], m.spec.Argv[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open kernel stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open kernel stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to spawn kernel %s: %w", m.name, err)
	}

	waitCh := make(chan struct{})
	go func() {
		cmd.Wait()
		close(waitCh)
	}()

	conn := NewConn(&procStream{reader: stdout, writer: stdin})
	m.cmd = cmd
	m.conn = conn
	m.waitCh = waitCh
	return conn, nil
}

func (m *processManager) Restart(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	return m.startLocked(ctx)
}

func (m *processManager) Interrupt() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd == nil || m.cmd.Process == nil {
		return fmt.Errorf("kernel %s not running", m.name)
	}
	return m.cmd.Process.Signal(os.Interrupt)
}

func (m *processManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	return nil
}

// stopLocked force-terminates the child and reaps it. Safe to call with no
// child running.
func (m *processManager) stopLocked() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	if m.cmd != nil {
		if m.cmd.Process != nil {
			m.cmd.Process.Kill()
		}
		<-m.waitCh
		m.cmd = nil
		m.waitCh = nil
	}
}

func (m *processManager) IsAlive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd == nil {
		return false
	}
	select {
	case <-m.waitCh:
		return false
	default:
		return true
	}
}

func (m *processManager) ID() string { return m.id }

func (m *processManager) Spec() Spec { return m.spec }

// procStream joins a child's stdout (reads) and stdin (writes) into one
// stream for the frame multiplexer.
type procStream struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (p *procStream) Read(b []byte) (int, error)  { return p.reader.Read(b) }
func (p *procStream) Write(b []byte) (int, error) { return p.writer.Write(b) }

func (p *procStream) Close() error {
	werr := p.writer.Close()
	rerr := p.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
