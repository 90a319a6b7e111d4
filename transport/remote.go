package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	remoteDialTimeout    = 5 * time.Second
	remoteControlTimeout = 2 * time.Second
)

// remoteManager attaches to an already-running kernel over TCP using a
// connection descriptor. Lifecycle requests that a process manager handles
// with signals travel over the control channel instead: the peer
// supervising the kernel acts on them.
type remoteManager struct {
	info ConnectionInfo
	id   string

	mu   sync.Mutex
	conn Conn
}

// NewRemoteManager creates a manager for the kernel described by info.
func NewRemoteManager(info ConnectionInfo) Manager {
	return &remoteManager{
		info: info,
		id:   uuid.Must(uuid.NewV7()).String(),
	}
}

func (m *remoteManager) Start(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return nil, fmt.Errorf("already connected to %s", m.info.Addr())
	}

	dialer := net.Dialer{Timeout: remoteDialTimeout}
	raw, err := dialer.DialContext(ctx, m.info.Transport, m.info.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to kernel at %s: %w", m.info.Addr(), err)
	}

	m.conn = NewConn(raw)
	return m.conn, nil
}

func (m *remoteManager) Restart(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return nil, fmt.Errorf("not connected to %s", m.info.Addr())
	}

	if err := m.controlRequest(ctx, conn, MsgRestartRequest); err != nil {
		return nil, fmt.Errorf("failed to restart kernel: %w", err)
	}
	// The supervising peer keeps the stream across restarts; the caller
	// re-runs the readiness probe on the same connection.
	return conn, nil
}

func (m *remoteManager) Interrupt() error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected to %s", m.info.Addr())
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteControlTimeout)
	defer cancel()
	return m.controlRequest(ctx, conn, MsgInterruptRequest)
}

func (m *remoteManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}

	// Best effort: tell the peer we are going away, then drop the stream.
	ctx, cancel := context.WithTimeout(context.Background(), remoteControlTimeout)
	defer cancel()
	req, err := NewRequest(MsgShutdownRequest, struct{}{})
	if err == nil {
		m.conn.ControlSend(ctx, req)
	}

	err = m.conn.Close()
	m.conn = nil
	return err
}

func (m *remoteManager) controlRequest(ctx context.Context, conn Conn, msgType string) error {
	req, err := NewRequest(msgType, struct{}{})
	if err != nil {
		return err
	}
	return conn.ControlSend(ctx, req)
}

func (m *remoteManager) IsAlive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

func (m *remoteManager) ID() string { return m.id }

func (m *remoteManager) Spec() Spec {
	return Spec{Language: m.info.Language}
}
