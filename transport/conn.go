package transport

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"
)

// channelBufferSize bounds each inbound channel queue. A slow frontend
// backpressures the read loop rather than growing memory without bound.
const channelBufferSize = 256

// Conn is the bridge's view of one kernel connection: bounded receives on
// the reply and event channels, serialized sends on the request channels.
// Implementations must be safe for one concurrent receiver per channel plus
// concurrent senders.
type Conn interface {
	ShellSend(ctx context.Context, msg Message) error
	ShellRecv(ctx context.Context, timeout time.Duration) (Message, error)
	// ShellDrain discards buffered shell replies that no caller is waiting
	// for and reports how many were dropped. Left queued they would fill
	// the bounded channel and stall the read loop.
	ShellDrain() int
	IOPubRecv(ctx context.Context, timeout time.Duration) (Message, error)
	ControlSend(ctx context.Context, msg Message) error
	ControlRecv(ctx context.Context, timeout time.Duration) (Message, error)
	StdinSend(ctx context.Context, msg Message) error
	Close() error
}

// PeerConn is the kernel-facing side of a connection: it answers shell and
// control requests and publishes iopub events. Scripted test peers speak
// the kernel end through it.
type PeerConn interface {
	ShellRecv(ctx context.Context, timeout time.Duration) (Message, error)
	ShellSend(ctx context.Context, msg Message) error
	IOPubSend(ctx context.Context, msg Message) error
	ControlRecv(ctx context.Context, timeout time.Duration) (Message, error)
	ControlSend(ctx context.Context, msg Message) error
	Close() error
}

// framedConn multiplexes the four logical channels over a single byte
// stream. A background read loop demultiplexes inbound frames into
// per-channel queues.
type framedConn struct {
	rwc io.ReadWriteCloser

	writeMu sync.Mutex
	writer  *bufio.Writer

	shell   *Channel[Message]
	iopub   *Channel[Message]
	control *Channel[Message]

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	readDone  chan struct{}
}

// NewConn wraps a byte stream carrying kernel frames. The returned Conn
// owns rwc and closes it on Close.
func NewConn(rwc io.ReadWriteCloser) Conn {
	return newFramedConn(rwc)
}

func newFramedConn(rwc io.ReadWriteCloser) *framedConn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &framedConn{
		rwc:      rwc,
		writer:   bufio.NewWriter(rwc),
		shell:    NewChannel[Message](ctx, channelBufferSize),
		iopub:    NewChannel[Message](ctx, channelBufferSize),
		control:  NewChannel[Message](ctx, channelBufferSize),
		ctx:      ctx,
		cancel:   cancel,
		readDone: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *framedConn) readLoop() {
	defer close(c.readDone)
	reader := bufio.NewReader(c.rwc)

	for {
		frame, err := ReadFrame(reader)
		if err != nil {
			c.cancel()
			return
		}

		var target *Channel[Message]
		switch frame.Channel {
		case ChannelShell:
			target = c.shell
		case ChannelIOPub:
			target = c.iopub
		case ChannelControl:
			target = c.control
		default:
			// Inbound stdin requests are unsupported; drop them.
			continue
		}

		if err := target.Send(c.ctx, frame.Message); err != nil {
			return
		}
	}
}

func (c *framedConn) send(ctx context.Context, channel string, msg Message) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	// The underlying write blocks for as long as the peer stops reading,
	// so run it aside and let the caller's context cut the wait. An
	// abandoned write finishes or fails once the stream closes.
	done := make(chan error, 1)
	go func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()

		if err := WriteFrame(c.writer, Frame{Channel: channel, Message: msg}); err != nil {
			done <- err
			return
		}
		done <- c.writer.Flush()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
}

func (c *framedConn) ShellSend(ctx context.Context, msg Message) error {
	return c.send(ctx, ChannelShell, msg)
}

func (c *framedConn) ShellRecv(ctx context.Context, timeout time.Duration) (Message, error) {
	return c.shell.Receive(ctx, timeout)
}

func (c *framedConn) ShellDrain() int {
	n := 0
	for {
		if _, ok := c.shell.TryReceive(); !ok {
			return n
		}
		n++
	}
}

func (c *framedConn) IOPubRecv(ctx context.Context, timeout time.Duration) (Message, error) {
	return c.iopub.Receive(ctx, timeout)
}

func (c *framedConn) ControlSend(ctx context.Context, msg Message) error {
	return c.send(ctx, ChannelControl, msg)
}

func (c *framedConn) IOPubSend(ctx context.Context, msg Message) error {
	return c.send(ctx, ChannelIOPub, msg)
}

func (c *framedConn) ControlRecv(ctx context.Context, timeout time.Duration) (Message, error) {
	return c.control.Receive(ctx, timeout)
}

func (c *framedConn) StdinSend(ctx context.Context, msg Message) error {
	return c.send(ctx, ChannelStdin, msg)
}

func (c *framedConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.rwc.Close()
		<-c.readDone
	})
	return err
}

// Pipe returns a connected in-memory pair: the bridge side and the kernel
// side. Messages sent on one side arrive on the same logical channel of the
// other. Used to attach scripted kernel peers in tests.
func Pipe() (Conn, PeerConn) {
	a, b := net.Pipe()
	return newFramedConn(a), newFramedConn(b)
}
