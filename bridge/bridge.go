// Package bridge implements the session engine between an editor frontend
// and one compute kernel. It owns the kernel lifecycle, forwards execute
// requests, correlates synchronous replies on the shell channel, and runs a
// background listener that translates iopub events into frontend messages.
// Commands arrive pre-decoded from the protocol package; every outbound
// frontend message goes through the Emitter.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tailored-agentic-units/bridge/core/protocol"
	"github.com/tailored-agentic-units/bridge/inspect"
	"github.com/tailored-agentic-units/bridge/observability"
	"github.com/tailored-agentic-units/bridge/transport"
)

// Emitter delivers one outbound frontend message. Implementations must be
// safe for concurrent use: the channel listener emits concurrently with the
// command role.
type Emitter interface {
	Emit(msg protocol.Message) error
}

// Launcher creates kernel managers. Satisfied by *transport.Launcher.
type Launcher interface {
	Launch(ctx context.Context, kernelName string) (transport.Manager, error)
	Attach(ctx context.Context, connectionFile string) (transport.Manager, error)
}

// pendingExecution tracks one in-flight execute request, keyed by the
// request's message id, until its terminal idle status is observed.
type pendingExecution struct {
	cellIdx            int
	code               string
	count              int
	hasUserExpressions bool
}

// Bridge is the session engine. Commands are handled on a single caller
// goroutine; the iopub listener is the only other goroutine touching shared
// state, and it reaches only the pending table and execution counter, both
// guarded by mu.
type Bridge struct {
	cfg      Config
	launcher Launcher
	emitter  Emitter
	observer observability.Observer

	mu             sync.Mutex
	pending        map[string]pendingExecution
	executionCount int

	// shellMu serializes the sole synchronous shell-channel wait. Exactly
	// one of execute-capture, complete, inspect, or info may be draining
	// shell replies at a time.
	shellMu sync.Mutex

	manager    transport.Manager
	conn       transport.Conn
	kernelName string
	language   string

	running      atomic.Bool
	listenerDone chan struct{}
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithObserver routes engine events to obs instead of discarding them.
func WithObserver(obs observability.Observer) Option {
	return func(b *Bridge) {
		if obs != nil {
			b.observer = obs
		}
	}
}

// New creates a session engine over the given launcher and emitter.
func New(cfg Config, launcher Launcher, emitter Emitter, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:      cfg,
		launcher: launcher,
		emitter:  emitter,
		observer: observability.NoOpObserver{},
		pending:  make(map[string]pendingExecution),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleCommand executes one control command to completion. Panics inside a
// command are recovered and reported as error messages so the bridge keeps
// serving; the cell index is attached when the command names one.
func (b *Bridge) HandleCommand(ctx context.Context, cmd protocol.Command) {
	defer func() {
		if r := recover(); r != nil {
			var cellIdx *int
			if exec, ok := cmd.(protocol.ExecuteCommand); ok {
				idx := exec.CellIdx
				cellIdx = &idx
			}
			b.emit(ctx, EventCommandPanic, observability.LevelError, map[string]any{
				"action": cmd.Action(),
				"panic":  fmt.Sprint(r),
			})
			b.send(ctx, protocol.NewError(fmt.Sprintf("%s failed: %v", cmd.Action(), r), cellIdx))
		}
	}()

	switch c := cmd.(type) {
	case protocol.StartCommand:
		b.handleStart(ctx, c)
	case protocol.ConnectCommand:
		b.handleConnect(ctx, c)
	case protocol.ExecuteCommand:
		b.handleExecute(ctx, c)
	case protocol.InterruptCommand:
		b.handleInterrupt(ctx)
	case protocol.RestartCommand:
		b.handleRestart(ctx)
	case protocol.ShutdownCommand:
		b.handleShutdown(ctx)
	case protocol.InfoCommand:
		b.handleInfo(ctx)
	case protocol.IsAliveCommand:
		b.send(ctx, protocol.NewIsAlive(b.manager != nil && b.manager.IsAlive()))
	case protocol.CompleteCommand:
		b.handleComplete(ctx, c)
	case protocol.InspectCommand:
		b.handleInspect(ctx, c)
	case protocol.PingCommand:
		b.send(ctx, protocol.NewPong())
	default:
		b.send(ctx, protocol.NewError(fmt.Sprintf("unknown action: %s", cmd.Action()), nil))
	}
}

func (b *Bridge) send(ctx context.Context, msg protocol.Message) {
	if err := b.emitter.Emit(msg); err != nil {
		b.emit(ctx, EventEmitFailed, observability.LevelError, map[string]any{
			"message_type": msg.MessageType(),
			"error":        err.Error(),
		})
	}
}

func (b *Bridge) handleStart(ctx context.Context, cmd protocol.StartCommand) {
	if b.conn != nil {
		b.send(ctx, protocol.NewError(ErrAlreadyConnected.Error(), nil))
		return
	}

	manager, err := b.launcher.Launch(ctx, cmd.KernelName)
	if err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to start kernel: %v", err), nil))
		return
	}

	conn, err := manager.Start(ctx)
	if err != nil {
		_ = manager.Shutdown()
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to start kernel: %v", err), nil))
		return
	}

	info, err := transport.WaitReady(ctx, conn, b.cfg.ReadyTimeout.Std())
	if err != nil {
		_ = conn.Close()
		_ = manager.Shutdown()
		b.send(ctx, protocol.NewError(fmt.Sprintf("kernel did not become ready: %v", err), nil))
		return
	}

	language := manager.Spec().Language
	if language == "" {
		language = transport.LanguageFromInfo(info)
	}

	b.bind(ctx, cmd.KernelName, language, manager, conn)
	b.emit(ctx, EventKernelStarted, observability.LevelInfo, map[string]any{
		"kernel_name": cmd.KernelName,
		"kernel_id":   manager.ID(),
		"language":    language,
	})
	b.send(ctx, protocol.NewKernelStarted(cmd.KernelName, manager.ID(), language))
}

func (b *Bridge) handleConnect(ctx context.Context, cmd protocol.ConnectCommand) {
	if b.conn != nil {
		b.send(ctx, protocol.NewError(ErrAlreadyConnected.Error(), nil))
		return
	}

	manager, err := b.launcher.Attach(ctx, cmd.ConnectionFile)
	if err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to connect to kernel: %v", err), nil))
		return
	}

	conn, err := manager.Start(ctx)
	if err != nil {
		_ = manager.Shutdown()
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to connect to kernel: %v", err), nil))
		return
	}

	info, err := transport.WaitReady(ctx, conn, b.cfg.ReadyTimeout.Std())
	if err != nil {
		_ = conn.Close()
		_ = manager.Shutdown()
		b.send(ctx, protocol.NewError(fmt.Sprintf("kernel did not become ready: %v", err), nil))
		return
	}

	language := manager.Spec().Language
	if language == "" {
		language = transport.LanguageFromInfo(info)
	}

	// Attached kernels carry no configured kernel name; inspect strategy
	// selection falls back to the language.
	b.bind(ctx, "", language, manager, conn)
	b.emit(ctx, EventKernelConnected, observability.LevelInfo, map[string]any{
		"connection_file": cmd.ConnectionFile,
		"language":        language,
	})
	b.send(ctx, protocol.NewKernelConnected(cmd.ConnectionFile))
}

// bind installs a live kernel and starts its iopub listener.
func (b *Bridge) bind(ctx context.Context, kernelName, language string, manager transport.Manager, conn transport.Conn) {
	b.manager = manager
	b.conn = conn
	b.kernelName = kernelName
	b.language = language

	b.running.Store(true)
	b.listenerDone = make(chan struct{})
	go b.listen(ctx, conn, b.listenerDone)
}

// stopListener flips the running flag and waits for the listener goroutine
// to observe it. Bounded by the listener's poll interval.
func (b *Bridge) stopListener() {
	if b.listenerDone == nil {
		return
	}
	b.running.Store(false)
	<-b.listenerDone
	b.listenerDone = nil
}

func (b *Bridge) handleExecute(ctx context.Context, cmd protocol.ExecuteCommand) {
	cellIdx := cmd.CellIdx
	if b.conn == nil {
		b.send(ctx, protocol.NewError(ErrNoKernel.Error(), &cellIdx))
		return
	}

	// Replies to earlier executes have no waiter; discard them so the
	// bounded shell queue never fills and stalls the read loop.
	b.conn.ShellDrain()

	req, err := transport.NewRequest(transport.MsgExecuteRequest, transport.ExecuteRequestContent{
		Code:            cmd.Code,
		UserExpressions: cmd.UserExpressions,
	})
	if err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to submit execution: %v", err), &cellIdx))
		return
	}
	if err := b.conn.ShellSend(ctx, req); err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to submit execution: %v", err), &cellIdx))
		return
	}

	b.mu.Lock()
	b.executionCount++
	b.pending[req.ID] = pendingExecution{
		cellIdx:            cmd.CellIdx,
		code:               cmd.Code,
		count:              b.executionCount,
		hasUserExpressions: len(cmd.UserExpressions) > 0,
	}
	b.mu.Unlock()

	// The acknowledgement precedes any asynchronous output for this cell.
	b.send(ctx, protocol.NewExecuteRequest(cmd.CellIdx, req.ID))
	b.emit(ctx, EventExecuteAccepted, observability.LevelVerbose, map[string]any{
		"cell_idx": cmd.CellIdx,
		"msg_id":   req.ID,
	})

	if len(cmd.UserExpressions) > 0 {
		b.captureNamespace(ctx, req.ID, cmd.CellIdx)
	}
}

// captureNamespace waits for the execute reply carrying the evaluated user
// expressions and forwards the "__ns__" capture when it succeeded. Capture
// failures never surface as execution failures; the asynchronous outputs
// for the cell still flow through the listener.
func (b *Bridge) captureNamespace(ctx context.Context, parentID string, cellIdx int) {
	reply, err := b.awaitReply(ctx, parentID, transport.MsgExecuteReply, b.cfg.CaptureTimeout.Std())
	if err != nil {
		b.emit(ctx, EventCaptureFailed, observability.LevelWarning, map[string]any{
			"cell_idx": cellIdx,
			"error":    err.Error(),
		})
		return
	}

	var content transport.ExecuteReplyContent
	if err := reply.DecodeContent(&content); err != nil {
		b.emit(ctx, EventCaptureFailed, observability.LevelWarning, map[string]any{
			"cell_idx": cellIdx,
			"error":    err.Error(),
		})
		return
	}

	result, ok := content.UserExpressions["__ns__"]
	if !ok || result.Status != "ok" {
		b.emit(ctx, EventCaptureFailed, observability.LevelWarning, map[string]any{
			"cell_idx": cellIdx,
			"status":   result.Status,
		})
		return
	}

	b.send(ctx, protocol.NewNamespace(cellIdx, result.Data["text/plain"]))
}

func (b *Bridge) handleInterrupt(ctx context.Context) {
	if b.manager == nil {
		b.send(ctx, protocol.NewError(ErrNoKernel.Error(), nil))
		return
	}
	if err := b.manager.Interrupt(); err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to interrupt kernel: %v", err), nil))
		return
	}
	b.send(ctx, protocol.NewInterrupted())
}

func (b *Bridge) handleRestart(ctx context.Context) {
	if b.manager == nil {
		b.send(ctx, protocol.NewError(ErrNoKernel.Error(), nil))
		return
	}

	b.stopListener()
	old := b.conn
	b.conn = nil

	// Attached kernels keep their stream across restarts, so the old
	// connection is closed only when the manager handed back a new one.
	conn, err := b.manager.Restart(ctx)
	if err != nil {
		if old != nil {
			_ = old.Close()
		}
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to restart kernel: %v", err), nil))
		return
	}
	if old != nil && old != conn {
		_ = old.Close()
	}
	if _, err := transport.WaitReady(ctx, conn, b.cfg.ReadyTimeout.Std()); err != nil {
		_ = conn.Close()
		b.send(ctx, protocol.NewError(fmt.Sprintf("kernel did not become ready: %v", err), nil))
		return
	}

	// Correlation ids minted before the restart are meaningless afterwards.
	b.mu.Lock()
	b.executionCount = 0
	b.pending = make(map[string]pendingExecution)
	b.mu.Unlock()

	b.conn = conn
	b.running.Store(true)
	b.listenerDone = make(chan struct{})
	go b.listen(ctx, conn, b.listenerDone)

	b.emit(ctx, EventKernelRestarted, observability.LevelInfo, map[string]any{
		"kernel_id": b.manager.ID(),
	})
	b.send(ctx, protocol.NewRestarted())
}

// handleShutdown stops the session. Idempotent: a second call with nothing
// attached still confirms with a shutdown message.
func (b *Bridge) handleShutdown(ctx context.Context) {
	b.stopListener()

	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
	if b.manager != nil {
		if err := b.manager.Shutdown(); err != nil {
			b.emit(ctx, EventKernelShutdown, observability.LevelWarning, map[string]any{
				"error": err.Error(),
			})
		} else {
			b.emit(ctx, EventKernelShutdown, observability.LevelInfo, nil)
		}
		b.manager = nil
	}
	b.kernelName = ""
	b.language = ""

	b.mu.Lock()
	b.pending = make(map[string]pendingExecution)
	b.mu.Unlock()

	b.send(ctx, protocol.NewShutdown())
}

func (b *Bridge) handleInfo(ctx context.Context) {
	if b.conn == nil {
		b.send(ctx, protocol.NewKernelInfoDisconnected())
		return
	}

	req, err := transport.NewRequest(transport.MsgKernelInfoRequest, transport.KernelInfoRequestContent{})
	if err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to request kernel info: %v", err), nil))
		return
	}
	if err := b.conn.ShellSend(ctx, req); err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to request kernel info: %v", err), nil))
		return
	}

	reply, err := b.awaitReply(ctx, req.ID, transport.MsgKernelInfoReply, b.cfg.ReplyTimeout.Std())
	if err != nil {
		b.emit(ctx, EventReplyTimeout, observability.LevelWarning, map[string]any{
			"action": "info",
			"error":  err.Error(),
		})
		b.send(ctx, protocol.NewKernelInfo(nil))
		return
	}

	var info map[string]any
	if err := reply.DecodeContent(&info); err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to decode kernel info: %v", err), nil))
		return
	}
	b.send(ctx, protocol.NewKernelInfo(info))
}

func (b *Bridge) handleComplete(ctx context.Context, cmd protocol.CompleteCommand) {
	if b.conn == nil {
		b.send(ctx, protocol.NewError(ErrNoKernel.Error(), nil))
		return
	}

	req, err := transport.NewRequest(transport.MsgCompleteRequest, transport.CompleteRequestContent{
		Code:      cmd.Code,
		CursorPos: cmd.CursorPos,
	})
	if err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to request completion: %v", err), nil))
		return
	}
	if err := b.conn.ShellSend(ctx, req); err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to request completion: %v", err), nil))
		return
	}

	reply, err := b.awaitReply(ctx, req.ID, transport.MsgCompleteReply, b.cfg.ReplyTimeout.Std())
	if err != nil {
		// Expiry is silent; completion is advisory and the editor moves on.
		b.emit(ctx, EventReplyTimeout, observability.LevelWarning, map[string]any{
			"action": "complete",
			"error":  err.Error(),
		})
		return
	}

	content := transport.CompleteReplyContent{
		CursorStart: cmd.CursorPos,
		CursorEnd:   cmd.CursorPos,
	}
	if err := reply.DecodeContent(&content); err != nil {
		b.emit(ctx, EventReplyTimeout, observability.LevelWarning, map[string]any{
			"action": "complete",
			"error":  err.Error(),
		})
		return
	}
	b.send(ctx, protocol.NewCompleteReply(content.Matches, content.CursorStart, content.CursorEnd, content.Metadata))
}

func (b *Bridge) handleInspect(ctx context.Context, cmd protocol.InspectCommand) {
	if b.conn == nil {
		b.send(ctx, protocol.NewError(ErrNoKernel.Error(), nil))
		return
	}

	req, err := transport.NewRequest(transport.MsgInspectRequest, transport.InspectRequestContent{
		Code:        cmd.Code,
		CursorPos:   cmd.CursorPos,
		DetailLevel: cmd.DetailLevel,
	})
	if err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to request inspection: %v", err), nil))
		return
	}
	if err := b.conn.ShellSend(ctx, req); err != nil {
		b.send(ctx, protocol.NewError(fmt.Sprintf("failed to request inspection: %v", err), nil))
		return
	}

	reply, err := b.awaitReply(ctx, req.ID, transport.MsgInspectReply, b.cfg.ReplyTimeout.Std())
	if err != nil {
		b.emit(ctx, EventReplyTimeout, observability.LevelWarning, map[string]any{
			"action": "inspect",
			"error":  err.Error(),
		})
		b.send(ctx, protocol.NewInspectReply(cmd.RequestID, false, inspect.Sections{}, nil, nil))
		return
	}

	var content transport.InspectReplyContent
	if err := reply.DecodeContent(&content); err != nil {
		b.send(ctx, protocol.NewInspectReply(cmd.RequestID, false, inspect.Sections{}, nil, nil))
		return
	}
	// The parser runs even when the kernel found nothing; some kernels
	// still attach partial hints to a not-found reply.
	strategy := inspect.ForKernel(b.language, b.kernelName)
	sections := strategy(content.Data)
	found := content.Found && (content.Status == "" || content.Status == "ok")
	b.send(ctx, protocol.NewInspectReply(cmd.RequestID, found, sections, content.Data, content.Metadata))
}
