package bridge

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/bridge/observability"
)

// Event types emitted by the session engine.
const (
	EventKernelStarted   observability.EventType = "bridge.kernel.started"
	EventKernelConnected observability.EventType = "bridge.kernel.connected"
	EventKernelRestarted observability.EventType = "bridge.kernel.restarted"
	EventKernelShutdown  observability.EventType = "bridge.kernel.shutdown"
	EventExecuteAccepted observability.EventType = "bridge.execute.accepted"
	EventReplyTimeout    observability.EventType = "bridge.reply.timeout"
	EventCaptureFailed   observability.EventType = "bridge.capture.failed"
	EventPendingEvicted  observability.EventType = "bridge.pending.evicted"
	EventListenerError   observability.EventType = "bridge.listener.error"
	EventCommandPanic    observability.EventType = "bridge.command.panic"
	EventEmitFailed      observability.EventType = "bridge.emit.failed"
)

func (b *Bridge) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	b.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "bridge",
		Data:      data,
	})
}
