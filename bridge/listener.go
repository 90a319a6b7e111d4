package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/bridge/core/protocol"
	"github.com/tailored-agentic-units/bridge/observability"
	"github.com/tailored-agentic-units/bridge/transport"
)

// listen polls the iopub channel and forwards kernel events to the
// frontend. Each read is bounded by the configured poll interval so the
// running flag is observed promptly; only that flag stops the loop.
func (b *Bridge) listen(ctx context.Context, conn transport.Conn, done chan struct{}) {
	defer close(done)

	for b.running.Load() {
		msg, err := conn.IOPubRecv(ctx, b.cfg.ListenerPoll.Std())
		if errors.Is(err, transport.ErrTimeout) {
			continue
		}
		if err != nil {
			// The kernel side went away mid-session. Keep idling until
			// shutdown or restart flips the flag.
			if !errors.Is(err, transport.ErrClosed) {
				b.emit(ctx, EventListenerError, observability.LevelWarning, map[string]any{
					"error": err.Error(),
				})
			}
			time.Sleep(b.cfg.ListenerPoll.Std())
			continue
		}

		b.dispatchEvent(ctx, msg)
	}
}

// dispatchEvent translates one iopub message into its frontend message.
// Events referencing an unknown parent are still forwarded with a null cell
// index; status events in particular are never dropped. A panic while
// handling one event is reported and the listener moves on.
func (b *Bridge) dispatchEvent(ctx context.Context, msg transport.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.emit(ctx, EventListenerError, observability.LevelError, map[string]any{
				"msg_type": msg.Type,
				"panic":    fmt.Sprint(r),
			})
			b.send(ctx, protocol.NewError(fmt.Sprintf("IOPub listener error: %v", r), nil))
		}
	}()

	cellIdx, pending, known := b.lookupPending(msg.ParentID)

	switch msg.Type {
	case transport.MsgStatus:
		var content transport.StatusContent
		if err := msg.DecodeContent(&content); err != nil {
			b.send(ctx, protocol.NewError(fmt.Sprintf("IOPub listener error: %v", err), cellIdx))
			return
		}
		b.send(ctx, protocol.NewStatus(content.ExecutionState, cellIdx))
		if content.ExecutionState == "idle" && known {
			b.evictPending(ctx, msg.ParentID)
		}

	case transport.MsgStream:
		var content transport.StreamContent
		if err := msg.DecodeContent(&content); err != nil {
			b.send(ctx, protocol.NewError(fmt.Sprintf("IOPub listener error: %v", err), cellIdx))
			return
		}
		b.send(ctx, protocol.NewOutput(cellIdx, protocol.NewStreamOutput(content.Name, content.Text)))

	case transport.MsgExecuteResult:
		var content transport.ExecuteResultContent
		if err := msg.DecodeContent(&content); err != nil {
			b.send(ctx, protocol.NewError(fmt.Sprintf("IOPub listener error: %v", err), cellIdx))
			return
		}
		b.send(ctx, protocol.NewOutput(cellIdx, protocol.NewExecuteResultOutput(content.ExecutionCount, content.Data, content.Metadata)))

	case transport.MsgDisplayData:
		var content transport.DisplayDataContent
		if err := msg.DecodeContent(&content); err != nil {
			b.send(ctx, protocol.NewError(fmt.Sprintf("IOPub listener error: %v", err), cellIdx))
			return
		}
		b.send(ctx, protocol.NewOutput(cellIdx, protocol.NewDisplayDataOutput(content.Data, content.Metadata)))

	case transport.MsgError:
		var content transport.ErrorContent
		if err := msg.DecodeContent(&content); err != nil {
			b.send(ctx, protocol.NewError(fmt.Sprintf("IOPub listener error: %v", err), cellIdx))
			return
		}
		b.send(ctx, protocol.NewOutput(cellIdx, protocol.NewErrorOutput(content.EName, content.EValue, content.Traceback)))

	case transport.MsgExecuteInput:
		var content transport.ExecuteInputContent
		if err := msg.DecodeContent(&content); err != nil {
			b.send(ctx, protocol.NewError(fmt.Sprintf("IOPub listener error: %v", err), cellIdx))
			return
		}
		// Fall back to the count assigned when the execute was submitted;
		// the counter itself may have moved on for later cells. The
		// kernel's own echo still wins when present.
		count := pending.count
		if !known {
			count = b.currentCount()
		}
		if content.ExecutionCount != nil {
			count = *content.ExecutionCount
		}
		b.send(ctx, protocol.NewExecuteInput(cellIdx, count))
	}
}

// lookupPending resolves an iopub parent id to its pending execution.
// Unknown parents yield a null cell index.
func (b *Bridge) lookupPending(parentID string) (*int, pendingExecution, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending, ok := b.pending[parentID]
	if !ok {
		return nil, pendingExecution{}, false
	}
	idx := pending.cellIdx
	return &idx, pending, true
}

// evictPending drops a pending entry once its terminal idle status was
// observed, so the table does not grow with the session.
func (b *Bridge) evictPending(ctx context.Context, parentID string) {
	b.mu.Lock()
	delete(b.pending, parentID)
	b.mu.Unlock()

	b.emit(ctx, EventPendingEvicted, observability.LevelVerbose, map[string]any{
		"msg_id": parentID,
	})
}

func (b *Bridge) currentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.executionCount
}
