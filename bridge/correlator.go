package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/bridge/transport"
)

// replyPollInterval bounds each individual shell read inside a correlated
// wait, so the overall deadline is observed within one interval.
const replyPollInterval = 250 * time.Millisecond

// awaitReply drains the shell channel until a reply of wantType referencing
// parentID arrives or the deadline passes. Replies for other parents are
// stale leftovers from earlier requests and are discarded. A reply that
// matches the parent but carries a different type terminates the wait: the
// kernel has answered this request and nothing further is coming for it.
// The shell mutex serializes callers so at most one correlated wait drains
// the channel at a time.
func (b *Bridge) awaitReply(ctx context.Context, parentID, wantType string, timeout time.Duration) (transport.Message, error) {
	b.shellMu.Lock()
	defer b.shellMu.Unlock()

	conn := b.conn
	if conn == nil {
		return transport.Message{}, ErrNoKernel
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return transport.Message{}, transport.ErrTimeout
		}
		if remaining > replyPollInterval {
			remaining = replyPollInterval
		}

		msg, err := conn.ShellRecv(ctx, remaining)
		if errors.Is(err, transport.ErrTimeout) {
			continue
		}
		if err != nil {
			return transport.Message{}, err
		}
		if msg.ParentID != parentID {
			continue
		}
		if msg.Type != wantType {
			return transport.Message{}, fmt.Errorf("got %s while waiting for %s", msg.Type, wantType)
		}
		return msg, nil
	}
}
