package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	readyProbeInitial = 100 * time.Millisecond
	readyProbeMax     = 2 * time.Second
	readyRecvTimeout  = time.Second
)

// WaitReady probes the kernel with info requests until it answers or the
// bound elapses, and returns the kernel's self-description content. Probes
// back off exponentially so a slow-booting kernel is not flooded.
func WaitReady(ctx context.Context, conn Conn, timeout time.Duration) (json.RawMessage, error) {
	var info json.RawMessage

	probe := func() error {
		req, err := NewRequest(MsgKernelInfoRequest, KernelInfoRequestContent{})
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := conn.ShellSend(ctx, req); err != nil {
			if errors.Is(err, ErrClosed) {
				return backoff.Permanent(err)
			}
			return err
		}

		for {
			msg, err := conn.ShellRecv(ctx, readyRecvTimeout)
			if errors.Is(err, ErrTimeout) {
				return err
			}
			if err != nil {
				return backoff.Permanent(err)
			}
			// Discard stale replies to earlier probes.
			if msg.Type != MsgKernelInfoReply || msg.ParentID != req.ID {
				continue
			}
			info = msg.Content
			return nil
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = readyProbeInitial
	policy.MaxInterval = readyProbeMax
	policy.MaxElapsedTime = timeout

	if err := backoff.Retry(probe, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return info, nil
}

// LanguageFromInfo extracts the language name from a kernel info content
// payload, or "" when absent.
func LanguageFromInfo(info json.RawMessage) string {
	if len(info) == 0 {
		return ""
	}
	var content KernelInfoReplyContent
	if err := json.Unmarshal(info, &content); err != nil {
		return ""
	}
	return content.LanguageInfo.Name
}
