// Package transport speaks to the kernel peer: structured messages on four
// logical channels (shell, iopub, control, stdin) multiplexed as
// length-delimited JSON frames over one byte stream. The package also owns
// kernel lifecycle management (spawn, attach, interrupt, restart, shutdown)
// and the readiness probe. The kernel itself is opaque; anything that frames
// messages the same way can sit on the other end, which is how tests attach
// scripted peers via Pipe.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kernel message types used by the bridge.
const (
	MsgExecuteRequest    = "execute_request"
	MsgExecuteReply      = "execute_reply"
	MsgCompleteRequest   = "complete_request"
	MsgCompleteReply     = "complete_reply"
	MsgInspectRequest    = "inspect_request"
	MsgInspectReply      = "inspect_reply"
	MsgKernelInfoRequest = "kernel_info_request"
	MsgKernelInfoReply   = "kernel_info_reply"
	MsgInterruptRequest  = "interrupt_request"
	MsgRestartRequest    = "restart_request"
	MsgShutdownRequest   = "shutdown_request"
	MsgStatus            = "status"
	MsgStream            = "stream"
	MsgExecuteResult     = "execute_result"
	MsgDisplayData       = "display_data"
	MsgError             = "error"
	MsgExecuteInput      = "execute_input"
)

// Message is one structured message on a kernel channel. ParentID carries
// the correlation identifier: replies and iopub events reference the msg_id
// of the request that caused them.
type Message struct {
	ID       string          `json:"msg_id"`
	Type     string          `json:"msg_type"`
	ParentID string          `json:"parent_id,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// NewRequest builds an outbound request message with a fresh UUIDv7 id.
func NewRequest(msgType string, content any) (Message, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s content: %w", msgType, err)
	}
	return Message{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Type:    msgType,
		Content: payload,
	}, nil
}

// NewReply builds a message answering parent. Used by scripted test peers
// and the remote manager's control exchanges.
func NewReply(parent Message, msgType string, content any) (Message, error) {
	msg, err := NewRequest(msgType, content)
	if err != nil {
		return Message{}, err
	}
	msg.ParentID = parent.ID
	return msg, nil
}

// DecodeContent unmarshals the message content into v. Pre-populate v to
// keep defaults for fields the kernel omitted. A message without content
// leaves v untouched.
func (m Message) DecodeContent(v any) error {
	if len(m.Content) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Content, v); err != nil {
		return fmt.Errorf("failed to decode %s content: %w", m.Type, err)
	}
	return nil
}
