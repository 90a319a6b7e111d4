// Package frontend carries the control protocol between the editor and the
// session engine: newline-delimited JSON over stdio, and the same protocol
// over WebSocket for embedders that cannot own the process's stdio.
package frontend

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/tailored-agentic-units/bridge/core/protocol"
)

// LineWriter emits one JSON object per line. Safe for concurrent use; the
// channel listener and the command role both write through it. Each message
// is flushed immediately so the editor never waits on a partial buffer.
type LineWriter struct {
	mu     sync.Mutex
	writer *bufio.Writer
}

// NewLineWriter creates a LineWriter over w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{writer: bufio.NewWriter(w)}
}

// Emit writes msg as one JSON line and flushes.
func (w *LineWriter) Emit(msg protocol.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.MessageType(), err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.writer.Write(payload); err != nil {
		return err
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return err
	}
	return w.writer.Flush()
}
