package transport

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Logical channel names carried in each frame.
const (
	ChannelShell   = "shell"
	ChannelIOPub   = "iopub"
	ChannelControl = "control"
	ChannelStdin   = "stdin"
)

// maxFrameSize caps a single frame at 16 MiB. Kernel outputs larger than
// this indicate a framing desync or a misbehaving peer.
const maxFrameSize = 16 << 20

// Frame is the unit multiplexed over the byte stream: a channel name and
// one message, JSON-encoded behind a 4-byte big-endian length prefix.
type Frame struct {
	Channel string  `json:"channel"`
	Message Message `json:"message"`
}

// WriteFrame writes one length-prefixed frame. Callers serialize writes.
func WriteFrame(w io.Writer, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if len(payload) > maxFrameSize {
		return fmt.Errorf("frame too large: %d bytes", len(payload))
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return Frame{}, fmt.Errorf("frame too large: %d bytes", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("failed to read frame payload: %w", err)
	}

	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	return frame, nil
}
