package frontend

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/tailored-agentic-units/bridge/core/protocol"
)

// maxLineSize caps one control-protocol line. Cells are code, not data
// blobs; a megabyte is generous.
const maxLineSize = 1024 * 1024

// Handler executes one decoded control command. Satisfied by *bridge.Bridge.
type Handler interface {
	HandleCommand(ctx context.Context, cmd protocol.Command)
}

// Serve runs the ndjson command loop: it announces readiness, then decodes
// and dispatches one command per line until the reader ends or a shutdown
// command is handled. Malformed lines produce an error message and the loop
// continues. The engine is always shut down on exit, so an editor that
// simply closes our stdin does not leak a kernel.
func Serve(ctx context.Context, r io.Reader, emitter Emitter, handler Handler) error {
	if err := emitter.Emit(protocol.NewReady()); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	sawShutdown := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		cmd, err := protocol.DecodeCommand(line)
		if err != nil {
			_ = emitter.Emit(protocol.NewError(err.Error(), nil))
			continue
		}

		handler.HandleCommand(ctx, cmd)

		if _, ok := cmd.(protocol.ShutdownCommand); ok {
			sawShutdown = true
			break
		}
	}

	if !sawShutdown {
		handler.HandleCommand(ctx, protocol.ShutdownCommand{})
	}
	return scanner.Err()
}

// Emitter delivers outbound frontend messages. Mirrors bridge.Emitter so
// this package does not import the engine.
type Emitter interface {
	Emit(msg protocol.Message) error
}
