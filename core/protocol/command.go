// Package protocol defines the frontend control protocol: one JSON object
// per line in each direction. Inbound lines decode into a closed set of
// Command variants exactly once at the protocol boundary; the session engine
// dispatches over the variant type. Outbound messages are typed structs
// built through constructors so every wire shape lives in one place.
package protocol

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// DefaultKernelName is used when a start command omits kernel_name.
const DefaultKernelName = "python3"

// Command is an inbound control action. The set of implementations is
// closed; DecodeCommand is the only constructor path.
type Command interface {
	// Action returns the wire name of the command.
	Action() string
}

// StartCommand spawns a new kernel for the named kernel spec.
type StartCommand struct {
	KernelName string
}

func (StartCommand) Action() string { return "start" }

// ConnectCommand attaches to an already-running kernel via a connection file.
type ConnectCommand struct {
	ConnectionFile string
}

func (ConnectCommand) Action() string { return "connect" }

// ExecuteCommand submits code for asynchronous execution. UserExpressions,
// when present, requests a synchronous namespace capture after submission.
type ExecuteCommand struct {
	Code            string
	CellIdx         int
	UserExpressions map[string]string
}

func (ExecuteCommand) Action() string { return "execute" }

// InterruptCommand signals the kernel out-of-band.
type InterruptCommand struct{}

func (InterruptCommand) Action() string { return "interrupt" }

// RestartCommand restarts the kernel process and resets session bookkeeping.
type RestartCommand struct{}

func (RestartCommand) Action() string { return "restart" }

// ShutdownCommand stops the session and terminates the kernel.
type ShutdownCommand struct{}

func (ShutdownCommand) Action() string { return "shutdown" }

// InfoCommand requests kernel metadata.
type InfoCommand struct{}

func (InfoCommand) Action() string { return "info" }

// IsAliveCommand asks whether the kernel process is alive.
type IsAliveCommand struct{}

func (IsAliveCommand) Action() string { return "is_alive" }

// CompleteCommand requests code completion at a cursor position.
type CompleteCommand struct {
	Code      string
	CursorPos int
}

func (CompleteCommand) Action() string { return "complete" }

// InspectCommand requests symbol inspection at a cursor position. RequestID
// is the frontend's own correlation token, echoed back in the reply.
type InspectCommand struct {
	Code        string
	CursorPos   int
	DetailLevel int
	RequestID   string
}

func (InspectCommand) Action() string { return "inspect" }

// PingCommand is a liveness probe for the bridge process itself.
type PingCommand struct{}

func (PingCommand) Action() string { return "ping" }

// UnknownActionError reports an action name outside the closed command set.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action: %s", e.Name)
}

// DecodeCommand parses one control-protocol line into its Command variant.
// Missing optional fields receive their documented defaults: kernel_name
// falls back to DefaultKernelName and cursor_pos to the rune length of the
// code. A connect without connection_file is a decode error.
func DecodeCommand(line []byte) (Command, error) {
	var probe struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch probe.Action {
	case "start":
		var raw struct {
			KernelName string `json:"kernel_name"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		if raw.KernelName == "" {
			raw.KernelName = DefaultKernelName
		}
		return StartCommand{KernelName: raw.KernelName}, nil

	case "connect":
		var raw struct {
			ConnectionFile string `json:"connection_file"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		if raw.ConnectionFile == "" {
			return nil, fmt.Errorf("missing connection_file parameter")
		}
		return ConnectCommand{ConnectionFile: raw.ConnectionFile}, nil

	case "execute":
		var raw struct {
			Code            string            `json:"code"`
			CellIdx         int               `json:"cell_idx"`
			UserExpressions map[string]string `json:"user_expressions"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return ExecuteCommand{
			Code:            raw.Code,
			CellIdx:         raw.CellIdx,
			UserExpressions: raw.UserExpressions,
		}, nil

	case "interrupt":
		return InterruptCommand{}, nil

	case "restart":
		return RestartCommand{}, nil

	case "shutdown":
		return ShutdownCommand{}, nil

	case "info":
		return InfoCommand{}, nil

	case "is_alive":
		return IsAliveCommand{}, nil

	case "complete":
		var raw struct {
			Code      string `json:"code"`
			CursorPos *int   `json:"cursor_pos"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		pos := utf8.RuneCountInString(raw.Code)
		if raw.CursorPos != nil {
			pos = *raw.CursorPos
		}
		return CompleteCommand{Code: raw.Code, CursorPos: pos}, nil

	case "inspect":
		var raw struct {
			Code        string `json:"code"`
			CursorPos   *int   `json:"cursor_pos"`
			DetailLevel int    `json:"detail_level"`
			RequestID   string `json:"request_id"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		pos := utf8.RuneCountInString(raw.Code)
		if raw.CursorPos != nil {
			pos = *raw.CursorPos
		}
		return InspectCommand{
			Code:        raw.Code,
			CursorPos:   pos,
			DetailLevel: raw.DetailLevel,
			RequestID:   raw.RequestID,
		}, nil

	case "ping":
		return PingCommand{}, nil

	default:
		return nil, &UnknownActionError{Name: probe.Action}
	}
}
