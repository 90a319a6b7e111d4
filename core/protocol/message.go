package protocol

// Outbound message type names as they appear in the wire "type" field.
const (
	TypeReady           = "ready"
	TypeKernelStarted   = "kernel_started"
	TypeKernelConnected = "kernel_connected"
	TypeExecuteRequest  = "execute_request"
	TypeStatus          = "status"
	TypeOutput          = "output"
	TypeExecuteInput    = "execute_input"
	TypeNamespace       = "namespace"
	TypeInterrupted     = "interrupted"
	TypeRestarted       = "restarted"
	TypeShutdown        = "shutdown"
	TypeKernelInfo      = "kernel_info"
	TypeIsAlive         = "is_alive"
	TypeCompleteReply   = "complete_reply"
	TypeInspectReply    = "inspect_reply"
	TypePong            = "pong"
	TypeError           = "error"
)

// Message is implemented by every outbound frontend message. Construct
// messages through the New* constructors so the wire "type" field is always
// populated.
type Message interface {
	MessageType() string
}

// Ready signals that the bridge process is accepting commands.
type Ready struct {
	Type string `json:"type"`
}

func NewReady() Ready { return Ready{Type: TypeReady} }

func (m Ready) MessageType() string { return m.Type }

// KernelStarted reports a successful kernel spawn.
type KernelStarted struct {
	Type       string `json:"type"`
	KernelName string `json:"kernel_name"`
	KernelID   string `json:"kernel_id"`
	Language   string `json:"language"`
}

func NewKernelStarted(kernelName, kernelID, language string) KernelStarted {
	return KernelStarted{
		Type:       TypeKernelStarted,
		KernelName: kernelName,
		KernelID:   kernelID,
		Language:   language,
	}
}

func (m KernelStarted) MessageType() string { return m.Type }

// KernelConnected reports a successful attach to an existing kernel.
type KernelConnected struct {
	Type           string `json:"type"`
	ConnectionFile string `json:"connection_file"`
}

func NewKernelConnected(connectionFile string) KernelConnected {
	return KernelConnected{Type: TypeKernelConnected, ConnectionFile: connectionFile}
}

func (m KernelConnected) MessageType() string { return m.Type }

// ExecuteRequest acknowledges an accepted execute command. It always
// precedes any asynchronous output for the same cell, so the frontend can
// map future events to the right cell by msg_id.
type ExecuteRequest struct {
	Type    string `json:"type"`
	CellIdx int    `json:"cell_idx"`
	MsgID   string `json:"msg_id"`
}

func NewExecuteRequest(cellIdx int, msgID string) ExecuteRequest {
	return ExecuteRequest{Type: TypeExecuteRequest, CellIdx: cellIdx, MsgID: msgID}
}

func (m ExecuteRequest) MessageType() string { return m.Type }

// Status forwards a kernel execution-state transition. CellIdx is null for
// global status events with no matching in-flight execution.
type Status struct {
	Type    string `json:"type"`
	State   string `json:"state"`
	CellIdx *int   `json:"cell_idx"`
}

func NewStatus(state string, cellIdx *int) Status {
	return Status{Type: TypeStatus, State: state, CellIdx: cellIdx}
}

func (m Status) MessageType() string { return m.Type }

// OutputPayload is one of the four output kinds carried by an Output
// message: stream, execute_result, display_data, or error.
type OutputPayload interface {
	OutputType() string
}

// StreamOutput carries stdout/stderr text from the kernel.
type StreamOutput struct {
	Kind string `json:"output_type"`
	Name string `json:"name"`
	Text string `json:"text"`
}

func NewStreamOutput(name, text string) StreamOutput {
	return StreamOutput{Kind: "stream", Name: name, Text: text}
}

func (o StreamOutput) OutputType() string { return o.Kind }

// ExecuteResultOutput carries the MIME bundle of an execution result,
// forwarded unmodified.
type ExecuteResultOutput struct {
	Kind           string         `json:"output_type"`
	ExecutionCount *int           `json:"execution_count"`
	Data           map[string]any `json:"data"`
	Metadata       map[string]any `json:"metadata"`
}

func NewExecuteResultOutput(executionCount *int, data, metadata map[string]any) ExecuteResultOutput {
	if data == nil {
		data = map[string]any{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ExecuteResultOutput{
		Kind:           "execute_result",
		ExecutionCount: executionCount,
		Data:           data,
		Metadata:       metadata,
	}
}

func (o ExecuteResultOutput) OutputType() string { return o.Kind }

// DisplayDataOutput carries a display MIME bundle, forwarded unmodified.
type DisplayDataOutput struct {
	Kind     string         `json:"output_type"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

func NewDisplayDataOutput(data, metadata map[string]any) DisplayDataOutput {
	if data == nil {
		data = map[string]any{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return DisplayDataOutput{Kind: "display_data", Data: data, Metadata: metadata}
}

func (o DisplayDataOutput) OutputType() string { return o.Kind }

// ErrorOutput carries a kernel-side execution error.
type ErrorOutput struct {
	Kind      string   `json:"output_type"`
	EName     string   `json:"ename"`
	EValue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

func NewErrorOutput(ename, evalue string, traceback []string) ErrorOutput {
	if ename == "" {
		ename = "Error"
	}
	if traceback == nil {
		traceback = []string{}
	}
	return ErrorOutput{Kind: "error", EName: ename, EValue: evalue, Traceback: traceback}
}

func (o ErrorOutput) OutputType() string { return o.Kind }

// Output forwards one kernel output event to the frontend.
type Output struct {
	Type    string        `json:"type"`
	CellIdx *int          `json:"cell_idx"`
	Output  OutputPayload `json:"output"`
}

func NewOutput(cellIdx *int, payload OutputPayload) Output {
	return Output{Type: TypeOutput, CellIdx: cellIdx, Output: payload}
}

func (m Output) MessageType() string { return m.Type }

// ExecuteInput echoes that the kernel began executing a cell, with the
// execution count assigned to it.
type ExecuteInput struct {
	Type           string `json:"type"`
	CellIdx        *int   `json:"cell_idx"`
	ExecutionCount int    `json:"execution_count"`
}

func NewExecuteInput(cellIdx *int, executionCount int) ExecuteInput {
	return ExecuteInput{Type: TypeExecuteInput, CellIdx: cellIdx, ExecutionCount: executionCount}
}

func (m ExecuteInput) MessageType() string { return m.Type }

// Namespace carries the captured namespace representation for a cell.
type Namespace struct {
	Type          string `json:"type"`
	CellIdx       int    `json:"cell_idx"`
	NamespaceRepr string `json:"namespace_repr"`
}

func NewNamespace(cellIdx int, repr string) Namespace {
	return Namespace{Type: TypeNamespace, CellIdx: cellIdx, NamespaceRepr: repr}
}

func (m Namespace) MessageType() string { return m.Type }

// Interrupted confirms an interrupt was delivered.
type Interrupted struct {
	Type string `json:"type"`
}

func NewInterrupted() Interrupted { return Interrupted{Type: TypeInterrupted} }

func (m Interrupted) MessageType() string { return m.Type }

// Restarted confirms a kernel restart completed and bookkeeping was reset.
type Restarted struct {
	Type string `json:"type"`
}

func NewRestarted() Restarted { return Restarted{Type: TypeRestarted} }

func (m Restarted) MessageType() string { return m.Type }

// Shutdown confirms the session is stopped. Emitted on every shutdown
// command, including repeated ones.
type Shutdown struct {
	Type string `json:"type"`
}

func NewShutdown() Shutdown { return Shutdown{Type: TypeShutdown} }

func (m Shutdown) MessageType() string { return m.Type }

// KernelInfo carries the kernel's self-description, or a null info with
// connected:false when no kernel is attached.
type KernelInfo struct {
	Type      string         `json:"type"`
	Info      map[string]any `json:"info"`
	Connected *bool          `json:"connected,omitempty"`
}

func NewKernelInfo(info map[string]any) KernelInfo {
	return KernelInfo{Type: TypeKernelInfo, Info: info}
}

func NewKernelInfoDisconnected() KernelInfo {
	connected := false
	return KernelInfo{Type: TypeKernelInfo, Connected: &connected}
}

func (m KernelInfo) MessageType() string { return m.Type }

// IsAlive reports kernel process liveness.
type IsAlive struct {
	Type  string `json:"type"`
	Alive bool   `json:"alive"`
}

func NewIsAlive(alive bool) IsAlive { return IsAlive{Type: TypeIsAlive, Alive: alive} }

func (m IsAlive) MessageType() string { return m.Type }

// CompleteReply carries completion matches and the replacement span.
type CompleteReply struct {
	Type        string         `json:"type"`
	Matches     []string       `json:"matches"`
	CursorStart int            `json:"cursor_start"`
	CursorEnd   int            `json:"cursor_end"`
	Metadata    map[string]any `json:"metadata"`
}

func NewCompleteReply(matches []string, cursorStart, cursorEnd int, metadata map[string]any) CompleteReply {
	if matches == nil {
		matches = []string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return CompleteReply{
		Type:        TypeCompleteReply,
		Matches:     matches,
		CursorStart: cursorStart,
		CursorEnd:   cursorEnd,
		Metadata:    metadata,
	}
}

func (m CompleteReply) MessageType() string { return m.Type }

// InspectReply carries the normalized sections for an inspect request.
// Exactly one InspectReply is emitted per inspect command against a live
// kernel, found:false when no reply arrived in time.
type InspectReply struct {
	Type      string            `json:"type"`
	RequestID string            `json:"request_id"`
	Found     bool              `json:"found"`
	Sections  any               `json:"sections"`
	Data      map[string]string `json:"data"`
	Metadata  map[string]any    `json:"metadata"`
}

func NewInspectReply(requestID string, found bool, sections any, data map[string]string, metadata map[string]any) InspectReply {
	if data == nil {
		data = map[string]string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return InspectReply{
		Type:      TypeInspectReply,
		RequestID: requestID,
		Found:     found,
		Sections:  sections,
		Data:      data,
		Metadata:  metadata,
	}
}

func (m InspectReply) MessageType() string { return m.Type }

// Pong answers a ping command.
type Pong struct {
	Type string `json:"type"`
}

func NewPong() Pong { return Pong{Type: TypePong} }

func (m Pong) MessageType() string { return m.Type }

// Error reports a per-command or per-event failure. CellIdx is attached
// when the failure is attributable to a specific cell.
type Error struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	CellIdx *int   `json:"cell_idx,omitempty"`
}

func NewError(text string, cellIdx *int) Error {
	return Error{Type: TypeError, Error: text, CellIdx: cellIdx}
}

func (m Error) MessageType() string { return m.Type }
