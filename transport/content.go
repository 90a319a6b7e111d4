package transport

import "encoding/json"

// Typed content payloads for the kernel message kinds the bridge reads and
// writes. Fields the kernel may omit are pointers so absence survives the
// round trip.

// MIMEBundle maps MIME labels to their textual representations. Kernels
// sometimes attach structured values under labels like application/json;
// those entries are skipped rather than failing the whole decode.
type MIMEBundle map[string]string

func (b *MIMEBundle) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(map[string]string, len(raw))
	for label, value := range raw {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			continue
		}
		out[label] = text
	}
	*b = out
	return nil
}

// ExecuteRequestContent submits code for execution. UserExpressions maps
// capture names to expressions the kernel evaluates after the cell runs.
type ExecuteRequestContent struct {
	Code            string            `json:"code"`
	UserExpressions map[string]string `json:"user_expressions,omitempty"`
}

// ExpressionResult is one evaluated user expression inside an execute reply.
type ExpressionResult struct {
	Status string     `json:"status"`
	Data   MIMEBundle `json:"data,omitempty"`
	EName  string     `json:"ename,omitempty"`
	EValue string     `json:"evalue,omitempty"`
}

// ExecuteReplyContent is the shell-channel reply to an execute request.
type ExecuteReplyContent struct {
	Status          string                      `json:"status"`
	ExecutionCount  *int                        `json:"execution_count,omitempty"`
	UserExpressions map[string]ExpressionResult `json:"user_expressions,omitempty"`
}

// CompleteRequestContent asks for completion matches at a cursor position.
type CompleteRequestContent struct {
	Code      string `json:"code"`
	CursorPos int    `json:"cursor_pos"`
}

// CompleteReplyContent carries completion matches and the replacement span.
type CompleteReplyContent struct {
	Status      string         `json:"status"`
	Matches     []string       `json:"matches"`
	CursorStart int            `json:"cursor_start"`
	CursorEnd   int            `json:"cursor_end"`
	Metadata    map[string]any `json:"metadata"`
}

// InspectRequestContent asks for symbol inspection at a cursor position.
type InspectRequestContent struct {
	Code        string `json:"code"`
	CursorPos   int    `json:"cursor_pos"`
	DetailLevel int    `json:"detail_level"`
}

// InspectReplyContent carries the inspect MIME bundle.
type InspectReplyContent struct {
	Status   string         `json:"status"`
	Found    bool           `json:"found"`
	Data     MIMEBundle     `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// KernelInfoRequestContent probes the kernel for its self-description.
type KernelInfoRequestContent struct{}

// LanguageInfo is the language section of a kernel info reply.
type LanguageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// KernelInfoReplyContent is the subset of the kernel self-description the
// bridge interprets; the full content is forwarded raw to the frontend.
type KernelInfoReplyContent struct {
	Status       string       `json:"status,omitempty"`
	LanguageInfo LanguageInfo `json:"language_info"`
	Banner       string       `json:"banner,omitempty"`
}

// StatusContent reports an execution-state transition on iopub.
type StatusContent struct {
	ExecutionState string `json:"execution_state"`
}

// StreamContent carries stdout/stderr text on iopub.
type StreamContent struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ExecuteResultContent carries the MIME bundle of an execution result.
type ExecuteResultContent struct {
	ExecutionCount *int           `json:"execution_count,omitempty"`
	Data           map[string]any `json:"data"`
	Metadata       map[string]any `json:"metadata"`
}

// DisplayDataContent carries a display MIME bundle.
type DisplayDataContent struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// ErrorContent reports a kernel-side execution error.
type ErrorContent struct {
	EName     string   `json:"ename"`
	EValue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

// ExecuteInputContent echoes code the kernel began executing.
type ExecuteInputContent struct {
	Code           string `json:"code,omitempty"`
	ExecutionCount *int   `json:"execution_count,omitempty"`
}
