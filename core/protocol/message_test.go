package protocol_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/bridge/core/protocol"
)

func marshal(t *testing.T, msg protocol.Message) string {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal(%T) error = %v", msg, err)
	}
	return string(data)
}

func TestMessages_CarryTypeField(t *testing.T) {
	idx := 2
	tests := []struct {
		msg  protocol.Message
		want string
	}{
		{msg: protocol.NewReady(), want: "ready"},
		{msg: protocol.NewKernelStarted("python3", "k1", "python"), want: "kernel_started"},
		{msg: protocol.NewKernelConnected("/tmp/conn.json"), want: "kernel_connected"},
		{msg: protocol.NewExecuteRequest(0, "m1"), want: "execute_request"},
		{msg: protocol.NewStatus("busy", &idx), want: "status"},
		{msg: protocol.NewExecuteInput(&idx, 3), want: "execute_input"},
		{msg: protocol.NewNamespace(1, "{}"), want: "namespace"},
		{msg: protocol.NewInterrupted(), want: "interrupted"},
		{msg: protocol.NewRestarted(), want: "restarted"},
		{msg: protocol.NewShutdown(), want: "shutdown"},
		{msg: protocol.NewIsAlive(true), want: "is_alive"},
		{msg: protocol.NewPong(), want: "pong"},
		{msg: protocol.NewError("boom", nil), want: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if tt.msg.MessageType() != tt.want {
				t.Errorf("MessageType() = %q, want %q", tt.msg.MessageType(), tt.want)
			}
			if !strings.Contains(marshal(t, tt.msg), `"type":"`+tt.want+`"`) {
				t.Errorf("marshalled message missing type %q: %s", tt.want, marshal(t, tt.msg))
			}
		})
	}
}

func TestStatus_NullCellIdx(t *testing.T) {
	out := marshal(t, protocol.NewStatus("idle", nil))
	if !strings.Contains(out, `"cell_idx":null`) {
		t.Errorf("status without cell should carry null cell_idx: %s", out)
	}
}

func TestOutput_StreamShape(t *testing.T) {
	idx := 0
	out := marshal(t, protocol.NewOutput(&idx, protocol.NewStreamOutput("stdout", "hi\n")))
	for _, want := range []string{`"output_type":"stream"`, `"name":"stdout"`, `"cell_idx":0`} {
		if !strings.Contains(out, want) {
			t.Errorf("stream output missing %s: %s", want, out)
		}
	}
}

func TestOutput_ErrorDefaults(t *testing.T) {
	payload := protocol.NewErrorOutput("", "boom", nil)
	if payload.EName != "Error" {
		t.Errorf("EName = %q, want Error", payload.EName)
	}
	out := marshal(t, protocol.NewOutput(nil, payload))
	if !strings.Contains(out, `"traceback":[]`) {
		t.Errorf("error output should carry empty traceback array: %s", out)
	}
}

func TestCompleteReply_EmptyDefaults(t *testing.T) {
	out := marshal(t, protocol.NewCompleteReply(nil, 0, 3, nil))
	if !strings.Contains(out, `"matches":[]`) || !strings.Contains(out, `"metadata":{}`) {
		t.Errorf("complete_reply should default to empty containers: %s", out)
	}
}

func TestInspectReply_NotFoundShape(t *testing.T) {
	out := marshal(t, protocol.NewInspectReply("r9", false, struct{}{}, nil, nil))
	for _, want := range []string{`"found":false`, `"request_id":"r9"`, `"data":{}`, `"metadata":{}`} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect_reply missing %s: %s", want, out)
		}
	}
}

func TestKernelInfo_Disconnected(t *testing.T) {
	out := marshal(t, protocol.NewKernelInfoDisconnected())
	if !strings.Contains(out, `"info":null`) || !strings.Contains(out, `"connected":false`) {
		t.Errorf("disconnected kernel_info shape wrong: %s", out)
	}
}
