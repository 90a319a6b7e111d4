package bridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/tailored-agentic-units/bridge/core/protocol"
	"github.com/tailored-agentic-units/bridge/inspect"
	"github.com/tailored-agentic-units/bridge/transport"
)

// replyOnShell answers the next shell request with one reply of the given
// type, optionally preceded by decoys the correlator must discard.
func replyOnShell(t *testing.T, peer transport.PeerConn, msgType string, content any, decoys ...transport.Message) {
	t.Helper()
	go func() {
		req, err := peer.ShellRecv(context.Background(), 2*time.Second)
		if err != nil {
			return
		}
		for _, decoy := range decoys {
			_ = peer.ShellSend(context.Background(), decoy)
		}
		reply, err := transport.NewReply(req, msgType, content)
		if err != nil {
			return
		}
		_ = peer.ShellSend(context.Background(), reply)
	}()
}

func TestBridge_CompleteReply(t *testing.T) {
	b, emitter, _, peer := startSession(t)

	replyOnShell(t, peer, transport.MsgCompleteReply, transport.CompleteReplyContent{
		Status:      "ok",
		Matches:     []string{"print", "property"},
		CursorStart: 0,
		CursorEnd:   2,
	})

	b.HandleCommand(context.Background(), protocol.CompleteCommand{Code: "pr", CursorPos: 2})

	reply := emitter.waitFor(t, protocol.TypeCompleteReply).(protocol.CompleteReply)
	if len(reply.Matches) != 2 || reply.Matches[0] != "print" {
		t.Errorf("Matches = %v, want [print property]", reply.Matches)
	}
	if reply.CursorStart != 0 || reply.CursorEnd != 2 {
		t.Errorf("cursor span = [%d, %d], want [0, 2]", reply.CursorStart, reply.CursorEnd)
	}
}

func TestBridge_CompleteTimeoutIsSilent(t *testing.T) {
	b, emitter, _, _ := startSession(t)

	before := len(emitter.messages())
	b.HandleCommand(context.Background(), protocol.CompleteCommand{Code: "pr", CursorPos: 2})

	// The kernel never answered; no reply and no error reach the editor.
	if emitter.count(protocol.TypeCompleteReply) != 0 {
		t.Error("complete_reply emitted for a silent kernel")
	}
	if got := emitter.messages()[before:]; len(got) != 0 {
		t.Errorf("messages after timeout = %v, want none", got)
	}
}

func TestBridge_CompleteDefaultsCursorSpan(t *testing.T) {
	b, emitter, _, peer := startSession(t)

	// A minimal reply without cursor fields keeps the request position.
	replyOnShell(t, peer, transport.MsgCompleteReply, map[string]any{
		"status":  "ok",
		"matches": []string{"print"},
	})

	b.HandleCommand(context.Background(), protocol.CompleteCommand{Code: "pr", CursorPos: 2})

	reply := emitter.waitFor(t, protocol.TypeCompleteReply).(protocol.CompleteReply)
	if reply.CursorStart != 2 || reply.CursorEnd != 2 {
		t.Errorf("cursor span = [%d, %d], want [2, 2]", reply.CursorStart, reply.CursorEnd)
	}
}

func TestBridge_InspectReply(t *testing.T) {
	b, emitter, _, peer := startSession(t)

	transcript := "\x1b[31mType:\x1b[39m builtin_function_or_method\n" +
		"\x1b[31mDocstring:\x1b[39m Return the number of items in a container."
	replyOnShell(t, peer, transport.MsgInspectReply, transport.InspectReplyContent{
		Status: "ok",
		Found:  true,
		Data:   map[string]string{"text/plain": transcript},
	})

	b.HandleCommand(context.Background(), protocol.InspectCommand{Code: "len", CursorPos: 3, RequestID: "req-7"})

	reply := emitter.waitFor(t, protocol.TypeInspectReply).(protocol.InspectReply)
	if reply.RequestID != "req-7" || !reply.Found {
		t.Fatalf("reply = %+v, want found req-7", reply)
	}
	sections, ok := reply.Sections.(inspect.Sections)
	if !ok {
		t.Fatalf("Sections = %T, want inspect.Sections", reply.Sections)
	}
	if sections.TypeName != "builtin_function_or_method" {
		t.Errorf("TypeName = %q", sections.TypeName)
	}
	if sections.Docstring == "" {
		t.Error("Docstring empty, want parsed section")
	}
	if emitter.count(protocol.TypeInspectReply) != 1 {
		t.Errorf("inspect_reply count = %d, want exactly one", emitter.count(protocol.TypeInspectReply))
	}
}

func TestBridge_InspectTimeoutReportsNotFound(t *testing.T) {
	b, emitter, _, _ := startSession(t)

	b.HandleCommand(context.Background(), protocol.InspectCommand{Code: "len", CursorPos: 3, RequestID: "req-9"})

	reply := emitter.waitFor(t, protocol.TypeInspectReply).(protocol.InspectReply)
	if reply.Found {
		t.Error("Found = true for a silent kernel")
	}
	if reply.RequestID != "req-9" {
		t.Errorf("RequestID = %q, want req-9", reply.RequestID)
	}
	if reply.Data == nil || reply.Metadata == nil {
		t.Error("Data/Metadata nil, want empty containers")
	}
	if emitter.count(protocol.TypeInspectReply) != 1 {
		t.Errorf("inspect_reply count = %d, want exactly one", emitter.count(protocol.TypeInspectReply))
	}
}

func TestBridge_InspectNotFoundFromKernel(t *testing.T) {
	b, emitter, _, peer := startSession(t)

	replyOnShell(t, peer, transport.MsgInspectReply, transport.InspectReplyContent{
		Status: "ok",
		Found:  false,
	})

	b.HandleCommand(context.Background(), protocol.InspectCommand{Code: "nope", CursorPos: 4, RequestID: "req-2"})

	reply := emitter.waitFor(t, protocol.TypeInspectReply).(protocol.InspectReply)
	if reply.Found {
		t.Error("Found = true, want false")
	}
	sections, ok := reply.Sections.(inspect.Sections)
	if !ok || !sections.IsEmpty() {
		t.Errorf("Sections = %+v, want empty record", reply.Sections)
	}
}

func TestBridge_InspectSkipsStructuredMIMEEntries(t *testing.T) {
	b, emitter, _, peer := startSession(t)

	// Some kernels attach structured values under application/json; those
	// are dropped without losing the textual entries or the reply itself.
	replyOnShell(t, peer, transport.MsgInspectReply, map[string]any{
		"status": "ok",
		"found":  true,
		"data": map[string]any{
			"text/plain":       "int",
			"application/json": map[string]any{"kind": "builtin"},
		},
	})

	b.HandleCommand(context.Background(), protocol.InspectCommand{Code: "int", CursorPos: 3, RequestID: "req-11"})

	reply := emitter.waitFor(t, protocol.TypeInspectReply).(protocol.InspectReply)
	if !reply.Found {
		t.Fatal("Found = false, want true")
	}
	if reply.Data["text/plain"] != "int" {
		t.Errorf("Data = %v, want text/plain preserved", reply.Data)
	}
	if _, ok := reply.Data["application/json"]; ok {
		t.Error("structured application/json entry kept, want skipped")
	}
	sections, ok := reply.Sections.(inspect.Sections)
	if !ok || sections.IsEmpty() {
		t.Errorf("Sections = %+v, want text/plain parsed", reply.Sections)
	}
}

func TestBridge_InspectNotFoundKeepsPartialHints(t *testing.T) {
	b, emitter, _, peer := startSession(t)

	replyOnShell(t, peer, transport.MsgInspectReply, transport.InspectReplyContent{
		Status: "ok",
		Found:  false,
		Data:   map[string]string{"text/plain": "no such symbol, similar: len"},
	})

	b.HandleCommand(context.Background(), protocol.InspectCommand{Code: "lenn", CursorPos: 4, RequestID: "req-3"})

	reply := emitter.waitFor(t, protocol.TypeInspectReply).(protocol.InspectReply)
	if reply.Found {
		t.Error("Found = true, want false")
	}
	sections, ok := reply.Sections.(inspect.Sections)
	if !ok || sections.IsEmpty() {
		t.Fatalf("Sections = %+v, want the kernel's hint parsed", reply.Sections)
	}
	if sections.StringForm != "no such symbol, similar: len" {
		t.Errorf("StringForm = %q", sections.StringForm)
	}
}

func TestBridge_CorrelatorDiscardsUnrelatedReplies(t *testing.T) {
	b, emitter, _, peer := startSession(t)

	stale, err := transport.NewRequest(transport.MsgCompleteReply, transport.CompleteReplyContent{
		Status:  "ok",
		Matches: []string{"stale"},
	})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	stale.ParentID = "someone-else"

	replyOnShell(t, peer, transport.MsgCompleteReply, transport.CompleteReplyContent{
		Status:  "ok",
		Matches: []string{"fresh"},
	}, stale)

	b.HandleCommand(context.Background(), protocol.CompleteCommand{Code: "fr", CursorPos: 2})

	reply := emitter.waitFor(t, protocol.TypeCompleteReply).(protocol.CompleteReply)
	if len(reply.Matches) != 1 || reply.Matches[0] != "fresh" {
		t.Errorf("Matches = %v, want the correlated reply only", reply.Matches)
	}
}

func TestBridge_NamespaceCapture(t *testing.T) {
	b, emitter, _, peer := startSession(t)

	replyOnShell(t, peer, transport.MsgExecuteReply, transport.ExecuteReplyContent{
		Status: "ok",
		UserExpressions: map[string]transport.ExpressionResult{
			"__ns__": {
				Status: "ok",
				Data:   map[string]string{"text/plain": "{'x': 1}"},
			},
		},
	})

	b.HandleCommand(context.Background(), protocol.ExecuteCommand{
		Code:            "x = 1",
		CellIdx:         4,
		UserExpressions: map[string]string{"__ns__": "dict(globals())"},
	})

	ns := emitter.waitFor(t, protocol.TypeNamespace).(protocol.Namespace)
	if ns.CellIdx != 4 {
		t.Errorf("Namespace.CellIdx = %d, want 4", ns.CellIdx)
	}
	if ns.NamespaceRepr != "{'x': 1}" {
		t.Errorf("NamespaceRepr = %q", ns.NamespaceRepr)
	}
}

func TestBridge_NamespaceCaptureFailureStaysQuiet(t *testing.T) {
	b, emitter, _, peer := startSession(t)

	replyOnShell(t, peer, transport.MsgExecuteReply, transport.ExecuteReplyContent{
		Status: "ok",
		UserExpressions: map[string]transport.ExpressionResult{
			"__ns__": {Status: "error", EName: "TypeError"},
		},
	})

	b.HandleCommand(context.Background(), protocol.ExecuteCommand{
		Code:            "x = 1",
		CellIdx:         4,
		UserExpressions: map[string]string{"__ns__": "dict(globals())"},
	})

	// A failed capture never turns into an execution failure.
	time.Sleep(50 * time.Millisecond)
	if emitter.count(protocol.TypeNamespace) != 0 {
		t.Error("namespace emitted for a failed capture")
	}
	if emitter.count(protocol.TypeError) != 0 {
		t.Errorf("error emitted for a failed capture: %v", emitter.types())
	}
}
