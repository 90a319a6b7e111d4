package frontend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/bridge/core/protocol"
)

// SessionFactory builds a fresh session engine bound to the given emitter.
// Each WebSocket connection gets its own independent session.
type SessionFactory func(emitter Emitter) Handler

// WSServer serves the control protocol over WebSocket: the same one JSON
// object per message in each direction, text frames only.
type WSServer struct {
	factory  SessionFactory
	upgrader websocket.Upgrader
}

// NewWSServer creates a WSServer that builds one session per connection.
func NewWSServer(factory SessionFactory) *WSServer {
	return &WSServer{
		factory: factory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxLineSize,
			WriteBufferSize: maxLineSize,
		},
	}
}

// wsEmitter writes protocol messages as text frames. Gorilla connections
// support one concurrent writer, so writes are serialized here.
type wsEmitter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (e *wsEmitter) Emit(msg protocol.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.MessageType(), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	emitter := &wsEmitter{conn: conn}
	handler := s.factory(emitter)

	if err := emitter.Emit(protocol.NewReady()); err != nil {
		return
	}

	ctx := r.Context()
	sawShutdown := false
	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if kind != websocket.TextMessage {
			continue
		}
		if len(strings.TrimSpace(string(payload))) == 0 {
			continue
		}

		cmd, err := protocol.DecodeCommand(payload)
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

	// A dropped editor must not leak a kernel.
	if !sawShutdown {
		handler.HandleCommand(context.WithoutCancel(ctx), protocol.ShutdownCommand{})
	}
}

// ListenAndServe serves WebSocket sessions on addr until ctx ends.
func ListenAndServe(ctx context.Context, addr string, factory SessionFactory) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           NewWSServer(factory),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
