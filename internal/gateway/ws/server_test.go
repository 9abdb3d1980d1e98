package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/jkaninda/ganda/internal/config"
	"github.com/jkaninda/ganda/internal/protocol"
	"github.com/jkaninda/ganda/internal/sessions"
	"github.com/jkaninda/ganda/internal/shell"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg *config.WebSocketGatewayConfig) (*Server, *httptest.Server) {
	t.Helper()
	root := t.TempDir()
	dispatcher := shell.NewDispatcher(shell.DefaultRegistry(nil, shell.Options{}), testLogger())
	newHome := func(id string) (string, error) {
		return filepath.Join(root, id), nil
	}
	manager := sessions.NewManager(dispatcher, newHome, sessions.Config{}, testLogger())

	s := NewServer(manager, cfg, nil, testLogger())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func wsURL(srv *httptest.Server, query string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	if query != "" {
		u += "?" + query
	}
	return u
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	t.Helper()
	env, err := protocol.NewEnvelope(msgType, payload)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	data, _ := json.Marshal(env)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

func TestExecRoundTrip(t *testing.T) {
	_, srv := newTestServer(t, nil)
	conn := dial(t, wsURL(srv, "session=s1"))

	send(t, conn, protocol.MsgExec, protocol.ExecPayload{Command: "pwd"})
	env := receive(t, conn)

	if env.Type != protocol.MsgResult {
		t.Fatalf("type = %s, want %s", env.Type, protocol.MsgResult)
	}
	if env.SessionID != "s1" {
		t.Errorf("session_id = %q, want s1", env.SessionID)
	}

	var res protocol.ResultPayload
	if err := env.Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success {
		t.Errorf("pwd failed: %s", res.Output)
	}
	if res.Output != res.WorkingDir {
		t.Errorf("pwd output %q != working dir %q", res.Output, res.WorkingDir)
	}
	if res.Seq != 1 {
		t.Errorf("seq = %d, want 1", res.Seq)
	}
}

func TestExitClosesConnection(t *testing.T) {
	_, srv := newTestServer(t, nil)
	conn := dial(t, wsURL(srv, "session=s1"))

	send(t, conn, protocol.MsgExec, protocol.ExecPayload{Command: "exit"})
	env := receive(t, conn)

	var res protocol.ResultPayload
	if err := env.Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Action != "end" {
		t.Errorf("action = %q, want end", res.Action)
	}

	// The server closes after delivering the result.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err == nil {
		t.Error("expected connection to be closed after exit")
	}
}

func TestPingPong(t *testing.T) {
	_, srv := newTestServer(t, nil)
	conn := dial(t, wsURL(srv, ""))

	send(t, conn, protocol.MsgPing, nil)
	env := receive(t, conn)

	if env.Type != protocol.MsgPong {
		t.Errorf("type = %s, want %s", env.Type, protocol.MsgPong)
	}
}

func TestMalformedMessage(t *testing.T) {
	_, srv := newTestServer(t, nil)
	conn := dial(t, wsURL(srv, ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := receive(t, conn)
	if env.Type != protocol.MsgError {
		t.Fatalf("type = %s, want %s", env.Type, protocol.MsgError)
	}
	var p protocol.ErrorPayload
	if err := env.Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Code != "bad_message" {
		t.Errorf("code = %q, want bad_message", p.Code)
	}
}

func TestTokenRequired(t *testing.T) {
	_, srv := newTestServer(t, &config.WebSocketGatewayConfig{Token: "secret"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := websocket.Dial(ctx, wsURL(srv, ""), &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
	})
	if err == nil {
		t.Fatal("expected handshake to fail without token")
	}

	conn := dial(t, wsURL(srv, "token=secret"))
	send(t, conn, protocol.MsgPing, nil)
	if env := receive(t, conn); env.Type != protocol.MsgPong {
		t.Errorf("type = %s, want %s", env.Type, protocol.MsgPong)
	}
}

func TestUnknownMessageType(t *testing.T) {
	_, srv := newTestServer(t, nil)
	conn := dial(t, wsURL(srv, ""))

	send(t, conn, protocol.MessageType("terminal.bogus"), nil)
	env := receive(t, conn)

	if env.Type != protocol.MsgError {
		t.Fatalf("type = %s, want %s", env.Type, protocol.MsgError)
	}
	var p protocol.ErrorPayload
	if err := env.Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Code != "unknown_type" {
		t.Errorf("code = %q, want unknown_type", p.Code)
	}
}
