// Package ws implements the WebSocket terminal gateway. Each connection
// drives one interpreter session over the JSON envelope protocol: the client
// sends terminal.exec messages and receives terminal.result messages back.
// The server can be mounted on the HTTP API gateway or run standalone.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/jkaninda/ganda/internal/config"
	"github.com/jkaninda/ganda/internal/observability"
	"github.com/jkaninda/ganda/internal/protocol"
	"github.com/jkaninda/ganda/internal/sessions"
	"github.com/jkaninda/ganda/internal/shell"
)

// subprotocol identifies the terminal wire protocol version.
const subprotocol = "ganda-terminal-v1"

// heartbeatInterval is how often the server pings idle connections.
const heartbeatInterval = 30 * time.Second

// Server is the WebSocket terminal server.
type Server struct {
	manager *sessions.Manager
	cfg     *config.WebSocketGatewayConfig
	metrics *observability.MetricsCollector // optional
	logger  *slog.Logger

	// Set only in standalone mode.
	httpServer *http.Server
}

// NewServer creates a WebSocket terminal server. metrics may be nil.
func NewServer(manager *sessions.Manager, cfg *config.WebSocketGatewayConfig, metrics *observability.MetricsCollector, logger *slog.Logger) *Server {
	return &Server{
		manager: manager,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Handler returns an http.Handler that upgrades connections to WebSocket.
// Use this to mount the terminal endpoint on an existing HTTP server.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

// Start runs the server standalone on its own listener. Most deployments
// mount Handler() on the HTTP API gateway instead.
func (s *Server) Start(_ context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.WSPath(), s.Handler())

	s.httpServer = &http.Server{
		Addr:              s.cfg.WSAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("websocket gateway starting",
		slog.String("addr", s.cfg.WSAddr()),
		slog.String("path", s.cfg.WSPath()),
	)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the standalone server, if one was started.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("websocket gateway stopping")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	// Authenticate via shared token when one is configured.
	if s.cfg != nil && s.cfg.Token != "" {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = r.Header.Get("Authorization")
			if len(token) > 7 && token[:7] == "Bearer " {
				token = token[7:]
			}
		}
		if token != s.cfg.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	// The client picks its session; without one each connection gets a
	// fresh session of its own.
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{subprotocol},
	})
	if err != nil {
		s.logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	s.handleConnection(r.Context(), conn, sessionID)
}

func (s *Server) handleConnection(ctx context.Context, conn *websocket.Conn, sessionID string) {
	if s.metrics != nil {
		s.metrics.WSConnectionsActive.Inc()
		defer s.metrics.WSConnectionsActive.Dec()
	}
	defer conn.Close(websocket.StatusNormalClosure, "connection closed")

	s.logger.Info("terminal connected", slog.String("session_id", sessionID))

	// Heartbeat pinger.
	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go s.heartbeatLoop(hbCtx, conn, sessionID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				s.logger.Info("terminal disconnected", slog.String("session_id", sessionID))
			} else {
				s.logger.Warn("terminal connection error",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Warn("invalid message from client",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			s.writeError(ctx, conn, sessionID, "bad_message", "message is not a valid envelope")
			continue
		}

		if s.metrics != nil {
			s.metrics.WSMessagesTotal.WithLabelValues(string(env.Type)).Inc()
		}

		if done := s.handleMessage(ctx, conn, sessionID, &env); done {
			return
		}
	}
}

// handleMessage processes one envelope. Returns true when the connection
// should be closed.
func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, sessionID string, env *protocol.Envelope) bool {
	switch env.Type {
	case protocol.MsgExec:
		var exec protocol.ExecPayload
		if err := env.Decode(&exec); err != nil {
			s.writeError(ctx, conn, sessionID, "bad_payload", "exec payload is invalid")
			return false
		}
		return s.execute(ctx, conn, sessionID, exec.Command)

	case protocol.MsgPing:
		resp, _ := protocol.NewEnvelope(protocol.MsgPong, nil)
		resp.SessionID = sessionID
		s.writeEnvelope(ctx, conn, resp)
		return false

	case protocol.MsgPong:
		return false

	default:
		s.logger.Warn("unknown message type from client",
			slog.String("session_id", sessionID),
			slog.String("type", string(env.Type)),
		)
		s.writeError(ctx, conn, sessionID, "unknown_type", "unsupported message type")
		return false
	}
}

// execute runs one command line and writes the result envelope. Returns true
// when the command ended the session and the connection should close.
func (s *Server) execute(ctx context.Context, conn *websocket.Conn, sessionID, command string) bool {
	outcome, err := s.manager.Execute(ctx, sessionID, command)
	if err != nil {
		if errors.Is(err, sessions.ErrTooManySessions) {
			s.writeError(ctx, conn, sessionID, "too_many_sessions", "session limit reached")
			conn.Close(websocket.StatusTryAgainLater, "session limit reached")
			return true
		}
		s.logger.Error("exec failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		s.writeError(ctx, conn, sessionID, "exec_failed", "execution failed")
		return false
	}

	resp, err := protocol.NewEnvelope(protocol.MsgResult, protocol.ResultPayload{
		Success:    outcome.Result.Success,
		Output:     outcome.Result.Output,
		Action:     outcome.Result.Action.String(),
		WorkingDir: outcome.WorkingDir,
		Seq:        outcome.Seq,
	})
	if err != nil {
		return false
	}
	resp.SessionID = sessionID
	if writeErr := s.writeEnvelope(ctx, conn, resp); writeErr != nil {
		return true
	}

	if outcome.Result.Action == shell.ActionEnd {
		conn.Close(websocket.StatusNormalClosure, "session ended")
		return true
	}
	return false
}

func (s *Server) heartbeatLoop(ctx context.Context, conn *websocket.Conn, sessionID string) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			env, _ := protocol.NewEnvelope(protocol.MsgPing, nil)
			env.SessionID = sessionID
			if err := s.writeEnvelope(ctx, conn, env); err != nil {
				s.logger.Debug("heartbeat ping failed",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}
}

func (s *Server) writeError(ctx context.Context, conn *websocket.Conn, sessionID, code, message string) {
	env, err := protocol.NewEnvelope(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	env.SessionID = sessionID
	s.writeEnvelope(ctx, conn, env)
}

func (s *Server) writeEnvelope(ctx context.Context, conn *websocket.Conn, env *protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
