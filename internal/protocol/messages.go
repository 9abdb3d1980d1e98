// Package protocol defines the WebSocket message types for the terminal
// endpoint. All messages are JSON-encoded and wrapped in an Envelope for
// uniform routing.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of message in the WebSocket protocol.
type MessageType string

const (
	// Client → Server
	MsgExec MessageType = "terminal.exec"

	// Server → Client
	MsgResult MessageType = "terminal.result"

	// Bidirectional
	MsgPing  MessageType = "terminal.ping"
	MsgPong  MessageType = "terminal.pong"
	MsgError MessageType = "error"
)

// Envelope is the top-level message wrapper for all WebSocket communication.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"` // Message ID for correlation.
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope creates an Envelope with a fresh ID and current timestamp.
func NewEnvelope(msgType MessageType, payload any) (*Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &Envelope{
		Type:      msgType,
		ID:        uuid.New().String(),
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the Payload into the given target.
func (e *Envelope) Decode(target any) error {
	return json.Unmarshal(e.Payload, target)
}

// --- Client → Server payloads ---

// ExecPayload is sent with MsgExec to run one command line.
type ExecPayload struct {
	Command string `json:"command"`
}

// --- Server → Client payloads ---

// ResultPayload is sent with MsgResult after each executed command.
// Action is "" for ordinary commands, "clear" when the client should clear
// its screen, and "end" when the session asked to terminate.
type ResultPayload struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Action     string `json:"action,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`
	Seq        int    `json:"sequence_number,omitempty"`
}

// ErrorPayload is sent with MsgError for protocol-level errors.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
