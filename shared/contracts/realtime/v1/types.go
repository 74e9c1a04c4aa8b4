// Package v1 defines the Beacon Realtime Protocol v1 contract.
//
// This package is intentionally stable and dependency-light.
// It is shared between server and clients to keep the wire protocol authoritative.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Type constants (wire-stable).
const (
	// TypeIdentify binds an authenticated user identity to the session (client -> server).
	TypeIdentify = "identify"
	// TypeIdentifyAck acknowledges the identity handoff (server -> client).
	TypeIdentifyAck = "identify_ack"

	// TypeMessageSend requests relaying a direct message to a user (client -> server).
	TypeMessageSend = "message_send"
	// TypeMessageAck reports the relay outcome to the sender (server -> client).
	TypeMessageAck = "message_ack"
	// TypeMessageReceive pushes a relayed message to the recipient (server -> client).
	TypeMessageReceive = "message_receive"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Relay outcomes carried in message_ack payloads.
const (
	OutcomeDelivered        = "delivered"
	OutcomeRecipientOffline = "recipient_offline"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeIdentify,
		TypeIdentifyAck,
		TypeMessageSend,
		TypeMessageAck,
		TypeMessageReceive,
		TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ---- Payloads ----

// IdentifyPayload carries the opaque credential issued by the auth collaborator.
type IdentifyPayload struct {
	Token string `json:"token"`
}

// IdentifyAckPayload confirms the session and the identity bound to it.
type IdentifyAckPayload struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
}

// MessageSendPayload requests relaying an opaque body to another user.
type MessageSendPayload struct {
	To          string          `json:"to"`
	ClientMsgID string          `json:"client_msg_id"`
	Body        json.RawMessage `json:"body"`
}

// MessageAckPayload reports whether the relay reached the recipient.
// Outcome is informational: recipient_offline is a normal result, not a failure.
type MessageAckPayload struct {
	To          string `json:"to"`
	ClientMsgID string `json:"client_msg_id"`
	Outcome     string `json:"outcome"`
}

// MessageReceivePayload is pushed to the recipient of a relayed message.
type MessageReceivePayload struct {
	From        string          `json:"from"`
	ClientMsgID string          `json:"client_msg_id"`
	Body        json.RawMessage `json:"body"`
	ServerTS    time.Time       `json:"server_ts"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
