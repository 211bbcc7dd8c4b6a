// Package proto defines the JSON envelopes exchanged over the WebSocket.
package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeAuthenticate   = "authenticate"
	InboundTypeSendMessage    = "send_message"
	InboundTypeSetDisplayName = "set_display_name"
	InboundTypeTypingStarted  = "typing_started"
	InboundTypeTypingStopped  = "typing_stopped"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameAuthSucceeded      = "auth_succeeded"
	EventNameMessageAdded       = "message_added"
	EventNameDisplayNameChanged = "display_name_changed"
	EventNameTypingStarted      = "typing_started"
	EventNameTypingStopped      = "typing_stopped"
	EventNameHistorySnapshot    = "history_snapshot"
)

// AuthenticateData carries a session token obtained from /login.
type AuthenticateData struct {
	Token string `json:"token"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	Text string `json:"text"`
}

// SetDisplayNameData requests a new display name.
type SetDisplayNameData struct {
	Name string `json:"name"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Identity is the public view of a participant. Contacts are never sent.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a logged chat message.
type Message struct {
	ID     string   `json:"id"`
	Text   string   `json:"text"`
	Author Identity `json:"author"`
	TS     int64    `json:"ts"`
}

// EventIdentity is the payload of auth, typing, and rename events.
type EventIdentity struct {
	Identity Identity `json:"identity"`
}

// EventMessageAdded carries a newly appended message.
type EventMessageAdded struct {
	Message Message `json:"message"`
}

// EventDisplayNameChanged announces a participant's new name.
type EventDisplayNameChanged struct {
	Name     string   `json:"name"`
	Identity Identity `json:"identity"`
}

// EventHistorySnapshot is sent once to each new connection.
type EventHistorySnapshot struct {
	Identity Identity  `json:"identity"`
	Messages []Message `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
