// Package message defines the inbound and outbound wire messages.
//
// Both directions are tagged unions keyed by the JSON "type" field.
// Unknown tags are rejected, never ignored.
package message

import "encoding/json"

// Inbound tags.
const (
	TypeCreateChatMessage = "create_chat_message"
	TypeCreateStroke      = "create_stroke"
)

// Outbound tags.
const (
	TypeChatMessageCreated = "chat_message_created"
	TypeStrokeCreated      = "stroke_created"
)

// ClientMessage is a command sent by a client. Implemented by
// CreateChatMessage and CreateStroke only.
type ClientMessage interface {
	Type() string
	clientMessage()
}

type CreateChatMessage struct {
	Message string
}

type CreateStroke struct {
	// Stroke is passed through verbatim.
	Stroke json.RawMessage
}

func (CreateChatMessage) Type() string { return TypeCreateChatMessage }
func (CreateStroke) Type() string      { return TypeCreateStroke }

func (CreateChatMessage) clientMessage() {}
func (CreateStroke) clientMessage()      {}

// ServerMessage is an event fanned out to connected clients. Implemented by
// ChatMessageCreated and StrokeCreated only.
type ServerMessage interface {
	Type() string
	// Origin is the publishing session id, or "" when the event carries none.
	Origin() string
	serverMessage()
}

type ChatMessageCreated struct {
	Message   string
	SessionID string
}

type StrokeCreated struct {
	Stroke json.RawMessage
}

func (ChatMessageCreated) Type() string     { return TypeChatMessageCreated }
func (StrokeCreated) Type() string          { return TypeStrokeCreated }
func (m ChatMessageCreated) Origin() string { return m.SessionID }
func (StrokeCreated) Origin() string        { return "" }
func (ChatMessageCreated) serverMessage()   {}
func (StrokeCreated) serverMessage()        {}
