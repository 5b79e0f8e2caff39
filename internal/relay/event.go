package relay

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies a relay wire event using a custom enum type for
// better type safety
type EventType string

const (
	// Client -> server
	EventJoinRoom    EventType = "join_room"
	EventSendMessage EventType = "send_message"

	// Server -> client
	EventReceiveMessage EventType = "receive_message"
	EventError          EventType = "error"

	// Bidirectional
	EventMessageRead EventType = "message_read"
)

func (et EventType) String() string {
	return string(et)
}

// IsValid checks if the EventType is a valid enum value
func (et EventType) IsValid() bool {
	switch et {
	case EventJoinRoom, EventSendMessage, EventReceiveMessage, EventMessageRead, EventError:
		return true
	default:
		return false
	}
}

// IsClientEvent reports whether clients are allowed to emit this event.
func (et EventType) IsClientEvent() bool {
	switch et {
	case EventJoinRoom, EventSendMessage, EventMessageRead:
		return true
	default:
		return false
	}
}

// Event is the wire envelope for all relay traffic in both directions.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Validate validates the envelope of an inbound client event.
func (e *Event) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid event type: %s", e.Type)
	}
	if !e.Type.IsClientEvent() {
		return fmt.Errorf("event type %s cannot be sent by clients", e.Type)
	}
	return nil
}

// Event payload structures

// JoinRoomData asks to join the conversation room with the given id.
type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

// SendMessageData is the client payload for a chat message.
type SendMessageData struct {
	Content    string  `json:"content"`
	RoomID     string  `json:"roomId"`
	ReceiverID string  `json:"receiverId,omitempty"`
	ListingID  *string `json:"listingId,omitempty"`
}

// ChatMessageData is the broadcast payload delivered to room members. The
// id, sender connection id and timestamp are stamped server-side.
type ChatMessageData struct {
	ID                 string    `json:"id"`
	Content            string    `json:"content"`
	RoomID             string    `json:"roomId"`
	SenderID           string    `json:"senderId"`
	ReceiverID         string    `json:"receiverId,omitempty"`
	ListingID          *string   `json:"listingId,omitempty"`
	SenderConnectionID string    `json:"senderConnectionId"`
	Timestamp          time.Time `json:"timestamp"`
}

// MessageReadData is a read receipt. ReaderID is filled in server-side when
// the receipt is fanned out.
type MessageReadData struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
	ReaderID  string `json:"readerId,omitempty"`
}

// ErrorData is sent only to the connection that caused the error.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event constructors

func NewEvent(eventType EventType, data any) *Event {
	return &Event{
		Type: eventType,
		Data: mustEncode(data),
	}
}

func NewChatMessageEvent(data ChatMessageData) *Event {
	return NewEvent(EventReceiveMessage, data)
}

func NewMessageReadEvent(data MessageReadData) *Event {
	return NewEvent(EventMessageRead, data)
}

func NewErrorEvent(code, message string) *Event {
	return NewEvent(EventError, ErrorData{Code: code, Message: message})
}

// mustEncode marshals a known payload struct. The payload types above
// contain only marshalable fields, so failure means a programming error.
func mustEncode(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("relay: unmarshalable event payload: %v", err))
	}
	return data
}
