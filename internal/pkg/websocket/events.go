package websocket

import "encoding/json"

// Event types exchanged over the socket
const (
	EventJoinRoom       = "join_room"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventJoined         = "joined"
	EventError          = "error"
)

// Envelope is the frame format in both directions
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload subscribes the connection to a user's channel
type JoinRoomPayload struct {
	UserID int64 `json:"userId"`
}

// SendMessagePayload is a chat message from the client. SenderID, when
// present, must match the authenticated user.
type SendMessagePayload struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID int64  `json:"receiverId"`
	Content    string `json:"content"`
}

// ErrorPayload reports a failed client event
type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Event is a delivery addressed to one user's channel. It is what travels
// over the Bus between instances.
type Event struct {
	Type       string          `json:"type"`
	ReceiverID int64           `json:"receiverId"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent builds an Event with payload marshalled to JSON
func NewEvent(eventType string, receiverID int64, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, ReceiverID: receiverID, Payload: raw}, nil
}

func encodeFrame(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}
