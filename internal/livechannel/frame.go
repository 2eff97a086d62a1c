package livechannel

import (
	"encoding/json"

	sonic "github.com/bytedance/sonic"
)

// Connection level events dispatched to listeners.
const (
	EventConnect          = "connect"
	EventDisconnect       = "disconnect"
	EventConnectError     = "connect_error"
	EventReconnectAttempt = "reconnect_attempt"
	EventReconnectFailed  = "reconnect_failed"
)

// Match events exchanged with the push server.
const (
	EventMatchSubscribe   = "match:subscribe"
	EventMatchUnsubscribe = "match:unsubscribe"
	EventMatchUpdate      = "match:update"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame encodes data into a frame for event.
func NewFrame(event string, data any) (Frame, error) {
	if data == nil {
		return Frame{Event: event}, nil
	}
	raw, err := sonic.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// Encode marshals the frame for the wire.
func (f Frame) Encode() ([]byte, error) {
	return sonic.Marshal(f)
}

// DecodeFrame parses one inbound text message.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := sonic.Unmarshal(raw, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

type errorPayload struct {
	Message string `json:"message"`
}

type disconnectPayload struct {
	Reason string `json:"reason"`
}

type reconnectPayload struct {
	Attempt int `json:"attempt"`
}
