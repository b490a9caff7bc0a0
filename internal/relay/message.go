package relay

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/isqad/opentok-go/opentok"
)

// Message is a signal request published by a backend; an empty ConnectionID addresses the whole session
type Message struct {
	SessionID    string `json:"session_id"`
	ConnectionID string `json:"connection_id,omitempty"`
	Type         string `json:"type,omitempty"`
	Data         string `json:"data"`
}

func (m *Message) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.SessionID, validation.Required),
	)
}

func (m *Message) Payload() opentok.SignalPayload {
	return opentok.SignalPayload{Type: m.Type, Data: m.Data}
}

func ParseMessage(raw []byte) (*Message, error) {
	msg := &Message{}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("malformed relay message %q: %w", raw, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
