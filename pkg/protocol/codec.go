package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/harun/lens/pkg/lenserr"
)

type envelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Encode frames msg as {"type": tag, "body": msg}.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("cannot encode nil message")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", msg.Tag(), err)
	}
	return json.Marshal(envelope{Type: msg.Tag(), Body: body})
}

// Decode reads the tag of data and decodes the body into the matching
// message. Tags this build does not know return ErrUnrecognizedMessageTag.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}

	var msg Message
	switch env.Type {
	case TagToolPacket:
		var m ToolPacket
		if err := unmarshalBody(env.Body, &m); err != nil {
			return nil, err
		}
		msg = m
	case TagAdminUpdate:
		var m AdminUpdate
		if err := unmarshalBody(env.Body, &m); err != nil {
			return nil, err
		}
		msg = m
	case TagToolDataRequest:
		msg = ToolDataRequest{}
	case TagPlayerManagerSync:
		var m PlayerManagerSync
		if err := unmarshalBody(env.Body, &m); err != nil {
			return nil, err
		}
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", lenserr.ErrUnrecognizedMessageTag, env.Type)
	}
	return msg, nil
}

func unmarshalBody(body json.RawMessage, v any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse message body: %w", err)
	}
	return nil
}
