package models

import (
	"encoding/json"
	"fmt"
)

// DecodePayload parses an inbound payload envelope. Messages that lack
// the envelope fields but carry a config document are wrapped as config
// payloads, matching what older senders emit.
func DecodePayload(data []byte) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, fmt.Errorf("malformed payload envelope: %w", err)
	}
	if payload.Type != "" {
		return payload, nil
	}

	var doc ConfigDocument
	if err := json.Unmarshal(data, &doc); err != nil || len(doc) == 0 {
		return Payload{}, fmt.Errorf("payload has no type and is not a config document")
	}
	return Payload{Type: "config", ScreenID: doc.ScreenID(), Body: data}, nil
}
