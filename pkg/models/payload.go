package models

import (
	"encoding/json"
	"time"
)

// ConfigDocument is a parsed config payload. It is keyed by layout-type
// name (e.g. "lvgl_plotter") plus a top-level "layout" sensor array and
// routing fields. Raw sections are decoded by the owning layout.
type ConfigDocument map[string]json.RawMessage

// ScreenID returns the routing target of the document, or "" if absent.
func (d ConfigDocument) ScreenID() string {
	raw, ok := d["screenId"]
	if !ok {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return ""
	}
	return id
}

// Section returns the raw JSON for a layout-type key, or nil if absent.
func (d ConfigDocument) Section(key string) json.RawMessage {
	return d[key]
}

// SensorDescriptors decodes the top-level "layout" array. A missing or
// malformed array yields an empty slice, never an error.
func (d ConfigDocument) SensorDescriptors() []SensorDescriptor {
	raw, ok := d["layout"]
	if !ok {
		return nil
	}
	var descs []SensorDescriptor
	if err := json.Unmarshal(raw, &descs); err != nil {
		return nil
	}
	return descs
}

// SensorDescriptor describes one sensor slot a layout should display.
type SensorDescriptor struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Unit  string `json:"unit"`
}

// DisplayLabel returns the label, falling back to the sensor ID.
func (s SensorDescriptor) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}

// SensorReading is a single reported value for a sensor tag.
type SensorReading struct {
	Value float64 `json:"value"`
	Text  string  `json:"text,omitempty"`
	Unit  string  `json:"unit,omitempty"`
}

// SensorPayload carries value updates keyed by sensor tag.
type SensorPayload struct {
	ScreenID string                   `json:"screenId"`
	Sensors  map[string]SensorReading `json:"sensors"`
}

// Payload is the envelope for inbound documents on any transport.
// Type is "config" or "sensor".
type Payload struct {
	Type     string          `json:"type"`
	ScreenID string          `json:"screenId,omitempty"`
	Body     json.RawMessage `json:"body"`
}

// I2CDeviceRecord classifies one responding bus address. Produced
// transiently by the scanner; never persisted on the node.
type I2CDeviceRecord struct {
	Address         uint8  `json:"address"`
	DeviceType      string `json:"deviceType"`
	DisplayName     string `json:"displayName"`
	RequiresManager bool   `json:"requiresManager"`
	IsDisplay       bool   `json:"isDisplay"`
}

// ScreenDescriptor is appended into the shared config document for each
// discovered display unit.
type ScreenDescriptor struct {
	ScreenKey             string `json:"ScreenKey"`
	DisplayName           string `json:"DisplayName"`
	ScreenType            string `json:"ScreenType"`
	I2CAddress            string `json:"I2CAddress"`
	SupportsConfig        bool   `json:"SupportsConfigPayloads"`
	SupportsSensorPayload bool   `json:"SupportsSensorPayloads"`
}

// MQTTEndpoint is one generated endpoint for a discovered input device.
type MQTTEndpoint struct {
	EndpointType string `json:"EndpointType"`
	Address      string `json:"Address"`
	QoS          int    `json:"QoS"`
	Notes        string `json:"Notes"`
}

// I2CDeviceConfig is the generated config stub for a discovered
// non-display device (e.g. the seesaw encoder).
type I2CDeviceConfig struct {
	I2CAddress            string         `json:"I2CAddress"`
	DeviceType            string         `json:"DeviceType"`
	CommunicationProtocol string         `json:"CommunicationProtocol"`
	IsEnabled             bool           `json:"IsEnabled"`
	Endpoints             []MQTTEndpoint `json:"Endpoints"`
}

// RenderSnapshot is published to the device channel after a layout is
// created or updated.
type RenderSnapshot struct {
	UUID        string          `json:"uuid"`
	DeviceID    string          `json:"device_id"`
	Layout      string          `json:"layout"`
	Tree        json.RawMessage `json:"tree"`
	ProcessedAt time.Time       `json:"processed_at"`
}
