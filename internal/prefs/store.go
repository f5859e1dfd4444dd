package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store is the node's non-volatile preference store: namespaced records
// read and written whole, persisted as JSON files under a single
// directory. It replaces the firmware's NVS namespaces.
type Store struct {
	dir    string
	logger *zap.Logger
}

// Namespace names match the firmware's NVS namespaces.
const (
	NamespaceConn     = "connConfig"
	NamespaceNeoPixel = "neopixelConfig"
)

// ConnRecord holds connection mode, credentials and rotation. Saved by
// the captive portal and the preferences API, read at boot.
type ConnRecord struct {
	Mode         string `json:"connMode"` // "wifi", "espnow" or ""
	SSID         string `json:"ssid"`
	Password     string `json:"pass"`
	MQTTBroker   string `json:"mqttBroker"`
	MQTTUsername string `json:"mqttUsername"`
	MQTTPassword string `json:"mqttPassword"`
	BackendPort  int    `json:"backendPort"`
	Rotation     int    `json:"rotation"`
}

// Configured reports whether onboarding has completed.
func (r ConnRecord) Configured() bool {
	return r.Mode != ""
}

// NeoPixelRecord holds the NeoPixel pin assignments and color options.
type NeoPixelRecord struct {
	Pin           int  `json:"neoPin1"`
	ExternalPin   int  `json:"neoPin2"`
	SwapBlueGreen bool `json:"swapBlueGreen"`
}

// NewStore opens (creating if needed) a preference store rooted at dir.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create prefs dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Read loads the record stored under namespace into out. A missing
// record is not an error; out is left untouched and false is returned.
func (s *Store) Read(namespace string, out any) (bool, error) {
	data, err := os.ReadFile(s.path(namespace))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s record: %w", namespace, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to parse %s record: %w", namespace, err)
	}
	return true, nil
}

// Write persists the record whole under namespace. The write is atomic:
// a temp file in the same directory is renamed over the target.
func (s *Store) Write(namespace string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", namespace, err)
	}

	tmp, err := os.CreateTemp(s.dir, namespace+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s record: %w", namespace, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s record: %w", namespace, err)
	}

	if err := os.Rename(tmpName, s.path(namespace)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit %s record: %w", namespace, err)
	}

	s.logger.Debug("Preference record saved", zap.String("namespace", namespace))
	return nil
}

// Clear removes the record stored under namespace, used by factory reset.
func (s *Store) Clear(namespace string) error {
	err := os.Remove(s.path(namespace))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear %s record: %w", namespace, err)
	}
	return nil
}

func (s *Store) path(namespace string) string {
	return filepath.Join(s.dir, namespace+".json")
}
