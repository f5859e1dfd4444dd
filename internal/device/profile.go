package device

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Profile is the per-variant capability record. On the firmware this was
// compiled in per board; here it is a YAML file shipped with the node.
type Profile struct {
	Name      string `yaml:"name" json:"name"`
	DeviceID  string `yaml:"device_id" json:"deviceId"`
	Width     int    `yaml:"width" json:"width"`
	Height    int    `yaml:"height" json:"height"`
	Rotation  int    `yaml:"rotation" json:"rotation"`
	ScreenKey string `yaml:"screen_key" json:"screenKey"`

	HasRGBLED      bool `yaml:"has_rgb_led" json:"hasRgbLed"`
	HasExternalI2C bool `yaml:"has_external_i2c" json:"hasExternalI2c"`
	HasQuadDisplay bool `yaml:"has_quad_display" json:"hasQuadDisplay"`
	HasCharlieplex bool `yaml:"has_charlieplex" json:"hasCharlieplex"`
	SupportsMQTT   bool `yaml:"supports_mqtt" json:"supportsMqtt"`
	SupportsWS     bool `yaml:"supports_websocket" json:"supportsWebsocket"`
}

// LoadProfile reads a device profile from path. A missing file yields the
// default profile rather than an error so a bare node can still boot.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			p := DefaultProfile()
			return p, nil
		}
		return nil, fmt.Errorf("failed to read device profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse device profile: %w", err)
	}
	p.applyDefaults()
	return &p, nil
}

// DefaultProfile is a 320x240 display node with no optional peripherals.
func DefaultProfile() *Profile {
	p := &Profile{}
	p.applyDefaults()
	return p
}

func (p *Profile) applyDefaults() {
	if p.Name == "" {
		p.Name = "Generic Display Node"
	}
	if p.DeviceID == "" {
		p.DeviceID = "node-" + uuid.NewString()[:8]
	}
	if p.Width <= 0 {
		p.Width = 320
	}
	if p.Height <= 0 {
		p.Height = 240
	}
	if p.ScreenKey == "" {
		p.ScreenKey = "onboard"
	}
}

// Resolution returns width and height with rotation applied: 90/270
// swap the axes.
func (p *Profile) Resolution() (int, int) {
	if p.Rotation == 90 || p.Rotation == 270 {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// MACSuffix derives the AP-name suffix the portal appends to its SSID
// prefix. The firmware truncated the leading octet of the MAC; here the
// device ID stands in when no hardware MAC exists.
func (p *Profile) MACSuffix() string {
	id := strings.ReplaceAll(p.DeviceID, "-", "")
	if len(id) > 9 {
		id = id[len(id)-9:]
	}
	return strings.ToUpper(id)
}
