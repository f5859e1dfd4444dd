package i2cbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/pkg/models"
)

// Valid 7-bit address range. 0x00 and 0x7F are reserved.
const (
	scanFirst uint8 = 0x01
	scanLast  uint8 = 0x7E
)

// Device type names assigned by the classification table.
const (
	TypeSeesawEncoder = "Seesaw_Encoder"
	TypeQuadDisplay   = "QuadDisplay"
	TypeCharlieplex   = "Charlieplex_Matrix"
	TypeUnknown       = "Unknown"
)

// Report is the outcome of one full bus scan: capability flags, the raw
// device records, screen descriptors for discovered display units, and
// generated config stubs for input devices.
type Report struct {
	FoundSeesaw      bool
	FoundQuadDisplay bool
	FoundCharlieplex bool

	Devices       []models.I2CDeviceRecord
	Screens       []models.ScreenDescriptor
	DeviceConfigs []models.I2CDeviceConfig
}

// Scanner probes the bus and classifies responders.
type Scanner struct {
	bus    Bus
	logger *zap.Logger

	// topicPrefix parameterizes the MQTT endpoints generated for input
	// devices, e.g. "JunctionRelay/node-a1b2/encoder".
	topicPrefix string
}

// NewScanner creates a scanner over the given bus. topicPrefix names the
// node in generated MQTT endpoint addresses.
func NewScanner(bus Bus, topicPrefix string, logger *zap.Logger) *Scanner {
	return &Scanner{bus: bus, topicPrefix: topicPrefix, logger: logger}
}

// Scan probes addresses 0x01-0x7E and returns a record per responder.
// Bus faults on individual addresses are logged and skipped.
func (s *Scanner) Scan(ctx context.Context) ([]models.I2CDeviceRecord, error) {
	var found []models.I2CDeviceRecord
	for addr := scanFirst; addr <= scanLast; addr++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		err := s.bus.Probe(addr)
		if errors.Is(err, ErrNoDevice) {
			continue
		}
		if err != nil {
			s.logger.Warn("Bus fault while probing",
				zap.String("address", hexAddr(addr)),
				zap.Error(err))
			continue
		}
		rec := classify(addr)
		s.logger.Info("I2C device found",
			zap.String("address", hexAddr(addr)),
			zap.String("type", rec.DeviceType))
		found = append(found, rec)
	}
	return found, nil
}

// ScanAndConfigure runs a full scan and assembles the report consumed by
// the peripheral managers and the payload router.
func (s *Scanner) ScanAndConfigure(ctx context.Context) (*Report, error) {
	devices, err := s.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bus scan: %w", err)
	}

	report := &Report{Devices: devices}
	for _, d := range devices {
		switch d.DeviceType {
		case TypeSeesawEncoder:
			report.FoundSeesaw = true
			report.DeviceConfigs = append(report.DeviceConfigs, s.seesawConfig(d))
		case TypeQuadDisplay:
			report.FoundQuadDisplay = true
			report.Screens = append(report.Screens, screenDescriptor(d))
		case TypeCharlieplex:
			report.FoundCharlieplex = true
			report.Screens = append(report.Screens, screenDescriptor(d))
		}
	}

	s.logger.Info("I2C discovery complete",
		zap.Int("devices", len(devices)),
		zap.Bool("seesaw", report.FoundSeesaw),
		zap.Bool("quad_display", report.FoundQuadDisplay),
		zap.Bool("charlieplex", report.FoundCharlieplex))
	return report, nil
}

// classify maps a responding address to a device record. Addresses the
// table does not cover are recorded as unknown and otherwise ignored.
func classify(addr uint8) models.I2CDeviceRecord {
	rec := models.I2CDeviceRecord{Address: addr}
	switch {
	case addr == 0x36:
		rec.DeviceType = TypeSeesawEncoder
		rec.DisplayName = "Rotary Encoder (Seesaw)"
		rec.RequiresManager = true
	case addr == 0x74:
		// 0x74 sits inside the quad-display range but is claimed by the
		// charlieplex matrix backpack.
		rec.DeviceType = TypeCharlieplex
		rec.DisplayName = "Charlieplex Matrix"
		rec.RequiresManager = true
		rec.IsDisplay = true
	case addr >= 0x70 && addr <= 0x77:
		rec.DeviceType = TypeQuadDisplay
		rec.DisplayName = "Quad Alphanumeric Display"
		rec.RequiresManager = true
		rec.IsDisplay = true
	default:
		rec.DeviceType = TypeUnknown
		rec.DisplayName = fmt.Sprintf("Unknown device at %s", hexAddr(addr))
	}
	return rec
}

// screenDescriptor builds the routing descriptor for a display unit. The
// screen key is the hex bus address, which is also the screenId payloads
// use to target the unit.
func screenDescriptor(d models.I2CDeviceRecord) models.ScreenDescriptor {
	return models.ScreenDescriptor{
		ScreenKey:             hexAddr(d.Address),
		DisplayName:           d.DisplayName,
		ScreenType:            d.DeviceType,
		I2CAddress:            hexAddr(d.Address),
		SupportsConfig:        true,
		SupportsSensorPayload: true,
	}
}

// seesawConfig builds the config stub advertising the encoder's MQTT
// endpoints to the backend.
func (s *Scanner) seesawConfig(d models.I2CDeviceRecord) models.I2CDeviceConfig {
	return models.I2CDeviceConfig{
		I2CAddress:            hexAddr(d.Address),
		DeviceType:            d.DeviceType,
		CommunicationProtocol: "MQTT",
		IsEnabled:             true,
		Endpoints: []models.MQTTEndpoint{
			{
				EndpointType: "button",
				Address:      fmt.Sprintf("JunctionRelay/%s/button", s.topicPrefix),
				QoS:          1,
				Notes:        "Press events from the encoder push switch",
			},
			{
				EndpointType: "encoder",
				Address:      fmt.Sprintf("JunctionRelay/%s/encoder", s.topicPrefix),
				QoS:          1,
				Notes:        "Relative rotation deltas",
			},
		},
	}
}

func hexAddr(addr uint8) string {
	return fmt.Sprintf("0x%02X", addr)
}

// Discovery runs the scan as a background task and exposes an explicit
// readiness signal, so consumers wait for the report instead of racing
// the scan.
type Discovery struct {
	scanner *Scanner
	logger  *zap.Logger

	ready chan struct{}
	once  sync.Once

	mu     sync.Mutex
	report *Report
}

// NewDiscovery wraps a scanner in a one-shot background task.
func NewDiscovery(scanner *Scanner, logger *zap.Logger) *Discovery {
	return &Discovery{scanner: scanner, logger: logger, ready: make(chan struct{})}
}

// Run performs the scan and then closes the readiness channel. A failed
// scan still signals readiness, with an empty report; discovery failure
// means no external peripherals, never a dead node.
func (d *Discovery) Run(ctx context.Context) {
	report, err := d.scanner.ScanAndConfigure(ctx)
	if err != nil {
		d.logger.Error("I2C discovery failed, continuing without peripherals", zap.Error(err))
		report = &Report{}
	}
	d.mu.Lock()
	d.report = report
	d.mu.Unlock()
	d.once.Do(func() { close(d.ready) })
}

// Ready is closed once the first scan has completed.
func (d *Discovery) Ready() <-chan struct{} { return d.ready }

// Report returns the scan outcome, or nil before readiness.
func (d *Discovery) Report() *Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.report
}
