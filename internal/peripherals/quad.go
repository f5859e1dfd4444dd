// Package peripherals drives the optional devices discovered on the
// external I2C bus plus the onboard NeoPixels. Managers are constructed
// explicitly and injected where needed; a manager whose hardware failed
// to initialize stays inert and every call on it is a no-op.
package peripherals

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/i2cbus"
	"github.com/junctionrelay/display-node/pkg/models"
)

// HT16K33 command bytes.
const (
	ht16k33OscillatorOn = 0x21
	ht16k33DisplayOn    = 0x81
	ht16k33Brightness   = 0xEF // full brightness
)

const (
	quadDigitsPerUnit = 4
	quadPollInterval  = 50 * time.Millisecond
)

// QuadDisplay drives one or more HT16K33 quad alphanumeric units as a
// single scrolling text window. Units are registered with AddDisplay
// before Begin; the first unit's address doubles as the screen key for
// payload routing.
type QuadDisplay struct {
	bus      i2cbus.Bus
	logger   *zap.Logger
	interval time.Duration

	mu          sync.Mutex
	addrs       []uint8
	initialized bool
	text        string
	offset      int
	unit        string // sensor unit suffix from the last config

	stop chan struct{}
	done chan struct{}
}

// NewQuadDisplay creates an uninitialized manager over the bus.
func NewQuadDisplay(bus i2cbus.Bus, logger *zap.Logger) *QuadDisplay {
	return &QuadDisplay{bus: bus, logger: logger, interval: quadPollInterval}
}

// AddDisplay registers a unit address. Must be called before Begin.
func (q *QuadDisplay) AddDisplay(addr uint8) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.addrs = append(q.addrs, addr)
}

// Begin initializes every registered unit and starts the scroll
// goroutine. A failed init leaves the manager inert; the node carries on
// without the display.
func (q *QuadDisplay) Begin() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.addrs) == 0 {
		q.addrs = []uint8{0x70}
	}
	for _, addr := range q.addrs {
		if err := q.initUnit(addr); err != nil {
			q.logger.Warn("Quad display init failed, manager disabled",
				zap.String("address", fmt.Sprintf("0x%02X", addr)),
				zap.Error(err))
			return err
		}
	}
	q.initialized = true
	q.stop = make(chan struct{})
	q.done = make(chan struct{})
	go q.run()
	q.logger.Info("Quad display ready", zap.Int("units", len(q.addrs)))
	return nil
}

func (q *QuadDisplay) initUnit(addr uint8) error {
	for _, cmd := range []byte{ht16k33OscillatorOn, ht16k33DisplayOn, ht16k33Brightness} {
		if err := q.bus.Write(addr, []byte{cmd}); err != nil {
			return fmt.Errorf("ht16k33 command 0x%02X: %w", cmd, err)
		}
	}
	return nil
}

func (q *QuadDisplay) run() {
	defer close(q.done)
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stop:
			return
		case <-ticker.C:
			q.Update()
		}
	}
}

// SetText replaces the displayed text and restarts the scroll.
func (q *QuadDisplay) SetText(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.initialized {
		return
	}
	q.text = text
	q.offset = 0
}

// Update advances the scroll by one character and writes the visible
// window out to the units. Text that fits is shown statically.
func (q *QuadDisplay) Update() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.initialized {
		return
	}

	window := q.windowLocked()
	for i, addr := range q.addrs {
		start := i * quadDigitsPerUnit
		segment := window[start : start+quadDigitsPerUnit]
		if err := q.bus.Write(addr, []byte(segment)); err != nil {
			q.logger.Warn("Quad display write failed",
				zap.String("address", fmt.Sprintf("0x%02X", addr)),
				zap.Error(err))
		}
	}

	width := len(q.addrs) * quadDigitsPerUnit
	if len(q.text) > width {
		q.offset = (q.offset + 1) % (len(q.text) + quadDigitsPerUnit)
	}
}

// windowLocked returns the currently visible characters, padded to the
// full display width. Scrolling wraps through a 4-space gap.
func (q *QuadDisplay) windowLocked() string {
	width := len(q.addrs) * quadDigitsPerUnit
	if len(q.text) <= width {
		return pad(q.text, width)
	}
	looped := q.text + "    "
	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = looped[(q.offset+i)%len(looped)]
	}
	return string(out)
}

// Window exposes the visible characters, used by tests and diagnostics.
func (q *QuadDisplay) Window() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.initialized {
		return ""
	}
	return q.windowLocked()
}

// Stop halts the scroll goroutine. Idempotent on an inert manager.
func (q *QuadDisplay) Stop() {
	q.mu.Lock()
	if !q.initialized {
		q.mu.Unlock()
		return
	}
	q.initialized = false
	stop := q.stop
	done := q.done
	q.mu.Unlock()

	close(stop)
	<-done
}

// ScreenDestination implementation: the quad display is addressable by
// payloads carrying its bus address as screenId.

func (q *QuadDisplay) ScreenID() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.addrs) == 0 {
		return "0x70"
	}
	return fmt.Sprintf("0x%02X", q.addrs[0])
}

func (q *QuadDisplay) MatchesScreenID(screenID string) bool {
	return screenID == q.ScreenID()
}

// HandleConfig picks the first sensor descriptor as the displayed tag
// and shows its label until a value arrives.
func (q *QuadDisplay) HandleConfig(doc models.ConfigDocument) {
	descs := doc.SensorDescriptors()
	if len(descs) == 0 {
		return
	}
	q.mu.Lock()
	q.unit = descs[0].Unit
	q.mu.Unlock()
	q.SetText(descs[0].DisplayLabel())
}

// HandleSensors shows the first reading in the payload.
func (q *QuadDisplay) HandleSensors(payload models.SensorPayload) {
	for _, reading := range payload.Sensors {
		q.SetText(q.formatReading(reading))
		return
	}
}

func (q *QuadDisplay) formatReading(r models.SensorReading) string {
	if r.Text != "" {
		return r.Text
	}
	if math.IsNaN(r.Value) {
		return "N/A"
	}
	text := strconv.FormatFloat(r.Value, 'f', -1, 64)
	unit := r.Unit
	if unit == "" {
		q.mu.Lock()
		unit = q.unit
		q.mu.Unlock()
	}
	if unit != "" {
		text += " " + unit
	}
	return text
}

func pad(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}
