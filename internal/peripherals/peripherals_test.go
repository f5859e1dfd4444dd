package peripherals

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/i2cbus"
	"github.com/junctionrelay/display-node/internal/prefs"
	"github.com/junctionrelay/display-node/pkg/models"
)

// testInterval keeps the owner goroutine out of the way so tests drive
// Update deterministically.
const testInterval = time.Hour

func TestQuadDisplayScrollWraps(t *testing.T) {
	bus := i2cbus.NewMemBus(0x70)
	q := NewQuadDisplay(bus, zap.NewNop())
	q.interval = testInterval
	q.AddDisplay(0x70)
	if err := q.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer q.Stop()

	q.SetText("HELLO")
	if got := q.Window(); got != "HELL" {
		t.Errorf("window = %q, want HELL", got)
	}

	// One full cycle is len(text)+gap ticks; the window must return to
	// its starting position.
	cycle := len("HELLO") + quadDigitsPerUnit
	for i := 0; i < cycle; i++ {
		q.Update()
	}
	if got := q.Window(); got != "HELL" {
		t.Errorf("window after full cycle = %q, want HELL", got)
	}
}

func TestQuadDisplayShortTextStatic(t *testing.T) {
	bus := i2cbus.NewMemBus(0x70)
	q := NewQuadDisplay(bus, zap.NewNop())
	q.interval = testInterval
	if err := q.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer q.Stop()

	q.SetText("42")
	q.Update()
	q.Update()
	if got := q.Window(); got != "42  " {
		t.Errorf("window = %q, want %q", got, "42  ")
	}
}

func TestQuadDisplayInitFailureIsInert(t *testing.T) {
	// Nothing at 0x70, so init writes fail.
	q := NewQuadDisplay(i2cbus.NewMemBus(), zap.NewNop())
	if err := q.Begin(); err == nil {
		t.Fatal("Begin must fail with no device on the bus")
	}

	// Everything below must be a safe no-op.
	q.SetText("HELLO")
	q.Update()
	q.Stop()
	if got := q.Window(); got != "" {
		t.Errorf("window on inert manager = %q, want empty", got)
	}
}

func TestQuadDisplayHandlesPayloads(t *testing.T) {
	bus := i2cbus.NewMemBus(0x70)
	q := NewQuadDisplay(bus, zap.NewNop())
	q.interval = testInterval
	if err := q.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer q.Stop()

	if got := q.ScreenID(); got != "0x70" {
		t.Errorf("ScreenID = %q, want 0x70", got)
	}
	if !q.MatchesScreenID("0x70") || q.MatchesScreenID("") {
		t.Error("quad display must match only its own screen key")
	}

	var doc models.ConfigDocument
	raw := `{"layout": [{"id": "temp", "label": "Temp", "unit": "C"}]}`
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatal(err)
	}
	q.HandleConfig(doc)
	if got := q.Window(); got != "Temp" {
		t.Errorf("window after config = %q, want Temp", got)
	}

	q.HandleSensors(models.SensorPayload{Sensors: map[string]models.SensorReading{
		"temp": {Value: 21.5},
	}})
	if got := q.Window(); got != "21.5" {
		t.Errorf("window after sensor = %q, want 21.5", got)
	}
}

func TestCharlieplexScroll(t *testing.T) {
	bus := i2cbus.NewMemBus(0x74)
	c := NewCharlieplex(bus, zap.NewNop())
	c.interval = testInterval
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer c.Stop()

	c.SetMessage("PING")
	c.Update()
	c.Update()
	if got := c.Column(); got != 2 {
		t.Errorf("column = %d, want 2", got)
	}
	// Init frames plus two scroll frames.
	if frames := bus.Frames(0x74); len(frames) != 4 {
		t.Errorf("frames = %d, want 4", len(frames))
	}
}

func TestCharlieplexInitFailureIsInert(t *testing.T) {
	c := NewCharlieplex(i2cbus.NewMemBus(), zap.NewNop())
	if err := c.Begin(); err == nil {
		t.Fatal("Begin must fail with no device on the bus")
	}
	c.SetMessage("PING")
	c.Update()
	c.Stop()
	if got := c.Column(); got != 0 {
		t.Errorf("column on inert manager = %d, want 0", got)
	}
}

type captureStrip struct {
	mu     sync.Mutex
	frames [][]Color
	fail   bool
}

func (s *captureStrip) Render(colors []Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("strip unavailable")
	}
	s.frames = append(s.frames, append([]Color(nil), colors...))
	return nil
}

func (s *captureStrip) last() []Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func TestNeoPixelsSolidFrame(t *testing.T) {
	strip := &captureStrip{}
	n := NewNeoPixels(strip, prefs.NeoPixelRecord{}, 3, zap.NewNop())
	n.interval = testInterval
	if err := n.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer n.Stop()

	n.SetMode(ModeSolid, Color{R: 255, G: 10, B: 20})
	n.Update()

	frame := strip.last()
	if len(frame) != 3 {
		t.Fatalf("frame length = %d, want 3", len(frame))
	}
	want := Color{R: 255, G: 10, B: 20}
	if frame[0] != want || frame[2] != want {
		t.Errorf("frame = %v, want all %v", frame, want)
	}
}

func TestNeoPixelsSwapBlueGreen(t *testing.T) {
	strip := &captureStrip{}
	n := NewNeoPixels(strip, prefs.NeoPixelRecord{SwapBlueGreen: true}, 1, zap.NewNop())
	n.interval = testInterval
	if err := n.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer n.Stop()

	n.SetMode(ModeSolid, Color{R: 1, G: 2, B: 3})
	n.Update()

	if got := strip.last()[0]; got != (Color{R: 1, G: 3, B: 2}) {
		t.Errorf("frame = %v, want green/blue swapped", got)
	}
}

func TestNeoPixelsInitFailureIsInert(t *testing.T) {
	strip := &captureStrip{fail: true}
	n := NewNeoPixels(strip, prefs.NeoPixelRecord{}, 3, zap.NewNop())
	if err := n.Begin(); err == nil {
		t.Fatal("Begin must fail when the strip is unavailable")
	}
	n.SetMode(ModeSolid, Color{R: 255})
	n.Update()
	n.Stop()
	if len(strip.frames) != 0 {
		t.Errorf("frames = %d, want 0", len(strip.frames))
	}
}
