package peripherals

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/prefs"
)

// Color is one RGB pixel value.
type Color struct {
	R, G, B uint8
}

// PixelStrip is the output a NeoPixel manager renders to; implementations
// wrap a GPIO strip driver or, in tests, capture frames.
type PixelStrip interface {
	Render(colors []Color) error
}

const neoPixelPollInterval = 30 * time.Millisecond

// NopStrip discards frames. Used when no GPIO strip driver is wired so
// the animation state machine still runs on development hosts.
type NopStrip struct{}

func (NopStrip) Render([]Color) error { return nil }

// NeoPixel animation modes.
const (
	ModeSolid = "solid"
	ModePulse = "pulse"
	ModeOff   = "off"
)

// NeoPixels animates the status LEDs. Pin assignments and channel order
// come from the neopixelConfig preference record.
type NeoPixels struct {
	strip    PixelStrip
	record   prefs.NeoPixelRecord
	count    int
	logger   *zap.Logger
	interval time.Duration

	mu          sync.Mutex
	initialized bool
	mode        string
	color       Color
	phase       float64

	stop chan struct{}
	done chan struct{}
}

// NewNeoPixels creates a manager for count pixels on the given strip.
func NewNeoPixels(strip PixelStrip, record prefs.NeoPixelRecord, count int, logger *zap.Logger) *NeoPixels {
	return &NeoPixels{strip: strip, record: record, count: count, logger: logger, interval: neoPixelPollInterval, mode: ModeOff}
}

// Begin clears the strip and starts the animation goroutine. A failed
// initial render leaves the manager inert.
func (n *NeoPixels) Begin() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.strip.Render(make([]Color, n.count)); err != nil {
		n.logger.Warn("NeoPixel init failed, manager disabled", zap.Error(err))
		return fmt.Errorf("neopixel init: %w", err)
	}

	n.initialized = true
	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	go n.run()
	n.logger.Info("NeoPixels ready",
		zap.Int("count", n.count),
		zap.Int("pin", n.record.Pin))
	return nil
}

func (n *NeoPixels) run() {
	defer close(n.done)
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.Update()
		}
	}
}

// SetMode switches the animation mode and base color.
func (n *NeoPixels) SetMode(mode string, color Color) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.initialized {
		return
	}
	n.mode = mode
	n.color = color
	n.phase = 0
}

// Update computes and renders one animation frame.
func (n *NeoPixels) Update() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.initialized {
		return
	}

	frame := make([]Color, n.count)
	switch n.mode {
	case ModeSolid:
		for i := range frame {
			frame[i] = n.color
		}
	case ModePulse:
		// Sinusoidal brightness sweep over the base color.
		level := (math.Sin(n.phase) + 1) / 2
		c := Color{
			R: uint8(float64(n.color.R) * level),
			G: uint8(float64(n.color.G) * level),
			B: uint8(float64(n.color.B) * level),
		}
		for i := range frame {
			frame[i] = c
		}
		n.phase += 0.1
	case ModeOff:
	}

	if n.record.SwapBlueGreen {
		for i := range frame {
			frame[i].G, frame[i].B = frame[i].B, frame[i].G
		}
	}

	if err := n.strip.Render(frame); err != nil {
		n.logger.Warn("NeoPixel render failed", zap.Error(err))
	}
}

// Stop blanks the strip and halts the animation goroutine.
func (n *NeoPixels) Stop() {
	n.mu.Lock()
	if !n.initialized {
		n.mu.Unlock()
		return
	}
	n.initialized = false
	stop := n.stop
	done := n.done
	n.mu.Unlock()

	close(stop)
	<-done
	if err := n.strip.Render(make([]Color, n.count)); err != nil {
		n.logger.Warn("NeoPixel blank failed", zap.Error(err))
	}
}
