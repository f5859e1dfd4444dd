package peripherals

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/i2cbus"
)

// IS31FL3731 registers (charlieplex matrix driver at 0x74).
const (
	is31BankSelect   = 0xFD
	is31FunctionBank = 0x0B
	is31Shutdown     = 0x0A
	is31NormalOp     = 0x01
)

const (
	charlieplexAddr         = 0x74
	charlieplexPollInterval = 40 * time.Millisecond
	charlieplexCols         = 16
)

// Charlieplex scrolls a text banner across the 16x8 charlieplex matrix.
// Rendering is a per-tick column frame; glyph rasterization happens on
// the adapter side.
type Charlieplex struct {
	bus      i2cbus.Bus
	logger   *zap.Logger
	interval time.Duration

	mu          sync.Mutex
	initialized bool
	message     string
	column      int

	stop chan struct{}
	done chan struct{}
}

func NewCharlieplex(bus i2cbus.Bus, logger *zap.Logger) *Charlieplex {
	return &Charlieplex{bus: bus, logger: logger, interval: charlieplexPollInterval}
}

// Begin wakes the driver chip and starts the scroll goroutine. A failed
// init leaves the manager inert.
func (c *Charlieplex) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	init := [][]byte{
		{is31BankSelect, is31FunctionBank},
		{is31Shutdown, is31NormalOp},
	}
	for _, frame := range init {
		if err := c.bus.Write(charlieplexAddr, frame); err != nil {
			c.logger.Warn("Charlieplex init failed, manager disabled", zap.Error(err))
			return fmt.Errorf("charlieplex init: %w", err)
		}
	}

	c.initialized = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run()
	c.logger.Info("Charlieplex matrix ready")
	return nil
}

func (c *Charlieplex) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Update()
		}
	}
}

// SetMessage replaces the banner text and restarts the scroll.
func (c *Charlieplex) SetMessage(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return
	}
	c.message = message
	c.column = 0
}

// Update advances the scroll one column and pushes the frame.
func (c *Charlieplex) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized || c.message == "" {
		return
	}

	frame := append([]byte{byte(c.column % charlieplexCols)}, []byte(c.message)...)
	if err := c.bus.Write(charlieplexAddr, frame); err != nil {
		c.logger.Warn("Charlieplex write failed", zap.Error(err))
		return
	}
	c.column++
}

// Column reports the scroll position, used by tests.
func (c *Charlieplex) Column() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.column
}

// Stop halts the scroll goroutine. Idempotent on an inert manager.
func (c *Charlieplex) Stop() {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}
	c.initialized = false
	stop := c.stop
	done := c.done
	c.mu.Unlock()

	close(stop)
	<-done
}
