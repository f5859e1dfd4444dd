// Package i2cbus abstracts the node's external I2C bus and discovers the
// peripherals attached to it. The scanner probes the 7-bit address space,
// classifies responders against a fixed table, and produces the screen
// descriptors and device stubs the rest of the node consumes.
package i2cbus

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoDevice is returned by Probe when no device acknowledges the
// address.
var ErrNoDevice = errors.New("i2cbus: no device at address")

// Bus is the probe-level view of an I2C bus. Implementations are a
// serial-bridged hardware adapter and an in-memory bus for tests and
// hardware-less development.
type Bus interface {
	// Probe addresses a device and reports whether it acknowledges.
	// A missing device returns ErrNoDevice; anything else is a bus fault.
	Probe(addr uint8) error
	// Write sends a data frame to a device.
	Write(addr uint8, data []byte) error
	Close() error
}

// MemBus is a simulated bus holding a set of acknowledging addresses.
// Written frames are recorded per address for inspection in tests.
type MemBus struct {
	mu      sync.Mutex
	present map[uint8]bool
	frames  map[uint8][][]byte
}

// NewMemBus creates an empty simulated bus.
func NewMemBus(addrs ...uint8) *MemBus {
	b := &MemBus{present: make(map[uint8]bool), frames: make(map[uint8][][]byte)}
	for _, a := range addrs {
		b.present[a] = true
	}
	return b
}

// Attach makes addr acknowledge probes.
func (b *MemBus) Attach(addr uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.present[addr] = true
}

// Detach makes addr stop acknowledging.
func (b *MemBus) Detach(addr uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.present, addr)
}

func (b *MemBus) Probe(addr uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.present[addr] {
		return fmt.Errorf("%w: 0x%02X", ErrNoDevice, addr)
	}
	return nil
}

func (b *MemBus) Write(addr uint8, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.present[addr] {
		return fmt.Errorf("%w: 0x%02X", ErrNoDevice, addr)
	}
	frame := append([]byte(nil), data...)
	b.frames[addr] = append(b.frames[addr], frame)
	return nil
}

// Frames returns all frames written to addr, oldest first.
func (b *MemBus) Frames(addr uint8) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.frames[addr]...)
}

func (b *MemBus) Close() error { return nil }
