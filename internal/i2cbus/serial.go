package i2cbus

import (
	"bufio"
	"fmt"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// SerialBridge drives an I2C bus through a USB serial adapter running the
// bridge firmware. The protocol is line-oriented: the host sends
// "PROBE <hex-addr>" and the adapter answers "ACK" or "NAK".
type SerialBridge struct {
	mu     sync.Mutex
	port   serial.Port
	reader *bufio.Reader
}

// OpenSerialBridge opens the adapter at the given device path.
func OpenSerialBridge(device string, baud int) (*SerialBridge, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial bridge %s: %w", device, err)
	}
	return &SerialBridge{port: port, reader: bufio.NewReader(port)}, nil
}

func (b *SerialBridge) Probe(addr uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := fmt.Fprintf(b.port, "PROBE %02X\n", addr); err != nil {
		return fmt.Errorf("serial bridge write: %w", err)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("serial bridge read: %w", err)
	}
	switch strings.TrimSpace(line) {
	case "ACK":
		return nil
	case "NAK":
		return fmt.Errorf("%w: 0x%02X", ErrNoDevice, addr)
	default:
		return fmt.Errorf("serial bridge: unexpected response %q", strings.TrimSpace(line))
	}
}

func (b *SerialBridge) Write(addr uint8, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := fmt.Fprintf(b.port, "WRITE %02X %X\n", addr, data); err != nil {
		return fmt.Errorf("serial bridge write: %w", err)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("serial bridge read: %w", err)
	}
	switch strings.TrimSpace(line) {
	case "OK":
		return nil
	case "NAK":
		return fmt.Errorf("%w: 0x%02X", ErrNoDevice, addr)
	default:
		return fmt.Errorf("serial bridge: unexpected response %q", strings.TrimSpace(line))
	}
}

func (b *SerialBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port.Close()
}
