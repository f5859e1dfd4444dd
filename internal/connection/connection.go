// Package connection maintains the node's links to the outside world:
// the MQTT subscription and the backend WebSocket. Inbound payload
// envelopes from either transport are decoded and handed to the payload
// router; connection state feeds the home screen status label.
package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/config"
	"github.com/junctionrelay/display-node/internal/prefs"
	"github.com/junctionrelay/display-node/pkg/models"
)

// Reconnect backoff bounds for the backend WebSocket.
const (
	backoffInitial = time.Second
	backoffMax     = 60 * time.Second
)

// PayloadRouter receives decoded payload envelopes.
type PayloadRouter interface {
	Route(payload models.Payload)
}

// StatusSink receives human-readable connection status lines.
type StatusSink interface {
	UpdateStatusLabel(status string)
}

// Options merges the static environment config with the saved
// connection record; the record wins where both specify a value.
type Options struct {
	DeviceID string
	Record   prefs.ConnRecord
	MQTT     config.MQTTConfig
	Backend  config.BackendConfig
}

// broker returns the MQTT broker address, preferring the saved record.
func (o Options) broker() string {
	if o.Record.MQTTBroker != "" {
		return o.Record.MQTTBroker
	}
	return o.MQTT.Broker
}

func (o Options) mqttCredentials() (string, string) {
	if o.Record.MQTTBroker != "" {
		return o.Record.MQTTUsername, o.Record.MQTTPassword
	}
	return o.MQTT.Username, o.MQTT.Password
}

// backendPort returns the WebSocket port, preferring the saved record.
func (o Options) backendPort() int {
	if o.Record.BackendPort > 0 {
		return o.Record.BackendPort
	}
	if o.Backend.Port > 0 {
		return o.Backend.Port
	}
	return 7180
}

// Manager owns the transports for one node.
type Manager struct {
	opts   Options
	router PayloadRouter
	status StatusSink
	logger *zap.Logger

	mu         sync.Mutex
	mqttClient mqtt.Client
	wsCancel   context.CancelFunc
	wsDone     chan struct{}
}

// NewManager creates a connection manager; Start brings the links up.
func NewManager(opts Options, router PayloadRouter, status StatusSink, logger *zap.Logger) *Manager {
	return &Manager{opts: opts, router: router, status: status, logger: logger}
}

// Start brings up every transport the merged options name: MQTT when a
// broker is configured, the backend WebSocket when a host is. Neither
// failing is fatal; both transports keep reconnecting on their own.
func (m *Manager) Start(ctx context.Context) error {
	started := false
	if m.opts.broker() != "" {
		if err := m.startMQTT(); err != nil {
			m.logger.Error("MQTT connect failed, will not retry this boot", zap.Error(err))
		} else {
			started = true
		}
	}
	if m.opts.Backend.Host != "" {
		m.startWebSocket(ctx)
		started = true
	}
	if !started {
		return fmt.Errorf("no transport configured (no MQTT broker, no backend host)")
	}
	return nil
}

// Stop tears both transports down.
func (m *Manager) Stop() {
	m.mu.Lock()
	client := m.mqttClient
	cancel := m.wsCancel
	done := m.wsDone
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if client != nil {
		client.Disconnect(250)
	}
}

func (m *Manager) startMQTT() error {
	topic := fmt.Sprintf(m.opts.MQTT.TopicFmt, m.opts.DeviceID)
	username, password := m.opts.mqttCredentials()

	opts := mqtt.NewClientOptions().
		AddBroker(m.opts.broker()).
		SetClientID("display-node-" + m.opts.DeviceID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(backoffInitial)

	opts.OnConnect = func(client mqtt.Client) {
		m.logger.Info("MQTT connected", zap.String("topic", topic))
		m.setStatus("MQTT connected")
		if token := client.Subscribe(topic, 1, m.onMQTTMessage); token.Wait() && token.Error() != nil {
			m.logger.Error("MQTT subscribe failed", zap.Error(token.Error()))
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		m.logger.Warn("MQTT connection lost", zap.Error(err))
		m.setStatus("MQTT reconnecting...")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}

	m.mu.Lock()
	m.mqttClient = client
	m.mu.Unlock()
	return nil
}

func (m *Manager) onMQTTMessage(_ mqtt.Client, msg mqtt.Message) {
	m.handleInbound(msg.Payload())
}

func (m *Manager) startWebSocket(ctx context.Context) {
	wsCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.mu.Lock()
	m.wsCancel = cancel
	m.wsDone = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.runWebSocket(wsCtx)
	}()
}

// runWebSocket dials the backend and pumps inbound messages, redialing
// with exponential backoff until the context ends.
func (m *Manager) runWebSocket(ctx context.Context) {
	url := fmt.Sprintf("ws://%s:%d/api/ws/device/%s",
		m.opts.Backend.Host, m.opts.backendPort(), m.opts.DeviceID)
	backoff := backoffInitial

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			m.logger.Warn("Backend dial failed",
				zap.String("url", url),
				zap.Duration("retry_in", backoff),
				zap.Error(err))
			m.setStatus("Backend reconnecting...")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff)
			continue
		}

		m.logger.Info("Backend connected", zap.String("url", url))
		m.setStatus("Backend connected")
		backoff = backoffInitial

		m.readLoop(ctx, conn)
		conn.Close()
	}
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	// The watcher unblocks ReadMessage on shutdown and must not outlive
	// this connection; reconnects would otherwise pile one up per dial.
	readerDone := make(chan struct{})
	defer close(readerDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readerDone:
		}
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Warn("Backend read failed", zap.Error(err))
			}
			return
		}
		m.handleInbound(data)
	}
}

// handleInbound decodes a payload envelope and routes it.
func (m *Manager) handleInbound(data []byte) {
	payload, err := models.DecodePayload(data)
	if err != nil {
		m.logger.Warn("Dropping inbound message", zap.Error(err))
		return
	}
	m.router.Route(payload)
}

func (m *Manager) setStatus(status string) {
	if m.status != nil {
		m.status.UpdateStatusLabel(status)
	}
}

// nextBackoff doubles the delay up to the cap.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > backoffMax {
		return backoffMax
	}
	return next
}
