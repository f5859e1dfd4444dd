package connection

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/config"
	"github.com/junctionrelay/display-node/internal/prefs"
	"github.com/junctionrelay/display-node/pkg/models"
)

type captureRouter struct {
	mu       sync.Mutex
	payloads []models.Payload
}

func (r *captureRouter) Route(p models.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
}

func (r *captureRouter) wait(t *testing.T, n int) []models.Payload {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		if len(r.payloads) >= n {
			got := append([]models.Payload(nil), r.payloads...)
			r.mu.Unlock()
			return got
		}
		r.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d payloads", n)
	return nil
}

type captureStatus struct {
	mu       sync.Mutex
	statuses []string
}

func (s *captureStatus) UpdateStatusLabel(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func TestNextBackoffCaps(t *testing.T) {
	got := backoffInitial
	for i := 0; i < 20; i++ {
		got = nextBackoff(got)
	}
	if got != backoffMax {
		t.Errorf("backoff after 20 doublings = %v, want cap %v", got, backoffMax)
	}
	if next := nextBackoff(backoffInitial); next != 2*backoffInitial {
		t.Errorf("first step = %v, want %v", next, 2*backoffInitial)
	}
}

func TestHandleInboundEnvelope(t *testing.T) {
	router := &captureRouter{}
	m := NewManager(Options{DeviceID: "node-test"}, router, nil, zap.NewNop())

	m.handleInbound([]byte(`{"type": "sensor", "screenId": "0x70", "body": {"sensors": {}}}`))

	got := router.wait(t, 1)
	if got[0].Type != "sensor" || got[0].ScreenID != "0x70" {
		t.Errorf("payload = %+v", got[0])
	}
}

func TestHandleInboundBareConfigDocument(t *testing.T) {
	router := &captureRouter{}
	m := NewManager(Options{DeviceID: "node-test"}, router, nil, zap.NewNop())

	// Older senders post the config document directly, no envelope.
	m.handleInbound([]byte(`{"screenId": "0x70", "lvgl_grid": {"rows": 2}}`))

	got := router.wait(t, 1)
	if got[0].Type != "config" {
		t.Errorf("type = %q, want config", got[0].Type)
	}
	if got[0].ScreenID != "0x70" {
		t.Errorf("screenId = %q, want 0x70", got[0].ScreenID)
	}
}

func TestHandleInboundMalformed(t *testing.T) {
	router := &captureRouter{}
	m := NewManager(Options{DeviceID: "node-test"}, router, nil, zap.NewNop())

	m.handleInbound([]byte(`{broken`))
	m.handleInbound([]byte(`{}`))

	router.mu.Lock()
	defer router.mu.Unlock()
	if len(router.payloads) != 0 {
		t.Errorf("payloads = %d, want 0", len(router.payloads))
	}
}

func TestWebSocketReceivesAndRoutes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		msg := `{"type": "config", "body": {"lvgl_home": {}}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	router := &captureRouter{}
	status := &captureStatus{}
	m := NewManager(Options{
		DeviceID: "node-test",
		Record:   prefs.ConnRecord{Mode: "wifi", BackendPort: port},
		Backend:  config.BackendConfig{Host: host},
	}, router, status, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.startWebSocket(ctx)
	defer m.Stop()

	got := router.wait(t, 1)
	if got[0].Type != "config" {
		t.Errorf("payload = %+v", got[0])
	}

	status.mu.Lock()
	defer status.mu.Unlock()
	if len(status.statuses) == 0 || status.statuses[len(status.statuses)-1] != "Backend connected" {
		t.Errorf("statuses = %v, want Backend connected", status.statuses)
	}
}

func TestReadLoopWatcherStopsWithConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	defer srv.Close()

	m := NewManager(Options{DeviceID: "node-test"}, &captureRouter{}, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	before := runtime.NumGoroutine()

	// Dropped connections must not leave their shutdown watchers behind
	// while the manager context is still live.
	for i := 0; i < 8; i++ {
		client, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		server := <-conns
		server.Close()
		m.readLoop(ctx, client)
		client.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("goroutines = %d after 8 dropped connections, started at %d",
		runtime.NumGoroutine(), before)
}

func TestOptionsMergeRecordWins(t *testing.T) {
	opts := Options{
		Record: prefs.ConnRecord{MQTTBroker: "tcp://saved:1883", MQTTUsername: "saved", BackendPort: 9000},
		MQTT:   config.MQTTConfig{Broker: "tcp://env:1883", Username: "env"},
		Backend: config.BackendConfig{
			Host: "backend.local",
			Port: 7180,
		},
	}
	if got := opts.broker(); got != "tcp://saved:1883" {
		t.Errorf("broker = %q", got)
	}
	if user, _ := opts.mqttCredentials(); user != "saved" {
		t.Errorf("username = %q", user)
	}
	if got := opts.backendPort(); got != 9000 {
		t.Errorf("port = %d", got)
	}

	opts.Record = prefs.ConnRecord{}
	if got := opts.broker(); got != "tcp://env:1883" {
		t.Errorf("fallback broker = %q", got)
	}
	if got := opts.backendPort(); got != 7180 {
		t.Errorf("fallback port = %d", got)
	}
}
