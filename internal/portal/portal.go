// Package portal implements first-boot onboarding: a captive-portal
// style HTTP server that collects connection settings, persists them to
// the connConfig preference record, and restarts the node.
package portal

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/device"
	"github.com/junctionrelay/display-node/internal/prefs"
)

// defaultBackendPort is substituted when the submitted port is missing
// or outside 1-65535.
const defaultBackendPort = 7180

// restartDelay gives the success page time to reach the client before
// the node restarts into configured mode.
const restartDelay = 2 * time.Second

// Manager serves the onboarding flow. The restart func is injected; in
// production it terminates the process for the supervisor to relaunch.
type Manager struct {
	store   *prefs.Store
	profile *device.Profile
	logger  *zap.Logger
	restart func()

	ssid   string
	server *http.Server
}

// NewManager creates a portal manager. restart runs after a successful
// submission, delayed by restartDelay.
func NewManager(store *prefs.Store, profile *device.Profile, restart func(), logger *zap.Logger) *Manager {
	return &Manager{store: store, profile: profile, logger: logger, restart: restart}
}

// Begin computes the AP name from the SSID prefix and starts the HTTP
// server on addr. Blocks until the server exits.
func (m *Manager) Begin(addr, ssidPrefix string) error {
	m.ssid = ssidPrefix + m.profile.MACSuffix()
	m.logger.Info("Captive portal started",
		zap.String("ssid", m.ssid),
		zap.String("addr", addr))

	m.server = &http.Server{Addr: addr, Handler: m.Handler()}
	if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("portal server: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// Handler returns the portal's routes: the setup form at /, the
// submission endpoint at /select, and a catch-all redirect that makes
// captive-portal probes land on the form.
func (m *Manager) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handleRoot)
	mux.HandleFunc("/select", m.handleSelect)
	return mux
}

func (m *Manager) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		// OS connectivity probes hit arbitrary paths; all of them get
		// the setup form.
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, setupPage, m.ssid)
}

func (m *Manager) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	record := prefs.ConnRecord{
		Mode:         r.PostFormValue("mode"),
		SSID:         r.PostFormValue("ssid"),
		Password:     r.PostFormValue("pass"),
		MQTTBroker:   r.PostFormValue("mqtt_broker"),
		MQTTUsername: r.PostFormValue("mqtt_user"),
		MQTTPassword: r.PostFormValue("mqtt_pass"),
		BackendPort:  parseBackendPort(r.PostFormValue("backend_port")),
	}
	if record.Mode == "" {
		record.Mode = "wifi"
	}

	if err := m.store.Write(prefs.NamespaceConn, record); err != nil {
		m.logger.Error("Failed to save connection settings", zap.Error(err))
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	m.logger.Info("Connection settings saved, restarting",
		zap.String("mode", record.Mode),
		zap.Int("backend_port", record.BackendPort))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, successPage)

	time.AfterFunc(restartDelay, m.restart)
}

// parseBackendPort clamps the submitted port to the valid range,
// substituting the default for anything missing or out of range.
func parseBackendPort(raw string) int {
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return defaultBackendPort
	}
	return port
}

const setupPage = `<!DOCTYPE html>
<html>
<head><title>JunctionRelay Setup</title></head>
<body>
<h1>JunctionRelay Node Setup</h1>
<p>Access point: %s</p>
<form method="POST" action="/select">
  <label>Mode
    <select name="mode">
      <option value="wifi">Wi-Fi + Backend</option>
      <option value="espnow">ESP-NOW</option>
    </select>
  </label><br>
  <label>SSID <input name="ssid"></label><br>
  <label>Password <input name="pass" type="password"></label><br>
  <label>MQTT Broker <input name="mqtt_broker"></label><br>
  <label>MQTT Username <input name="mqtt_user"></label><br>
  <label>MQTT Password <input name="mqtt_pass" type="password"></label><br>
  <label>Backend Port <input name="backend_port" value="7180"></label><br>
  <button type="submit">Save</button>
</form>
</body>
</html>
`

const successPage = `<!DOCTYPE html>
<html>
<head><title>JunctionRelay Setup</title></head>
<body>
<h1>Settings saved</h1>
<p>The node is restarting and will connect with the new settings.</p>
</body>
</html>
`
