// Package display coordinates the node's screens: the manager owns the
// single active layout and the router fans payloads out to whichever
// destination claims them.
package display

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/device"
	"github.com/junctionrelay/display-node/internal/layouts"
	"github.com/junctionrelay/display-node/internal/ui"
	"github.com/junctionrelay/display-node/pkg/models"
)

// transitionTimeout bounds how long a layout rebuild may hold the
// transition screen before the switch is treated as stalled.
const transitionTimeout = 5 * time.Second

// SnapshotSink receives render snapshots after the active layout is
// created or updated.
type SnapshotSink interface {
	PublishSnapshot(snapshot *models.RenderSnapshot) error
}

// Manager owns the currently active layout, switches between layout
// types on configuration change, and forwards sensor updates to the
// active layout. At most one layout is active; switching destroys the
// previous layout before the new one is created.
//
// Layout instances are not safe for concurrent Create/Update, and
// payloads arrive from several transports at once, so layoutMu
// serializes every call into a layout (the single-UI-thread the
// widget tree assumes). mu only guards the manager's own fields and is
// never held while layoutMu is acquired.
type Manager struct {
	profile *device.Profile
	sink    SnapshotSink
	logger  *zap.Logger

	// newLayout is the layout factory, swappable in tests.
	newLayout func(layouts.Type, layouts.Env) layouts.Layout

	// stallTimeout bounds a layout rebuild, transitionTimeout by default.
	stallTimeout time.Duration

	layoutMu sync.Mutex

	mu            sync.Mutex
	current       layouts.Layout
	currentType   layouts.Type
	transitioning bool
	transition    *ui.Object
	lastStatus    string
}

// NewManager creates a display manager. sink may be nil when no
// transport is connected yet.
func NewManager(profile *device.Profile, sink SnapshotSink, logger *zap.Logger) *Manager {
	return &Manager{
		profile:      profile,
		sink:         sink,
		logger:       logger,
		newLayout:    layouts.New,
		stallTimeout: transitionTimeout,
		lastStatus:   "Connecting...",
	}
}

// CreateHomeScreen shows the default home screen.
func (m *Manager) CreateHomeScreen() {
	doc := models.ConfigDocument{string(layouts.TypeHome): json.RawMessage(`{}`)}
	if ok := m.SwitchToLayout(layouts.TypeHome, doc); ok {
		m.UpdateStatusLabel(m.lastStatus)
	}
}

// UpdateStatusLabel updates the status line when the home screen is the
// active layout; the last status is kept for the next home screen.
func (m *Manager) UpdateStatusLabel(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastStatus = status
	if m.currentType != layouts.TypeHome || m.current == nil {
		return
	}
	if home, ok := m.current.(interface{ SetStatus(string) }); ok {
		home.SetStatus(status)
	}
}

// SwitchToLayout destroys the current layout (when the type differs),
// shows a transition screen, and creates the new layout. A switch in
// progress causes the call to be rejected; a rebuild that exceeds the
// transition timeout is logged as a stall and the transition screen is
// dismissed rather than left up indefinitely.
func (m *Manager) SwitchToLayout(newType layouts.Type, doc models.ConfigDocument) bool {
	if !newType.Valid() {
		m.logger.Error("Invalid layout type", zap.String("type", string(newType)))
		return false
	}

	m.mu.Lock()
	if m.transitioning {
		m.mu.Unlock()
		m.logger.Warn("Switch rejected, transition in progress",
			zap.String("requested", newType.Name()))
		return false
	}
	m.transitioning = true

	old := m.current
	oldType := m.currentType
	m.current = nil
	m.currentType = layouts.TypeNone

	m.logger.Info("Switching layout",
		zap.String("from", oldType.Name()),
		zap.String("to", newType.Name()))

	// Black transition screen covers the teardown/rebuild window.
	w, h := m.profile.Resolution()
	m.transition = ui.NewScreen(w, h)
	m.transition.SetStyle(ui.Style{Background: "#000000"})
	loading := ui.NewLabel(m.transition)
	loading.SetText("Loading...")
	m.mu.Unlock()

	// Reuse the existing instance when the type is unchanged so its
	// config cache can short-circuit identical rebuilds.
	next := old
	if oldType != newType || next == nil {
		if old != nil {
			m.layoutMu.Lock()
			old.DestroyTimers()
			old.Destroy()
			m.layoutMu.Unlock()
		}
		next = m.newLayout(newType, layouts.Env{Profile: m.profile, Logger: m.logger})
	}

	done := make(chan error, 1)
	go func() {
		m.layoutMu.Lock()
		defer m.layoutMu.Unlock()
		done <- next.Create(doc)
	}()

	var err error
	stalled := false
	select {
	case err = <-done:
	case <-time.After(m.stallTimeout):
		stalled = true
		m.logger.Error("Layout rebuild stalled, dismissing transition screen",
			zap.String("type", newType.Name()),
			zap.Duration("timeout", m.stallTimeout))
		// The stalled create still owns its timers; reap it whenever it
		// finally returns.
		go func(l layouts.Layout) {
			<-done
			m.layoutMu.Lock()
			defer m.layoutMu.Unlock()
			l.DestroyTimers()
			l.Destroy()
		}(next)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transition != nil {
		m.transition.Delete()
		m.transition = nil
	}
	m.transitioning = false

	if stalled {
		return false
	}
	if err != nil {
		m.logger.Error("Layout create failed",
			zap.String("type", newType.Name()),
			zap.Error(err))
		return false
	}

	m.current = next
	m.currentType = newType
	m.publishLocked()
	return true
}

// ApplyConfig routes a config document to the right layout, switching
// layout types when the document addresses a different one. No-op when
// the document addresses no known layout.
func (m *Manager) ApplyConfig(doc models.ConfigDocument) {
	newType := layouts.DetectType(doc)
	if newType == layouts.TypeNone {
		m.logger.Warn("Config document addresses no known layout")
		return
	}

	m.layoutMu.Lock()
	m.mu.Lock()
	sameType := m.currentType == newType && m.current != nil
	current := m.current
	m.mu.Unlock()

	if sameType {
		// Same layout type: let the layout's own cache decide whether
		// this is a rebuild or an in-place refresh.
		err := current.Create(doc)
		if err != nil {
			m.layoutMu.Unlock()
			m.logger.Error("Layout reconfigure failed", zap.Error(err))
			return
		}
		m.mu.Lock()
		m.publishLocked()
		m.mu.Unlock()
		m.layoutMu.Unlock()
		return
	}
	m.layoutMu.Unlock()

	m.SwitchToLayout(newType, doc)
}

// UpdateSensorData forwards sensor values to the active layout. No-op
// when no layout is active.
func (m *Manager) UpdateSensorData(payload models.SensorPayload) {
	m.layoutMu.Lock()
	defer m.layoutMu.Unlock()
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current == nil {
		return
	}
	current.Update(payload)

	m.mu.Lock()
	m.publishLocked()
	m.mu.Unlock()
}

// transitionInProgress reports whether a switch currently holds the
// transition screen.
func (m *Manager) transitionInProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitioning
}

// ActiveType returns the current layout type.
func (m *Manager) ActiveType() layouts.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentType
}

// SetRotation records a new display rotation; the next Create sees the
// change and rebuilds.
func (m *Manager) SetRotation(rotation int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile.Rotation = rotation
}

// Shutdown tears the active layout down.
func (m *Manager) Shutdown() {
	m.layoutMu.Lock()
	defer m.layoutMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.DestroyTimers()
		m.current.Destroy()
		m.current = nil
		m.currentType = layouts.TypeNone
	}
}

// publishLocked sends a render snapshot of the active screen. Callers
// hold m.mu.
func (m *Manager) publishLocked() {
	if m.sink == nil || m.current == nil || m.current.Screen() == nil {
		return
	}
	tree, err := json.Marshal(m.current.Screen())
	if err != nil {
		m.logger.Error("Failed to serialize widget tree", zap.Error(err))
		return
	}
	snapshot := &models.RenderSnapshot{
		UUID:        uuid.NewString(),
		DeviceID:    m.profile.DeviceID,
		Layout:      string(m.currentType),
		Tree:        tree,
		ProcessedAt: time.Now(),
	}
	if err := m.sink.PublishSnapshot(snapshot); err != nil {
		m.logger.Error("Failed to publish render snapshot", zap.Error(err))
	}
}

// ScreenDestination implementation

// ScreenID identifies the onboard display for payload routing.
func (m *Manager) ScreenID() string {
	return m.profile.ScreenKey
}

// MatchesScreenID reports whether a payload addressed to screenID is
// for the onboard display. An empty screenID falls through to the
// onboard display as well.
func (m *Manager) MatchesScreenID(screenID string) bool {
	return screenID == "" || screenID == m.profile.ScreenKey
}

// HandleConfig implements ScreenDestination.
func (m *Manager) HandleConfig(doc models.ConfigDocument) {
	m.ApplyConfig(doc)
}

// HandleSensors implements ScreenDestination.
func (m *Manager) HandleSensors(payload models.SensorPayload) {
	m.UpdateSensorData(payload)
}

// String describes the destination for logs.
func (m *Manager) String() string {
	return fmt.Sprintf("display-manager(%s)", m.profile.ScreenKey)
}
