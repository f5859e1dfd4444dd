package layouts

import (
	"github.com/junctionrelay/display-node/internal/ui"
	"github.com/junctionrelay/display-node/pkg/models"
)

// HomeScreen is the default screen shown before any junction pushes a
// layout: device name plus a connection status line.
type HomeScreen struct {
	base
	status *ui.Object
}

// NewHomeScreen returns an uninitialized home layout.
func NewHomeScreen(env Env) *HomeScreen {
	return &HomeScreen{base: newBase(env)}
}

// Type implements Layout.
func (l *HomeScreen) Type() Type { return TypeHome }

// Create implements Layout.
func (l *HomeScreen) Create(doc models.ConfigDocument) error {
	if !l.shouldRebuild(doc) {
		return nil
	}
	l.Destroy()

	cfg := DefaultHomeConfig()
	decodeSection(doc, string(TypeHome), &cfg)
	defaults := DefaultHomeConfig()
	cfg.TextColor = normalizeColor(cfg.TextColor, defaults.TextColor)
	cfg.BackgroundColor = normalizeColor(cfg.BackgroundColor, defaults.BackgroundColor)

	w, h := l.resolution()
	screen := ui.NewScreen(w, h)
	screen.SetStyle(ui.Style{Background: cfg.BackgroundColor})

	if cfg.ShowDeviceName {
		name := ui.NewLabel(screen)
		name.SetStyle(ui.Style{TextColor: cfg.TextColor, FontSize: 24, Align: "center"})
		name.SetText(l.env.Profile.Name)
	}

	l.status = ui.NewLabel(screen)
	l.status.SetStyle(ui.Style{TextColor: cfg.TextColor, FontSize: 16, Align: "center"})
	l.status.SetText("Connecting...")

	l.screen = screen
	l.created = true
	l.rebuilds++
	l.env.Logger.Info("Home screen created")
	return nil
}

// SetStatus updates the status line, the only dynamic element here.
func (l *HomeScreen) SetStatus(status string) {
	if !l.created || l.status == nil {
		return
	}
	l.status.SetText(status)
}

// Update implements Layout. The home screen has no sensor slots; a
// reading tagged "status" updates the status line, everything else is
// ignored.
func (l *HomeScreen) Update(payload models.SensorPayload) {
	if !l.created {
		return
	}
	if r, ok := payload.Sensors["status"]; ok && r.Text != "" {
		l.SetStatus(r.Text)
	}
}

// Destroy implements Layout.
func (l *HomeScreen) Destroy() {
	if !l.created {
		return
	}
	l.teardown()
	l.status = nil
}

// RegisterSensors implements Layout. The home screen maps no sensors.
func (l *HomeScreen) RegisterSensors(models.ConfigDocument) {}
