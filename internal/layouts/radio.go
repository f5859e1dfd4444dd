package layouts

import (
	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/ui"
	"github.com/junctionrelay/display-node/pkg/models"
)

// radioSlots is the fixed sensor capacity of the radio layout.
const radioSlots = 4

// RadioScreen is a tuner-style layout: one large primary readout with a
// station/source line, plus small secondary readouts underneath.
type RadioScreen struct {
	base
	cfg     RadioConfig
	station *ui.Object
	primary *ui.Object
	values  []*ui.Object
}

// NewRadioScreen returns an uninitialized radio layout.
func NewRadioScreen(env Env) *RadioScreen {
	return &RadioScreen{base: newBase(env)}
}

// Type implements Layout.
func (l *RadioScreen) Type() Type { return TypeRadio }

// Create implements Layout.
func (l *RadioScreen) Create(doc models.ConfigDocument) error {
	if !l.shouldRebuild(doc) {
		l.env.Logger.Debug("Radio config unchanged, skipping rebuild")
		l.RegisterSensors(doc)
		return nil
	}
	l.Destroy()

	cfg := DefaultRadioConfig()
	decodeSection(doc, string(TypeRadio), &cfg)
	defaults := DefaultRadioConfig()
	cfg.TextColor = normalizeColor(cfg.TextColor, defaults.TextColor)
	cfg.BackgroundColor = normalizeColor(cfg.BackgroundColor, defaults.BackgroundColor)
	cfg.AccentColor = normalizeColor(cfg.AccentColor, defaults.AccentColor)
	l.cfg = cfg

	w, h := l.resolution()
	screen := ui.NewScreen(w, h)
	screen.SetStyle(ui.Style{Background: cfg.BackgroundColor})

	descs := l.mapSensors(doc.SensorDescriptors(), radioSlots)
	l.values = make([]*ui.Object, len(descs))

	if cfg.ShowStationName {
		l.station = ui.NewLabel(screen)
		l.station.SetStyle(ui.Style{TextColor: cfg.AccentColor, FontSize: 20, Align: "center"})
		l.station.SetGeometry(0, cfg.TopMargin, w, 24)
	}

	// The first descriptor drives the large primary readout, the rest
	// sit on a secondary row.
	l.primary = ui.NewLabel(screen)
	l.primary.SetStyle(ui.Style{TextColor: cfg.TextColor, FontSize: 48, Align: "center"})
	l.primary.SetGeometry(0, h/3, w, h/3)
	l.primary.SetText("N/A")

	if len(descs) > 0 {
		l.values[0] = l.primary
		if l.station != nil {
			l.station.SetText(descs[0].DisplayLabel())
		}
	}

	if len(descs) > 1 {
		row := ui.NewContainer(screen)
		rowH := h / 4
		row.SetGeometry(0, h-rowH-cfg.BottomMargin, w, rowH)

		secW := w / (len(descs) - 1)
		for i, desc := range descs[1:] {
			cell := ui.NewContainer(row)
			cell.SetGeometry(i*secW, 0, secW, rowH)

			name := ui.NewLabel(cell)
			name.SetStyle(ui.Style{TextColor: cfg.AccentColor, FontSize: 14, Align: "center"})
			name.SetText(desc.DisplayLabel())

			value := ui.NewLabel(cell)
			value.SetStyle(ui.Style{TextColor: cfg.TextColor, FontSize: 18, Align: "center"})
			value.SetText("N/A")
			l.values[i+1] = value
		}
	}

	l.screen = screen
	l.created = true
	l.rebuilds++
	l.env.Logger.Info("Radio screen created", zap.Int("sensors", len(descs)))
	return nil
}

// Update implements Layout. Unknown sensor tags are ignored.
func (l *RadioScreen) Update(payload models.SensorPayload) {
	if !l.created {
		return
	}
	for tag, reading := range payload.Sensors {
		idx, ok := l.slotFor(tag)
		if !ok || idx >= len(l.values) || l.values[idx] == nil {
			continue
		}
		l.values[idx].SetText(formatReading(reading))
	}
}

// Destroy implements Layout.
func (l *RadioScreen) Destroy() {
	if !l.created {
		return
	}
	l.teardown()
	l.station = nil
	l.primary = nil
	l.values = nil
	l.env.Logger.Debug("Radio screen destroyed")
}

// RegisterSensors implements Layout.
func (l *RadioScreen) RegisterSensors(doc models.ConfigDocument) {
	l.mapSensors(doc.SensorDescriptors(), radioSlots)
}
