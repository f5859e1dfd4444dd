package layouts

import (
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/ui"
	"github.com/junctionrelay/display-node/pkg/models"
)

// GridScreen renders a rows-by-columns grid of label/value cells.
type GridScreen struct {
	base
	cfg    GridConfig
	values []*ui.Object
}

// NewGridScreen returns an uninitialized grid layout.
func NewGridScreen(env Env) *GridScreen {
	return &GridScreen{base: newBase(env)}
}

// Type implements Layout.
func (l *GridScreen) Type() Type { return TypeGrid }

// Create implements Layout.
func (l *GridScreen) Create(doc models.ConfigDocument) error {
	if !l.shouldRebuild(doc) {
		l.env.Logger.Debug("Grid config unchanged, skipping rebuild")
		l.RegisterSensors(doc)
		return nil
	}
	l.Destroy()

	cfg := DefaultGridConfig()
	decodeSection(doc, string(TypeGrid), &cfg)
	defaults := DefaultGridConfig()
	cfg.BackgroundColor = normalizeColor(cfg.BackgroundColor, defaults.BackgroundColor)
	cfg.BorderColor = normalizeColor(cfg.BorderColor, defaults.BorderColor)
	cfg.TextColor = normalizeColor(cfg.TextColor, defaults.TextColor)
	if cfg.Rows < 1 {
		cfg.Rows = defaults.Rows
	}
	if cfg.Columns < 1 {
		cfg.Columns = defaults.Columns
	}
	l.cfg = cfg

	w, h := l.resolution()
	screen := ui.NewScreen(w, h)
	screen.SetStyle(ui.Style{Background: cfg.BackgroundColor})

	descs := l.mapSensors(doc.SensorDescriptors(), cfg.Rows*cfg.Columns)
	l.values = make([]*ui.Object, len(descs))

	labelSize := parseFontSize(cfg.LabelSize, 24)
	valueSize := parseFontSize(cfg.ValueSize, 24)

	cellW := (w - cfg.LeftMargin - cfg.RightMargin - (cfg.Columns-1)*cfg.OuterPadding) / cfg.Columns
	cellH := (h - cfg.TopMargin - cfg.BottomMargin - (cfg.Rows-1)*cfg.OuterPadding) / cfg.Rows

	for i, desc := range descs {
		r, c := i/cfg.Columns, i%cfg.Columns
		cell := ui.NewContainer(screen)
		cell.SetGeometry(
			cfg.LeftMargin+c*(cellW+cfg.OuterPadding),
			cfg.TopMargin+r*(cellH+cfg.OuterPadding),
			cellW, cellH)
		if cfg.BorderVisible {
			cell.SetStyle(ui.Style{
				BorderColor: cfg.BorderColor,
				BorderWidth: cfg.BorderThickness,
			})
		}

		name := ui.NewLabel(cell)
		name.SetStyle(ui.Style{
			TextColor: cfg.TextColor,
			FontSize:  labelSize,
			Align:     cfg.TextAlignment,
		})
		name.SetText(desc.DisplayLabel())

		value := ui.NewLabel(cell)
		value.SetStyle(ui.Style{
			TextColor: cfg.TextColor,
			FontSize:  valueSize,
			Align:     cfg.TextAlignment,
		})
		value.SetText("N/A")
		l.values[i] = value
	}

	l.screen = screen
	l.created = true
	l.rebuilds++
	l.env.Logger.Info("Grid screen created",
		zap.Int("rows", cfg.Rows),
		zap.Int("columns", cfg.Columns),
		zap.Int("cells", len(descs)))
	return nil
}

// Update implements Layout. Unknown sensor tags are ignored.
func (l *GridScreen) Update(payload models.SensorPayload) {
	if !l.created {
		return
	}
	for tag, reading := range payload.Sensors {
		idx, ok := l.slotFor(tag)
		if !ok || l.values[idx] == nil {
			continue
		}
		l.values[idx].SetText(formatReading(reading))
	}
}

// Destroy implements Layout.
func (l *GridScreen) Destroy() {
	if !l.created {
		return
	}
	l.teardown()
	l.values = nil
	l.env.Logger.Debug("Grid screen destroyed")
}

// RegisterSensors implements Layout.
func (l *GridScreen) RegisterSensors(doc models.ConfigDocument) {
	l.mapSensors(doc.SensorDescriptors(), l.cfg.Rows*l.cfg.Columns)
}

// formatReading renders a sensor reading for a value label. NaN values
// render as a placeholder rather than a number.
func formatReading(r models.SensorReading) string {
	text := r.Text
	if text == "" {
		if math.IsNaN(r.Value) {
			text = "N/A"
		} else {
			text = strconv.FormatFloat(r.Value, 'f', -1, 64)
		}
	}
	if r.Unit != "" {
		return fmt.Sprintf("%s %s", text, r.Unit)
	}
	return text
}
