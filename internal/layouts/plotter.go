package layouts

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/ui"
	"github.com/junctionrelay/display-node/pkg/models"
)

// plotterSlots is the fixed chart capacity of the plotter layout.
const plotterSlots = 4

// PlotterScreen renders up to four scrolling line charts, one per
// sensor, each with a legend label and a live value label.
type PlotterScreen struct {
	base
	cfg     PlotterConfig
	charts  []*ui.Object
	values  []*ui.Object
	maxSeen []float64
}

// NewPlotterScreen returns an uninitialized plotter layout.
func NewPlotterScreen(env Env) *PlotterScreen {
	return &PlotterScreen{base: newBase(env)}
}

// Type implements Layout.
func (l *PlotterScreen) Type() Type { return TypePlotter }

// Create implements Layout.
func (l *PlotterScreen) Create(doc models.ConfigDocument) error {
	if !l.shouldRebuild(doc) {
		// Identical config and rotation: refresh the mapping and treat
		// the call as an update rather than rebuilding the tree.
		l.env.Logger.Debug("Plotter config unchanged, skipping rebuild")
		l.RegisterSensors(doc)
		return nil
	}
	l.Destroy()

	cfg := DefaultPlotterConfig()
	decodeSection(doc, string(TypePlotter), &cfg)
	defaults := DefaultPlotterConfig()
	cfg.TextColor = normalizeColor(cfg.TextColor, defaults.TextColor)
	cfg.BackgroundColor = normalizeColor(cfg.BackgroundColor, defaults.BackgroundColor)
	cfg.BorderColor = normalizeColor(cfg.BorderColor, defaults.BorderColor)
	if cfg.HistoryPoints < 2 {
		cfg.HistoryPoints = defaults.HistoryPoints
	}
	if cfg.ChartScrollSpeed <= 0 {
		cfg.ChartScrollSpeed = defaults.ChartScrollSpeed
	}
	l.cfg = cfg

	w, h := l.resolution()
	screen := ui.NewScreen(w, h)
	screen.SetStyle(ui.Style{Background: cfg.BackgroundColor})

	main := ui.NewContainer(screen)
	mw := w - cfg.LeftMargin - cfg.RightMargin
	mh := h - cfg.TopMargin - cfg.BottomMargin
	main.SetGeometry(cfg.LeftMargin, cfg.TopMargin, mw, mh)

	descs := l.mapSensors(doc.SensorDescriptors(), plotterSlots)
	l.charts = make([]*ui.Object, len(descs))
	l.values = make([]*ui.Object, len(descs))
	l.maxSeen = make([]float64, len(descs))

	rows, cols := 1, 1
	switch {
	case len(descs) == 2:
		cols = 2
	case len(descs) >= 3:
		rows, cols = 2, 2
	}
	pw := (mw - (cols-1)*cfg.OuterPadding) / cols
	ph := (mh - (rows-1)*cfg.OuterPadding) / rows

	for i, desc := range descs {
		r, c := i/cols, i%cols
		panel := ui.NewContainer(main)
		panel.SetGeometry(c*(pw+cfg.OuterPadding), r*(ph+cfg.OuterPadding), pw, ph)
		if cfg.BorderVisible {
			panel.SetStyle(ui.Style{
				BorderColor: cfg.BorderColor,
				BorderWidth: cfg.BorderThickness,
			})
		}

		chartH := ph - cfg.InnerPadding*2
		if cfg.ShowLegend && !cfg.LegendInside {
			chartH = (ph - cfg.InnerPadding*3) * 4 / 5
		}

		chart := ui.NewChart(panel, cfg.HistoryPoints)
		chart.SetGeometry(cfg.InnerPadding, cfg.InnerPadding, pw-cfg.InnerPadding*2, chartH)
		style := ui.Style{Background: cfg.BackgroundColor, TextColor: cfg.TextColor}
		if cfg.ChartOutline {
			style.BorderColor = cfg.BorderColor
			style.BorderWidth = 1
		}
		chart.SetStyle(style)
		chart.SetRange(0, 100)
		l.charts[i] = chart
		l.maxSeen[i] = 100

		if cfg.ShowLegend {
			name := ui.NewLabel(panel)
			name.SetStyle(ui.Style{TextColor: cfg.TextColor})
			if cfg.ShowUnits && desc.Unit != "" {
				name.SetText(fmt.Sprintf("%s (%s): ", desc.DisplayLabel(), desc.Unit))
			} else {
				name.SetText(fmt.Sprintf("%s: ", desc.DisplayLabel()))
			}

			value := ui.NewLabel(panel)
			value.SetStyle(ui.Style{TextColor: cfg.TextColor})
			value.SetText("N/A")
			l.values[i] = value
		}

		// One scroll timer per chart keeps the trace moving between
		// sensor updates by repeating the last value.
		ch := chart
		l.timers = append(l.timers, ui.NewTimer(
			time.Duration(cfg.ChartScrollSpeed)*time.Millisecond,
			ch.RepeatLast,
		))
	}

	l.screen = screen
	l.created = true
	l.rebuilds++
	l.env.Logger.Info("Plotter screen created",
		zap.Int("charts", len(descs)),
		zap.Int("history_points", cfg.HistoryPoints),
		zap.Int("scroll_ms", cfg.ChartScrollSpeed))
	return nil
}

// Update implements Layout. Unknown sensor tags are ignored.
func (l *PlotterScreen) Update(payload models.SensorPayload) {
	if !l.created {
		return
	}
	for tag, reading := range payload.Sensors {
		idx, ok := l.slotFor(tag)
		if !ok {
			l.env.Logger.Debug("Sensor tag not mapped, ignoring", zap.String("tag", tag))
			continue
		}
		l.applyReading(idx, reading)
	}
}

func (l *PlotterScreen) applyReading(idx int, reading models.SensorReading) {
	chart := l.charts[idx]
	if chart == nil {
		return
	}

	if math.IsNaN(reading.Value) {
		if l.values[idx] != nil {
			l.values[idx].SetText("N/A")
		}
		return
	}

	chart.SetLast(reading.Value)
	chart.PushValue(reading.Value)

	// Grow the y range when a value escapes it, with headroom.
	if reading.Value > l.maxSeen[idx] {
		l.maxSeen[idx] = reading.Value * 1.2
		chart.SetRange(0, l.maxSeen[idx])
	}

	if l.values[idx] != nil {
		text := reading.Text
		if text == "" {
			text = strconv.FormatFloat(reading.Value, 'f', -1, 64)
		}
		if reading.Unit != "" {
			text += " " + reading.Unit
		}
		l.values[idx].SetText(text)
	}
}

// Destroy implements Layout.
func (l *PlotterScreen) Destroy() {
	if !l.created {
		return
	}
	l.teardown()
	l.charts = nil
	l.values = nil
	l.maxSeen = nil
	l.env.Logger.Debug("Plotter screen destroyed")
}

// RegisterSensors implements Layout.
func (l *PlotterScreen) RegisterSensors(doc models.ConfigDocument) {
	l.mapSensors(doc.SensorDescriptors(), plotterSlots)
}
