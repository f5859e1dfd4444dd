package layouts

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/ui"
	"github.com/junctionrelay/display-node/pkg/models"
)

// astroSlots is the fixed sensor capacity of the astro layout.
const astroSlots = 8

// AstroScreen is a terminal-style layout: a scrolling readout pane on
// one side logging every reading, and a summary column with the latest
// value per sensor on the other.
type AstroScreen struct {
	base
	cfg      AstroConfig
	terminal *ui.Object
	values   []*ui.Object

	linesMu sync.Mutex
	lines   []string
}

// NewAstroScreen returns an uninitialized astro layout.
func NewAstroScreen(env Env) *AstroScreen {
	return &AstroScreen{base: newBase(env)}
}

// Type implements Layout.
func (l *AstroScreen) Type() Type { return TypeAstro }

// Create implements Layout.
func (l *AstroScreen) Create(doc models.ConfigDocument) error {
	if !l.shouldRebuild(doc) {
		l.env.Logger.Debug("Astro config unchanged, skipping rebuild")
		l.RegisterSensors(doc)
		return nil
	}
	l.Destroy()

	cfg := DefaultAstroConfig()
	decodeSection(doc, string(TypeAstro), &cfg)
	defaults := DefaultAstroConfig()
	cfg.BorderColor = normalizeColor(cfg.BorderColor, defaults.BorderColor)
	cfg.BackgroundColor = normalizeColor(cfg.BackgroundColor, defaults.BackgroundColor)
	cfg.TextColor = normalizeColor(cfg.TextColor, defaults.TextColor)
	if cfg.TerminalWidthRatio <= 0 || cfg.TerminalWidthRatio >= 1 {
		cfg.TerminalWidthRatio = defaults.TerminalWidthRatio
	}
	if cfg.TerminalLines < 1 {
		cfg.TerminalLines = defaults.TerminalLines
	}
	l.cfg = cfg

	w, h := l.resolution()
	screen := ui.NewScreen(w, h)
	screen.SetStyle(ui.Style{Background: cfg.BackgroundColor})

	mw := w - cfg.LeftMargin - cfg.RightMargin
	mh := h - cfg.TopMargin - cfg.BottomMargin
	termW := int(float64(mw) * cfg.TerminalWidthRatio)

	termPane := ui.NewContainer(screen)
	termPane.SetGeometry(cfg.LeftMargin, cfg.TopMargin, termW, mh)
	if cfg.BorderVisible {
		termPane.SetStyle(ui.Style{
			BorderColor: cfg.BorderColor,
			BorderWidth: cfg.BorderThickness,
		})
	}

	l.terminal = ui.NewLabel(termPane)
	l.terminal.SetStyle(ui.Style{TextColor: cfg.TextColor, FontSize: 12, Align: "left"})
	l.terminal.SetGeometry(cfg.InnerPadding, cfg.InnerPadding,
		termW-cfg.InnerPadding*2, mh-cfg.InnerPadding*2)
	l.lines = nil

	descs := l.mapSensors(doc.SensorDescriptors(), astroSlots)
	l.values = make([]*ui.Object, len(descs))

	side := ui.NewContainer(screen)
	side.SetGeometry(cfg.LeftMargin+termW+cfg.OuterPadding, cfg.TopMargin,
		mw-termW-cfg.OuterPadding, mh)

	rowH := 0
	if len(descs) > 0 {
		rowH = mh / len(descs)
	}
	for i, desc := range descs {
		cell := ui.NewContainer(side)
		cell.SetGeometry(0, i*rowH, mw-termW-cfg.OuterPadding, rowH)

		name := ui.NewLabel(cell)
		name.SetStyle(ui.Style{TextColor: cfg.BorderColor, FontSize: 12, Align: "left"})
		name.SetText(desc.DisplayLabel())

		value := ui.NewLabel(cell)
		value.SetStyle(ui.Style{TextColor: cfg.TextColor, FontSize: 16, Align: "left"})
		value.SetText("N/A")
		l.values[i] = value
	}

	l.screen = screen
	l.created = true
	l.rebuilds++
	l.env.Logger.Info("Astro screen created",
		zap.Int("sensors", len(descs)),
		zap.Int("terminal_lines", cfg.TerminalLines))
	return nil
}

// Update implements Layout. Every mapped reading is appended to the
// terminal pane and reflected in its summary cell; unknown tags are
// ignored.
func (l *AstroScreen) Update(payload models.SensorPayload) {
	if !l.created {
		return
	}
	for tag, reading := range payload.Sensors {
		idx, ok := l.slotFor(tag)
		if !ok || idx >= len(l.values) || l.values[idx] == nil {
			continue
		}
		text := formatReading(reading)
		l.values[idx].SetText(text)
		l.appendLine(fmt.Sprintf("> %s %s", tag, text))
	}
}

func (l *AstroScreen) appendLine(line string) {
	l.linesMu.Lock()
	l.lines = append(l.lines, line)
	if len(l.lines) > l.cfg.TerminalLines {
		l.lines = l.lines[len(l.lines)-l.cfg.TerminalLines:]
	}
	text := strings.Join(l.lines, "\n")
	l.linesMu.Unlock()
	l.terminal.SetText(text)
}

// Destroy implements Layout.
func (l *AstroScreen) Destroy() {
	if !l.created {
		return
	}
	l.teardown()
	l.terminal = nil
	l.values = nil
	l.lines = nil
	l.env.Logger.Debug("Astro screen destroyed")
}

// RegisterSensors implements Layout.
func (l *AstroScreen) RegisterSensors(doc models.ConfigDocument) {
	l.mapSensors(doc.SensorDescriptors(), astroSlots)
}
