package layouts

import (
	"strings"
	"testing"

	"github.com/junctionrelay/display-node/pkg/models"
)

const astroConfig = `{
	"lvgl_astro": {"terminal_lines": 3},
	"layout": [
		{"id": "alt", "label": "Altitude", "unit": "deg"},
		{"id": "az", "label": "Azimuth", "unit": "deg"}
	]
}`

func TestAstroTerminalBoundedScrollback(t *testing.T) {
	l := NewAstroScreen(testEnv())
	if err := l.Create(configDoc(t, astroConfig)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer l.Destroy()

	for i := 0; i < 5; i++ {
		l.Update(models.SensorPayload{Sensors: map[string]models.SensorReading{
			"alt": {Value: float64(i), Unit: "deg"},
		}})
	}

	text := l.terminal.Text()
	lines := strings.Split(text, "\n")
	if len(lines) != 3 {
		t.Fatalf("terminal lines = %d, want 3:\n%s", len(lines), text)
	}
	if lines[2] != "> alt 4 deg" {
		t.Errorf("last line = %q, want %q", lines[2], "> alt 4 deg")
	}
	if strings.Contains(text, "> alt 0 deg") {
		t.Error("oldest line must have scrolled out")
	}
}

func TestAstroSummaryTracksLatest(t *testing.T) {
	l := NewAstroScreen(testEnv())
	if err := l.Create(configDoc(t, astroConfig)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer l.Destroy()

	l.Update(models.SensorPayload{Sensors: map[string]models.SensorReading{
		"az": {Value: 182.5, Unit: "deg"},
	}})

	if got := l.values[1].Text(); got != "182.5 deg" {
		t.Errorf("azimuth = %q, want %q", got, "182.5 deg")
	}
	if got := l.values[0].Text(); got != "N/A" {
		t.Errorf("altitude = %q, want untouched N/A", got)
	}
}

func TestAstroRatioDefaultsOnBadConfig(t *testing.T) {
	l := NewAstroScreen(testEnv())
	doc := configDoc(t, `{"lvgl_astro": {"terminal_width_ratio": 7.5, "terminal_lines": 0}}`)
	if err := l.Create(doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer l.Destroy()

	if l.cfg.TerminalWidthRatio != DefaultAstroConfig().TerminalWidthRatio {
		t.Errorf("ratio = %v, want default", l.cfg.TerminalWidthRatio)
	}
	if l.cfg.TerminalLines != DefaultAstroConfig().TerminalLines {
		t.Errorf("lines = %v, want default", l.cfg.TerminalLines)
	}
}

func TestHomeStatusLine(t *testing.T) {
	l := NewHomeScreen(testEnv())
	if err := l.Create(configDoc(t, `{"lvgl_home": {}}`)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer l.Destroy()

	if got := l.status.Text(); got != "Connecting..." {
		t.Errorf("initial status = %q", got)
	}
	l.SetStatus("MQTT connected")
	if got := l.status.Text(); got != "MQTT connected" {
		t.Errorf("status = %q, want MQTT connected", got)
	}

	l.Update(models.SensorPayload{Sensors: map[string]models.SensorReading{
		"status": {Text: "Backend connected"},
	}})
	if got := l.status.Text(); got != "Backend connected" {
		t.Errorf("status via payload = %q, want Backend connected", got)
	}
}
