package layouts

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/junctionrelay/display-node/pkg/models"
)

// Typed per-layout configuration, parsed once at the payload boundary.
// Defaults live here and nowhere else; a missing or malformed section
// simply yields the defaults.

// PlotterConfig configures the scrolling chart layout ("lvgl_plotter").
type PlotterConfig struct {
	TextColor       string `json:"text_color"`
	BackgroundColor string `json:"background_color"`
	BorderColor     string `json:"border_color"`
	TopMargin       int    `json:"top_margin"`
	BottomMargin    int    `json:"bottom_margin"`
	LeftMargin      int    `json:"left_margin"`
	RightMargin     int    `json:"right_margin"`
	InnerPadding    int    `json:"inner_padding"`
	OuterPadding    int    `json:"outer_padding"`
	BorderVisible   bool   `json:"border_visible"`
	BorderThickness int    `json:"border_thickness"`

	ShowLegend       bool `json:"show_legend"`
	LegendInside     bool `json:"position_legend_inside"`
	ChartOutline     bool `json:"chart_outline_visible"`
	HistoryPoints    int  `json:"history_points_to_show"`
	GridDensity      int  `json:"grid_density"`
	ShowUnits        bool `json:"show_units"`
	ChartScrollSpeed int  `json:"chart_scroll_speed"` // ms per shift
}

// DefaultPlotterConfig returns the plotter defaults.
func DefaultPlotterConfig() PlotterConfig {
	return PlotterConfig{
		TextColor:        "#FFFFFF",
		BackgroundColor:  "#000000",
		BorderColor:      "#444444",
		TopMargin:        10,
		BottomMargin:     10,
		LeftMargin:       10,
		RightMargin:      10,
		InnerPadding:     5,
		OuterPadding:     10,
		BorderVisible:    true,
		BorderThickness:  1,
		ShowLegend:       true,
		ChartOutline:     true,
		HistoryPoints:    100,
		GridDensity:      5,
		ShowUnits:        true,
		ChartScrollSpeed: 100,
	}
}

// GridConfig configures the label/value grid layout ("lvgl_grid").
type GridConfig struct {
	Rows            int    `json:"rows"`
	Columns         int    `json:"columns"`
	TopMargin       int    `json:"top_margin"`
	BottomMargin    int    `json:"bottom_margin"`
	LeftMargin      int    `json:"left_margin"`
	RightMargin     int    `json:"right_margin"`
	OuterPadding    int    `json:"outer_padding"`
	InnerPadding    int    `json:"inner_padding"`
	BorderVisible   bool   `json:"border_visible"`
	BorderThickness int    `json:"border_thickness"`
	RoundedCorners  bool   `json:"rounded_corners"`
	OpacityPercent  int    `json:"opacity_percentage"`
	TextAlignment   string `json:"text_alignment"`
	LabelSize       string `json:"label_size"`
	ValueSize       string `json:"value_size"`
	BackgroundColor string `json:"background_color"`
	BorderColor     string `json:"border_color"`
	TextColor       string `json:"text_color"`
	ShowUnits       bool   `json:"show_units"`
}

// DefaultGridConfig returns the grid defaults.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Rows:            2,
		Columns:         2,
		BorderThickness: 1,
		OpacityPercent:  100,
		TextAlignment:   "center",
		LabelSize:       "24px",
		ValueSize:       "24px",
		BackgroundColor: "#000000",
		BorderColor:     "#ffffff",
		TextColor:       "#ffffff",
	}
}

// RadioConfig configures the radio tuner layout ("lvgl_radio").
type RadioConfig struct {
	TextColor       string `json:"text_color"`
	BackgroundColor string `json:"background_color"`
	AccentColor     string `json:"accent_color"`
	TopMargin       int    `json:"top_margin"`
	BottomMargin    int    `json:"bottom_margin"`
	ShowStationName bool   `json:"show_station_name"`
	ShowUnits       bool   `json:"show_units"`
}

// DefaultRadioConfig returns the radio defaults.
func DefaultRadioConfig() RadioConfig {
	return RadioConfig{
		TextColor:       "#FFFFFF",
		BackgroundColor: "#000000",
		AccentColor:     "#00AAFF",
		TopMargin:       10,
		BottomMargin:    10,
		ShowStationName: true,
	}
}

// AstroConfig configures the terminal-style layout ("lvgl_astro").
type AstroConfig struct {
	TopMargin          int     `json:"top_margin"`
	RightMargin        int     `json:"right_margin"`
	BottomMargin       int     `json:"bottom_margin"`
	LeftMargin         int     `json:"left_margin"`
	OuterPadding       int     `json:"outer_padding"`
	InnerPadding       int     `json:"inner_padding"`
	BorderVisible      bool    `json:"border_visible"`
	BorderThickness    int     `json:"border_thickness"`
	RoundedCorners     bool    `json:"rounded_corners"`
	TerminalWidthRatio float64 `json:"terminal_width_ratio"`
	TerminalLines      int     `json:"terminal_lines"`
	BorderColor        string  `json:"border_color"`
	BackgroundColor    string  `json:"background_color"`
	TextColor          string  `json:"text_color"`
}

// DefaultAstroConfig returns the astro defaults.
func DefaultAstroConfig() AstroConfig {
	return AstroConfig{
		TopMargin:          10,
		RightMargin:        10,
		BottomMargin:       10,
		LeftMargin:         10,
		OuterPadding:       10,
		InnerPadding:       5,
		BorderVisible:      true,
		BorderThickness:    1,
		TerminalWidthRatio: 0.6,
		TerminalLines:      12,
		BorderColor:        "#444444",
		BackgroundColor:    "#000000",
		TextColor:          "#00FF00",
	}
}

// HomeConfig configures the default home screen ("lvgl_home").
type HomeConfig struct {
	TextColor       string `json:"text_color"`
	BackgroundColor string `json:"background_color"`
	ShowDeviceName  bool   `json:"show_device_name"`
}

// DefaultHomeConfig returns the home screen defaults.
func DefaultHomeConfig() HomeConfig {
	return HomeConfig{
		TextColor:       "#FFFFFF",
		BackgroundColor: "#000000",
		ShowDeviceName:  true,
	}
}

// decodeSection fills dst (prefilled with defaults) from the named
// section of the config document. Absent or malformed sections leave the
// defaults in place.
func decodeSection(doc models.ConfigDocument, key string, dst any) {
	raw := doc.Section(key)
	if raw == nil {
		return
	}
	// Errors are deliberately swallowed: a bad section means defaults.
	_ = json.Unmarshal(raw, dst)
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// normalizeColor validates a "#RRGGBB" string, returning fallback for
// anything else.
func normalizeColor(c, fallback string) string {
	if hexColorRe.MatchString(c) {
		return strings.ToUpper(c)
	}
	return fallback
}

// parseFontSize parses sizes like "24px" or "18", returning def when the
// string is unusable.
func parseFontSize(s string, def int) int {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return def
}
