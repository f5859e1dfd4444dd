// Package layouts implements the node's screen layouts. Each layout owns
// a widget tree, builds itself from a config document, updates in place
// from sensor payloads, and tears itself down. Exactly one layout is
// active at a time; the display manager enforces that.
package layouts

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/internal/device"
	"github.com/junctionrelay/display-node/internal/ui"
	"github.com/junctionrelay/display-node/pkg/models"
)

// Type identifies a layout implementation by its config-document key.
type Type string

const (
	TypeNone    Type = ""
	TypeHome    Type = "lvgl_home"
	TypeGrid    Type = "lvgl_grid"
	TypePlotter Type = "lvgl_plotter"
	TypeRadio   Type = "lvgl_radio"
	TypeAstro   Type = "lvgl_astro"
)

// Name returns a short human-readable layout name for logs.
func (t Type) Name() string {
	switch t {
	case TypeHome:
		return "HOME"
	case TypeGrid:
		return "GRID"
	case TypePlotter:
		return "PLOTTER"
	case TypeRadio:
		return "RADIO"
	case TypeAstro:
		return "ASTRO"
	default:
		return "NONE"
	}
}

// Valid reports whether t names a known layout implementation.
func (t Type) Valid() bool {
	switch t {
	case TypeHome, TypeGrid, TypePlotter, TypeRadio, TypeAstro:
		return true
	default:
		return false
	}
}

// DetectType returns the layout type a config document addresses, by the
// presence of its section key. Documents naming several sections resolve
// to the first match in a fixed order.
func DetectType(doc models.ConfigDocument) Type {
	for _, t := range []Type{TypePlotter, TypeGrid, TypeRadio, TypeAstro, TypeHome} {
		if doc.Section(string(t)) != nil {
			return t
		}
	}
	return TypeNone
}

// Layout is the lifecycle contract every screen layout satisfies.
// States run Uninitialized -> Created -> Destroyed; a destroyed layout
// is discarded, never recreated in place.
type Layout interface {
	// Create builds the widget tree from the config document. Calling
	// Create again with a byte-identical document and unchanged rotation
	// routes to Update instead of rebuilding.
	Create(doc models.ConfigDocument) error
	// Update applies sensor values in place. No-op unless created.
	Update(payload models.SensorPayload)
	// Destroy deletes the widget tree and all timers. Idempotent.
	Destroy()
	// DestroyTimers stops periodic timers without touching the tree.
	DestroyTimers()
	// RegisterSensors rebuilds the sensor-tag to slot mapping.
	RegisterSensors(doc models.ConfigDocument)

	IsCreated() bool
	IsDestroyed() bool
	Screen() *ui.Object
	Type() Type
}

// Env carries the dependencies every layout needs.
type Env struct {
	Profile *device.Profile
	Logger  *zap.Logger
}

// New constructs an uninitialized layout of the given type.
func New(t Type, env Env) Layout {
	switch t {
	case TypeHome:
		return NewHomeScreen(env)
	case TypeGrid:
		return NewGridScreen(env)
	case TypePlotter:
		return NewPlotterScreen(env)
	case TypeRadio:
		return NewRadioScreen(env)
	case TypeAstro:
		return NewAstroScreen(env)
	default:
		return nil
	}
}

// base carries the lifecycle state shared by all layouts.
type base struct {
	env        Env
	screen     *ui.Object
	timers     []*ui.Timer
	tagToSlot  map[string]int
	created    bool
	lastConfig string
	lastRot    int
	rebuilds   int
}

func newBase(env Env) base {
	return base{env: env, tagToSlot: map[string]int{}}
}

// shouldRebuild reports whether Create must rebuild the tree, comparing
// the serialized document and the device rotation against the previous
// Create. It records the new fingerprint when a rebuild is due.
func (b *base) shouldRebuild(doc models.ConfigDocument) bool {
	serialized := fingerprint(doc)
	rot := b.env.Profile.Rotation
	if b.created && serialized == b.lastConfig && rot == b.lastRot {
		return false
	}
	b.lastConfig = serialized
	b.lastRot = rot
	return true
}

// teardown deletes the screen and clears lifecycle state.
func (b *base) teardown() {
	if !b.created {
		return
	}
	b.stopTimers()
	if b.screen != nil {
		b.screen.Delete()
		b.screen = nil
	}
	b.tagToSlot = map[string]int{}
	b.created = false
}

func (b *base) stopTimers() {
	for _, t := range b.timers {
		t.Stop()
	}
	b.timers = nil
}

func (b *base) IsCreated() bool    { return b.created }
func (b *base) IsDestroyed() bool  { return !b.created }
func (b *base) Screen() *ui.Object { return b.screen }
func (b *base) DestroyTimers()     { b.stopTimers() }

// Rebuilds counts full widget-tree rebuilds, exposed for tests.
func (b *base) Rebuilds() int { return b.rebuilds }

// slotFor resolves a sensor tag to its slot index.
func (b *base) slotFor(tag string) (int, bool) {
	idx, ok := b.tagToSlot[tag]
	return idx, ok
}

// mapSensors fills the tag-to-slot map from descriptors, indexing by ID
// and, where distinct, by label.
func (b *base) mapSensors(descs []models.SensorDescriptor, maxSlots int) []models.SensorDescriptor {
	if maxSlots > 0 && len(descs) > maxSlots {
		b.env.Logger.Warn("Sensor count exceeds layout capacity, clamping",
			zap.Int("sensors", len(descs)),
			zap.Int("capacity", maxSlots))
		descs = descs[:maxSlots]
	}
	b.tagToSlot = map[string]int{}
	for i, d := range descs {
		b.tagToSlot[d.ID] = i
		if d.Label != "" && d.Label != d.ID {
			b.tagToSlot[d.Label] = i
		}
	}
	return descs
}

// fingerprint serializes a config document for change detection. Map
// keys marshal in sorted order, so identical documents serialize
// identically.
func fingerprint(doc models.ConfigDocument) string {
	data, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(data)
}

// resolution returns the rotated screen size.
func (b *base) resolution() (int, int) {
	return b.env.Profile.Resolution()
}
