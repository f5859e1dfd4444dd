package display

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/pkg/models"
)

type fakeDestination struct {
	id      string
	configs []models.ConfigDocument
	sensors []models.SensorPayload
}

func (d *fakeDestination) ScreenID() string { return d.id }

func (d *fakeDestination) MatchesScreenID(screenID string) bool {
	return screenID == d.id
}

func (d *fakeDestination) HandleConfig(doc models.ConfigDocument) {
	d.configs = append(d.configs, doc)
}

func (d *fakeDestination) HandleSensors(payload models.SensorPayload) {
	d.sensors = append(d.sensors, payload)
}

// fallthroughDestination also claims payloads with no screenId, like the
// onboard display does.
type fallthroughDestination struct{ fakeDestination }

func (d *fallthroughDestination) MatchesScreenID(screenID string) bool {
	return screenID == "" || screenID == d.id
}

func TestRouterDeliversToMatchingDestination(t *testing.T) {
	r := NewRouter(zap.NewNop())
	onboard := &fallthroughDestination{fakeDestination{id: "onboard"}}
	quad := &fakeDestination{id: "0x70"}
	r.Register(onboard)
	r.Register(quad)

	r.RouteConfig("0x70", models.ConfigDocument{})
	if len(quad.configs) != 1 {
		t.Errorf("quad configs = %d, want 1", len(quad.configs))
	}
	if len(onboard.configs) != 0 {
		t.Errorf("onboard configs = %d, want 0", len(onboard.configs))
	}

	r.RouteSensors(models.SensorPayload{ScreenID: "0x70"})
	if len(quad.sensors) != 1 {
		t.Errorf("quad sensors = %d, want 1", len(quad.sensors))
	}
}

func TestRouterEmptyScreenIDFallsThrough(t *testing.T) {
	r := NewRouter(zap.NewNop())
	onboard := &fallthroughDestination{fakeDestination{id: "onboard"}}
	quad := &fakeDestination{id: "0x70"}
	r.Register(onboard)
	r.Register(quad)

	r.RouteConfig("", models.ConfigDocument{})
	if len(onboard.configs) != 1 {
		t.Errorf("onboard configs = %d, want 1", len(onboard.configs))
	}
	if len(quad.configs) != 0 {
		t.Errorf("quad configs = %d, want 0", len(quad.configs))
	}
}

func TestRouterFirstMatchWins(t *testing.T) {
	r := NewRouter(zap.NewNop())
	first := &fakeDestination{id: "shared"}
	second := &fakeDestination{id: "shared"}
	r.Register(first)
	r.Register(second)

	r.RouteSensors(models.SensorPayload{ScreenID: "shared"})
	if len(first.sensors) != 1 || len(second.sensors) != 0 {
		t.Errorf("delivery = (%d, %d), want (1, 0)", len(first.sensors), len(second.sensors))
	}
}

func TestRouteDecodesEnvelopes(t *testing.T) {
	r := NewRouter(zap.NewNop())
	quad := &fakeDestination{id: "0x70"}
	r.Register(quad)

	r.Route(models.Payload{
		Type: "config",
		Body: json.RawMessage(`{"screenId": "0x70", "lvgl_grid": {"rows": 1}}`),
	})
	if len(quad.configs) != 1 {
		t.Fatalf("configs = %d, want 1", len(quad.configs))
	}
	if got := quad.configs[0].ScreenID(); got != "0x70" {
		t.Errorf("screenId = %q, want 0x70", got)
	}

	r.Route(models.Payload{
		Type:     "sensor",
		ScreenID: "0x70",
		Body:     json.RawMessage(`{"sensors": {"temp": {"value": 21.5}}}`),
	})
	if len(quad.sensors) != 1 {
		t.Fatalf("sensors = %d, want 1", len(quad.sensors))
	}
	if got := quad.sensors[0].Sensors["temp"].Value; got != 21.5 {
		t.Errorf("temp = %v, want 21.5", got)
	}
}

func TestRouteIgnoresMalformedAndUnknownPayloads(t *testing.T) {
	r := NewRouter(zap.NewNop())
	quad := &fakeDestination{id: "0x70"}
	r.Register(quad)

	r.Route(models.Payload{Type: "config", ScreenID: "0x70", Body: json.RawMessage(`{broken`)})
	r.Route(models.Payload{Type: "firmware", ScreenID: "0x70", Body: json.RawMessage(`{}`)})

	if len(quad.configs) != 0 || len(quad.sensors) != 0 {
		t.Errorf("deliveries = (%d, %d), want none", len(quad.configs), len(quad.sensors))
	}
}
