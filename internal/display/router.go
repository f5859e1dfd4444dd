package display

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/junctionrelay/display-node/pkg/models"
)

// ScreenDestination is anything that can receive config and sensor
// payloads: the onboard display manager, a quad display unit, and so on.
type ScreenDestination interface {
	ScreenID() string
	MatchesScreenID(screenID string) bool
	HandleConfig(doc models.ConfigDocument)
	HandleSensors(payload models.SensorPayload)
}

// Router fans inbound payloads out to the first registered destination
// that claims their screenId. Destinations are registered during setup
// and never removed.
type Router struct {
	destinations []ScreenDestination
	logger       *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{logger: logger}
}

// Register adds a destination.
func (r *Router) Register(dest ScreenDestination) {
	r.destinations = append(r.destinations, dest)
	r.logger.Info("Registered screen destination", zap.String("screen_id", dest.ScreenID()))
}

// Route dispatches a decoded payload envelope by type.
func (r *Router) Route(payload models.Payload) {
	switch payload.Type {
	case "config":
		var doc models.ConfigDocument
		if err := json.Unmarshal(payload.Body, &doc); err != nil {
			r.logger.Error("Malformed config payload", zap.Error(err))
			return
		}
		screenID := payload.ScreenID
		if screenID == "" {
			screenID = doc.ScreenID()
		}
		r.RouteConfig(screenID, doc)
	case "sensor":
		var sp models.SensorPayload
		if err := json.Unmarshal(payload.Body, &sp); err != nil {
			r.logger.Error("Malformed sensor payload", zap.Error(err))
			return
		}
		if payload.ScreenID != "" {
			sp.ScreenID = payload.ScreenID
		}
		r.RouteSensors(sp)
	default:
		r.logger.Warn("Unknown payload type", zap.String("type", payload.Type))
	}
}

// RouteConfig delivers a config document to the first matching
// destination.
func (r *Router) RouteConfig(screenID string, doc models.ConfigDocument) {
	for _, dest := range r.destinations {
		if dest.MatchesScreenID(screenID) {
			dest.HandleConfig(doc)
			return
		}
	}
	r.logger.Warn("No destination for config payload", zap.String("screen_id", screenID))
}

// RouteSensors delivers a sensor payload to the first matching
// destination.
func (r *Router) RouteSensors(payload models.SensorPayload) {
	for _, dest := range r.destinations {
		if dest.MatchesScreenID(payload.ScreenID) {
			dest.HandleSensors(payload)
			return
		}
	}
	r.logger.Warn("No destination for sensor payload", zap.String("screen_id", payload.ScreenID))
}
