package domain

import (
	"fmt"
	"strings"
)

// TravelMode selects how the aggregate duration is compensated.
// Providers are always queried in driving mode.
type TravelMode string

const (
	TravelModeDriving TravelMode = "driving"
	TravelModeCycling TravelMode = "cycling"
	TravelModeWalking TravelMode = "walking"
)

// TravelModes lists every supported mode.
var TravelModes = []TravelMode{TravelModeDriving, TravelModeCycling, TravelModeWalking}

// ParseTravelMode accepts a mode name case-insensitively; empty means driving.
func ParseTravelMode(s string) (TravelMode, error) {
	switch TravelMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", TravelModeDriving:
		return TravelModeDriving, nil
	case TravelModeCycling:
		return TravelModeCycling, nil
	case TravelModeWalking:
		return TravelModeWalking, nil
	}
	return "", fmt.Errorf("parse travel mode %q: %w", s, ErrInvalidTravelMode)
}

// Valid reports whether m is one of TravelModes.
func (m TravelMode) Valid() bool {
	switch m {
	case TravelModeDriving, TravelModeCycling, TravelModeWalking:
		return true
	}
	return false
}

// DurationFactor converts a driving-duration estimate into this mode.
func (m TravelMode) DurationFactor() float64 {
	switch m {
	case TravelModeWalking:
		return 3.0
	case TravelModeCycling:
		return 1.5
	default:
		return 1.0
	}
}

// Strategy names what produced the visiting order.
type Strategy string

const (
	// Order, geometry and metrics accepted from the trip provider.
	StrategyProvider Strategy = "provider"
	// Order from cheapest insertion, geometry stitched per leg.
	StrategyHeuristic Strategy = "heuristic"
	// Single destination, no ordering needed.
	StrategyDirect Strategy = "direct"
)

// One numbered position in the emitted route.
type Waypoint struct {
	StopID        string
	Label         string
	Address       string
	Position      GeoPoint
	DisplayNumber int
}

// Represents the computed route for one invocation.
// Waypoint 0 is always the start location; a designated end stop is always last.
// DurationSeconds is already compensated for Mode.
type RouteArtifact struct {
	Mode            TravelMode
	Strategy        Strategy
	FallbackReason  string
	Waypoints       []Waypoint
	Path            []GeoPoint
	DistanceMeters  float64
	DurationSeconds float64
	// Durations previously emitted for the same inputs in other modes.
	KnownDurations map[TravelMode]float64
}
