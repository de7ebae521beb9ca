package dto

import "github.com/paulmach/orb/geojson"

type LocationRequest struct {
	Lon   *float64 `json:"lon"`
	Lat   *float64 `json:"lat"`
	Label string   `json:"label"`
}

type StopRequest struct {
	ID         string   `json:"id"`
	Address    string   `json:"address"`
	Name       string   `json:"name"`
	Lon        *float64 `json:"lon,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Visited    bool     `json:"visited"`
	IsEndPoint bool     `json:"is_end_point"`
}

type RouteRequest struct {
	SessionID       string           `json:"session_id"`
	CurrentLocation *LocationRequest `json:"current_location"`
	Stops           []StopRequest    `json:"stops"`
	TravelMode      string           `json:"travel_mode"`
}

type WaypointResponse struct {
	DisplayNumber int     `json:"display_number"`
	StopID        string  `json:"stop_id,omitempty"`
	Label         string  `json:"label"`
	Address       string  `json:"address,omitempty"`
	Lon           float64 `json:"lon"`
	Lat           float64 `json:"lat"`
}

type RouteResponse struct {
	Strategy        string             `json:"strategy"`
	FallbackReason  string             `json:"fallback_reason,omitempty"`
	TravelMode      string             `json:"travel_mode"`
	DistanceMeters  float64            `json:"distance_meters"`
	DurationSeconds float64            `json:"duration_seconds"`
	KnownDurations  map[string]float64 `json:"known_durations,omitempty"`
	Waypoints       []WaypointResponse `json:"waypoints"`
	Path            *geojson.Feature   `json:"path"`
}
