package domain

import "strings"

// Represents a user-entered destination.
// Stops are owned by the caller; the engine only reads them.
type Stop struct {
	ID         string
	Address    string
	Name       string
	Position   *GeoPoint
	Visited    bool
	IsEndPoint bool
}

// Active reports whether the stop takes part in route computation.
func (s Stop) Active() bool {
	return !s.Visited && strings.TrimSpace(s.Address) != ""
}

// Label is the display label: the name when set, else the address.
func (s Stop) Label() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return strings.TrimSpace(s.Address)
}

// A resolved destination paired with the stop it came from.
// Legs carry stop identity through reordering.
type RouteLeg struct {
	Destination GeoPoint
	Stop        Stop
}

// Positions returns the destinations of legs in order.
func Positions(legs []RouteLeg) []GeoPoint {
	out := make([]GeoPoint, 0, len(legs))
	for _, l := range legs {
		out = append(out, l.Destination)
	}
	return out
}
