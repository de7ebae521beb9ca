package osrm

import (
	"encoding/json"
	"errors"
	"fmt"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/httpx"
	"strings"
	"time"
)

const DefaultBaseURL = "https://router.project-osrm.org"

// Client talks to an OSRM-compatible server. It implements both
// ports.TripProvider and ports.SegmentProvider and is safe for concurrent use.
type Client struct {
	http    *httpx.Client
	baseURL string
}

func NewClient(baseURL string, timeout time.Duration, opts ...httpx.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpx.New(timeout, opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type geometry struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// Fields shared by every OSRM response. Message is set when Code is not "Ok".
type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// coordinateList renders points in OSRM's "lon,lat;lon,lat" path form.
func coordinateList(points []domain.GeoPoint) string {
	parts := make([]string, 0, len(points))
	for _, p := range points {
		parts = append(parts, fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat))
	}
	return strings.Join(parts, ";")
}

func decodePath(g geometry) ([]domain.GeoPoint, error) {
	out := make([]domain.GeoPoint, 0, len(g.Coordinates))
	for _, c := range g.Coordinates {
		p, ok := domain.GeoPointFromList(c)
		if !ok {
			return nil, fmt.Errorf("invalid coordinate %v", c)
		}
		out = append(out, p)
	}
	return out, nil
}

// errorCode extracts the OSRM code from a non-2xx response body.
// OSRM answers NoRoute, NoTrips and InvalidQuery with HTTP 400.
func errorCode(err error) (string, bool) {
	var se *httpx.StatusError
	if !errors.As(err, &se) {
		return "", false
	}
	var env envelope
	if json.Unmarshal([]byte(se.Body), &env) != nil || env.Code == "" {
		return "", false
	}
	return env.Code, true
}
