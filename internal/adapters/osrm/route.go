package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"
)

type routeResponse struct {
	envelope
	Routes []struct {
		Geometry geometry `json:"geometry"`
		Distance float64  `json:"distance"`
		Duration float64  `json:"duration"`
	} `json:"routes"`
}

func unreachableCode(code string) bool {
	return code == "NoRoute" || code == "NoSegment"
}

// Segment routes origin -> destination through /route/v1/{profile}.
func (c *Client) Segment(
	ctx context.Context,
	profile ports.Profile,
	origin, destination domain.GeoPoint,
) (_ ports.Segment, err error) {
	defer obs.Time(ctx, "osrm.Segment")(&err)

	endpoint := fmt.Sprintf("%s/route/v1/%s/%s", c.baseURL, profile,
		coordinateList([]domain.GeoPoint{origin, destination}))

	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := c.http.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("overview", "full")
		q.Set("geometries", "geojson")
		q.Set("steps", "false")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		if code, ok := errorCode(err); ok && unreachableCode(code) {
			return ports.Segment{}, fmt.Errorf("osrm route: %s: %w", code, domain.ErrSegmentUnreachable)
		}
		return ports.Segment{}, fmt.Errorf("osrm route: %w", err)
	}
	defer resp.Body.Close()

	var decoded routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.Segment{}, fmt.Errorf("decode route response: %w", err)
	}

	if unreachableCode(decoded.Code) || (decoded.Code == "Ok" && len(decoded.Routes) == 0) {
		return ports.Segment{}, fmt.Errorf("osrm route: %s: %w", decoded.Code, domain.ErrSegmentUnreachable)
	}
	if decoded.Code != "Ok" {
		return ports.Segment{}, fmt.Errorf("osrm route: code %s: %s", decoded.Code, decoded.Message)
	}

	r := decoded.Routes[0]
	path, err := decodePath(r.Geometry)
	if err != nil {
		return ports.Segment{}, fmt.Errorf("osrm route: %w", err)
	}
	if len(path) == 0 {
		return ports.Segment{}, fmt.Errorf("osrm route: empty geometry: %w", domain.ErrSegmentUnreachable)
	}

	return ports.Segment{
		Path:            path,
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
	}, nil
}
