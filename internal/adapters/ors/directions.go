package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/httpx"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry   geojson.Geometry `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// Segment routes origin -> destination via /v2/directions/{profile}/geojson.
// ORS answers 404 when either point cannot be snapped to the road network;
// that is reported as domain.ErrSegmentUnreachable.
func (c *Client) Segment(
	ctx context.Context,
	_ ports.Profile,
	origin, destination domain.GeoPoint,
) (_ ports.Segment, err error) {
	defer obs.Time(ctx, "ors.Segment")(&err)

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, c.profile)

	body, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{origin.CoordsToList(), destination.CoordsToList()},
	})
	if err != nil {
		return ports.Segment{}, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		return c.http.NewRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	})
	if err != nil {
		var se *httpx.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return ports.Segment{}, fmt.Errorf("ors directions: %s: %w", se.Body, domain.ErrSegmentUnreachable)
		}
		return ports.Segment{}, fmt.Errorf("ors directions: %w", err)
	}
	defer resp.Body.Close()

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.Segment{}, fmt.Errorf("decode directions response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return ports.Segment{}, fmt.Errorf("ors directions: no route: %w", domain.ErrSegmentUnreachable)
	}

	f := decoded.Features[0]
	ls, ok := f.Geometry.Geometry().(orb.LineString)
	if !ok || len(ls) == 0 {
		return ports.Segment{}, fmt.Errorf("ors directions: empty geometry: %w", domain.ErrSegmentUnreachable)
	}

	path := make([]domain.GeoPoint, 0, len(ls))
	for _, pt := range ls {
		path = append(path, domain.GeoPoint{Lon: pt.Lon(), Lat: pt.Lat()})
	}

	return ports.Segment{
		Path:            path,
		DistanceMeters:  f.Properties.Summary.Distance,
		DurationSeconds: f.Properties.Summary.Duration,
	}, nil
}
