package ors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"strings"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Resolve geocodes one address using OpenRouteService (/geocode/search).
func (c *Client) Resolve(ctx context.Context, address string) (_ domain.GeoPoint, err error) {
	defer obs.Time(ctx, "ors.Resolve")(&err)

	text := strings.Join(strings.Fields(address), " ")
	if text == "" {
		return domain.GeoPoint{}, fmt.Errorf("resolve: empty address: %w", domain.ErrAddressNotFound)
	}

	endpoint := c.baseURL + "/geocode/search"

	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := c.http.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", text)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.GeoPoint{}, fmt.Errorf("no geocode results for %q: %w", address, domain.ErrAddressNotFound)
	}

	p, ok := domain.GeoPointFromList(decoded.Features[0].Geometry.Coordinates)
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("invalid coordinate format for %q", address)
	}

	return p, nil
}
