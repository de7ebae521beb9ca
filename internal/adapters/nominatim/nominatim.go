package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/httpx"
	"stop-route-service/internal/platform/obs"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "StopRouteService/1.0"
)

// Geocoder resolves addresses through a Nominatim /search endpoint.
// Requests are spaced by the rate limit interval (public instances allow 1 req/s).
type Geocoder struct {
	http        *httpx.Client
	baseURL     string
	rateLimiter *time.Ticker
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func New(baseURL, userAgent string, timeout, interval time.Duration, opts ...httpx.Option) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if interval <= 0 {
		interval = time.Second
	}

	opts = append([]httpx.Option{httpx.WithHeader("User-Agent", userAgent)}, opts...)

	return &Geocoder{
		http:        httpx.New(timeout, opts...),
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: time.NewTicker(interval),
	}
}

// Close stops the rate limiter.
func (g *Geocoder) Close() {
	g.rateLimiter.Stop()
}

func (g *Geocoder) Resolve(ctx context.Context, address string) (_ domain.GeoPoint, err error) {
	defer obs.Time(ctx, "nominatim.Resolve")(&err)

	q := strings.TrimSpace(address)
	if q == "" {
		return domain.GeoPoint{}, fmt.Errorf("resolve: empty address: %w", domain.ErrAddressNotFound)
	}

	endpoint := g.baseURL + "/search"

	resp, err := g.http.DoWithRetry(ctx, func() (*http.Request, error) {
		select {
		case <-g.rateLimiter.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		req, err := g.http.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		v := req.URL.Query()
		v.Set("q", q)
		v.Set("format", "json")
		v.Set("limit", "1")
		req.URL.RawQuery = v.Encode()
		return req, nil
	})
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	defer resp.Body.Close()

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(results) == 0 {
		return domain.GeoPoint{}, fmt.Errorf("no geocode results for %q: %w", address, domain.ErrAddressNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("invalid latitude %q for %q: %w", results[0].Lat, address, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("invalid longitude %q for %q: %w", results[0].Lon, address, err)
	}

	p := domain.GeoPoint{Lon: lon, Lat: lat}
	if !p.Valid() {
		return domain.GeoPoint{}, fmt.Errorf("out of range coordinate for %q: %w", address, domain.ErrInvalidLocation)
	}
	return p, nil
}
