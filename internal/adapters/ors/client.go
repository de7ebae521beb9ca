package ors

import (
	"errors"
	"stop-route-service/internal/platform/httpx"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.openrouteservice.org"

// Client talks to OpenRouteService. It backs both the Geocoder and the
// SegmentProvider and is safe for concurrent use.
type Client struct {
	http    *httpx.Client
	baseURL string
	profile string
}

func NewClient(apiKey, baseURL string, timeout time.Duration, opts ...httpx.Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	opts = append([]httpx.Option{httpx.WithHeader("Authorization", apiKey)}, opts...)

	return &Client{
		http:    httpx.New(timeout, opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving-car",
	}, nil
}
