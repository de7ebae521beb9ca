package config

import (
	"errors"
	"fmt"
	"os"
	"stop-route-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
)

// Load reads .env into the process environment. A missing file is not an error.
func Load() {
	if err := godotenv.Load(); err != nil {
		_ = level.Info(obs.Logger()).Log("msg", "no .env file found (using environment variables)")
	}
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Config holds every setting the server reads at startup.
type Config struct {
	Port             string
	OSRMBaseURL      string
	SegmentProvider  string
	Geocoder         string
	ORSAPIKey        string
	ORSBaseURL       string
	NominatimBaseURL string
	GeocodeCache     string
	DBPath           string
	DatabaseURL      string
	RedisURL         string
	HTTPTimeout      time.Duration
}

// FromEnv builds a Config from the environment and validates the combinations.
func FromEnv() (Config, error) {
	c := Config{
		Port:             Get("PORT", "8080"),
		OSRMBaseURL:      Get("OSRM_BASE_URL", "https://router.project-osrm.org"),
		SegmentProvider:  strings.ToLower(Get("SEGMENT_PROVIDER", "osrm")),
		Geocoder:         strings.ToLower(Get("GEOCODER", "nominatim")),
		ORSAPIKey:        Get("ORS_API_KEY", ""),
		ORSBaseURL:       Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		NominatimBaseURL: Get("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocodeCache:     strings.ToLower(Get("GEOCODE_CACHE", "sqlite")),
		DBPath:           Get("DB_PATH", "data/geocode.db"),
		DatabaseURL:      Get("DATABASE_URL", ""),
		RedisURL:         Get("REDIS_URL", ""),
	}

	timeout, err := time.ParseDuration(Get("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("config: HTTP_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return Config{}, errors.New("config: HTTP_TIMEOUT must be positive")
	}
	c.HTTPTimeout = timeout

	switch c.SegmentProvider {
	case "osrm", "ors":
	default:
		return Config{}, fmt.Errorf("config: unknown SEGMENT_PROVIDER %q", c.SegmentProvider)
	}
	switch c.Geocoder {
	case "nominatim", "ors":
	default:
		return Config{}, fmt.Errorf("config: unknown GEOCODER %q", c.Geocoder)
	}
	if (c.SegmentProvider == "ors" || c.Geocoder == "ors") && c.ORSAPIKey == "" {
		return Config{}, errors.New("config: ORS_API_KEY is required when an ORS adapter is selected")
	}
	switch c.GeocodeCache {
	case "sqlite", "none":
	case "postgres":
		if c.DatabaseURL == "" {
			return Config{}, errors.New("config: DATABASE_URL is required when GEOCODE_CACHE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown GEOCODE_CACHE %q", c.GeocodeCache)
	}

	return c, nil
}
