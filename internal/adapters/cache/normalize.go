package cache

import (
	"fmt"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/ports"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var fold = cases.Fold()

// NormalizeAddress produces a stable cache key for a free-text address:
// NFC-normalized, case-folded, with whitespace collapsed.
func NormalizeAddress(s string) string {
	s = norm.NFC.String(s)
	s = fold.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// SegmentKey identifies a routed segment. Coordinates are rounded to 5 decimals
// (~1m) so repeated requests for the same stops hit the cache.
func SegmentKey(profile ports.Profile, origin, destination domain.GeoPoint) string {
	return fmt.Sprintf("%s:%.5f,%.5f->%.5f,%.5f",
		profile, origin.Lon, origin.Lat, destination.Lon, destination.Lat)
}

// uniqueKeys trims keys and drops blanks and duplicates, preserving order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
