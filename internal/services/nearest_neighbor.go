package services

import (
	"math"
	"stop-route-service/internal/domain"
)

// NearestNeighbor orders legs with a greedy nearest-neighbor walk.
//
// At each step the remaining leg closest (great-circle) to the current tail is
// appended. The end leg, if any, is held back and appended last. Ties go to the
// leg that appears first in the input.
func NearestNeighbor(start domain.GeoPoint, legs []domain.RouteLeg, endStopID string) ([]domain.RouteLeg, error) {
	candidates, endIdx, err := splitEnd(legs, endStopID)
	if err != nil {
		return nil, err
	}

	used := make([]bool, len(legs))
	out := make([]domain.RouteLeg, 0, len(legs))
	tail := start

	for range candidates {
		best := -1
		minDist := math.Inf(1)

		for _, i := range candidates {
			if used[i] {
				continue
			}
			d := domain.Haversine(tail, legs[i].Destination)
			// Strict comparison keeps the first leg in input order on ties.
			if best < 0 || d < minDist {
				minDist = d
				best = i
			}
		}

		used[best] = true
		out = append(out, legs[best])
		tail = legs[best].Destination
	}

	if endIdx >= 0 {
		out = append(out, legs[endIdx])
	}

	return out, nil
}
