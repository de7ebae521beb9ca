package services

import (
	"fmt"
	"stop-route-service/internal/domain"
)

// Orderer produces a visiting order for legs starting from start.
//
// When endStopID is non-empty the leg for that stop is placed last. The input
// slice is never modified; a freshly built slice is returned.
type Orderer interface {
	Order(start domain.GeoPoint, legs []domain.RouteLeg, endStopID string) ([]domain.RouteLeg, error)
}

// OrdererFunc adapts a plain function to Orderer.
type OrdererFunc func(start domain.GeoPoint, legs []domain.RouteLeg, endStopID string) ([]domain.RouteLeg, error)

func (f OrdererFunc) Order(start domain.GeoPoint, legs []domain.RouteLeg, endStopID string) ([]domain.RouteLeg, error) {
	return f(start, legs, endStopID)
}

var (
	NearestNeighborOrderer   Orderer = OrdererFunc(NearestNeighbor)
	CheapestInsertionOrderer Orderer = OrdererFunc(CheapestInsertion)
)

// splitEnd separates the end leg (matched by stop id) from the candidates.
// endIdx is -1 when no end was designated.
func splitEnd(legs []domain.RouteLeg, endStopID string) (candidates []int, endIdx int, err error) {
	endIdx = -1
	candidates = make([]int, 0, len(legs))
	for i, l := range legs {
		if endStopID != "" && l.Stop.ID == endStopID {
			if endIdx >= 0 {
				return nil, -1, fmt.Errorf("order legs: end stop %q: %w", endStopID, domain.ErrDuplicateStopID)
			}
			endIdx = i
			continue
		}
		candidates = append(candidates, i)
	}

	if endStopID != "" && endIdx < 0 {
		return nil, -1, fmt.Errorf("order legs: end stop %q is not among the legs", endStopID)
	}
	return candidates, endIdx, nil
}
