package services

import (
	"math"
	"stop-route-service/internal/domain"
)

// insertionNode is one position of the route under construction.
// leg is -1 for the start and end placeholders that seed the skeleton.
type insertionNode struct {
	point domain.GeoPoint
	leg   int
}

// CheapestInsertion orders legs with greedy cheapest insertion.
//
// The route is seeded as [start, end], or [start, start] as a closed loop when no end
// is designated. Each round inserts the (candidate, position) pair with the smallest
// detour dist(prev,c) + dist(c,next) - dist(prev,next). Ties go to the lowest
// candidate index, then to the position that adds least to the emitted open path
// (the loop's closing edge is dropped from the output), then to the lowest position.
func CheapestInsertion(start domain.GeoPoint, legs []domain.RouteLeg, endStopID string) ([]domain.RouteLeg, error) {
	candidates, endIdx, err := splitEnd(legs, endStopID)
	if err != nil {
		return nil, err
	}

	closing := start
	if endIdx >= 0 {
		closing = legs[endIdx].Destination
	}
	route := []insertionNode{
		{point: start, leg: -1},
		{point: closing, leg: -1},
	}

	used := make([]bool, len(legs))

	for range candidates {
		bestLeg, bestPos := -1, -1
		bestCost, bestOpen := math.Inf(1), math.Inf(1)

		for _, c := range candidates {
			if used[c] {
				continue
			}
			p := legs[c].Destination

			for pos := 0; pos < len(route)-1; pos++ {
				prev, next := route[pos].point, route[pos+1].point
				cost := domain.Haversine(prev, p) + domain.Haversine(p, next) - domain.Haversine(prev, next)

				open := cost
				if endIdx < 0 && pos == len(route)-2 {
					open = domain.Haversine(prev, p)
				}

				switch {
				case bestLeg < 0, cost < bestCost:
				case cost == bestCost && c == bestLeg && open < bestOpen:
				default:
					continue
				}
				bestLeg, bestPos = c, pos
				bestCost, bestOpen = cost, open
			}
		}

		used[bestLeg] = true
		route = insertAt(route, bestPos+1, insertionNode{point: legs[bestLeg].Destination, leg: bestLeg})
	}

	out := make([]domain.RouteLeg, 0, len(legs))
	for _, n := range route[1 : len(route)-1] {
		out = append(out, legs[n.leg])
	}
	if endIdx >= 0 {
		out = append(out, legs[endIdx])
	}

	return out, nil
}

func insertAt(route []insertionNode, at int, n insertionNode) []insertionNode {
	out := make([]insertionNode, 0, len(route)+1)
	out = append(out, route[:at]...)
	out = append(out, n)
	return append(out, route[at:]...)
}
