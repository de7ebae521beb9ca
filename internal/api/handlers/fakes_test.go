package handlers

import (
	"context"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/ports"
)

type fakeDurations struct{}

func (fakeDurations) Get(context.Context, string, domain.TravelMode) (ports.DurationEntry, bool, error) {
	return ports.DurationEntry{}, false, nil
}

func (fakeDurations) Put(context.Context, string, domain.TravelMode, ports.DurationEntry) error {
	return nil
}
