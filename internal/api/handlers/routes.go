package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"stop-route-service/internal/api/dto"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"
	"stop-route-service/internal/services"

	"github.com/go-kit/log/level"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RouteComputer is the engine behind POST /routes.
type RouteComputer interface {
	ComputeRoute(ctx context.Context, req services.ComputeRouteRequest) (*domain.RouteArtifact, error)
}

type RouteHandler struct {
	Routes    RouteComputer
	Durations ports.DurationCache
}

// Compute orders the requested stops and returns the route with its path.
func (h *RouteHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req dto.RouteRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if req.CurrentLocation == nil || req.CurrentLocation.Lon == nil || req.CurrentLocation.Lat == nil {
		writeError(w, r, http.StatusBadRequest, "current_location with lon and lat is required")
		return
	}

	mode, err := domain.ParseTravelMode(req.TravelMode)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	svcReq := services.ComputeRouteRequest{
		Start: services.CurrentLocation{
			Position: domain.GeoPoint{Lon: *req.CurrentLocation.Lon, Lat: *req.CurrentLocation.Lat},
			Label:    req.CurrentLocation.Label,
		},
		Stops: make([]domain.Stop, 0, len(req.Stops)),
		Mode:  mode,
	}
	if req.SessionID != "" {
		svcReq.Session = req.SessionID
		svcReq.Durations = h.Durations
	}

	for _, s := range req.Stops {
		stop := domain.Stop{
			ID:         s.ID,
			Address:    s.Address,
			Name:       s.Name,
			Visited:    s.Visited,
			IsEndPoint: s.IsEndPoint,
		}
		if s.Lon != nil && s.Lat != nil {
			stop.Position = &domain.GeoPoint{Lon: *s.Lon, Lat: *s.Lat}
		}
		svcReq.Stops = append(svcReq.Stops, stop)
	}

	artifact, err := h.Routes.ComputeRoute(r.Context(), svcReq)
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			_ = level.Error(obs.For(r.Context())).Log("msg", "compute route failed", "err", err)
		}
		writeError(w, r, status, msg)
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(artifact))
}

var inputErrors = []error{
	domain.ErrNoDestinations,
	domain.ErrMultipleEndpoints,
	domain.ErrDuplicateStopID,
	domain.ErrMissingStopID,
	domain.ErrInvalidLocation,
	domain.ErrInvalidTravelMode,
}

func errorStatus(err error) (int, string) {
	var unresolved *domain.UnresolvedAddressError
	if errors.As(err, &unresolved) {
		return http.StatusUnprocessableEntity, err.Error()
	}

	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, err.Error()
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "route computation timed out"
	}

	return http.StatusInternalServerError, "internal server error"
}

func toRouteResponse(a *domain.RouteArtifact) dto.RouteResponse {
	res := dto.RouteResponse{
		Strategy:        string(a.Strategy),
		FallbackReason:  a.FallbackReason,
		TravelMode:      string(a.Mode),
		DistanceMeters:  a.DistanceMeters,
		DurationSeconds: a.DurationSeconds,
		Waypoints:       make([]dto.WaypointResponse, 0, len(a.Waypoints)),
	}

	if len(a.KnownDurations) > 0 {
		res.KnownDurations = make(map[string]float64, len(a.KnownDurations))
		for m, d := range a.KnownDurations {
			res.KnownDurations[string(m)] = d
		}
	}

	for _, wp := range a.Waypoints {
		res.Waypoints = append(res.Waypoints, dto.WaypointResponse{
			DisplayNumber: wp.DisplayNumber,
			StopID:        wp.StopID,
			Label:         wp.Label,
			Address:       wp.Address,
			Lon:           wp.Position.Lon,
			Lat:           wp.Position.Lat,
		})
	}

	line := make(orb.LineString, 0, len(a.Path))
	for _, p := range a.Path {
		line = append(line, p.Orb())
	}
	res.Path = geojson.NewFeature(line)
	res.Path.Properties["distance_meters"] = a.DistanceMeters
	res.Path.Properties["duration_seconds"] = a.DurationSeconds

	return res
}
