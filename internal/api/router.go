package api

import (
	"net/http"
	"stop-route-service/internal/api/handlers"
	"stop-route-service/internal/ports"

	"github.com/gorilla/mux"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(routes handlers.RouteComputer, durations ports.DurationCache) http.Handler {
	r := mux.NewRouter()

	routeHandler := &handlers.RouteHandler{Routes: routes, Durations: durations}

	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.HandleFunc("/routes", routeHandler.Compute).Methods(http.MethodPost)

	r.Use(requestIDMiddleware, loggingMiddleware)
	return r
}
