package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/parley/internal/api/v1"
	"github.com/gosuda/parley/internal/api/ws"
	"github.com/gosuda/parley/internal/session"
)

func registerAPIRoutes(api huma.API, manager *session.Manager) {
	v1.RegisterSessionRoutes(api, manager)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/sessions/{sessionID}/turns", hub.ServeTurns)
}
