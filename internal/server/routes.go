package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/aegis/internal/api/v1"
	"github.com/gosuda/aegis/internal/api/ws"
	"github.com/gosuda/aegis/internal/policy"
	"github.com/gosuda/aegis/internal/store/postgres"
)

func registerAPIRoutes(api huma.API, store *postgres.Store, engine *policy.Engine) {
	v1.RegisterActionRoutes(api, engine)
	v1.RegisterAuditRoutes(api, store)
}

func registerOperatorRoutes(api huma.API, engine *policy.Engine) {
	v1.RegisterApprovalRoutes(api, engine)
	v1.RegisterPolicyRoutes(api, engine)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/events", hub.ServeEvents)
	r.Get("/actions/{actionID}", hub.ServeAction)
}
