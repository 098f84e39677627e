package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/aegis/internal/domain"
)

type ListAuditInput struct {
	ActionID  string `query:"action_id" doc:"Filter by action ID"`
	Actor     string `query:"actor" doc:"Filter by actor"`
	EventType string `query:"event_type" doc:"Filter by event type"`
	Since     string `query:"since" doc:"RFC 3339 lower bound (inclusive)"`
	Until     string `query:"until" doc:"RFC 3339 upper bound (exclusive)"`
	Limit     int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Page size"`
}

type ListAuditOutput struct {
	Body []*domain.AuditEntry
}

func RegisterAuditRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-audit",
		Method:      http.MethodGet,
		Path:        "/audit",
		Summary:     "Query the audit log",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *ListAuditInput) (*ListAuditOutput, error) {
		filter := domain.AuditFilter{
			Actor:     input.Actor,
			EventType: domain.AuditEventType(input.EventType),
			Limit:     input.Limit,
		}

		if input.ActionID != "" {
			id, err := uuid.Parse(input.ActionID)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("action_id must be a UUID")
			}
			filter.ActionID = &id
		}
		if input.Since != "" {
			ts, err := time.Parse(time.RFC3339, input.Since)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("since must be RFC 3339")
			}
			filter.Since = &ts
		}
		if input.Until != "" {
			ts, err := time.Parse(time.RFC3339, input.Until)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("until must be RFC 3339")
			}
			filter.Until = &ts
		}

		entries, err := store.Audit().List(ctx, filter)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to query audit log", err)
		}

		return &ListAuditOutput{Body: entries}, nil
	})
}
