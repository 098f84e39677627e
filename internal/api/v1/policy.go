package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/policy"
	"github.com/gosuda/aegis/internal/server/middleware"
)

type GetPolicyStatsOutput struct {
	Body policy.Stats
}

type ResetBreakerInput struct {
	Name string `path:"name" minLength:"1" doc:"Breaker key (action name)"`
}

type ResetBreakerOutput struct {
	Body struct {
		Reset bool `json:"reset"`
	}
}

type CreatePreAuthInput struct {
	Body struct {
		ActionName string `json:"action_name" minLength:"1" maxLength:"200" doc:"Exact action name the grant covers"`
		Target     string `json:"target" minLength:"1" maxLength:"200" doc:"Exact target the grant covers"`
		TTL        string `json:"ttl,omitempty" doc:"Grant lifetime, e.g. 24h; empty means no expiry"`
	}
}

type CreatePreAuthOutput struct {
	Body *domain.PreAuthorization
}

type ListPreAuthOutput struct {
	Body []*domain.PreAuthorization
}

type RevokePreAuthInput struct {
	ID uuid.UUID `path:"id" doc:"Pre-authorization ID"`
}

func RegisterPolicyRoutes(api huma.API, engine ApprovalEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-policy-stats",
		Method:      http.MethodGet,
		Path:        "/policy/stats",
		Summary:     "Per-tier counters, breaker states, and rate-limit hits",
		Tags:        []string{"Policy"},
	}, func(_ context.Context, _ *struct{}) (*GetPolicyStatsOutput, error) {
		return &GetPolicyStatsOutput{Body: engine.GetStats()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-breaker",
		Method:      http.MethodPost,
		Path:        "/policy/breakers/{name}/reset",
		Summary:     "Force a circuit breaker closed",
		Tags:        []string{"Policy"},
	}, func(ctx context.Context, input *ResetBreakerInput) (*ResetBreakerOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		engine.ResetBreaker(ctx, input.Name, actor)

		out := &ResetBreakerOutput{}
		out.Body.Reset = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-preauth",
		Method:      http.MethodPost,
		Path:        "/policy/preauth",
		Summary:     "Grant a standing pre-authorization",
		Tags:        []string{"Policy"},
	}, func(ctx context.Context, input *CreatePreAuthInput) (*CreatePreAuthOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		var ttl time.Duration
		if input.Body.TTL != "" {
			parsed, err := time.ParseDuration(input.Body.TTL)
			if err != nil || parsed <= 0 {
				return nil, huma.Error422UnprocessableEntity("ttl must be a positive duration, e.g. 24h")
			}
			ttl = parsed
		}

		grant, err := engine.PreAuthorize(ctx, input.Body.ActionName, input.Body.Target, actor, ttl)
		if err != nil {
			return nil, mapEngineError(err, "pre-authorization")
		}

		return &CreatePreAuthOutput{Body: grant}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-preauth",
		Method:      http.MethodGet,
		Path:        "/policy/preauth",
		Summary:     "List standing pre-authorizations",
		Tags:        []string{"Policy"},
	}, func(ctx context.Context, _ *struct{}) (*ListPreAuthOutput, error) {
		grants, err := engine.ListPreAuth(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list pre-authorizations", err)
		}

		return &ListPreAuthOutput{Body: grants}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-preauth",
		Method:      http.MethodDelete,
		Path:        "/policy/preauth/{id}",
		Summary:     "Revoke a standing pre-authorization",
		Tags:        []string{"Policy"},
	}, func(ctx context.Context, input *RevokePreAuthInput) (*struct{}, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		if err := engine.RevokePreAuth(ctx, input.ID, actor); err != nil {
			return nil, mapEngineError(err, "pre-authorization")
		}

		return nil, nil
	})
}
