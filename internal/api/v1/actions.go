package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/policy"
	"github.com/gosuda/aegis/internal/server/middleware"
)

type ProposeActionInput struct {
	Body struct {
		Kind    string `json:"kind" enum:"command,operation" doc:"Action kind"`
		Name    string `json:"name" minLength:"1" maxLength:"200" doc:"Stable action name"`
		Target  string `json:"target,omitempty" maxLength:"200" doc:"Host or service the action applies to"`
		Payload string `json:"payload" minLength:"1" doc:"Command string or operation parameters"`
		Tier    int    `json:"tier" minimum:"1" maximum:"3" doc:"Autonomy tier"`
	}
}

type ProposeActionOutput struct {
	Body *domain.Action
}

type ListActionsInput struct {
	Status string `query:"status" doc:"Filter by status; 'pending' applies approval-expiry checks"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Page size"`
	Offset int    `query:"offset" minimum:"0" doc:"Page offset"`
}

type ListActionsOutput struct {
	Body []*domain.Action
}

type GetActionInput struct {
	ID uuid.UUID `path:"id" doc:"Action ID"`
}

type GetActionOutput struct {
	Body *domain.Action
}

type ApproveActionInput struct {
	ID   uuid.UUID `path:"id" doc:"Action ID"`
	Body struct {
		ExecuteNow bool `json:"execute_now,omitempty" doc:"Execute immediately after approval"`
	}
}

type ApproveActionOutput struct {
	Body *domain.Action
}

type RejectActionInput struct {
	ID   uuid.UUID `path:"id" doc:"Action ID"`
	Body struct {
		Reason string `json:"reason" minLength:"1" doc:"Why the action is rejected"`
	}
}

type RejectActionOutput struct {
	Body *domain.Action
}

type CancelActionInput struct {
	ID uuid.UUID `path:"id" doc:"Action ID"`
}

type CancelActionOutput struct {
	Body *domain.Action
}

type ExecuteActionInput struct {
	ID uuid.UUID `path:"id" doc:"Action ID"`
}

type ExecuteActionOutput struct {
	Body *domain.Action
}

type DryRunInput struct {
	Body struct {
		Payload string `json:"payload" minLength:"1" doc:"Command string to evaluate"`
	}
}

type DryRunOutput struct {
	Body domain.ExecutionResult
}

func RegisterActionRoutes(api huma.API, engine ApprovalEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "propose-action",
		Method:      http.MethodPost,
		Path:        "/actions",
		Summary:     "Propose an action for classification and approval",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *ProposeActionInput) (*ProposeActionOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		action, err := engine.Propose(ctx, policy.ProposeRequest{
			Kind:        domain.ActionKind(input.Body.Kind),
			Name:        input.Body.Name,
			Target:      input.Body.Target,
			Payload:     input.Body.Payload,
			Tier:        domain.Tier(input.Body.Tier),
			RequestedBy: actor,
		})
		if err != nil {
			return nil, mapEngineError(err, "action")
		}

		return &ProposeActionOutput{Body: action}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-actions",
		Method:      http.MethodGet,
		Path:        "/actions",
		Summary:     "List actions",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *ListActionsInput) (*ListActionsOutput, error) {
		if input.Status == string(domain.ActionStatusPending) {
			actions, err := engine.ListPending(ctx)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to list pending actions", err)
			}
			return &ListActionsOutput{Body: actions}, nil
		}

		actions, err := engine.ListAll(ctx, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list actions", err)
		}

		return &ListActionsOutput{Body: actions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-action",
		Method:      http.MethodGet,
		Path:        "/actions/{id}",
		Summary:     "Get an action by ID",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *GetActionInput) (*GetActionOutput, error) {
		action, err := engine.Get(ctx, input.ID)
		if err != nil {
			return nil, mapEngineError(err, "action")
		}

		return &GetActionOutput{Body: action}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/cancel",
		Summary:     "Cancel a pending action",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *CancelActionInput) (*CancelActionOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		action, err := engine.Cancel(ctx, input.ID, actor)
		if err != nil {
			return nil, mapEngineError(err, "action")
		}

		return &CancelActionOutput{Body: action}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "execute-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/execute",
		Summary:     "Execute an approved action",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *ExecuteActionInput) (*ExecuteActionOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		action, err := engine.Execute(ctx, input.ID, actor)
		if err != nil {
			return nil, mapEngineError(err, "action")
		}

		return &ExecuteActionOutput{Body: action}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dry-run-action",
		Method:      http.MethodPost,
		Path:        "/actions/dry-run",
		Summary:     "Evaluate a command without executing it",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *DryRunInput) (*DryRunOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		return &DryRunOutput{Body: engine.DryRun(ctx, input.Body.Payload, actor)}, nil
	})
}

// RegisterApprovalRoutes mounts the approve and reject endpoints. They are
// registered separately so the server can gate them behind the operator role.
func RegisterApprovalRoutes(api huma.API, engine ApprovalEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "approve-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/approve",
		Summary:     "Approve a pending action",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *ApproveActionInput) (*ApproveActionOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		action, err := engine.Approve(ctx, input.ID, actor, input.Body.ExecuteNow)
		if err != nil {
			return nil, mapEngineError(err, "action")
		}

		return &ApproveActionOutput{Body: action}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/reject",
		Summary:     "Reject a pending action",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *RejectActionInput) (*RejectActionOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		action, err := engine.Reject(ctx, input.ID, actor, input.Body.Reason)
		if err != nil {
			return nil, mapEngineError(err, "action")
		}

		return &RejectActionOutput{Body: action}, nil
	})
}

// mapEngineError translates domain sentinels into HTTP problem responses.
func mapEngineError(err error, resource string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(resource + " not found")
	case errors.Is(err, domain.ErrValidation):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrForbiddenCommand):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return huma.Error429TooManyRequests(err.Error())
	case errors.Is(err, domain.ErrCircuitOpen):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}
