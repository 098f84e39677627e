package middleware

import "context"

type contextKey string

const (
	ContextKeyActor contextKey = "actor"
	ContextKeyRole  contextKey = "role"
)

func ActorFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyActor).(string)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyRole).(string)
	return v, ok
}
