// Package notify pushes approval requests to human operators.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosuda/aegis/internal/domain"
)

// Notifier delivers a pending-approval notice to operators. Implementations
// must be safe for concurrent use.
type Notifier interface {
	NotifyPending(ctx context.Context, action *domain.Action) error
}

// Nop discards notifications. Used when no messenger is configured.
type Nop struct{}

func (Nop) NotifyPending(context.Context, *domain.Action) error { return nil }

// FormatPending renders the operator-facing approval message for an action.
func FormatPending(action *domain.Action) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Approval required: %s (risk: %s, tier %d)\n", action.Name, action.RiskLevel, action.Tier))
	sb.WriteString(fmt.Sprintf("Requested by %s for target %q\n", action.RequestedBy, action.Target))
	sb.WriteString("Payload: `" + action.Payload + "`\n")
	if action.ExpiresAt != nil {
		sb.WriteString("Expires at " + action.ExpiresAt.UTC().Format("2006-01-02 15:04:05 MST") + "\n")
	}
	sb.WriteString("Action ID: " + action.ID.String())
	return sb.String()
}
