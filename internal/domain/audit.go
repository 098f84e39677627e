package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditEventType string

const (
	AuditClassified    AuditEventType = "classified"
	AuditCreated       AuditEventType = "created"
	AuditApproved      AuditEventType = "approved"
	AuditRejected      AuditEventType = "rejected"
	AuditCancelled     AuditEventType = "cancelled"
	AuditExecuted      AuditEventType = "executed"
	AuditBreakerOpened AuditEventType = "breaker_opened"
	AuditBreakerClosed AuditEventType = "breaker_closed"
	AuditRateLimited   AuditEventType = "rate_limited"
)

// AuditEntry is an append-only record of one engine event. Never mutated
// or deleted after creation.
type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	Actor     string         `json:"actor"`
	ActionID  *uuid.UUID     `json:"action_id,omitempty"`
	EventType AuditEventType `json:"event_type"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditFilter narrows an audit read. Zero values mean "no constraint".
type AuditFilter struct {
	ActionID  *uuid.UUID
	Actor     string
	EventType AuditEventType
	Since     *time.Time
	Until     *time.Time
	Limit     int
}

type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)
}
