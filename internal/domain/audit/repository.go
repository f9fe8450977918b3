package audit

import "context"

type Repository interface {
	// Create appends one event. There is intentionally no Save or Delete.
	Create(ctx context.Context, e *AuditEvent) error
	// ListByApplicationID returns events ordered by created_at, id ascending.
	ListByApplicationID(ctx context.Context, appID uint64, f Filter) ([]AuditEvent, error)
	CountByApplicationID(ctx context.Context, appID uint64) (int64, error)
}
