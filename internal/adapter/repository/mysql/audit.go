package mysql

import (
	"context"

	auditDomain "sme-lending-backend/internal/domain/audit"

	"gorm.io/gorm"
)

// AuditRepository is insert-only; there is deliberately no Save or Delete.
type AuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Create(ctx context.Context, e *auditDomain.AuditEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *AuditRepository) ListByApplicationID(ctx context.Context, appID uint64, f auditDomain.Filter) ([]auditDomain.AuditEvent, error) {
	q := r.db.WithContext(ctx).Where("application_id = ?", appID)
	if len(f.EventTypes) > 0 {
		q = q.Where("event_type IN ?", f.EventTypes)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("created_at <= ?", *f.Until)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []auditDomain.AuditEvent
	res := q.Order("created_at ASC, id ASC").Find(&out)
	return out, res.Error
}

func (r *AuditRepository) CountByApplicationID(ctx context.Context, appID uint64) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&auditDomain.AuditEvent{}).
		Where("application_id = ?", appID).
		Count(&n)
	return n, res.Error
}
