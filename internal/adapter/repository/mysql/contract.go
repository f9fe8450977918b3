package mysql

import (
	"context"

	contractDomain "sme-lending-backend/internal/domain/contract"

	"gorm.io/gorm"
)

type SignatoryRepository struct{ db *gorm.DB }

func NewSignatoryRepository(db *gorm.DB) *SignatoryRepository { return &SignatoryRepository{db: db} }

func (r *SignatoryRepository) Create(ctx context.Context, s *contractDomain.Signatory) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SignatoryRepository) GetBySignatoryID(ctx context.Context, signatoryID string) (*contractDomain.Signatory, error) {
	var out contractDomain.Signatory
	res := r.db.WithContext(ctx).Where("signatory_id = ?", signatoryID).First(&out)
	return &out, res.Error
}

func (r *SignatoryRepository) ListByApplicationID(ctx context.Context, appID uint64) ([]contractDomain.Signatory, error) {
	var out []contractDomain.Signatory
	res := r.db.WithContext(ctx).
		Where("application_id = ?", appID).
		Order("signing_order ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *SignatoryRepository) Save(ctx context.Context, s *contractDomain.Signatory) error {
	return r.db.WithContext(ctx).Save(s).Error
}
