package mysql

import (
	"context"

	appDomain "sme-lending-backend/internal/domain/application"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *appDomain.LoanApplication) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ApplicationRepository) Save(ctx context.Context, a *appDomain.LoanApplication) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *ApplicationRepository) GetByApplicationID(ctx context.Context, applicationID string) (*appDomain.LoanApplication, error) {
	var out appDomain.LoanApplication
	res := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&out)
	return &out, res.Error
}

func (r *ApplicationRepository) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*appDomain.LoanApplication, error) {
	var out appDomain.LoanApplication
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ?", applicationID).
		First(&out)
	return &out, res.Error
}

// ActivateVersion performs the conditional pointer flip. The WHERE clause on
// the current active_version_id detects a concurrent activation: zero rows
// affected means the precondition no longer holds.
func (r *ApplicationRepository) ActivateVersion(ctx context.Context, appID uint64, versionID uint64, expectedCurrent *uint64) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&appDomain.LoanApplication{}).
		Where("id = ?", appID)
	if expectedCurrent == nil {
		q = q.Where("active_version_id IS NULL")
	} else {
		q = q.Where("active_version_id = ?", *expectedCurrent)
	}
	res := q.Update("active_version_id", versionID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
