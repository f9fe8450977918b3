package mysql

import (
	"context"

	versionDomain "sme-lending-backend/internal/domain/version"

	"gorm.io/gorm"
)

type VersionRepository struct{ db *gorm.DB }

func NewVersionRepository(db *gorm.DB) *VersionRepository { return &VersionRepository{db: db} }

func (r *VersionRepository) Create(ctx context.Context, v *versionDomain.ApplicationVersion) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *VersionRepository) GetByVersionID(ctx context.Context, versionID string) (*versionDomain.ApplicationVersion, error) {
	var out versionDomain.ApplicationVersion
	res := r.db.WithContext(ctx).Where("version_id = ?", versionID).First(&out)
	return &out, res.Error
}

func (r *VersionRepository) GetByID(ctx context.Context, id uint64) (*versionDomain.ApplicationVersion, error) {
	var out versionDomain.ApplicationVersion
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return &out, res.Error
}

func (r *VersionRepository) ListByApplicationID(ctx context.Context, appID uint64) ([]versionDomain.ApplicationVersion, error) {
	var out []versionDomain.ApplicationVersion
	res := r.db.WithContext(ctx).
		Where("application_id = ?", appID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
