package mysql

import (
	"context"

	docDomain "sme-lending-backend/internal/domain/document"

	"gorm.io/gorm"
)

type DocumentRepository struct{ db *gorm.DB }

func NewDocumentRepository(db *gorm.DB) *DocumentRepository { return &DocumentRepository{db: db} }

func (r *DocumentRepository) GetVerification(ctx context.Context, appID uint64, ref docDomain.Ref) (*docDomain.Verification, error) {
	var out docDomain.Verification
	res := r.db.WithContext(ctx).
		Where("application_id = ? AND document_type = ? AND document_id = ?", appID, ref.Type, ref.DocumentID).
		First(&out)
	return &out, res.Error
}

func (r *DocumentRepository) ListVerificationsByApplicationID(ctx context.Context, appID uint64) ([]docDomain.Verification, error) {
	var out []docDomain.Verification
	res := r.db.WithContext(ctx).
		Where("application_id = ?", appID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *DocumentRepository) CreateVerification(ctx context.Context, v *docDomain.Verification) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *DocumentRepository) SaveVerification(ctx context.Context, v *docDomain.Verification) error {
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *DocumentRepository) GetDocumentByDocumentID(ctx context.Context, documentID string) (*docDomain.Document, error) {
	var out docDomain.Document
	res := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&out)
	return &out, res.Error
}

func (r *DocumentRepository) FindByNaturalKey(ctx context.Context, ownerID string, t docDomain.Type, fiscalYear int, bankName string) (*docDomain.Document, error) {
	var out docDomain.Document
	res := r.db.WithContext(ctx).
		Where("owner_id = ? AND type = ? AND fiscal_year = ? AND bank_name = ?", ownerID, t, fiscalYear, bankName).
		First(&out)
	return &out, res.Error
}

func (r *DocumentRepository) CreateDocument(ctx context.Context, d *docDomain.Document) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DocumentRepository) SaveDocument(ctx context.Context, d *docDomain.Document) error {
	return r.db.WithContext(ctx).Save(d).Error
}
