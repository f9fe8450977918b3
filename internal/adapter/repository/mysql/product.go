package mysql

import (
	"context"

	productDomain "sme-lending-backend/internal/domain/product"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) *ProductRepository { return &ProductRepository{db: db} }

func (r *ProductRepository) Create(ctx context.Context, p *productDomain.LoanProduct) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductRepository) GetByProductID(ctx context.Context, productID string) (*productDomain.LoanProduct, error) {
	var out productDomain.LoanProduct
	res := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&out)
	return &out, res.Error
}

func (r *ProductRepository) GetByProductIDForUpdate(ctx context.Context, productID string) (*productDomain.LoanProduct, error) {
	var out productDomain.LoanProduct
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&out)
	return &out, res.Error
}

func (r *ProductRepository) Save(ctx context.Context, p *productDomain.LoanProduct) error {
	return r.db.WithContext(ctx).Save(p).Error
}
