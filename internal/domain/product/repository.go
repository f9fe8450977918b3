package product

import "context"

type Repository interface {
	Create(ctx context.Context, p *LoanProduct) error
	GetByProductID(ctx context.Context, productID string) (*LoanProduct, error)
	GetByProductIDForUpdate(ctx context.Context, productID string) (*LoanProduct, error)
	Save(ctx context.Context, p *LoanProduct) error
}
