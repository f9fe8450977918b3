package contract

import "context"

type Repository interface {
	Create(ctx context.Context, s *Signatory) error
	GetBySignatoryID(ctx context.Context, signatoryID string) (*Signatory, error)
	ListByApplicationID(ctx context.Context, appID uint64) ([]Signatory, error)
	Save(ctx context.Context, s *Signatory) error
}
