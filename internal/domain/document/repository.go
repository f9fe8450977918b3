package document

import "context"

type Repository interface {
	// Verifications
	GetVerification(ctx context.Context, appID uint64, ref Ref) (*Verification, error)
	ListVerificationsByApplicationID(ctx context.Context, appID uint64) ([]Verification, error)
	// CreateVerification inserts the row for a (application, type, document)
	// triple; the unique index rejects duplicates.
	CreateVerification(ctx context.Context, v *Verification) error
	SaveVerification(ctx context.Context, v *Verification) error

	// Source documents
	GetDocumentByDocumentID(ctx context.Context, documentID string) (*Document, error)
	// FindByNaturalKey resolves the composite (owner, type, year, bank) key.
	FindByNaturalKey(ctx context.Context, ownerID string, t Type, fiscalYear int, bankName string) (*Document, error)
	CreateDocument(ctx context.Context, d *Document) error
	SaveDocument(ctx context.Context, d *Document) error
}
