package uow

import (
	"context"

	"sme-lending-backend/internal/domain/application"
	"sme-lending-backend/internal/domain/audit"
	"sme-lending-backend/internal/domain/contract"
	"sme-lending-backend/internal/domain/document"
	"sme-lending-backend/internal/domain/product"
	"sme-lending-backend/internal/domain/version"
)

// Repos bundles every repository bound to one transaction.
type Repos struct {
	Applications application.Repository
	Versions     version.Repository
	Audits       audit.Repository
	Documents    document.Repository
	Products     product.Repository
	Signatories  contract.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the application row first, then pass it in
	WithinApplicationTx(ctx context.Context, applicationID string, fn func(r Repos, a *application.LoanApplication) error) error
}
