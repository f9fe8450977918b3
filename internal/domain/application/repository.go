package application

import "context"

type Repository interface {
	Create(ctx context.Context, a *LoanApplication) error
	GetByApplicationID(ctx context.Context, applicationID string) (*LoanApplication, error)
	// Same lookup with a row lock (SELECT ... FOR UPDATE); use inside a tx.
	GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*LoanApplication, error)
	Save(ctx context.Context, a *LoanApplication) error

	// ActivateVersion flips active_version_id from expectedCurrent to
	// versionID in one conditional UPDATE. Zero rows affected means a
	// concurrent activation won; callers surface ErrConflictingVersion.
	ActivateVersion(ctx context.Context, appID uint64, versionID uint64, expectedCurrent *uint64) (bool, error)
}
