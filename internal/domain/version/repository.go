package version

import "context"

type Repository interface {
	// Create inserts a new immutable snapshot. No Save/Update exists.
	Create(ctx context.Context, v *ApplicationVersion) error
	GetByVersionID(ctx context.Context, versionID string) (*ApplicationVersion, error)
	GetByID(ctx context.Context, id uint64) (*ApplicationVersion, error)
	ListByApplicationID(ctx context.Context, appID uint64) ([]ApplicationVersion, error)
}
