package port

import (
	"context"
	"time"

	"github.com/floodline/portal-api/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
//
// GetByUsername returns the default projection, which excludes the password
// digest and salt. GetByUsernameWithSecret includes both and exists solely for
// credential verification.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByUsernameWithSecret(ctx context.Context, username string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context) ([]domain.User, error)
}
