// Package users declares the account repository contract and its
// PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/coursesell/internal/server/models"
)

// Repository is the account store. Each method is a single-row operation;
// lookups of absent rows return common.ErrorNotFound and writes violating the
// unique email return common.ErrAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByResetTokenHash ignores expiry; callers decide what an expired match means.
	GetByResetTokenHash(ctx context.Context, hash string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
	CountAll(ctx context.Context) (int64, error)
	CountActiveSubscriptions(ctx context.Context) (int64, error)
}
