package courses

import (
	"context"

	"github.com/dmitrijs2005/coursesell/internal/server/models"
)

// Repository is the read-only course catalogue consulted by playlist operations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Course, error)
}
