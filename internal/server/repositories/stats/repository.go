package stats

import (
	"context"

	"github.com/dmitrijs2005/coursesell/internal/server/models"
)

// Repository persists platform statistics snapshots.
type Repository interface {
	// Latest returns the most recent snapshot or common.ErrorNotFound.
	Latest(ctx context.Context) (*models.Stats, error)
	Create(ctx context.Context, s *models.Stats) (*models.Stats, error)
	Save(ctx context.Context, s *models.Stats) error
	List(ctx context.Context, limit int) ([]*models.Stats, error)
}
