package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/repomanager"
)

// StatsService serves the statistics snapshots the aggregator maintains.
type StatsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewStatsService(db *sql.DB, m repomanager.RepositoryManager) *StatsService {
	return &StatsService{db: db, repomanager: m}
}

// Recent returns up to limit snapshots, newest first.
func (s *StatsService) Recent(ctx context.Context, limit int) ([]*models.Stats, error) {
	list, err := s.repomanager.Stats(s.db).List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	return list, nil
}
