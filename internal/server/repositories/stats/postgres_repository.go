package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/dbx"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Latest(ctx context.Context) (*models.Stats, error) {
	query := `SELECT id, users, subscriptions, views, created_at
		FROM stats ORDER BY created_at DESC LIMIT 1`

	s := &models.Stats{}
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.Users, &s.Subscriptions, &s.Views, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Stats) (*models.Stats, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO stats (id, users, subscriptions, views)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, s.ID, s.Users, s.Subscriptions, s.Views).Scan(&s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// Save overwrites the counters and timestamp of an existing snapshot.
func (r *PostgresRepository) Save(ctx context.Context, s *models.Stats) error {
	query := `UPDATE stats SET users = $2, subscriptions = $3, views = $4, created_at = $5 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, s.ID, s.Users, s.Subscriptions, s.Views, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.Stats, error) {
	if limit <= 0 {
		limit = 12
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, users, subscriptions, views, created_at FROM stats ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select stats: %w", err)
	}
	defer rows.Close()

	result := []*models.Stats{}
	for rows.Next() {
		s := &models.Stats{}
		if err := rows.Scan(&s.ID, &s.Users, &s.Subscriptions, &s.Views, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
