package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/dbx"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, name, email, password_hash, role, avatar_id, avatar_url,
		subscription_id, subscription_status, subscription_renews_at,
		reset_token_hash, reset_token_expires_at, playlist, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var playlist []byte

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.Avatar.ID, &user.Avatar.URL,
		&user.Subscription.ID, &user.Subscription.Status, &user.Subscription.RenewsAt,
		&user.ResetTokenHash, &user.ResetTokenExpiresAt, &playlist, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	user.Playlist = models.Playlist{}
	if len(playlist) > 0 {
		if err := json.Unmarshal(playlist, &user.Playlist); err != nil {
			return nil, fmt.Errorf("decode playlist: %w", err)
		}
	}

	return user, nil
}

func encodePlaylist(p models.Playlist) ([]byte, error) {
	if p == nil {
		p = models.Playlist{}
	}
	return json.Marshal(p)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = common.RoleUser
	}
	if user.Subscription.Status == "" {
		user.Subscription.Status = common.SubscriptionNone
	}

	playlist, err := encodePlaylist(user.Playlist)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (id, name, email, password_hash, role, avatar_id, avatar_url, subscription_status, playlist)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.Avatar.ID, user.Avatar.URL, user.Subscription.Status, playlist,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	return r.getOne(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = $1", models.NormalizeEmail(email))
}

func (r *PostgresRepository) GetByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return r.getOne(ctx, "reset_token_hash = $1", hash)
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	playlist, err := encodePlaylist(user.Playlist)
	if err != nil {
		return err
	}

	query :=
		`UPDATE users SET name = $2, email = $3, password_hash = $4, role = $5,
			avatar_id = $6, avatar_url = $7,
			subscription_id = $8, subscription_status = $9, subscription_renews_at = $10,
			reset_token_hash = $11, reset_token_expires_at = $12, playlist = $13,
			updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.Avatar.ID, user.Avatar.URL,
		user.Subscription.ID, user.Subscription.Status, user.Subscription.RenewsAt,
		user.ResetTokenHash, user.ResetTokenExpiresAt, playlist,
	).Scan(&user.UpdatedAt)

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrorNotFound
		case isUniqueViolation(err):
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
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

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	result := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountAll(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (r *PostgresRepository) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users WHERE subscription_status = $1`, common.SubscriptionActive)
}
