package stats

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapID = "0b3c6c55-0b79-4bd1-a2f6-1b8b0f3bb0a1"

var statsCols = []string{"id", "users", "subscriptions", "views", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestLatest(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT id, users, subscriptions, views, created_at\s+FROM stats ORDER BY created_at DESC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(statsCols).AddRow(snapID, int64(10), int64(3), int64(99), ts))

	s, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.Stats{ID: snapID, Users: 10, Subscriptions: 3, Views: 99, CreatedAt: ts}, s)
}

func TestLatest_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM stats`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Latest(context.Background())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Now()

	mock.ExpectQuery(`INSERT INTO stats \(id, users, subscriptions, views\)`).
		WithArgs(sqlmock.AnyArg(), int64(0), int64(0), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(ts))

	s, err := repo.Create(context.Background(), &models.Stats{})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, ts, s.CreatedAt)
}

func TestSave(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Now()

	mock.ExpectExec(`UPDATE stats SET users = \$2`).
		WithArgs(snapID, int64(4), int64(1), int64(0), ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE stats`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE stats`).WillReturnError(errors.New("boom"))

	s := &models.Stats{ID: snapID, Users: 4, Subscriptions: 1, CreatedAt: ts}
	require.NoError(t, repo.Save(context.Background(), s))
	assert.ErrorIs(t, repo.Save(context.Background(), s), common.ErrorNotFound)
	assert.ErrorContains(t, repo.Save(context.Background(), s), "db error: boom")
}

func TestList_DefaultLimit(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Now()

	mock.ExpectQuery(`FROM stats ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(12).
		WillReturnRows(sqlmock.NewRows(statsCols).
			AddRow(snapID, int64(2), int64(1), int64(0), ts).
			AddRow("9a1d6f5e-1111-4bd1-a2f6-1b8b0f3bb0a1", int64(1), int64(0), int64(0), ts.Add(-time.Hour)))

	list, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].Users)
}
