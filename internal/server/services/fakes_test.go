package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/dbx"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/courses"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/stats"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/users"
	"github.com/google/uuid"
)

// --- users ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.User
	createErr error
	updateErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Playlist = append(models.Playlist{}, u.Playlist...)
	return &c
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	f.byID[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, u := range f.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == hash {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[u.ID]; !ok {
		return common.ErrorNotFound
	}
	for id, existing := range f.byID {
		if id != u.ID && existing.Email == u.Email {
			return common.ErrAlreadyExists
		}
	}
	f.byID[u.ID] = cloneUser(u)
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.User{}
	for _, u := range f.byID {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (f *fakeUsersRepo) CountAll(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}

func (f *fakeUsersRepo) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.byID {
		if u.Subscription.Status == common.SubscriptionActive {
			n++
		}
	}
	return n, nil
}

// --- courses ---

type fakeCoursesRepo struct {
	byID map[string]*models.Course
}

func (f *fakeCoursesRepo) GetByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

// --- stats ---

type fakeStatsRepo struct {
	rows    []*models.Stats
	listErr error
}

func (f *fakeStatsRepo) Latest(ctx context.Context) (*models.Stats, error) {
	if len(f.rows) == 0 {
		return nil, common.ErrorNotFound
	}
	return f.rows[len(f.rows)-1], nil
}

func (f *fakeStatsRepo) Create(ctx context.Context, s *models.Stats) (*models.Stats, error) {
	f.rows = append(f.rows, s)
	return s, nil
}

func (f *fakeStatsRepo) Save(ctx context.Context, s *models.Stats) error { return nil }

func (f *fakeStatsRepo) List(ctx context.Context, limit int) ([]*models.Stats, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rows, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeCoursesRepo
	s *fakeStatsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository           { return m.u }
func (m *fakeRepoManager) Courses(db dbx.DBTX) courses.Repository       { return m.c }
func (m *fakeRepoManager) Stats(db dbx.DBTX) stats.Repository           { return m.s }

// --- collaborators ---

type fakeStorage struct {
	mu        sync.Mutex
	n         int
	uploaded  []string
	deleted   []string
	uploadErr error
}

func (f *fakeStorage) Upload(ctx context.Context, name, contentType string, body []byte) (models.Avatar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return models.Avatar{}, f.uploadErr
	}
	f.n++
	id := fmt.Sprintf("avatars/%d", f.n)
	f.uploaded = append(f.uploaded, id)
	return models.Avatar{ID: id, URL: "http://cdn/" + id}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}
