package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/logging"
	"github.com/dmitrijs2005/coursesell/internal/server/auth"
	"github.com/dmitrijs2005/coursesell/internal/server/config"
	"github.com/dmitrijs2005/coursesell/internal/server/mailer"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursesell/internal/server/storage"
)

const msgBadCredentials = "Incorrect Email or Password"

// Session is a freshly issued session token and the moment it stops working.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Upload is an image received from the client.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Avatar   *Upload
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
	)
}

// AccountService runs the account lifecycle: registration, login, password
// changes and resets, profile edits, playlists and deletion.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	tokens      *auth.TokenIssuer
	storage     storage.ObjectStorage
	mailer      mailer.Sender
	logger      logging.Logger
	frontendURL string
	now         func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	st storage.ObjectStorage, ms mailer.Sender, l logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      auth.NewBcryptHasher(cfg.BcryptCost),
		tokens:      auth.NewTokenIssuer(cfg.SecretKey, cfg.SessionTTL, cfg.ResetTokenTTL),
		storage:     st,
		mailer:      ms,
		logger:      l.With("module", "accounts"),
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		now:         time.Now,
	}
}

func (s *AccountService) issueSession(userID string) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// getUser loads an account and maps a miss to a 404.
func (s *AccountService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// releaseAvatar deletes an uploaded image that no account references anymore.
func (s *AccountService) releaseAvatar(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := s.storage.Delete(ctx, id); err != nil {
		s.logger.Warn(ctx, "failed to release avatar", "avatar_id", id, "error", err)
	}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, *Session, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, nil, common.BadRequest("%s", err.Error())
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, nil, common.Conflict(common.ErrAlreadyExists, "User Already Exist")
	case !errors.Is(err, common.ErrorNotFound):
		return nil, nil, fmt.Errorf("lookup email: %w", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: digest,
		Role:         common.RoleUser,
		Subscription: models.Subscription{Status: common.SubscriptionNone},
		Playlist:     models.Playlist{},
	}

	if in.Avatar != nil && len(in.Avatar.Data) > 0 {
		avatar, err := s.storage.Upload(ctx, in.Avatar.Name, in.Avatar.ContentType, in.Avatar.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("upload avatar: %w", err)
		}
		user.Avatar = avatar
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		s.releaseAvatar(ctx, user.Avatar.ID)
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, nil, common.Conflict(err, "User Already Exist")
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	session, err := s.issueSession(created.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "account registered", "user_id", created.ID)
	return created, session, nil
}

// burnVerify spends the same bcrypt work as a real comparison so unknown
// emails and wrong passwords take equally long.
func (s *AccountService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("coursesell-dummy-password")
	})
	s.hasher.Verify(password, s.dummyDigest)
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, *Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, nil, common.BadRequest("Please enter all field")
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnVerify(password)
			return nil, nil, common.Unauthenticated(msgBadCredentials)
		}
		return nil, nil, fmt.Errorf("lookup email: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, common.Unauthenticated(msgBadCredentials)
	}

	session, err := s.issueSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Authenticate resolves a session token to the account it was issued for.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.Unauthenticated("Please Login to access this resource")
	}

	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil, common.Wrap(http.StatusUnauthorized, err, "Please Login to access this resource")
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthenticated("Please Login to access this resource")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AccountService) Profile(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, id)
}

func (s *AccountService) UpdateProfile(ctx context.Context, id, name, email string) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if email = models.NormalizeEmail(email); email != "" {
		if err := validation.Validate(email, is.Email); err != nil {
			return nil, common.BadRequest("email: %s", err.Error())
		}
		user.Email = email
	}

	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.Conflict(err, "Email already in use")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// UpdateAvatar stores the new picture, points the account at it and then
// releases the previous one.
func (s *AccountService) UpdateAvatar(ctx context.Context, id string, up Upload) (*models.User, error) {
	if len(up.Data) == 0 {
		return nil, common.BadRequest("Please upload a file")
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	avatar, err := s.storage.Upload(ctx, up.Name, up.ContentType, up.Data)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	previous := user.Avatar
	user.Avatar = avatar
	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		s.releaseAvatar(ctx, avatar.ID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.releaseAvatar(ctx, previous.ID)
	return user, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return common.BadRequest("Please enter all field")
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return common.Unauthenticated("Incorrect Old Password")
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = digest

	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ForgetPassword stores a fresh reset digest on the account and mails the
// plaintext link. The returned token is valid even when the error wraps
// common.ErrEmailDelivery.
func (s *AccountService) ForgetPassword(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", common.BadRequest("Please enter all field")
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.NotFound("User not found")
		}
		return "", fmt.Errorf("lookup email: %w", err)
	}

	plain, digest, expiresAt, err := s.tokens.IssueReset()
	if err != nil {
		return "", fmt.Errorf("issue reset token: %w", err)
	}

	user.SetResetToken(digest, expiresAt)
	if err := repo.Update(ctx, user); err != nil {
		return "", fmt.Errorf("update user: %w", err)
	}

	link := s.frontendURL + "/resetpassword/" + plain
	body := fmt.Sprintf("Click on the link to reset your password: %s. If you have not requested this, please ignore.", link)

	if err := s.mailer.Send(ctx, user.Email, "CourseSell Reset Password", body); err != nil {
		s.logger.Warn(ctx, "reset email not delivered", "user_id", user.ID, "error", err)
		return plain, fmt.Errorf("%w: %v", common.ErrEmailDelivery, err)
	}

	return plain, nil
}

func resetInvalid() *common.AppError {
	return common.Wrap(http.StatusBadRequest, common.ErrResetTokenInvalid, "Token is invalid or has been expired")
}

// ResetPassword consumes a reset token. A matching but expired token is
// cleared from the account as well.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return resetInvalid()
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByResetTokenHash(ctx, s.tokens.MatchReset(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return resetInvalid()
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if !user.ResetTokenValid(s.now()) {
		user.ClearResetToken()
		if err := repo.Update(ctx, user); err != nil {
			s.logger.Error(ctx, "failed to clear expired reset token", "user_id", user.ID, "error", err)
		}
		return resetInvalid()
	}

	if newPassword == "" {
		return common.BadRequest("Please enter new password")
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = digest
	user.ClearResetToken()

	if err := repo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

// DeleteAccount releases the account's avatar and then removes the account.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	if user.Avatar.ID != "" {
		if err := s.storage.Delete(ctx, user.Avatar.ID); err != nil {
			return fmt.Errorf("release avatar: %w", err)
		}
	}

	if err := s.repomanager.Users(s.db).Delete(ctx, user.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("User not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info(ctx, "account deleted", "user_id", user.ID)
	return nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AccountService) toggle(ctx context.Context, user *models.User) (*models.User, error) {
	user.ToggleRole()
	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.logger.Info(ctx, "role changed", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// ToggleRole flips an account between user and admin.
func (s *AccountService) ToggleRole(ctx context.Context, id string) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toggle(ctx, user)
}

func (s *AccountService) ToggleRoleByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	return s.toggle(ctx, user)
}

func (s *AccountService) getCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repomanager.Courses(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("Invalid Course Id")
		}
		return nil, fmt.Errorf("load course: %w", err)
	}
	return course, nil
}

func (s *AccountService) AddToPlaylist(ctx context.Context, userID, courseID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}

	user.Playlist, err = user.Playlist.Add(models.PlaylistItem{CourseID: course.ID, Poster: course.PosterURL})
	if err != nil {
		return common.Conflict(err, "Item Already Exist")
	}

	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// RemoveFromPlaylist drops the course. A course that is not in the playlist
// is not an error.
func (s *AccountService) RemoveFromPlaylist(ctx context.Context, userID, courseID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}

	if !user.Playlist.Contains(course.ID) {
		return nil
	}

	user.Playlist = user.Playlist.Remove(course.ID)
	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
