// Package httpserver exposes the account lifecycle over a chi REST API
// under /api/v1, plus /metrics and a liveness probe.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/coursesell/internal/logging"
	"github.com/dmitrijs2005/coursesell/internal/server/config"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/dmitrijs2005/coursesell/internal/server/services"
)

// Accounts is the account lifecycle as the handlers use it.
type Accounts interface {
	Authenticator
	Register(ctx context.Context, in services.RegisterInput) (*models.User, *services.Session, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.Session, error)
	Profile(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id string, up services.Upload) (*models.User, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
	ForgetPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	DeleteAccount(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	ToggleRole(ctx context.Context, id string) (*models.User, error)
	AddToPlaylist(ctx context.Context, userID, courseID string) error
	RemoveFromPlaylist(ctx context.Context, userID, courseID string) error
}

// StatsReader serves statistics snapshots, newest first.
type StatsReader interface {
	Recent(ctx context.Context, limit int) ([]*models.Stats, error)
}

type HTTPServer struct {
	address     string
	accounts    Accounts
	stats       StatsReader
	logger      logging.Logger
	cookies     cookieConfig
	frontendURL string
	limiter     *ipLimiter
	registry    *prometheus.Registry
	metrics     *httpMetrics
}

// NewHTTPServer builds the server. HTTP metrics are registered on reg, which
// is also what /metrics serves.
func NewHTTPServer(c *config.Config, l logging.Logger, a Accounts, s StatsReader, reg *prometheus.Registry) *HTTPServer {
	return &HTTPServer{
		address:     c.HTTPAddr,
		accounts:    a,
		stats:       s,
		logger:      l.With("module", "http_server"),
		cookies:     newCookieConfig(c),
		frontendURL: c.FrontendURL,
		limiter:     newIPLimiter(c.AuthRatePerMinute),
		registry:    reg,
		metrics:     newHTTPMetrics(reg),
	}
}

// Router assembles the route tree.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger, s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.frontendURL))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, http.StatusOK, "Server is up", nil)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	gate := SessionGate(s.accounts, s.cookies.name, s.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", s.register)
		r.With(s.limiter.middleware).Post("/login", s.login)
		r.Get("/logout", s.logout)
		r.With(s.limiter.middleware).Post("/forgetpassword", s.forgetPassword)
		r.Post("/resetpassword/{token}", s.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(gate)
			r.Get("/me", s.me)
			r.Delete("/me", s.deleteMe)
			r.Put("/changepassword", s.changePassword)
			r.Put("/updateprofile", s.updateProfile)
			r.Put("/updateprofilepicture", s.updateProfilePicture)
			r.Post("/addtoplaylist", s.addToPlaylist)
			r.Post("/removefromplaylist", s.removeFromPlaylist)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(gate, AuthorizeAdmin(s.logger))
			r.Get("/users", s.listUsers)
			r.Put("/user/{id}", s.updateUserRole)
			r.Delete("/user/{id}", s.deleteUser)
			r.Get("/stats", s.listStats)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
