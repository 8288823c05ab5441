package httpserver

import (
	"context"

	"github.com/dmitrijs2005/coursesell/internal/server/models"
)

type ctxKey string

const userKey ctxKey = "user"

// WithUser stores the authenticated account on ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the account SessionGate resolved, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}
