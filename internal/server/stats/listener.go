package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/coursesell/internal/logging"
	"github.com/jackc/pgx/v5"
)

// ChannelUsersChanged is the NOTIFY channel the users table trigger publishes on.
const ChannelUsersChanged = "users_changed"

// Listener abstracts PostgreSQL LISTEN/NOTIFY. The returned channel emits
// notification payloads and is closed when the subscription ends for any
// reason, including ctx cancellation.
type Listener interface {
	Listen(ctx context.Context) (<-chan string, error)
}

// PgListener holds a dedicated pgx connection per subscription.
type PgListener struct {
	dsn     string
	channel string
	logger  logging.Logger
}

func NewPgListener(dsn, channel string, l logging.Logger) *PgListener {
	return &PgListener{dsn: dsn, channel: channel, logger: l.With("module", "pg_listener")}
}

func (l *PgListener) Listen(ctx context.Context) (<-chan string, error) {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return nil, fmt.Errorf("listener connect: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		closeConn(conn)
		return nil, fmt.Errorf("listen %s: %w", l.channel, err)
	}

	ch := make(chan string, 16)
	go func() {
		defer close(ch)
		defer closeConn(conn)

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					l.logger.Warn(ctx, "notification wait failed", "channel", l.channel, "error", err)
				}
				return
			}
			select {
			case ch <- n.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func closeConn(conn *pgx.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = conn.Close(ctx)
}
