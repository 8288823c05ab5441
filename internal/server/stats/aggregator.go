// Package stats keeps the statistics snapshot in step with the users table.
// A trigger publishes every users mutation on a NOTIFY channel; the
// Aggregator recounts on each notification and overwrites the latest
// snapshot. Recounts are full and idempotent, so duplicated, reordered or
// coalesced notifications all converge on the true counts.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/dbx"
	"github.com/dmitrijs2005/coursesell/internal/logging"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/repomanager"
)

const (
	defaultReconnectInitial = 500 * time.Millisecond
	defaultReconnectMax     = 30 * time.Second
)

type Option func(*Aggregator)

// WithReconnectConfig sets the exponential backoff bounds for resubscribing.
func WithReconnectConfig(initial, maxInterval time.Duration) Option {
	return func(a *Aggregator) {
		if initial > 0 {
			a.reconnectInitial = initial
		}
		if maxInterval > 0 {
			a.reconnectMax = maxInterval
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithHealthHook registers fn to be called whenever the feed goes up or down.
func WithHealthHook(fn func(healthy bool)) Option {
	return func(a *Aggregator) { a.healthHook = fn }
}

type Aggregator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	listener    Listener
	logger      logging.Logger
	metrics     *Metrics
	healthHook  func(bool)
	now         func() time.Time

	// runTx executes fn in a recount transaction.
	runTx func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

	reconnectInitial time.Duration
	reconnectMax     time.Duration

	healthy atomic.Bool
}

func NewAggregator(db *sql.DB, m repomanager.RepositoryManager, listener Listener, l logging.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		db:               db,
		repomanager:      m,
		listener:         listener,
		logger:           l.With("module", "stats_aggregator"),
		metrics:          NewMetrics(),
		now:              time.Now,
		reconnectInitial: defaultReconnectInitial,
		reconnectMax:     defaultReconnectMax,
	}
	a.runTx = func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return dbx.WithTx(ctx, a.db, dbx.RecountTx, fn)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Healthy reports whether the change feed is currently subscribed.
func (a *Aggregator) Healthy() bool {
	return a.healthy.Load()
}

func (a *Aggregator) setHealthy(v bool) {
	if a.healthy.Swap(v) == v {
		return
	}
	if a.healthHook != nil {
		a.healthHook(v)
	}
}

// Recompute recounts users and active subscriptions and writes them to the
// latest snapshot, creating the first snapshot when none exists.
func (a *Aggregator) Recompute(ctx context.Context) (*models.Stats, error) {
	var snap *models.Stats

	err := a.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := a.repomanager.Users(tx)

		total, err := users.CountAll(ctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		active, err := users.CountActiveSubscriptions(ctx)
		if err != nil {
			return fmt.Errorf("count subscriptions: %w", err)
		}

		repo := a.repomanager.Stats(tx)
		snap, err = repo.Latest(ctx)
		if errors.Is(err, common.ErrorNotFound) {
			snap, err = repo.Create(ctx, &models.Stats{})
		}
		if err != nil {
			return fmt.Errorf("latest stats: %w", err)
		}

		snap.Users = total
		snap.Subscriptions = active
		snap.CreatedAt = a.now()

		if err := repo.Save(ctx, snap); err != nil {
			return fmt.Errorf("save stats: %w", err)
		}
		return nil
	})
	if err != nil {
		a.metrics.RecomputeErrors.Inc()
		return nil, err
	}

	a.metrics.Recomputes.Inc()
	a.metrics.Users.Set(float64(snap.Users))
	a.metrics.Subscriptions.Set(float64(snap.Subscriptions))
	return snap, nil
}

// recompute runs Recompute until it succeeds or ctx is done, backing off
// between attempts. A failed recount must not wait for the next event.
func (a *Aggregator) recompute(ctx context.Context) {
	var snap *models.Stats
	err := retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		s, err := a.Recompute(ctx)
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Error(ctx, "stats recompute failed, retrying", "error", err)
			}
			return retry.RetryableError(err)
		}
		snap = s
		return nil
	})
	if err != nil {
		return
	}
	a.logger.Debug(ctx, "stats recomputed", "users", snap.Users, "subscriptions", snap.Subscriptions)
}

func (a *Aggregator) backoff() retry.Backoff {
	return retry.WithCappedDuration(a.reconnectMax, retry.NewExponential(a.reconnectInitial))
}

// subscribe retries Listen with exponential backoff until it succeeds or
// ctx is done.
func (a *Aggregator) subscribe(ctx context.Context) (<-chan string, error) {
	var ch <-chan string
	err := retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		c, err := a.listener.Listen(ctx)
		if err != nil {
			a.metrics.FeedReconnects.Inc()
			a.logger.Warn(ctx, "change feed subscribe failed", "error", err)
			return retry.RetryableError(err)
		}
		ch = c
		return nil
	})
	return ch, err
}

// consume recomputes once per batch of pending events until the feed
// closes or ctx is done.
func (a *Aggregator) consume(ctx context.Context, ch <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
		drain:
			for {
				select {
				case _, ok := <-ch:
					if !ok {
						a.recompute(ctx)
						return
					}
				default:
					break drain
				}
			}
			a.recompute(ctx)
		}
	}
}

// Run subscribes to the change feed and keeps the snapshot current until
// ctx is cancelled. Every (re)subscription starts with a full recompute so
// changes made while the feed was down are picked up. Run returns nil on
// cancellation.
func (a *Aggregator) Run(ctx context.Context) error {
	a.logger.Info(ctx, "Starting stats aggregator")

	for {
		ch, err := a.subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}

		a.setHealthy(true)
		a.recompute(ctx)
		a.consume(ctx, ch)
		a.setHealthy(false)

		if ctx.Err() != nil {
			break
		}

		a.metrics.FeedReconnects.Inc()
		a.logger.Warn(ctx, "change feed closed, resubscribing")

		select {
		case <-ctx.Done():
		case <-time.After(a.reconnectInitial):
		}
	}

	a.logger.Info(ctx, "Stopping stats aggregator...")
	return nil
}
