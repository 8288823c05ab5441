// Package server wires the CourseSell components together and runs them
// until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/coursesell/internal/logging"
	"github.com/dmitrijs2005/coursesell/internal/server/config"
	"github.com/dmitrijs2005/coursesell/internal/server/httpserver"
	"github.com/dmitrijs2005/coursesell/internal/server/mailer"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursesell/internal/server/services"
	"github.com/dmitrijs2005/coursesell/internal/server/stats"
	"github.com/dmitrijs2005/coursesell/internal/server/storage"

	gs "github.com/dmitrijs2005/coursesell/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpserver.HTTPServer
	grpcServer *gs.GRPCServer
	aggregator *stats.Aggregator
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	ctx := context.Background()

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	st, err := storage.NewS3Storage(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	accounts := services.NewAccountService(db, rm, c, st, mailer.New(c, logger), logger)
	statsService := services.NewStatsService(db, rm)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics := stats.NewMetrics()
	metrics.Register(reg)

	grpcServer := gs.NewGRPCServer(c.GRPCAddr, logger)

	aggregator := stats.NewAggregator(db, rm,
		stats.NewPgListener(c.DatabaseDSN, stats.ChannelUsersChanged, logger),
		logger,
		stats.WithReconnectConfig(c.FeedReconnectInitial, c.FeedReconnectMax),
		stats.WithMetrics(metrics),
		stats.WithHealthHook(grpcServer.SetStatsHealthy),
	)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		httpServer: httpserver.NewHTTPServer(c, logger, accounts, statsService, reg),
		grpcServer: grpcServer,
		aggregator: aggregator,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// run starts one component and cancels everything else if it fails.
func (app *App) run(ctx context.Context, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		app.logger.Error(ctx, "component failed", "component", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	components := map[string]func(context.Context) error{
		"http":  app.httpServer.Run,
		"grpc":  app.grpcServer.Run,
		"stats": app.aggregator.Run,
	}

	for name, fn := range components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.run(ctx, cancelFunc, name, fn)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
