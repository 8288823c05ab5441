// Command coursesell-admin performs operator tasks against the CourseSell
// database. Settings come from the COURSESELL_* environment and .env.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/coursesell/internal/admincli"
	"github.com/dmitrijs2005/coursesell/internal/logging"
	"github.com/dmitrijs2005/coursesell/internal/server/config"
	"github.com/dmitrijs2005/coursesell/internal/server/mailer"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursesell/internal/server/services"
	"github.com/dmitrijs2005/coursesell/internal/server/stats"
	"github.com/dmitrijs2005/coursesell/internal/server/storage"
)

type statsOps struct {
	*stats.Aggregator
	*services.StatsService
}

func run(ctx context.Context, args []string) error {
	cfg := config.LoadConfigFromArgs(nil)
	logger := logging.NewJSONLogger(os.Stderr, "warn")

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	st, err := storage.NewS3Storage(ctx, cfg)
	if err != nil {
		return err
	}

	accounts := services.NewAccountService(db, rm, cfg, st, mailer.New(cfg, logger), logger)
	ops := statsOps{
		Aggregator:   stats.NewAggregator(db, rm, nil, logger),
		StatsService: services.NewStatsService(db, rm),
	}

	return admincli.NewApp(accounts, ops, os.Stdin, os.Stdout).Execute(ctx, args)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, admincli.ErrUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
