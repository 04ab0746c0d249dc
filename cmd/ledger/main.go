package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aevon-lab/project-ledger/internal/compliance"
	corecfg "github.com/aevon-lab/project-ledger/internal/core/config"
	"github.com/aevon-lab/project-ledger/internal/core/storage"
	"github.com/aevon-lab/project-ledger/internal/core/storage/memory"
	"github.com/aevon-lab/project-ledger/internal/core/storage/postgres"
	"github.com/aevon-lab/project-ledger/internal/custodian"
	"github.com/aevon-lab/project-ledger/internal/ledger"
	"github.com/aevon-lab/project-ledger/internal/migrations"
	"github.com/aevon-lab/project-ledger/internal/monitor"
	"github.com/aevon-lab/project-ledger/internal/operations"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/aevon-lab/project-ledger/internal/seed"
	"github.com/aevon-lab/project-ledger/internal/server"
	"github.com/aevon-lab/project-ledger/internal/workflow/deposit"
	"github.com/aevon-lab/project-ledger/internal/workflow/transfer"
	"github.com/aevon-lab/project-ledger/internal/workflow/withdrawal"
	"golang.org/x/sync/errgroup"
)

// backend is what the event store choice provides to the rest of the process.
type backend interface {
	storage.Store
	server.HealthChecker
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "database", cfg.Database.Type, "server_mode", cfg.Server.Mode)

	// 2. Initialize Storage
	var (
		store   backend
		journal saga.Journal
	)
	switch cfg.Database.Type {
	case "postgres":
		dbAdapter, err := postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()

		// 2.1. Run Database Migrations, then prepare statements against the migrated schema
		if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		if err := dbAdapter.Prepare(); err != nil {
			slog.Error("Failed to prepare event store", "error", err)
			os.Exit(1)
		}
		store = dbAdapter
		journal = postgres.NewJournalAdapter(dbAdapter.DB())
	default:
		slog.Warn("Using in-memory event store, state is lost on exit")
		store = memory.NewEventLog()
		journal = saga.NewMemoryJournal()
	}

	// 3. Initialize Ledger and collaborators
	ledgerSvc := ledger.NewService(store, ledger.WithLogger(logger))
	screener := compliance.NewScreener(cfg.Compliance.BlockedAccounts, cfg.Compliance.MaxSingle())
	sandbox := custodian.NewSandbox(cfg.Custodian.LatencyDuration(), cfg.Custodian.MinConfirmations)

	sagaOpts := []saga.Option{
		saga.WithJournal(journal),
		saga.WithLogger(logger),
		saga.WithStepTimeout(cfg.Saga.StepTimeoutDuration()),
	}

	// 4. Initialize Workflows
	transferSvc := transfer.NewService(ledgerSvc, logger, sagaOpts...)
	depositSvc := deposit.NewService(deposit.NewSaga(screener, sandbox, ledgerSvc), sagaOpts...)
	withdrawalSvc := withdrawal.NewService(withdrawal.NewSaga(screener, ledgerSvc, sandbox), sagaOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Seed opening balances
	if cfg.Seed.Dir != "" {
		fixtures, err := seed.LoadDir(cfg.Seed.Dir)
		if err != nil {
			slog.Error("Failed to load seed fixtures", "dir", cfg.Seed.Dir, "error", err)
			os.Exit(1)
		}
		if err := seed.Apply(ctx, ledgerSvc, fixtures); err != nil {
			slog.Error("Failed to apply seed fixtures", "error", err)
			os.Exit(1)
		}
	}

	// 6. Initialize Server
	opsSvc := operations.NewService(
		transferSvc,
		depositSvc,
		withdrawalSvc,
		ledgerSvc,
		journal,
		cfg.Server.MaxBodySizeMB,
		operations.WithBatchParallelism(cfg.Saga.MaxParallel),
	)
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), store, cfg.Server.Mode)
	opsSvc.RegisterRoutes(srv.Engine)

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// 7. Start Services
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sandbox.Start(gctx) })

	if cfg.Monitor.Enabled {
		mon := monitor.New(store, monitor.Parameters{
			Interval:   cfg.Monitor.IntervalDuration(),
			StallAfter: cfg.Monitor.StallAfterDuration(),
			BatchSize:  cfg.Monitor.BatchSize,
		})
		g.Go(func() error { return mon.Start(gctx) })
	} else {
		slog.Info("Transfer monitor disabled by config")
	}

	// HTTP server blocks until the group context is cancelled.
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
