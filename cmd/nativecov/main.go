// Command nativecov launches a target process under native debug control,
// applies a coverage filter to whatever source/module scope was configured,
// and records the run's outcome. It is a thin wiring layer over
// core/debugloop, core/coveragefilter, core/dumpguard, core/dumpstore, and
// core/runhistory — the packages that hold the actual logic.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nativecov/nativecov/core/config"
	"github.com/nativecov/nativecov/core/coveragefilter"
	"github.com/nativecov/nativecov/core/debugloop"
	"github.com/nativecov/nativecov/core/dumpguard"
	"github.com/nativecov/nativecov/core/dumpstore"
	"github.com/nativecov/nativecov/core/logger"
	"github.com/nativecov/nativecov/core/runhistory"
	"github.com/nativecov/nativecov/integration/database/pg"
	"github.com/nativecov/nativecov/pkg/ratelimiter"
)

func main() {
	log := logger.New(logger.WithDevelopment("nativecov"))

	if err := run(log); err != nil {
		log.Error("run failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load[appConfig]()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DumpDirectory, 0o755); err != nil {
		return fmt.Errorf("create dump directory: %w", err)
	}

	manager, err := buildFilterManager(cfg)
	if err != nil {
		return fmt.Errorf("build coverage filter: %w", err)
	}

	guard, err := buildDumpGuard(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build dump guard: %w", err)
	}

	handler := &collectorHandler{log: log, runID: uuid.New()}

	if cfg.EnablePersistence {
		repo, closeFn, err := buildRepository(ctx, log)
		if err != nil {
			log.Warn("persistence disabled", logger.Error(err))
		} else {
			defer closeFn()
			handler.repo = repo
			handler.archive = buildArchiver(ctx, cfg, log)

			run := runhistory.Run{
				ID:          handler.runID,
				CommandLine: cfg.CommandLine,
				Status:      runhistory.StatusRunning,
			}
			if err := repo.CreateRun(ctx, run); err != nil {
				log.Warn("failed to record run start", logger.Error(err))
			}
		}
	}

	loop := debugloop.NewLoop(debugloop.NewOSDebugger(),
		debugloop.WithLogger(log),
		debugloop.WithDumpGuard(guard),
	)

	exitCode, err := loop.Debug(ctx, debugloop.StartInfo{
		CommandLine:   cfg.CommandLine,
		DumpOnCrash:   cfg.DumpOnCrash,
		DumpDirectory: cfg.DumpDirectory,
		StopOnAssert:  cfg.StopOnAssert,
	}, handler)
	if err != nil {
		return fmt.Errorf("debug session: %w", err)
	}

	for _, line := range manager.ComputeWarningMessageLines(20) {
		log.Warn(line)
	}

	log.Info("target exited", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
	return nil
}

func buildFilterManager(cfg appConfig) (*coveragefilter.Manager, error) {
	settings := coveragefilter.CoverageSettings{
		ModulePatterns: cfg.ModulePatterns,
		SourcePatterns: cfg.SourcePatterns,
	}

	var diffFilters []*coveragefilter.UnifiedDiffFilter
	if cfg.DiffFile != "" {
		data, err := os.ReadFile(cfg.DiffFile)
		if err != nil {
			return nil, fmt.Errorf("read diff file: %w", err)
		}
		diffFilter, err := coveragefilter.NewUnifiedDiffFilter(string(data), cfg.RepoRoot)
		if err != nil {
			return nil, fmt.Errorf("parse diff file: %w", err)
		}
		diffFilters = append(diffFilters, diffFilter)
	}

	return coveragefilter.NewManager(settings, diffFilters...)
}

func buildDumpGuard(ctx context.Context, cfg appConfig) (*dumpguard.Guard, error) {
	guardConfig := ratelimiter.Config{
		Capacity:       cfg.DumpGuardCapacity,
		RefillRate:     cfg.DumpGuardRefillRate,
		RefillInterval: cfg.DumpGuardRefillInterval,
	}

	var store ratelimiter.Store
	if cfg.EnableDistributedGuard && cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		store = ratelimiter.NewRedisStore(client, ratelimiter.WithRedisKeyPrefix("nativecov:"))
	} else {
		store = ratelimiter.NewMemoryStore()
	}

	return dumpguard.New(store, guardConfig)
}

func buildRepository(ctx context.Context, log *slog.Logger) (*runhistory.Repository, func(), error) {
	pgCfg, err := config.Load[pg.Config]()
	if err != nil {
		return nil, nil, fmt.Errorf("load pg config: %w", err)
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	return runhistory.NewRepository(pool), pool.Close, nil
}

func buildArchiver(ctx context.Context, cfg appConfig, log *slog.Logger) *dumpstore.Archiver {
	if !cfg.EnableArchival {
		return nil
	}

	dsCfg, err := config.Load[dumpstore.Config]()
	if err != nil {
		log.Warn("archival disabled", logger.Error(err))
		return nil
	}

	archiver, err := dumpstore.New(ctx, dsCfg)
	if err != nil {
		log.Warn("archival disabled", logger.Error(err))
		return nil
	}
	return archiver
}
