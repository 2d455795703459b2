package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/db"
	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	httpapi "github.com/yungbote/pinegate-backend/internal/http"
	"github.com/yungbote/pinegate-backend/internal/jobs/pipeline/daily_village"
	"github.com/yungbote/pinegate-backend/internal/jobs/pipeline/weekly_village"
	"github.com/yungbote/pinegate-backend/internal/jobs/runtime"
	"github.com/yungbote/pinegate-backend/internal/jobs/scheduler"
	"github.com/yungbote/pinegate-backend/internal/modules/village/catalog"
	"github.com/yungbote/pinegate-backend/internal/observability"
	"github.com/yungbote/pinegate-backend/internal/platform/directory"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/platform/narration"
	"github.com/yungbote/pinegate-backend/internal/platform/redislock"
	"github.com/yungbote/pinegate-backend/internal/temporalx"
	"github.com/yungbote/pinegate-backend/internal/temporalx/schedule"
	"github.com/yungbote/pinegate-backend/internal/temporalx/temporalworker"
)

// Deps are the long-lived collaborators shared by the API and the pipelines.
type Deps struct {
	DB        *gorm.DB
	Repos     repos.Set
	Generator narration.Generator
	Directory directory.Counter
	Locker    redislock.Locker
	Catalog   []catalog.Quest
}

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Deps     Deps
	Runner   *runtime.Runner
	Services Services
	Server   *httpapi.Server

	dbService    *db.Service
	otelShutdown func(context.Context) error
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbService, err := db.Open(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a := &App{Log: log, Cfg: cfg, dbService: dbService, otelShutdown: otelShutdown}

	deps, err := wireDeps(ctx, log, cfg, dbService.DB())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Deps = deps

	runner, err := wireRunner(log, cfg, deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Runner = runner
	a.Services = wireServices(log, deps, runner)

	handlers := wireHandlers(a.Services, cfg.DevMode)
	a.Server = httpapi.NewServer(httpapi.RouterConfig{
		Log:                log,
		ServiceName:        ServiceName,
		AllowedOrigins:     cfg.AllowedOrigins,
		Metrics:            metrics,
		HealthHandler:      handlers.Health,
		DevHandler:         handlers.Dev,
		PipelineRunHandler: handlers.PipelineRuns,
		CharacterHandler:   handlers.Characters,
		QuestBoardHandler:  handlers.QuestBoard,
		StoryHandler:       handlers.Story,
	})
	return a, nil
}

func wireDeps(ctx context.Context, log *logger.Logger, cfg Config, gdb *gorm.DB) (Deps, error) {
	if cfg.DB.AutoMigrate {
		log.Info("Running auto migrations", "driver", cfg.DB.Driver)
		if err := db.AutoMigrateAll(gdb); err != nil {
			return Deps{}, fmt.Errorf("automigrate: %w", err)
		}
	}
	set := repos.NewSet(gdb, log)

	gen, err := narration.New(ctx, log, cfg.Narration)
	if err != nil {
		return Deps{}, fmt.Errorf("init narration: %w", err)
	}
	quests, err := catalog.Load(cfg.QuestCatalogPath)
	if err != nil {
		return Deps{}, fmt.Errorf("load quest catalog: %w", err)
	}
	return Deps{
		DB:        gdb,
		Repos:     set,
		Generator: gen,
		Directory: directory.New(log, cfg.Directory, set.Characters),
		Locker:    redislock.New(ctx, log, cfg.Redis),
		Catalog:   quests,
	}, nil
}

func wireRunner(log *logger.Logger, cfg Config, deps Deps) (*runtime.Runner, error) {
	registry := runtime.NewRegistry()
	weekly := weekly_village.New(log, deps.Repos, deps.Generator, weekly_village.Options{
		MaxConcurrency: cfg.MaxConcurrency,
		TitleBatchSize: cfg.TitleBatchSize,
	})
	daily := daily_village.New(log, deps.Repos, deps.Directory, deps.Generator, daily_village.Options{
		MaxConcurrency: cfg.MaxConcurrency,
		Catalog:        deps.Catalog,
	})
	for _, h := range []runtime.Handler{weekly, daily} {
		if err := registry.Register(h); err != nil {
			return nil, fmt.Errorf("register pipeline %s: %w", h.Type(), err)
		}
	}
	return runtime.NewRunner(log, registry, deps.Repos.PipelineRuns, deps.Locker, cfg.LockTTL), nil
}

// Serve runs the HTTP API until ctx is cancelled, then waits for triggered pipeline runs.
func (a *App) Serve(ctx context.Context) error {
	err := a.Server.Run(ctx, a.Cfg.Address())
	a.Log.Info("Waiting for in-flight pipeline runs")
	a.Runner.Wait()
	return err
}

// Worker runs the cron schedules on Temporal when TEMPORAL_ADDRESS is set and on the
// in-process scheduler otherwise. It blocks until ctx is cancelled.
func (a *App) Worker(ctx context.Context) error {
	if a.Cfg.Temporal.Enabled() {
		return a.temporalWorker(ctx)
	}
	s, err := scheduler.New(a.Log, a.Runner, []scheduler.Entry{
		{Pipeline: daily_village.Type, Cron: a.Cfg.DailyCron},
		{Pipeline: weekly_village.Type, Cron: a.Cfg.WeeklyCron},
	})
	if err != nil {
		return err
	}
	s.Run(ctx)
	return nil
}

func (a *App) temporalWorker(ctx context.Context) error {
	tc, err := temporalx.NewClient(ctx, a.Log, a.Cfg.Temporal)
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer tc.Close()

	w, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, tc, a.Runner, []schedule.Entry{
		{Pipeline: daily_village.Type, Cron: a.Cfg.DailyCron},
		{Pipeline: weekly_village.Type, Cron: a.Cfg.WeeklyCron},
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// RunOnce executes pipeline synchronously. A skipped run (lock held) is not an error.
func (a *App) RunOnce(ctx context.Context, pipeline string) (*types.PipelineRun, error) {
	if !a.Runner.Known(pipeline) {
		return nil, &runtime.UnknownPipelineError{Pipeline: pipeline}
	}
	return a.Runner.Run(ctx, pipeline, TriggeredByCLI)
}

const TriggeredByCLI = "cli"

func (a *App) Close() {
	if a == nil {
		return
	}
	var errs []error
	if a.Deps.Locker != nil {
		errs = append(errs, a.Deps.Locker.Close())
	}
	if a.dbService != nil {
		errs = append(errs, a.dbService.Close())
	}
	if a.otelShutdown != nil {
		errs = append(errs, a.otelShutdown(context.Background()))
	}
	if err := errors.Join(errs...); err != nil && a.Log != nil {
		a.Log.Warn("Shutdown finished with errors", "error", err)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
