package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"JobWatch/internal/config"
	"JobWatch/internal/domain"
	"JobWatch/internal/infrastructure/httpapi"
	"JobWatch/internal/infrastructure/httpclient"
	"JobWatch/internal/infrastructure/mail"
	"JobWatch/internal/infrastructure/parser"
	"JobWatch/internal/infrastructure/redisbus"
	"JobWatch/internal/infrastructure/scheduler"
	"JobWatch/internal/infrastructure/storage"
	"JobWatch/internal/infrastructure/telegram"
	"JobWatch/internal/logging"
	"JobWatch/internal/ports"
	"JobWatch/internal/scanner"
	"JobWatch/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.SourceStore
	runner    *usecase.Runner
	scheduler *usecase.Scheduler
	handler   http.Handler
	closers   []func()
}

// New connects the configured backends and seeds the source store.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	added, err := storage.Seed(ctx, store, cfg.SeedSources())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("seed sources: %w", err)
	}
	if added > 0 {
		baseLogger.Info("seeded sources", "count", added)
	}

	var (
		locker    ports.RunLocker
		publisher ports.ReportPublisher
	)
	if cfg.Redis.Addr != "" {
		client, err := redisbus.NewClient(ctx, redisbus.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		locker = redisbus.NewLocker(client, "")
		publisher = redisbus.NewPublisher(client, cfg.Redis.Channel)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewGenericScanner(baseLogger.With("component", "scanner.generic")))
	registry.Register(parser.NewHTMLScanner(baseLogger.With("component", "scanner.html")))
	registry.Register(parser.NewAmazonScanner(baseLogger.With("component", "scanner.amazon")))
	a.logger.Debug("listing strategies registered", "strategies", registry.Names())

	transport := httpclient.NewTransport(httpclient.Options{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		MaxBodyKB:      cfg.Fetch.MaxBodyKB,
		WarmUp:         cfg.Fetch.WarmUp,
		Retry: httpclient.RetryPolicy{
			MaxAttempts:       cfg.Fetch.Retry.MaxAttempts,
			InitialDelay:      cfg.Fetch.Retry.InitialDelay,
			MaxDelay:          cfg.Fetch.Retry.MaxDelay,
			BackoffMultiplier: cfg.Fetch.Retry.BackoffMultiplier,
		},
	}, baseLogger.With("component", "httpclient"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Listings:         parser.NewStrategySource(registry, baseLogger.With("component", "source")),
		Transport:        transport,
		Deliverer:        newDeliverer(cfg.Delivery, baseLogger.With("component", "delivery")),
		Publisher:        publisher,
		Locker:           locker,
		Logger:           baseLogger.With("component", "pipeline"),
		Location:         cfg.Scheduler.Location(),
		ListingTimeout:   cfg.Fetch.ListingTimeout,
		DetailTimeout:    cfg.Fetch.DetailTimeout,
		MaxCandidates:    cfg.Fetch.MaxCandidates,
		MaxParallel:      cfg.Fetch.MaxParallel,
		LockTTL:          cfg.Redis.LockTTL,
		DefaultRecipient: cfg.DefaultRecipient(),
	})
	a.runner = usecase.NewRunner(store, pipeline, baseLogger.With("component", "runner"))

	if cfg.Scheduler.CronExpression != "" {
		driver, err := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.scheduler = usecase.NewScheduler(driver, a.runner, baseLogger.With("component", "scheduler"))
		a.logger.Info("cron trigger configured", "expr", cfg.Scheduler.CronExpression, "next", driver.Next(time.Now()))
	}

	a.handler = httpapi.NewRouter(&httpapi.Handlers{
		Store:      store,
		Runner:     a.runner,
		RunTimeout: cfg.HTTP.RunTimeout,
		Logger:     baseLogger.With("component", "httpapi"),
	})
	return a, nil
}

func (a *Application) openStore(ctx context.Context) (ports.SourceStore, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Info("no database configured, using in-memory source store")
		return storage.NewMemoryRepository(), nil
	}
	pool, err := storage.Connect(ctx, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)

	repo := storage.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func newDeliverer(cfg config.DeliveryConfig, logger *slog.Logger) ports.Deliverer {
	if cfg.Channel == config.ChannelTelegram {
		return telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.APIBase)
	}
	return mail.NewMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)
}

// Handler exposes the HTTP API.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Run serves the HTTP API and the optional cron trigger until ctx ends.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() {
			if err := a.scheduler.Stop(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("scheduler stop", "error", err)
			}
		}()
	}

	server := httpapi.NewServer(a.cfg.HTTP.Addr, a.handler, a.logger.With("component", "http"))
	return server.Run(ctx)
}

// RunOnce runs the named source, or every active source when name is empty.
func (a *Application) RunOnce(ctx context.Context, name string, opts usecase.RunOptions) ([]*domain.RunReport, error) {
	if name == "" {
		outcomes, err := a.runner.RunAllActive(ctx, opts)
		var reports []*domain.RunReport
		for _, out := range outcomes {
			if out.Report != nil {
				reports = append(reports, out.Report)
			}
		}
		return reports, err
	}
	out, err := a.runner.RunByName(ctx, name, opts)
	if out.Report == nil {
		if err == nil && out.Reason != "" {
			err = errors.New(out.Reason)
		}
		return nil, err
	}
	return []*domain.RunReport{out.Report}, err
}

// Close releases database and Redis connections.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
