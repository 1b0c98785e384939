package main

import (
	_ "github.com/joho/godotenv/autoload"

	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/okian/teamalloc/internal/adapters/http/api"
	"github.com/okian/teamalloc/internal/adapters/http/swagger"
	"github.com/okian/teamalloc/internal/adapters/mq/publisher"
	"github.com/okian/teamalloc/internal/adapters/notify"
	"github.com/okian/teamalloc/internal/adapters/repository"
	"github.com/okian/teamalloc/internal/adapters/repository/sqlstore"
	app "github.com/okian/teamalloc/internal/app"
	"github.com/okian/teamalloc/internal/config"
	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/internal/domain/scoring"
	"github.com/okian/teamalloc/internal/scheduler"
	"github.com/okian/teamalloc/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(ctx, "failed to load config", logger.Error(err))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal(ctx, "failed to open store", logger.String("store", cfg.Store), logger.Error(err))
	}
	defer closeStore()

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithScorer(scoring.NewCalculator(scoring.WithWeights(cfg.Weights()))),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithDedupeWindow(cfg.DedupeWindow),
		app.WithRunConcurrency(cfg.RunConcurrency),
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := publisher.New(publisher.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			log.Fatal(ctx, "failed to create publisher", logger.Error(err))
		}
		defer func() { _ = pub.Close() }()
		opts = append(opts, app.WithPublisher(pub))
		log.Info(ctx, "publishing teams", logger.Strings("brokers", cfg.KafkaBrokers), logger.String("topic", cfg.KafkaTopic))
	}
	if cfg.MailHost != "" {
		n, err := notify.New(notify.Config{
			Host:        cfg.MailHost,
			Port:        cfg.MailPort,
			Username:    cfg.MailUsername,
			Password:    cfg.MailPassword,
			From:        cfg.MailFrom,
			Coordinator: cfg.CoordinatorEmail,
		})
		if err != nil {
			log.Fatal(ctx, "failed to create notifier", logger.Error(err))
		}
		opts = append(opts, app.WithNotifier(n))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		log.Fatal(ctx, "failed to start service", logger.Error(err))
	}

	events, err := scheduler.Events(cfg.Schedules)
	if err != nil {
		log.Fatal(ctx, "invalid schedules", logger.Error(err))
	}
	sched := scheduler.New(func(ctx context.Context, contestID string, stage model.Stage) error {
		_, err := svc.TriggerContest(ctx, contestID, stage)
		return err
	}, events)
	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(ctx, "scheduler stopped", logger.Error(err))
		}
	}()

	router := mux.NewRouter()
	swagger.Register(ctx, router)
	api.NewServer(svc,
		api.WithTriggerLimit(cfg.TriggerRatePerSec, cfg.TriggerBurst),
		api.WithLogger(log.Named("api")),
	).Register(ctx, router)

	var handler http.Handler = handlers.RecoveryHandler()(router)
	if cfg.LogLevel == "debug" {
		handler = handlers.CombinedLoggingHandler(os.Stdout, handler)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// openStore builds the configured roster store.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	var dc sqlstore.Config
	switch cfg.Store {
	case config.StorePostgres:
		dc = sqlstore.Config{Dialect: sqlstore.Postgres, DSN: cfg.PostgresDSN, MigrationsDir: cfg.MigrationsDir}
	case config.StoreSQLite:
		dc = sqlstore.Config{Dialect: sqlstore.SQLite, DSN: cfg.SQLitePath}
	default:
		return repository.NewMemoryStore(), func() {}, nil
	}

	st, err := sqlstore.Open(dc, sqlstore.WithLogger(logger.Get().Named("sqlstore")))
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx, dc.MigrationsDir); err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}
