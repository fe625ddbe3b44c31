package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/leadsync/internal/config"
	"github.com/JonMunkholm/leadsync/internal/core"
	"github.com/JonMunkholm/leadsync/internal/lock"
	"github.com/JonMunkholm/leadsync/internal/logging"
	"github.com/JonMunkholm/leadsync/internal/notify"
	"github.com/JonMunkholm/leadsync/internal/sheets"
	"github.com/JonMunkholm/leadsync/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	alerter := notify.NewAlerter(notify.AlerterConfig{
		SMTPHost: cfg.Alert.SMTPHost,
		SMTPPort: cfg.Alert.SMTPPort,
		Username: cfg.Alert.SMTPUser,
		Password: cfg.Alert.SMTPPassword,
		From:     cfg.Alert.From,
		To:       cfg.Alert.To,
	}, logger)

	if err := run(cfg, logger, alerter); err != nil {
		logger.Error("server stopped with error", "error", err)
		if aerr := alerter.SendServerDown(err.Error(), time.Now()); aerr != nil {
			logger.Error("send down alert", "error", aerr)
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, alerter *notify.Alerter) error {
	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"sync_interval", cfg.Sync.Interval.String(),
		"csv_source", cfg.Sheets.UsesFileSource(),
		"redis_lock", cfg.Redis.URL != "",
		"kafka", len(cfg.Kafka.Brokers) > 0,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	logger.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := core.NewPgStore(pool)
	if cfg.Database.ApplySchema {
		if err := store.ApplySchema(ctx); err != nil {
			return err
		}
		logger.Info("database schema applied")
	}

	columns, err := core.LoadColumnMap(cfg.Sync.ColumnMapFile)
	if err != nil {
		return fmt.Errorf("load column map: %w", err)
	}

	orchestrator, err := core.NewOrchestrator(store, core.Options{
		Columns:         columns,
		PrimarySource:   cfg.Sync.PrimarySource,
		SecondarySource: cfg.Sync.SecondarySource,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	source, err := newRowSource(ctx, cfg.Sheets)
	if err != nil {
		return err
	}

	// Outcome listeners
	hub := notify.NewHub(logger)
	defer hub.Close()
	sinks := notify.Multi{hub, notify.LogSink{Logger: logger}}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		logger.Info("publishing outcomes to kafka", "topic", cfg.Kafka.Topic)
	}

	// Cross-process cycle guard: Redis when configured, else a PG advisory lock
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}
	guard := lock.New(redisClient, pool, cfg.Sync.LockKey, cfg.Sync.LockTTL)

	service, err := core.NewService(orchestrator, source,
		core.WithSink(sinks),
		core.WithGuard(guard),
		core.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	server, err := web.NewServer(cfg, web.Deps{
		Syncer: service,
		Leads:  store,
		DB:     store,
		Live:   hub.Handler(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		service.StartSyncScheduler(jobCtx, core.SchedulerConfig{
			Interval:   cfg.Sync.Interval,
			RunOnStart: cfg.Sync.RunOnStart,
		})
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("shutting down...", "signal", sig.String())
		if err := alerter.SendServerDown("received "+sig.String(), time.Now()); err != nil {
			logger.Error("send down alert", "error", err)
		}

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let a running cycle finish before the pool closes
		select {
		case <-schedulerDone:
		case <-shutdownCtx.Done():
			logger.Warn("sync cycle did not finish in time")
		}

		hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openPool connects to PostgreSQL with the configured pool limits.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// newRowSource picks the CSV export when configured, else the Sheets API.
func newRowSource(ctx context.Context, cfg config.SheetsConfig) (core.RowSource, error) {
	if cfg.UsesFileSource() {
		slog.Info("reading rows from csv file", "path", cfg.SourceCSVPath)
		return &sheets.FileSource{Path: cfg.SourceCSVPath}, nil
	}

	client, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.SpreadsheetID,
		Range:           cfg.Range,
		ClientEmail:     cfg.ClientEmail,
		PrivateKey:      cfg.PrivateKey,
		CredentialsFile: cfg.CredentialsFile,
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.FetchTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	slog.Info("reading rows from google sheets", "spreadsheet_id", cfg.SpreadsheetID, "range", cfg.Range)
	return client, nil
}
