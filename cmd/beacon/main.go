package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/openlistings/beacon/config"
	alertrecordrepo "github.com/openlistings/beacon/internal/repositories/alertrecord"
	buyerrepo "github.com/openlistings/beacon/internal/repositories/buyer"
	notificationrepo "github.com/openlistings/beacon/internal/repositories/notification"
	propertyrepo "github.com/openlistings/beacon/internal/repositories/property"
	runsummaryrepo "github.com/openlistings/beacon/internal/repositories/runsummary"
	"github.com/openlistings/beacon/pkg/access"
	"github.com/openlistings/beacon/pkg/audit"
	"github.com/openlistings/beacon/pkg/database"
	"github.com/openlistings/beacon/pkg/dispatch"
	"github.com/openlistings/beacon/pkg/engine"
	"github.com/openlistings/beacon/pkg/kafka"
	"github.com/openlistings/beacon/pkg/logger"
	"github.com/openlistings/beacon/pkg/matching"
	"github.com/openlistings/beacon/pkg/middleware"
	"github.com/openlistings/beacon/pkg/notify"
	"github.com/openlistings/beacon/pkg/redis"
	alertrecordroutes "github.com/openlistings/beacon/pkg/routes/alertrecord"
	alertrunroutes "github.com/openlistings/beacon/pkg/routes/alertrun"
	"github.com/openlistings/beacon/pkg/routes/health"
	"github.com/openlistings/beacon/pkg/tracing"
	"github.com/openlistings/beacon/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log ectologger.Logger) error {
	if cfg.OTLPEnabled {
		exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
		})
		if err != nil {
			return fmt.Errorf("create otlp exporter: %w", err)
		}
		provider := tracing.NewProvider(cfg.AppName, exporter)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = provider.Shutdown(shutdownCtx)
		}()
	}

	// Database
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)

	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer sqlxDB.Close()

	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	db := database.NewDatabaseInstance(sqlxDB, log)

	driver, err := postgres.WithInstance(sqlxDB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrations := database.NewMigrationService(log, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	limiter := redis.NewActionLimiter(
		redis.NewRateLimiter(redisClient, "beacon:ratelimit:"),
		int64(cfg.AlertRateLimit),
		cfg.AlertRateLimitWindow,
	)

	// Kafka producers
	auditProducer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaAuditTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, log)
	defer auditProducer.Close()

	emailProducer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaEmailJobsTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, log)
	defer emailProducer.Close()

	// Repositories
	buyerRepo := buyerrepo.NewRepository(db, log)
	propertyRepo := propertyrepo.NewRepository(db, log)
	alertRecordRepo := alertrecordrepo.NewRepository(db, log)
	notificationRepo := notificationrepo.NewRepository(db, log)
	runSummaryRepo := runsummaryrepo.NewRepository(db, log)

	// Services
	auditEmitter := audit.NewEmitter(auditProducer, log)
	notifier := notify.NewService(emailProducer, notificationRepo, log)
	gate := access.NewGate(buyerRepo, auditEmitter, log)
	scorer := matching.NewScorer(matching.ScorerConfig{
		MatchThreshold:    cfg.MatchThreshold,
		CompoundThreshold: cfg.CompoundMatchThreshold,
		CompoundMin:       cfg.CompoundMatchMinCriteria,
	})
	dispatcher := dispatch.NewDispatcher(notifier, alertRecordRepo, auditEmitter, limiter, log)
	coordinator := engine.NewCoordinator(
		propertyRepo,
		buyerRepo,
		gate,
		scorer,
		dispatcher,
		runSummaryRepo,
		auditEmitter,
		engine.Config{
			Workers:      cfg.RunWorkerCount,
			BuyerTimeout: cfg.RunBuyerTimeout,
		},
		log,
	)

	// Dependency injection for route handlers
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("create di container: %w", err)
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, log); err != nil {
		return fmt.Errorf("register logger: %w", err)
	}
	if err := ectoinject.RegisterInstance[*engine.Coordinator](container, coordinator); err != nil {
		return fmt.Errorf("register coordinator: %w", err)
	}
	if err := ectoinject.RegisterInstance[*alertrecordrepo.Repository](container, alertRecordRepo); err != nil {
		return fmt.Errorf("register alert record repository: %w", err)
	}
	if err := ectoinject.RegisterInstance[*runsummaryrepo.Repository](container, runSummaryRepo); err != nil {
		return fmt.Errorf("register run summary repository: %w", err)
	}
	if err := ectoinject.RegisterInstance[*redis.ActionLimiter](container, limiter); err != nil {
		return fmt.Errorf("register action limiter: %w", err)
	}

	// Kafka consumer (run triggers from the listings service)
	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(cfg, log, propertyApprovedHandler(coordinator, log))
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				log.WithError(err).Error("Failed to stop kafka consumer")
			}
		}()
	}

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(log))
	e.HTTPErrorHandler = middleware.Error(log)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var consumerHealth health.ConsumerHealth
	if consumer != nil {
		consumerHealth = consumer
	}
	checker := health.NewChecker(db, redisClient, consumerHealth, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	alertrunroutes.Register(api.Group("/alert-runs"))
	alertrecordroutes.Register(api.Group("/alert-records"))

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting %s on port %d", cfg.AppName, cfg.Port)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	checker.SetReady(true)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	checker.SetReady(false)
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}

func propertyApprovedHandler(coordinator *engine.Coordinator, log ectologger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		if !msg.IsPropertyApproved() {
			log.WithContext(ctx).WithFields(map[string]any{
				"topic":  msg.Topic,
				"offset": msg.Offset,
			}).Debug("Skipping non property.approved message")
			return nil
		}

		event, err := msg.ParsePropertyApproved()
		if err != nil {
			// unparseable events are committed, retrying cannot fix them
			log.WithContext(ctx).WithError(err).Error("Failed to parse property.approved event")
			return nil
		}

		if _, err := coordinator.Run(ctx, event.PropertyID); err != nil {
			return err
		}
		return nil
	}
}
