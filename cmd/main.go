package main

import (
	"context"
	"database/sql"
	"errors"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/craftfolio/mailroom/config"
	"github.com/craftfolio/mailroom/internal/application"
	"github.com/craftfolio/mailroom/internal/container"
	pginfra "github.com/craftfolio/mailroom/internal/infrastructure/postgres"
	"github.com/craftfolio/mailroom/internal/infrastructure/redisstore"
	"github.com/craftfolio/mailroom/internal/interface/middleware"
	"github.com/craftfolio/mailroom/internal/router"
	"github.com/craftfolio/mailroom/pkg/helpers"
	"github.com/craftfolio/mailroom/pkg/mailer"
	"github.com/craftfolio/mailroom/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres pool for the delivery log
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	// Redis: suppression set, consent, dedup markers, queue WAL
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	// Elasticsearch for the admin email-history index
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("failed to init elasticsearch client: %v", err)
	}

	// RabbitMQ publisher for the lifecycle event stream
	events, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventQueue)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer events.Close()

	tokens := helpers.NewServiceTokenManager(cfg.ServiceTokenSecret, cfg.ServiceTokenTTL)
	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)

	// Stores and application core
	suppression := redisstore.NewSuppressionList(rdb)
	consent := redisstore.NewConsentStore(rdb)
	identity := redisstore.NewIdentityResolver(rdb)
	limiter := redisstore.NewCampaignLimiter(rdb, logger, cfg.CampaignCooldown, cfg.CampaignCountRetention)
	deliveryLog := pginfra.NewDeliveryLog(pool)

	gate := application.NewConsentGate(suppression, consent, identity, logger, cfg.StoreLookupTimeout)
	registry := application.NewCampaignRegistry(application.DefaultCampaigns()...)
	queue := application.NewJobQueue(rdb, cfg.QueueWALKey, logger)
	indexer := &application.DeliveryIndexer{ES: es, Index: cfg.ESEmailIndex, Logger: logger}

	svc := &application.MailService{
		Queue:       queue,
		Gate:        gate,
		Registry:    registry,
		Limiter:     limiter,
		Suppression: suppression,
		Consent:     consent,
		Identity:    identity,
		Log:         deliveryLog,
		Events:      events,
		Logger:      logger,
	}

	dispatcher := &application.Dispatcher{
		Queue:            queue,
		Transport:        mg,
		Log:              deliveryLog,
		Events:           events,
		Indexer:          indexer,
		Logger:           logger,
		Limiter:          rate.NewLimiter(rate.Limit(cfg.SendRatePerSec), cfg.SendRatePerSec),
		Interval:         cfg.DispatchInterval,
		TransportTimeout: cfg.TransportTimeout,
		BackoffCeiling:   cfg.BackoffCeiling,
	}
	go dispatcher.Run(ctx)

	if cfg.DebugMetricsEnabled {
		expvar.Publish("mail_queue_depth", expvar.Func(func() any { return queue.Len() }))
	}

	// Singletons for router auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetES(es)
	container.SetServiceTokens(tokens)
	container.SetMailgun(mg)
	container.SetRabbitPub(events)
	container.SetMailService(svc)
	container.SetIndexer(indexer)
	container.SetRegistry(registry)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
