package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"civicfix-backend/internal/issues"
	"civicfix-backend/internal/queue"
	"civicfix-backend/internal/services/health"
	"civicfix-backend/internal/sessions"
	"civicfix-backend/internal/shared/config"
	"civicfix-backend/internal/shared/server"
	"civicfix-backend/internal/shared/storage/db"
	"civicfix-backend/internal/shared/storage/object"
	localstore "civicfix-backend/internal/shared/storage/object/local"
	s3store "civicfix-backend/internal/shared/storage/object/s3"
	"civicfix-backend/internal/shared/telemetry"
	"civicfix-backend/internal/tracking"
	"civicfix-backend/internal/wizard"
)

// SweepInterval is how often idle sessions are checked.
const SweepInterval = time.Minute

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.ObjectStore
	Queue           queue.Client
	IssuesRepo      issues.Repo
	IssuesService   *issues.Service
	TrackingService *tracking.Service
	SessionsService *sessions.Service
	Hub             *sessions.Hub
	HealthService   *health.Service

	cancel context.CancelFunc
	closed bool
}

// Options overrides pieces of the build for tests.
type Options struct {
	Analyzer wizard.Analyzer
	Now      func() time.Time
}

// Build prepares every dependency and the router. Background loops start with Start.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(cfg, Options{})
}

// BuildWith is Build with overrides.
func BuildWith(cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}
	buildServices(app, opts)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Health:   app.HealthService,
		Sessions: sessions.NewHandler(app.SessionsService, app.Hub),
		Issues:   issues.NewHandler(app.IssuesService, app.Store),
		Tracking: tracking.NewHandler(app.TrackingService),
	})
	return app, nil
}

// Start runs the websocket hub and the idle session sweeper until Close.
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.Hub.Run(ctx)
	go a.SessionsService.RunSweeper(ctx, SweepInterval)
}

// Close ends sessions, stops background loops and releases connections.
func (a *App) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.SessionsService.Close()
	if a.cancel != nil {
		a.cancel()
	}
	if c, ok := a.Queue.(io.Closer); ok {
		if err := c.Close(); err != nil {
			telemetry.Warn("bootstrap.queue_close_failed", map[string]any{"error": err.Error()})
		}
	}
	closeDB(a.DB)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			closeDB(sqlDB)
			sqlDB = nil
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{
				"reason": "database unavailable",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	switch cfg.QueueBackend {
	case "sqs":
		if strings.TrimSpace(cfg.SQSQueueURL) == "" {
			return nil, fmt.Errorf("QUEUE_BACKEND=sqs requires SQS_QUEUE_URL")
		}
		return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
	case "amqp":
		if strings.TrimSpace(cfg.AMQPURL) == "" {
			return nil, fmt.Errorf("QUEUE_BACKEND=amqp requires AMQP_URL")
		}
		return queue.NewAMQPClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	default:
		return nil, nil
	}
}

func buildServices(app *App, opts Options) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	if app.DB != nil {
		app.IssuesRepo = &issues.PGRepo{DB: app.DB}
	} else {
		app.IssuesRepo = issues.NewSeededMemoryRepo(now())
	}
	app.IssuesService = issues.NewService(app.IssuesRepo, app.Config.TicketPrefix)
	app.IssuesService.Now = now
	app.TrackingService = tracking.NewService(app.IssuesService)

	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = wizard.NewMockAnalyzer(app.Config.AnalysisDelay)
	}
	app.Hub = sessions.NewHub(app.Config.CORSAllowOrigin)
	app.SessionsService = sessions.NewService(sessions.Options{
		Analyzer: analyzer,
		Finalizer: &sessions.Finalizer{
			Issues:         app.IssuesService,
			Store:          app.Store,
			Queue:          app.Queue,
			Mode:           app.Config.TicketMode,
			StaticTicketID: app.Config.StaticTicketID,
			Now:            now,
		},
		Hub:           app.Hub,
		IdleTTL:       app.Config.SessionIdleTTL,
		MaxImageBytes: app.Config.MaxImageBytes,
		Now:           func() time.Time { return now().UTC() },
	})
	app.HealthService = health.NewService(app.DB, app.SessionsService)
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB == nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		telemetry.Warn("bootstrap.db_close_failed", map[string]any{"error": err.Error()})
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
