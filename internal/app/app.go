// Package app wires the services shared by the API server and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/config"
	"github.com/redmonkez12/diary-api/internal/crypto"
	"github.com/redmonkez12/diary-api/internal/database"
	"github.com/redmonkez12/diary-api/internal/diary"
	"github.com/redmonkez12/diary-api/internal/dispatch"
	"github.com/redmonkez12/diary-api/internal/email"
	httpServer "github.com/redmonkez12/diary-api/internal/http"
	"github.com/redmonkez12/diary-api/internal/llm"
	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/pat"
	"github.com/redmonkez12/diary-api/internal/ratelimit"
	"github.com/redmonkez12/diary-api/internal/recommendation"
	"github.com/redmonkez12/diary-api/internal/scheduler"
	"github.com/redmonkez12/diary-api/internal/settings"
	"github.com/redmonkez12/diary-api/internal/user"
	"github.com/redmonkez12/diary-api/migrations"
)

// App holds the connections and services of one process
type App struct {
	Config *config.Config
	Logger *logging.Logger

	DB    *bun.DB
	Redis *redis.Client

	Tokens          auth.TokenService
	PATs            *pat.Service
	Users           *user.Directory
	Settings        *settings.Service
	SettingsRepo    *settings.Repository
	Diary           *diary.Service
	Recommendations *recommendation.Repository
	Generator       *recommendation.Generator
	Engine          *dispatch.Engine
	Limiter         *ratelimit.Limiter

	// SMTP always delivers; Sender is what the engine uses and may be the queue
	SMTP   *email.SMTPSender
	Sender email.Sender
	Queue  *email.Queue

	closers []func() error
}

// New connects to Postgres and Redis, applies migrations when enabled and
// builds every service
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := a.Migrate(func(m *database.Migrator) error { return m.Up() }); err != nil {
			a.Close()
			return nil, err
		}
	}

	if err := a.build(); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	sqlDB, err := database.Open(ctx, a.Config.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = database.NewBunDB(sqlDB)
	a.closers = append(a.closers, a.DB.Close)

	a.Redis = redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Address(),
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	a.closers = append(a.closers, a.Redis.Close)

	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

// Migrate runs fn against a migrator over the embedded migrations
func (a *App) Migrate(fn func(*database.Migrator) error) error {
	m, err := database.NewMigrator(migrations.FS, a.Config.Database.URL())
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(m)
}

func (a *App) build() error {
	cfg := a.Config

	tokens, err := NewTokenService(cfg.Auth)
	if err != nil {
		return err
	}
	a.Tokens = tokens

	a.Users = user.NewDirectory(user.NewRepository(a.DB), a.Logger)

	var patStore pat.Store
	switch cfg.PAT.Store {
	case config.PATStoreRedis:
		patStore = pat.NewRedisStore(a.Redis)
	default:
		patStore = pat.NewBunStore(a.DB)
	}
	a.PATs = pat.NewService(patStore, a.Logger)

	a.Limiter = ratelimit.NewLimiter(a.Redis, map[string]ratelimit.Rule{
		ratelimit.PurposeTokenCreate: {Limit: cfg.PAT.CreateLimit, Window: cfg.PAT.CreateLimitWindow},
		ratelimit.PurposeTestEmail:   {Limit: cfg.Email.TestSendLimit, Window: time.Hour},
	})

	a.SettingsRepo = settings.NewRepository(a.DB, a.Logger)
	a.Settings = settings.NewService(a.SettingsRepo, a.Users, a.Logger)

	cipher, err := crypto.NewCipher(cfg.Crypto.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}
	a.Diary = diary.NewService(diary.NewRepository(a.DB, cipher))

	completer, err := llm.NewClient(cfg.LLM, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	a.Recommendations = recommendation.NewRepository(a.DB)
	a.Generator = recommendation.NewGenerator(a.Diary, a.Recommendations, completer, cfg.LLM.RequestsPerMinute, a.Logger)

	a.SMTP = email.NewSMTPSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword, cfg.Email.FromAddress)
	a.Sender = a.SMTP
	if cfg.Email.Transport == config.TransportAMQP {
		queue, err := email.OpenQueue(cfg.Email.AMQPURL, cfg.Email.AMQPQueue)
		if err != nil {
			return err
		}
		a.Queue = queue
		a.closers = append(a.closers, queue.Close)
		a.Sender = email.NewQueueSender(queue.Channel, queue.Name)
	}

	a.Engine = dispatch.NewEngine(a.SettingsRepo, a.Generator, a.Sender, a.Logger,
		dispatch.WithWindow(cfg.Dispatch.Window),
		dispatch.WithConcurrency(cfg.Dispatch.Concurrency),
		dispatch.WithUserTimeout(cfg.Dispatch.UserTimeout),
		dispatch.WithRenderer(email.NewRenderer(cfg.Email.AppURL).Recommendation),
	)

	return nil
}

// NewTokenService picks the federated token format
func NewTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.Strategy {
	case config.StrategyJWT:
		svc, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
		}
		return svc, nil
	default:
		svc, err := auth.NewPasetoService(cfg.PasetoKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PASETO service: %w", err)
		}
		return svc, nil
	}
}

// Router builds the HTTP handler tree
func (a *App) Router() (http.Handler, error) {
	authorizer, err := auth.NewAuthorizer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authorizer: %w", err)
	}

	// PAT first so p_ tokens never reach the federated verifier
	authMiddleware := auth.NewMiddleware(
		pat.NewScheme(a.PATs, a.Logger),
		auth.NewTokenScheme(a.Tokens, a.Users.Record),
	)

	handlers := httpServer.Handlers{
		Tokens:          pat.NewHandler(a.PATs, a.Limiter),
		Settings:        settings.NewHandler(a.Settings, a.Engine, a.Limiter),
		Entries:         diary.NewHandler(a.Diary),
		Recommendations: recommendation.NewHandler(a.Generator, a.Recommendations),
	}

	return httpServer.NewRouter(a.Config, handlers, authMiddleware, authorizer, a.Logger), nil
}

// NewLoop builds the dispatch loop, with the Redis pass lock when enabled
func (a *App) NewLoop() (*scheduler.Loop, error) {
	var opts []scheduler.Option
	if a.Config.Dispatch.LockEnabled {
		locker, err := scheduler.NewRedisLocker(a.Redis, a.Config.Dispatch.LockTTL, a.Logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scheduler.WithLocker(locker))
	}

	return scheduler.NewLoop(a.Engine, a.Config.Dispatch.PollInterval, a.Config.Dispatch.Window, a.Logger, opts...)
}

// NewHousekeeping builds the retention job
func (a *App) NewHousekeeping() *scheduler.Housekeeping {
	cfg := a.Config.Housekeeping
	return scheduler.NewHousekeeping(a.Logger,
		scheduler.Retention{
			Kind:   "recommendations",
			Purger: scheduler.PurgeFunc(a.Recommendations.PurgeOlderThan),
			Keep:   cfg.RecommendationRetention,
		},
		scheduler.Retention{
			Kind:   "personal_access_tokens",
			Purger: scheduler.PurgeFunc(a.PATs.PurgeRevoked),
			Keep:   cfg.RevokedTokenRetention,
		},
	)
}

// Close releases connections in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
