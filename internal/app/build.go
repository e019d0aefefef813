package app

import (
	"context"
	"errors"
	"fmt"

	"vofo/internal/config"
	"vofo/internal/logging"
	"vofo/internal/middleware"
	"vofo/internal/providers"
	"vofo/internal/providers/catalog"
	"vofo/internal/providers/ytdlp"
	"vofo/internal/repositories"
	"vofo/internal/services"
	"vofo/internal/sessions"
	"vofo/pkg/rabbitmq"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Runtime owns the dependencies and the connections behind them.
type Runtime struct {
	Deps *Dependencies
	// Events is nil when RABBITMQ_URL is unset or the broker was unreachable.
	Events *rabbitmq.Client

	closers []func() error
}

// Close releases every connection opened by Build, last opened first.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Build wires stores, the revocation store, the event broker and the
// providers according to cfg.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	rt := &Runtime{}

	accounts, likes, err := rt.openStores(cfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	revoker, err := rt.openRevoker(ctx, cfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			logger.Warn("activity events disabled", "err", err)
		} else {
			rt.Events = client
			rt.closers = append(rt.closers, client.Close)
			events = client
		}
	}

	resolver := ytdlp.New(cfg.YtDlpPath, cfg.ProviderTimeout, cfg.SearchLimit)
	var searcher providers.Searcher = resolver
	if cfg.SearchProvider == config.ProviderSpotify {
		searcher = catalog.NewSpotifyClient(ctx, cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.ProviderTimeout, cfg.SearchLimit)
	}
	logger.Info("search provider", "name", cfg.SearchProvider)

	if cfg.UsesDefaultSecret() {
		logger.Warn("SECRET_KEY is not set; sessions are signed with the development key")
	}

	auth := services.NewAuthService(accounts, cfg.BcryptCost, events)
	rt.Deps = &Dependencies{
		Auth:               auth,
		Sessions:           services.NewSessionService(auth, accounts, revoker, cfg.SecretKey, cfg.SessionTTL),
		Likes:              services.NewLikeService(likes, events),
		Music:              services.NewMusicService(searcher, resolver, cfg.ProviderTimeout),
		AuthRateLimiter:    authLimiter(cfg),
		AuthRateWindow:     cfg.AuthRateWindow,
		CookieSecure:       cfg.SessionCookieSecure,
		SearchRequiresAuth: cfg.SearchRequiresAuth,
		CORSOrigins:        cfg.CORSOrigins,
		StaticDir:          cfg.StaticDir,
		AccessLog:          logger.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel}).Writer(),
	}
	return rt, nil
}

func authLimiter(cfg *config.Config) middleware.RateLimiter {
	if cfg.AuthRateLimit <= 0 {
		return nil
	}
	return middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, 0, 0)
}

func (rt *Runtime) openStores(cfg *config.Config, logger *log.Logger) (repositories.AccountRepository, repositories.LikedTrackRepository, error) {
	driver, dsn := repositories.ParseDatabaseURL(cfg.DatabaseURL)
	if driver == repositories.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		accounts := repositories.NewMockAccountRepository()
		return accounts, repositories.NewMockLikedTrackRepository(accounts), nil
	}

	db, err := OpenDatabase(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	rt.closers = append(rt.closers, closeDB(db))

	if err := repositories.Migrate(db); err != nil {
		return nil, nil, err
	}
	logger.Info("database ready", "driver", driver, "dsn", redactDSN(driver, dsn))
	return repositories.NewGORMAccountRepository(db), repositories.NewGORMLikedTrackRepository(db), nil
}

func (rt *Runtime) openRevoker(ctx context.Context, cfg *config.Config, logger *log.Logger) (sessions.Revoker, error) {
	if cfg.RedisAddr == "" {
		return sessions.NewMemoryRevoker(), nil
	}
	revoker := sessions.NewRedisRevoker(cfg.RedisAddr, cfg.RedisPassword)
	rt.closers = append(rt.closers, revoker.Close)
	if err := revoker.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("session revocation store", "redis", cfg.RedisAddr)
	return revoker, nil
}

// OpenDatabase opens the SQL store named by cfg.DatabaseURL with GORM's
// logger routed through logger.
func OpenDatabase(cfg *config.Config, logger *log.Logger) (*gorm.DB, error) {
	driver, dsn := repositories.ParseDatabaseURL(cfg.DatabaseURL)
	if driver == repositories.DriverMemory {
		return nil, errors.New("DATABASE_URL points at the in-memory store; nothing to open")
	}
	gormLog := logging.With(logger, "component", "gorm")
	return repositories.OpenDatabase(driver, dsn, gormLog.StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel}))
}

// Migrate creates or updates the schema and closes the connection.
func Migrate(cfg *config.Config, logger *log.Logger) error {
	db, err := OpenDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB(db)()
	return repositories.Migrate(db)
}

func closeDB(db *gorm.DB) func() error {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}

func redactDSN(driver, dsn string) string {
	if driver == repositories.DriverPostgres {
		return "postgres://***"
	}
	return dsn
}
