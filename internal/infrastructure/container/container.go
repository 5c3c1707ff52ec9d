// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	appai "github.com/JosephChataignon/hAIckers-team/internal/application/ai"
	"github.com/JosephChataignon/hAIckers-team/internal/application/recipe"
	"github.com/JosephChataignon/hAIckers-team/internal/application/user"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/order"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/ai"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/http/middleware"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/http/webserver"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/imagesearch/pexels"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/monitoring"
	gormrepo "github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/gorm"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/memory"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/migrations"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/postgres"
	redisrepo "github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/redis"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/sqlite"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/security"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	"github.com/JosephChataignon/hAIckers-team/pkg/healthcheck"
	"github.com/JosephChataignon/hAIckers-team/pkg/logger"
)

// CacheKeyPrefix namespaces every key this application writes to Redis
const CacheKeyPrefix = "mealplanner:"

// sessionReportInterval is how often the active session gauge is refreshed
const sessionReportInterval = 30 * time.Second

// Module assembles the whole web application. configPath may be empty to
// use the default search path.
func Module(configPath string) fx.Option {
	return fx.Options(
		ConfigModule(configPath),
		LoggerModule,
		MonitoringModule,
		DatabaseModule,
		CacheModule,
		LLMModule,
		ImagesModule,
		ApplicationModule,
		WebModule,
	)
}

// ConfigModule provides the configuration and the viper instance watching it
func ConfigModule(configPath string) fx.Option {
	return fx.Provide(func() (*config.Config, *viper.Viper, error) {
		return config.LoadWithViper(configPath)
	})
}

// LoggerModule provides the root logger and applies log level changes from
// the config file while running
var LoggerModule = fx.Options(
	fx.Provide(func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
		return logger.NewAtomic(logger.Config{
			Level:            cfg.Logging.Level,
			Format:           cfg.Logging.Format,
			Development:      cfg.IsDevelopment(),
			Service:          cfg.App.Name,
			Environment:      cfg.App.Environment,
			SampleInitial:    cfg.Logging.SampleInitial,
			SampleThereafter: cfg.Logging.SampleThereafter,
		})
	}),
	fx.Invoke(watchLogLevel),
)

func watchLogLevel(v *viper.Viper, level zap.AtomicLevel, log *zap.Logger) {
	config.Watch(v, func(cfg *config.Config) {
		next := logger.ParseLevel(cfg.Logging.Level)
		if next != level.Level() {
			log.Info("Log level changed", zap.Stringer("level", next))
			level.SetLevel(next)
		}
	}, func(err error) {
		log.Warn("Ignoring invalid configuration change", zap.Error(err))
	})
}

// MonitoringModule provides Prometheus metrics and OpenTelemetry tracing
var MonitoringModule = fx.Provide(
	// Collection is always on; monitoring.metrics_enabled only controls the endpoint
	monitoring.NewMetricsCollector,
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.TracingEnabled,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
)

// Database is the profile store selected by database.driver
type Database struct {
	Profiles outbound.ProfileRepository
	Checker  healthcheck.Checker
}

// DatabaseModule opens the configured database and provides its profile repository
var DatabaseModule = fx.Provide(
	NewDatabase,
	func(db *Database) outbound.ProfileRepository { return db.Profiles },
)

// NewDatabase connects to sqlite, postgres through GORM, or postgres through
// pgx, migrating the schema when database.auto_migrate is set
func NewDatabase(lc fx.Lifecycle, cfg *config.Config, tracing *monitoring.TracingProvider, log *zap.Logger) (*Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbCfg := cfg.Database
	log = log.Named("database")

	switch dbCfg.Driver {
	case "sqlite":
		db, err := sqlite.SetupDatabase(dbCfg.Path, gormrepo.NewLogger(log, dbCfg.SlowQueryThreshold))
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return sqlDB.Close() }})

		log.Info("Connected to SQLite database", zap.String("path", dbCfg.Path))
		return &Database{
			Profiles: gormrepo.NewProfileRepository(db),
			Checker:  healthcheck.NewSQLChecker(sqlDB),
		}, nil

	case "postgres":
		cm, err := postgres.NewConnectionManager(ctx, cfg.GetDSN(), dbCfg, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return cm.Close() }})

		if dbCfg.AutoMigrate {
			if err := migrate(cm.SQLDB(), dbCfg.Name, log); err != nil {
				return nil, err
			}
		}
		return &Database{
			Profiles: gormrepo.NewProfileRepository(cm.DB()),
			Checker:  healthcheck.NewSQLChecker(cm.SQLDB()),
		}, nil

	case "pgx":
		pool, err := postgres.NewPool(ctx, cfg.GetURL(), dbCfg, tracing.QueryTracer(), log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { pool.Close(); return nil }})

		if dbCfg.AutoMigrate {
			// The database/sql view shares the pool and must stay open
			if err := migrate(stdlib.OpenDBFromPool(pool), dbCfg.Name, log); err != nil {
				return nil, err
			}
		}
		return &Database{
			Profiles: postgres.NewProfileRepository(pool, log),
			Checker:  healthcheck.NewDatabaseChecker(pool),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
	}
}

// migrate applies pending migrations. The migrator is not closed here
// because closing it would also close db.
func migrate(db *sql.DB, name string, log *zap.Logger) error {
	m, err := migrations.New(db, name, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// Cache is the key-value store behind sessions, image lookups and the LLM cache
type Cache struct {
	Repository outbound.CacheRepository
	Checker    healthcheck.Checker
}

// CacheModule provides the cache selected by session.backend
var CacheModule = fx.Provide(
	NewCache,
	func(c *Cache) outbound.CacheRepository { return c.Repository },
)

// NewCache creates the in-memory or Redis cache
func NewCache(lc fx.Lifecycle, cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (*Cache, error) {
	if cfg.Session.Backend != "redis" {
		repo := memory.NewCacheRepository()
		lc.Append(fx.Hook{OnStop: func(context.Context) error { repo.Close(); return nil }})

		log.Info("Using in-memory cache")
		return &Cache{
			Repository: repo,
			Checker:    healthcheck.PingChecker(repo.Ping),
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := redisrepo.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})

	return &Cache{
		Repository: redisrepo.NewCacheRepository(client, CacheKeyPrefix, metrics, log),
		Checker:    healthcheck.NewRedisChecker(client),
	}, nil
}

// LLM is the decorated completion provider and its health checker
type LLM struct {
	Provider outbound.CompletionProvider
	Checker  healthcheck.Checker
}

// LLMModule provides the completion provider: metrics and tracing around the
// configured client, with a cache in front of low-temperature requests
var LLMModule = fx.Provide(
	NewLLM,
	func(l *LLM) outbound.CompletionProvider { return l.Provider },
)

// NewLLM builds the provider chain
func NewLLM(
	cfg *config.Config,
	cache outbound.CacheRepository,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
	log *zap.Logger,
) (*LLM, error) {
	base, err := ai.NewProvider(cfg.LLM, log)
	if err != nil {
		return nil, err
	}

	var provider outbound.CompletionProvider = ai.NewInstrumentedProvider(base, metrics, tracing, log)
	if cfg.LLM.CacheTTL > 0 {
		provider = ai.NewCachedProvider(provider, cache, cfg.LLM.CacheTTL, log)
	}

	configured := cfg.LLM.Provider == ai.ProviderOllama || cfg.LLM.APIKey != ""
	if !configured {
		log.Warn("No LLM API key configured, goal and recipe generation will fail",
			zap.String("provider", cfg.LLM.Provider))
	}

	return &LLM{
		Provider: provider,
		Checker:  ai.NewHealthChecker(base, configured, log),
	}, nil
}

// ImagesModule provides the recipe image lookup
var ImagesModule = fx.Provide(NewImageLookup)

// NewImageLookup builds the image lookup. Without an API key only the static
// table answers and other recipes get the placeholder.
func NewImageLookup(cfg *config.Config, cache outbound.CacheRepository, log *zap.Logger) inbound.ImageLookup {
	searcher := pexels.NewClient(pexels.Config{
		BaseURL: cfg.Images.BaseURL,
		APIKey:  cfg.Images.APIKey,
		Size:    cfg.Images.Size,
		Timeout: cfg.Images.Timeout,
	}, log)
	return recipe.NewImageService(searcher, cache, cfg.Images.CacheTTL, log)
}

// ApplicationModule provides the application services
var ApplicationModule = fx.Provide(
	appai.NewNutritionService,
	func(s *appai.NutritionService) inbound.MealAdvisor { return s },
	func(profiles outbound.ProfileRepository, advisor *appai.NutritionService, log *zap.Logger) inbound.CredentialService {
		return user.NewCredentialService(profiles, advisor, log)
	},
	func() *order.Simulator {
		return order.NewSimulator(order.DefaultScript, order.DefaultPickup, nil)
	},
)

// WebModule provides the web server and starts it with the application
var WebModule = fx.Options(
	fx.Provide(
		security.NewValidationService,
		func(cfg *config.Config, log *zap.Logger) *middleware.RateLimiter {
			return middleware.NewRateLimiter(cfg.RateLimit, log)
		},
		func(cache outbound.CacheRepository, cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) *webserver.SessionStore {
			return webserver.NewSessionStore(cache, cfg.Session, metrics, log)
		},
		NewHealthCheck,
		NewWebServer,
	),
	fx.Invoke(RegisterLifecycleHooks),
)

// NewHealthCheck registers the database and cache as required and the LLM
// as optional: without it the visitor can still log in and see the dashboard.
func NewHealthCheck(cfg *config.Config, db *Database, cache *Cache, llm *LLM, log *zap.Logger) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log)
	hc.Register("system", healthcheck.NewCustomChecker(func(context.Context) (healthcheck.Status, string, interface{}) {
		return healthcheck.StatusHealthy, "System operational", map[string]interface{}{
			"service":     cfg.App.Name,
			"environment": cfg.App.Environment,
		}
	}))
	hc.Register("database", db.Checker)
	hc.Register("cache", cache.Checker)
	hc.RegisterOptional("llm", llm.Checker)
	return hc
}

// WebParams are the web server's collaborators
type WebParams struct {
	fx.In

	Config      *config.Config
	Logger      *zap.Logger
	Credentials inbound.CredentialService
	Advisor     inbound.MealAdvisor
	Images      inbound.ImageLookup
	Simulator   *order.Simulator
	Sessions    *webserver.SessionStore
	Validator   *security.ValidationService
	RateLimiter *middleware.RateLimiter
	Health      *healthcheck.HealthCheck
	Metrics     *monitoring.MetricsCollector
	Tracing     *monitoring.TracingProvider
}

// NewWebServer creates the web server from its collaborators
func NewWebServer(p WebParams) (*webserver.WebServer, error) {
	return webserver.NewWebServer(p.Config, p.Logger, webserver.Dependencies{
		Credentials: p.Credentials,
		Advisor:     p.Advisor,
		Images:      p.Images,
		Simulator:   p.Simulator,
		Sessions:    p.Sessions,
		Validator:   p.Validator,
		RateLimiter: p.RateLimiter,
		Health:      p.Health,
		Metrics:     p.Metrics,
		Tracing:     p.Tracing,
	})
}

// RegisterLifecycleHooks starts the server and its background sweeps with the
// application and stops them on shutdown
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	server *webserver.WebServer,
	limiter *middleware.RateLimiter,
	sessions *webserver.SessionStore,
) {
	background, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting meal planner",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			go limiter.Cleanup(background)
			go sessions.ReportActive(background, sessionReportInterval)

			go func() {
				if err := server.Start(); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down meal planner")
			cancel()

			shutdownCtx, done := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}
