// Package postgres provides PostgreSQL connections and the pgx profile repository
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	gormrepo "github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/gorm"
)

const pingTimeout = 10 * time.Second

// ConnectionManager owns the GORM handle. Reads go to the replicas when any
// are configured, writes always go to the primary.
type ConnectionManager struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	replicas int
	logger   *zap.Logger
}

// NewConnectionManager opens the primary database and registers replicas.
// A replica that cannot be registered is logged and skipped.
func NewConnectionManager(ctx context.Context, dsn string, cfg config.DatabaseConfig, log *zap.Logger) (*ConnectionManager, error) {
	log = log.Named("postgres")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormrepo.NewLogger(log, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	applyPoolLimits(sqlDB, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cm := &ConnectionManager{db: db, sqlDB: sqlDB, logger: log}
	if err := cm.useReplicas(cfg); err != nil {
		log.Warn("Read replicas disabled", zap.Error(err))
	}

	log.Info("Connected to PostgreSQL",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		zap.Int("replicas", cm.replicas),
	)
	return cm, nil
}

func applyPoolLimits(db *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

func (cm *ConnectionManager) useReplicas(cfg config.DatabaseConfig) error {
	if len(cfg.ReplicaDSNs) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(cfg.ReplicaDSNs))
	for i, dsn := range cfg.ReplicaDSNs {
		replicas[i] = postgres.Open(dsn)
	}

	resolver := dbresolver.Register(dbresolver.Config{
		Replicas:          replicas,
		Policy:            dbresolver.RandomPolicy{},
		TraceResolverMode: cm.logger.Core().Enabled(zap.DebugLevel),
	})
	if cfg.MaxOpenConns > 0 {
		resolver.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		resolver.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		resolver.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := cm.db.Use(resolver); err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}
	cm.replicas = len(replicas)
	return nil
}

// DB returns the GORM handle
func (cm *ConnectionManager) DB() *gorm.DB {
	return cm.db
}

// SQLDB returns the primary database/sql handle
func (cm *ConnectionManager) SQLDB() *sql.DB {
	return cm.sqlDB
}

// Close closes the primary connection pool
func (cm *ConnectionManager) Close() error {
	return cm.sqlDB.Close()
}
