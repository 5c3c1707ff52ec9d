// Package migrations versions the postgres schema with golang-migrate. The
// SQL files are embedded so the binary carries its own schema.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// ErrDirty is returned when a previous migration failed halfway. The schema
// must be repaired by hand and the version forced before migrating again.
var ErrDirty = errors.New("database schema is dirty")

const lockTimeout = 30 * time.Second

// Status describes the schema version
type Status struct {
	Version uint
	Dirty   bool
	Latest  uint
}

// Pending reports whether migrations remain to be applied
func (s Status) Pending() bool {
	return s.Version < s.Latest
}

func (s Status) String() string {
	state := "clean"
	if s.Dirty {
		state = "dirty"
	}
	return fmt.Sprintf("version %d of %d (%s)", s.Version, s.Latest, state)
}

// Migrator applies the embedded migrations to one database
type Migrator struct {
	migrate *migrate.Migrate
	latest  uint
	logger  *zap.Logger
}

// New creates a migrator for the postgres database behind db. The migrator
// takes db over: Close closes it too.
func New(db *sql.DB, databaseName string, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(sqlFiles, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	latest, err := latestVersion(src)
	if err != nil {
		return nil, err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    databaseName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	logger = logger.Named("migrations")
	m.Log = zapLogger{logger: logger}
	m.LockTimeout = lockTimeout

	return &Migrator{migrate: m, latest: latest, logger: logger}, nil
}

func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations: %w", err)
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			return version, nil
		}
		version = next
	}
}

// Status reads the current schema version
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	return Status{Version: version, Dirty: dirty, Latest: m.latest}, nil
}

// Version returns the current migration version, zero when none ran
func (m *Migrator) Version() (uint, bool, error) {
	status, err := m.Status()
	return status.Version, status.Dirty, err
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.run("up", m.migrate.Up)
}

// Down reverts the last applied migration
func (m *Migrator) Down() error {
	return m.Steps(-1)
}

// Steps applies n migrations, or reverts -n when n is negative
func (m *Migrator) Steps(n int) error {
	direction := "up"
	if n < 0 {
		direction = "down"
	}
	return m.run(fmt.Sprintf("%s %d", direction, abs(n)), func() error {
		return m.migrate.Steps(n)
	})
}

// Reset reverts every migration
func (m *Migrator) Reset() error {
	m.logger.Warn("Reverting all migrations")
	return m.run("reset", m.migrate.Down)
}

// Force records version as applied and clean without running anything
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version: %w", err)
	}
	return nil
}

func (m *Migrator) run(action string, apply func() error) error {
	before, err := m.Status()
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("%w at version %d", ErrDirty, before.Version)
	}

	start := time.Now()
	if err := apply(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Schema already up to date", zap.Stringer("status", before))
			return nil
		}
		return fmt.Errorf("migration %s failed: %w", action, err)
	}

	after, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info("Migrations applied",
		zap.String("action", action),
		zap.Uint("from_version", before.Version),
		zap.Uint("to_version", after.Version),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Close releases the migration source, the driver's connection and db
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

// zapLogger routes golang-migrate's progress messages to zap
type zapLogger struct {
	logger *zap.Logger
}

func (l zapLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l zapLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
