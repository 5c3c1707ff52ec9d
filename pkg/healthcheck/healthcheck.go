// Package healthcheck aggregates dependency probes behind the /health,
// /ready and /live endpoints.
package healthcheck

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check is the result of one probe
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Optional    bool          `json:"optional,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
	Metadata    interface{}   `json:"metadata,omitempty"`
}

// Response is the aggregated report served by Handler
type Response struct {
	Status        Status        `json:"status"`
	Version       string        `json:"version"`
	Timestamp     time.Time     `json:"timestamp"`
	Checks        []Check       `json:"checks"`
	TotalDuration time.Duration `json:"total_duration_ms"`
}

// Checker probes one dependency
type Checker interface {
	Check(ctx context.Context) Check
}

type registration struct {
	checker  Checker
	optional bool
}

// HealthCheck runs the registered probes concurrently and caches the
// aggregate for a short while so load balancers cannot hammer dependencies.
type HealthCheck struct {
	version  string
	logger   *zap.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	checkers map[string]registration
	cache    *Response
	cacheTTL time.Duration
}

// New creates a new health check instance
func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version:  version,
		logger:   logger,
		timeout:  10 * time.Second,
		checkers: make(map[string]registration),
		cacheTTL: 5 * time.Second,
	}
}

// Register adds a dependency the service cannot work without
func (h *HealthCheck) Register(name string, checker Checker) {
	h.register(name, registration{checker: checker})
}

// RegisterOptional adds a dependency whose failure only degrades the
// service. An unhealthy optional check is reported as degraded.
func (h *HealthCheck) RegisterOptional(name string, checker Checker) {
	h.register(name, registration{checker: checker, optional: true})
}

func (h *HealthCheck) register(name string, reg registration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = reg
	h.cache = nil
}

// SetCacheTTL sets how long an aggregate is reused. Zero disables caching.
func (h *HealthCheck) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
	h.cache = nil
}

// Handler serves the full report, 503 when unhealthy
func (h *HealthCheck) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := h.Check(r.Context())

		code := http.StatusOK
		if response.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, response)
	}
}

// LivenessHandler answers as long as the process serves HTTP
func (h *HealthCheck) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	}
}

// ReadinessHandler reports ready unless a required dependency is down
func (h *HealthCheck) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := h.Check(r.Context())

		if response.Status == StatusUnhealthy {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not_ready",
				"checks": response.Checks,
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ready",
			"timestamp": response.Timestamp,
		})
	}
}

// Check runs every probe, or returns the cached aggregate while fresh
func (h *HealthCheck) Check(ctx context.Context) Response {
	h.mu.RLock()
	cached, ttl := h.cache, h.cacheTTL
	regs := make(map[string]registration, len(h.checkers))
	for name, reg := range h.checkers {
		regs[name] = reg
	}
	h.mu.RUnlock()

	if cached != nil && ttl > 0 && time.Since(cached.Timestamp) < ttl {
		return *cached
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	checks := make([]Check, 0, len(regs))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, reg := range regs {
		wg.Add(1)
		go func(name string, reg registration) {
			defer wg.Done()

			check := reg.checker.Check(ctx)
			check.Name = name
			check.Optional = reg.optional
			if reg.optional && check.Status == StatusUnhealthy {
				check.Status = StatusDegraded
			}

			mu.Lock()
			checks = append(checks, check)
			mu.Unlock()
		}(name, reg)
	}
	wg.Wait()

	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	response := Response{
		Status:    StatusHealthy,
		Version:   h.version,
		Timestamp: start,
		Checks:    checks,
	}
	for _, check := range checks {
		switch check.Status {
		case StatusUnhealthy:
			response.Status = StatusUnhealthy
			h.logger.Warn("Health check failed",
				zap.String("check", check.Name),
				zap.String("message", check.Message),
			)
		case StatusDegraded:
			if response.Status == StatusHealthy {
				response.Status = StatusDegraded
			}
		}
	}
	response.TotalDuration = time.Since(start)

	h.mu.Lock()
	h.cache = &response
	h.mu.Unlock()

	return response
}

// probe times fn and turns its error into an unhealthy check
func probe(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) Check {
	start := time.Now()
	metadata, err := fn(ctx)

	check := Check{
		Status:      StatusHealthy,
		LastChecked: start,
		Duration:    time.Since(start),
		Metadata:    metadata,
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// DatabaseChecker probes a pgx pool
type DatabaseChecker struct {
	pool *pgxpool.Pool
}

func NewDatabaseChecker(pool *pgxpool.Pool) *DatabaseChecker {
	return &DatabaseChecker{pool: pool}
}

// Check pings the pool. Nearly exhausted pools are degraded.
func (d *DatabaseChecker) Check(ctx context.Context) Check {
	check := probe(ctx, func(ctx context.Context) (interface{}, error) {
		if err := d.pool.Ping(ctx); err != nil {
			return nil, err
		}
		stats := d.pool.Stat()
		return map[string]interface{}{
			"total_conns":    stats.TotalConns(),
			"idle_conns":     stats.IdleConns(),
			"acquired_conns": stats.AcquiredConns(),
			"max_conns":      stats.MaxConns(),
		}, nil
	})

	if check.Status == StatusHealthy {
		stats := d.pool.Stat()
		if stats.MaxConns() > 0 && float64(stats.AcquiredConns())/float64(stats.MaxConns()) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High connection pool utilization"
		}
	}
	return check
}

// SQLChecker probes a database/sql handle, as exposed by gorm
type SQLChecker struct {
	db *sql.DB
}

func NewSQLChecker(db *sql.DB) *SQLChecker {
	return &SQLChecker{db: db}
}

// Check pings the database. A pool with every connection in use is degraded.
func (s *SQLChecker) Check(ctx context.Context) Check {
	var stats sql.DBStats
	check := probe(ctx, func(ctx context.Context) (interface{}, error) {
		if err := s.db.PingContext(ctx); err != nil {
			return nil, err
		}
		stats = s.db.Stats()
		return map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
		}, nil
	})

	if check.Status == StatusHealthy && stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
		check.Status = StatusDegraded
		check.Message = "Connection pool exhausted"
	}
	return check
}

// RedisChecker probes the session and cache store
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (r *RedisChecker) Check(ctx context.Context) Check {
	return probe(ctx, func(ctx context.Context) (interface{}, error) {
		if err := r.client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		pool := r.client.PoolStats()
		return map[string]interface{}{
			"total_conns": pool.TotalConns,
			"idle_conns":  pool.IdleConns,
			"timeouts":    pool.Timeouts,
		}, nil
	})
}

// CustomChecker wraps an arbitrary probe function
type CustomChecker struct {
	check func(ctx context.Context) (Status, string, interface{})
}

func NewCustomChecker(check func(ctx context.Context) (Status, string, interface{})) *CustomChecker {
	return &CustomChecker{check: check}
}

func (c *CustomChecker) Check(ctx context.Context) Check {
	start := time.Now()
	status, message, metadata := c.check(ctx)

	return Check{
		Status:      status,
		Message:     message,
		Metadata:    metadata,
		LastChecked: start,
		Duration:    time.Since(start),
	}
}

// PingChecker turns a ping function into a checker
func PingChecker(ping func(ctx context.Context) error) *CustomChecker {
	return NewCustomChecker(func(ctx context.Context) (Status, string, interface{}) {
		if err := ping(ctx); err != nil {
			return StatusUnhealthy, err.Error(), nil
		}
		return StatusHealthy, "", nil
	})
}

// MarshalJSON reports the duration in milliseconds
func (c Check) MarshalJSON() ([]byte, error) {
	type Alias Check
	return json.Marshal(&struct {
		Duration float64 `json:"duration_ms"`
		*Alias
	}{
		Duration: float64(c.Duration.Microseconds()) / 1000,
		Alias:    (*Alias)(&c),
	})
}

// MarshalJSON reports the total duration in milliseconds
func (r Response) MarshalJSON() ([]byte, error) {
	type Alias Response
	return json.Marshal(&struct {
		TotalDuration float64 `json:"total_duration_ms"`
		*Alias
	}{
		TotalDuration: float64(r.TotalDuration.Microseconds()) / 1000,
		Alias:         (*Alias)(&r),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
