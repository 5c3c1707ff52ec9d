// Package healthcheck unit tests
package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubChecker struct {
	status  Status
	message string
	calls   int32
}

func (s *stubChecker) Check(ctx context.Context) Check {
	atomic.AddInt32(&s.calls, 1)
	return Check{Status: s.status, Message: s.message, LastChecked: time.Now()}
}

func TestNew(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	assert.Equal(t, "1.0.0", hc.version)
	assert.NotNil(t, hc.checkers)
	assert.Equal(t, 5*time.Second, hc.cacheTTL)
}

func TestHealthCheck_Check_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]Status
		want     Status
	}{
		{"no checkers", nil, StatusHealthy},
		{"all healthy", map[string]Status{"database": StatusHealthy, "cache": StatusHealthy}, StatusHealthy},
		{"one degraded", map[string]Status{"database": StatusHealthy, "llm": StatusDegraded}, StatusDegraded},
		{"unhealthy wins", map[string]Status{"database": StatusUnhealthy, "llm": StatusDegraded}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			for name, status := range tt.statuses {
				hc.Register(name, &stubChecker{status: status})
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tt.want, response.Status)
			assert.Len(t, response.Checks, len(tt.statuses))
			for _, check := range response.Checks {
				assert.Equal(t, tt.statuses[check.Name], check.Status)
			}
		})
	}
}

func TestHealthCheck_Check_Cached(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	checker := &stubChecker{status: StatusHealthy}
	hc.Register("database", checker)

	hc.Check(context.Background())
	hc.Check(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&checker.calls))

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	hc.Check(context.Background())
	assert.Equal(t, int32(3), atomic.LoadInt32(&checker.calls))
}

func TestHandlers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("database", &stubChecker{status: StatusUnhealthy, message: "down"})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		hc.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body["status"])
	})

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("live", func(t *testing.T) {
		rec := httptest.NewRecorder()
		hc.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "alive")
	})
}

func TestReadiness_DegradedIsReady(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("llm", &stubChecker{status: StatusDegraded})

	rec := httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterOptional_FailureDegrades(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("database", &stubChecker{status: StatusHealthy})
	hc.RegisterOptional("llm", &stubChecker{status: StatusUnhealthy, message: "no key"})

	response := hc.Check(context.Background())

	assert.Equal(t, StatusDegraded, response.Status)
	require.Len(t, response.Checks, 2)
	assert.Equal(t, "database", response.Checks[0].Name, "checks are sorted by name")
	llm := response.Checks[1]
	assert.Equal(t, StatusDegraded, llm.Status)
	assert.True(t, llm.Optional)
	assert.Equal(t, "no key", llm.Message)
}

func TestPingChecker(t *testing.T) {
	ok := PingChecker(func(context.Context) error { return nil })
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	failing := PingChecker(func(context.Context) error { return errors.New("connection refused") })
	check := failing.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Equal(t, "connection refused", check.Message)
}

func TestCheck_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Check{Name: "db", Status: StatusHealthy, Duration: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration_ms":1500`)
}
