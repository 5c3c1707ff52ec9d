package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	"github.com/JosephChataignon/hAIckers-team/pkg/healthcheck"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

type unwrapper interface {
	Unwrap() outbound.CompletionProvider
}

// HealthChecker reports provider availability without spending tokens.
// Local servers are pinged. Hosted APIs only need a key.
type HealthChecker struct {
	provider   outbound.CompletionProvider
	configured bool
	logger     *zap.Logger
}

var _ healthcheck.Checker = (*HealthChecker)(nil)

// NewHealthChecker creates a checker for provider. configured says whether
// the hosted API has credentials.
func NewHealthChecker(provider outbound.CompletionProvider, configured bool, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		provider:   provider,
		configured: configured,
		logger:     logger.Named("llm-health"),
	}
}

// Check implements healthcheck.Checker. Failures degrade rather than fail
// since the application still serves default goals without a model.
func (h *HealthChecker) Check(ctx context.Context) healthcheck.Check {
	start := time.Now()
	check := healthcheck.Check{
		Name:        "llm",
		LastChecked: start,
		Metadata: map[string]interface{}{
			"provider": h.provider.Name(),
			"model":    h.provider.Model(),
		},
	}

	provider := h.provider
	for {
		u, ok := provider.(unwrapper)
		if !ok {
			break
		}
		provider = u.Unwrap()
	}

	if pinger, ok := provider.(healthChecker); ok {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := pinger.HealthCheck(healthCtx)
		check.Duration = time.Since(start)
		if err != nil {
			h.logger.Warn("LLM health check failed", zap.Error(err))
			check.Status = healthcheck.StatusDegraded
			check.Message = err.Error()
			return check
		}
		check.Status = healthcheck.StatusHealthy
		return check
	}

	check.Duration = time.Since(start)
	if !h.configured {
		check.Status = healthcheck.StatusDegraded
		check.Message = "API key not configured"
		return check
	}

	check.Status = healthcheck.StatusHealthy
	return check
}
