package ai

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/monitoring"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

// InstrumentedProvider records metrics, spans and logs around another provider
type InstrumentedProvider struct {
	next    outbound.CompletionProvider
	metrics *monitoring.MetricsCollector
	tracing *monitoring.TracingProvider
	logger  *zap.Logger
}

var _ outbound.CompletionProvider = (*InstrumentedProvider)(nil)

// NewInstrumentedProvider wraps next
func NewInstrumentedProvider(next outbound.CompletionProvider, metrics *monitoring.MetricsCollector, tracing *monitoring.TracingProvider, logger *zap.Logger) *InstrumentedProvider {
	return &InstrumentedProvider{
		next:    next,
		metrics: metrics,
		tracing: tracing,
		logger:  logger.Named("llm"),
	}
}

func (p *InstrumentedProvider) Name() string  { return p.next.Name() }
func (p *InstrumentedProvider) Model() string { return p.next.Model() }

// Unwrap returns the decorated provider
func (p *InstrumentedProvider) Unwrap() outbound.CompletionProvider { return p.next }

// Complete forwards the request and records its outcome
func (p *InstrumentedProvider) Complete(ctx context.Context, req outbound.CompletionRequest) (*outbound.Completion, error) {
	ctx, span := p.tracing.StartLLMSpan(ctx, p.next.Name(), p.next.Model())
	defer span.End()

	start := time.Now()
	completion, err := p.next.Complete(ctx, req)
	duration := time.Since(start)

	p.metrics.LLMRequest(p.next.Name(), p.next.Model(), err, duration)

	if err != nil {
		monitoring.RecordError(span, err)
		p.logger.Error("Completion failed",
			zap.String("provider", p.next.Name()),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	p.metrics.LLMTokens(p.next.Name(), completion.PromptTokens, completion.CompletionTokens)
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", completion.PromptTokens),
		attribute.Int("llm.completion_tokens", completion.CompletionTokens),
		attribute.String("llm.finish_reason", completion.FinishReason),
	)

	p.logger.Info("Completion finished",
		zap.String("provider", p.next.Name()),
		zap.String("model", completion.Model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", completion.PromptTokens),
		zap.Int("completion_tokens", completion.CompletionTokens))

	return completion, nil
}
