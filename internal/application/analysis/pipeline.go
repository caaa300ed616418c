// Package analysis wraps the nutrition analyzer port with the resilience
// policies the external model needs: per-user rate limiting, a process-wide
// concurrency bound, bounded retry with exponential backoff, and a circuit
// breaker that degrades to a tagged low-confidence fallback.
package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/platewise/v1/internal/infrastructure/monitoring"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
	"github.com/platewise/v1/pkg/resilience"
)

// Config tunes the pipeline policies.
type Config struct {
	// Retries is the number of attempts per call, first attempt included.
	Retries int
	// BackoffBase is the delay before the first retry; each further retry
	// doubles it.
	BackoffBase time.Duration
	// AttemptTimeout bounds each individual analyzer call.
	AttemptTimeout time.Duration
	// PerUserRPS and PerUserBurst bound one user's analyzer traffic.
	PerUserRPS   float64
	PerUserBurst int
	// MaxConcurrent bounds in-flight analyzer calls per process.
	MaxConcurrent int
	// Breaker tunes the failure-rate circuit breaker.
	Breaker resilience.Config
}

// DefaultConfig returns the stock pipeline tuning.
func DefaultConfig() Config {
	return Config{
		Retries:        3,
		BackoffBase:    2 * time.Second,
		AttemptTimeout: 30 * time.Second,
		PerUserRPS:     1,
		PerUserBurst:   5,
		MaxConcurrent:  16,
		Breaker:        resilience.DefaultConfig(),
	}
}

// Pipeline decorates a NutritionAnalyzer with the resilience policies.
// It implements the same Analyze verb, so callers cannot tell it apart from
// the raw adapter.
type Pipeline struct {
	next    outbound.NutritionAnalyzer
	cfg     Config
	breaker *resilience.CircuitBreaker
	sem     chan struct{}
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

// NewPipeline builds the pipeline around the raw analyzer adapter.
func NewPipeline(next outbound.NutritionAnalyzer, cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Pipeline {
	def := DefaultConfig()
	if cfg.Retries <= 0 {
		cfg.Retries = def.Retries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.PerUserRPS <= 0 {
		cfg.PerUserRPS = def.PerUserRPS
	}
	if cfg.PerUserBurst <= 0 {
		cfg.PerUserBurst = def.PerUserBurst
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}

	p := &Pipeline{
		next:     next,
		cfg:      cfg,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
		logger:   logger.Named("analysis"),
		metrics:  metrics,
		limiters: make(map[uuid.UUID]*rate.Limiter),
	}
	cfg.Breaker.OnStateChange = p.onBreakerChange
	p.breaker = resilience.NewCircuitBreaker("nutrition-analyzer", cfg.Breaker)
	return p
}

// Analyze runs one analyzer call through the policy stack. When the breaker
// is open it returns the synthetic fallback instead of an error, tagged so
// downstream components do not train on it.
func (p *Pipeline) Analyze(ctx context.Context, ownerID uuid.UUID, req outbound.AnalysisRequest) (*outbound.AnalysisResult, error) {
	if !p.limiterFor(ownerID).Allow() {
		p.metrics.ObserveAnalysis("rate_limited_local", 0)
		return nil, apperrors.NewTooManyRequestsError("analysis rate limit reached, try again shortly")
	}

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	default:
		p.metrics.ObserveAnalysis("rejected_concurrency", 0)
		return nil, apperrors.NewTooManyRequestsError("analyzer is at capacity, try again shortly")
	}

	if err := p.breaker.Allow(); err != nil {
		p.logger.Warn("analyzer breaker open, serving fallback",
			zap.String("owner_id", ownerID.String()))
		p.metrics.ObserveAnalysis("fallback_breaker", 0)
		return Fallback(req.Description), nil
	}

	start := time.Now()
	result, err := p.callWithRetry(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		p.breaker.RecordFailure()
		if ae, ok := outbound.AsAnalysisError(err); ok {
			p.metrics.ObserveAnalysis(string(ae.Kind), elapsed)
		} else {
			p.metrics.ObserveAnalysis("error", elapsed)
		}
		return nil, err
	}

	p.breaker.RecordSuccess()
	p.metrics.ObserveAnalysis("success", elapsed)
	return result, nil
}

// callWithRetry runs the attempt loop: transient failures back off and retry,
// parse errors fail immediately.
func (p *Pipeline) callWithRetry(ctx context.Context, req outbound.AnalysisRequest) (*outbound.AnalysisResult, error) {
	var lastErr error
	delay := p.cfg.BackoffBase

	for attempt := 1; attempt <= p.cfg.Retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		result, err := p.next.Analyze(attemptCtx, req)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		ae, ok := outbound.AsAnalysisError(err)
		if ok && !ae.Retryable() {
			return nil, err
		}
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &outbound.AnalysisError{Kind: outbound.AnalysisTimeout, Cause: ctx.Err()}
		}

		if attempt < p.cfg.Retries {
			p.logger.Warn("analyzer attempt failed, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &outbound.AnalysisError{Kind: outbound.AnalysisTimeout, Cause: ctx.Err()}
			}
			delay *= 2
		}
	}
	return nil, lastErr
}

// limiterFor returns the per-user token bucket, creating it on first use.
func (p *Pipeline) limiterFor(ownerID uuid.UUID) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	lim, ok := p.limiters[ownerID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(p.cfg.PerUserRPS), p.cfg.PerUserBurst)
		p.limiters[ownerID] = lim
	}
	return lim
}

func (p *Pipeline) onBreakerChange(name string, from, to resilience.State) {
	p.logger.Warn("analyzer breaker state change",
		zap.String("breaker", name),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	p.metrics.ObserveBreakerState(float64(to))
}

// BreakerState exposes the breaker state for health reporting.
func (p *Pipeline) BreakerState() resilience.State {
	return p.breaker.GetState()
}
