// Package advice attaches an optional narrative to recommendation results.
package advice

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/recommend/result"
	"github.com/kailas-cloud/carmatch/internal/metrics"
)

// Service calls the advisor under a token quota.
// Advice is best effort: every failure yields no advice, never an error.
type Service struct {
	advisor Advisor
	quota   *QuotaTracker
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an advice service. quota may be nil (unlimited).
// timeout bounds a single advisor call; zero means no extra bound.
func New(advisor Advisor, quota *QuotaTracker, model string, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{advisor: advisor, quota: quota, model: model, timeout: timeout, logger: logger}
}

// Advise returns the narrative for res, or "" when there is nothing to say
// or the advisor is unavailable.
func (s *Service) Advise(ctx context.Context, res *result.Result) string {
	if s == nil || s.advisor == nil || res == nil || res.IsEmpty() {
		return ""
	}

	if s.quota != nil {
		if err := s.quota.Check(ctx); err != nil {
			metrics.AdvisorRequestsTotal.WithLabelValues(s.model, "quota_exceeded").Inc()
			s.logger.Warn("Advisor skipped", zap.Error(err))
			return ""
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	adv, err := s.advisor.Advise(ctx, res)
	metrics.AdvisorRequestDuration.WithLabelValues(s.model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AdvisorRequestsTotal.WithLabelValues(s.model, "error").Inc()
		level := s.logger.Error
		if errors.Is(err, context.Canceled) {
			level = s.logger.Debug
		}
		level("Advisor failed, serving result without advice", zap.Error(err))
		return ""
	}

	metrics.AdvisorRequestsTotal.WithLabelValues(s.model, "ok").Inc()
	if adv.TotalTokens > 0 {
		metrics.AdvisorTokensTotal.WithLabelValues(s.model, "prompt").Add(float64(adv.PromptTokens))
		metrics.AdvisorTokensTotal.WithLabelValues(s.model, "total").Add(float64(adv.TotalTokens))
		if s.quota != nil {
			s.quota.Record(int64(adv.TotalTokens))
			metrics.AdvisorQuotaRemaining.WithLabelValues("daily").Set(float64(s.quota.RemainingDaily()))
			metrics.AdvisorQuotaRemaining.WithLabelValues("monthly").Set(float64(s.quota.RemainingMonthly()))
		}
	}
	return adv.Text
}

var _ Advisor = AdvisorFunc(nil)

// AdvisorFunc adapts a function to Advisor.
type AdvisorFunc func(ctx context.Context, res *result.Result) (domain.Advice, error)

// Advise calls f.
func (f AdvisorFunc) Advise(ctx context.Context, res *result.Result) (domain.Advice, error) {
	return f(ctx, res)
}
