package advice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carmatch/internal/domain"
)

// QuotaAction defines behavior when the token quota is exceeded.
type QuotaAction string

const (
	// QuotaActionWarn logs a warning but allows the call.
	QuotaActionWarn QuotaAction = "warn"
	// QuotaActionReject skips the call.
	QuotaActionReject QuotaAction = "reject"
)

// QuotaStore is the persistence interface for quota counters.
type QuotaStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// QuotaTracker counts advisor tokens per UTC day and month.
// Check reads memory only; Record updates memory, then writes behind to the store.
type QuotaTracker struct {
	mu             sync.Mutex
	dailyUsed      int64
	monthlyUsed    int64
	dailyLimit     int64
	monthlyLimit   int64
	action         QuotaAction
	name           string
	lastDayReset   time.Time
	lastMonthReset time.Time
	now            func() time.Time
	store          QuotaStore
	logger         *zap.Logger
}

// NewQuotaTracker creates a tracker. A zero limit means unlimited.
func NewQuotaTracker(
	name string, dailyLimit, monthlyLimit int64,
	action QuotaAction, logger *zap.Logger,
) *QuotaTracker {
	q := &QuotaTracker{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		name:         name,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
	now := q.now()
	q.lastDayReset = truncateToDay(now)
	q.lastMonthReset = truncateToMonth(now)
	return q
}

// WithStore attaches a persistence store and loads the current counters.
func (q *QuotaTracker) WithStore(ctx context.Context, store QuotaStore) *QuotaTracker {
	q.store = store
	q.loadFromStore(ctx)
	return q
}

func (q *QuotaTracker) loadFromStore(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if val, err := q.store.Get(ctx, q.dailyKey(now)); err == nil {
		q.dailyUsed = val
	} else {
		q.logger.Warn("Failed to load daily advisor quota", zap.Error(err))
	}
	if val, err := q.store.Get(ctx, q.monthlyKey(now)); err == nil {
		q.monthlyUsed = val
	} else {
		q.logger.Warn("Failed to load monthly advisor quota", zap.Error(err))
	}

	q.logger.Info("Advisor quota loaded",
		zap.String("advisor", q.name),
		zap.Int64("daily_used", q.dailyUsed),
		zap.Int64("monthly_used", q.monthlyUsed),
	)
}

func (q *QuotaTracker) dailyKey(t time.Time) string {
	return fmt.Sprintf("%squota:%s:daily:%s", domain.KeyPrefix, q.name, t.Format("2006-01-02"))
}

func (q *QuotaTracker) monthlyKey(t time.Time) string {
	return fmt.Sprintf("%squota:%s:monthly:%s", domain.KeyPrefix, q.name, t.Format("2006-01"))
}

// Check reports ErrAdvisorQuotaExceeded when a limit is reached and the action is reject.
func (q *QuotaTracker) Check(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.resetIfNeeded()

	dailyExceeded := q.dailyLimit > 0 && q.dailyUsed >= q.dailyLimit
	monthlyExceeded := q.monthlyLimit > 0 && q.monthlyUsed >= q.monthlyLimit
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if q.action == QuotaActionReject {
		return domain.ErrAdvisorQuotaExceeded
	}

	q.logger.Warn("Advisor token quota exceeded",
		zap.String("advisor", q.name),
		zap.Int64("daily_used", q.dailyUsed),
		zap.Int64("daily_limit", q.dailyLimit),
		zap.Int64("monthly_used", q.monthlyUsed),
		zap.Int64("monthly_limit", q.monthlyLimit),
	)
	return nil
}

// Record adds consumed tokens.
func (q *QuotaTracker) Record(tokens int64) {
	q.mu.Lock()
	q.resetIfNeeded()
	q.dailyUsed += tokens
	q.monthlyUsed += tokens
	store := q.store
	now := q.now()
	dailyKey := q.dailyKey(now)
	monthlyKey := q.monthlyKey(now)
	q.mu.Unlock()

	if store == nil {
		return
	}

	// Detached from the request so a cancelled client does not lose the count.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.IncrBy(ctx, dailyKey, tokens); err != nil {
		q.logger.Warn("Failed to persist daily advisor quota", zap.String("key", dailyKey), zap.Error(err))
	}
	if err := store.IncrBy(ctx, monthlyKey, tokens); err != nil {
		q.logger.Warn("Failed to persist monthly advisor quota", zap.String("key", monthlyKey), zap.Error(err))
	}
}

// RemainingDaily returns tokens left today (-1 if unlimited).
func (q *QuotaTracker) RemainingDaily() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfNeeded()
	return remaining(q.dailyLimit, q.dailyUsed)
}

// RemainingMonthly returns tokens left this month (-1 if unlimited).
func (q *QuotaTracker) RemainingMonthly() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfNeeded()
	return remaining(q.monthlyLimit, q.monthlyUsed)
}

// DailyUsed returns tokens consumed today.
func (q *QuotaTracker) DailyUsed() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfNeeded()
	return q.dailyUsed
}

// MonthlyUsed returns tokens consumed this month.
func (q *QuotaTracker) MonthlyUsed() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfNeeded()
	return q.monthlyUsed
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	return max(limit-used, 0)
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (q *QuotaTracker) resetIfNeeded() {
	now := q.now()
	today := truncateToDay(now)
	thisMonth := truncateToMonth(now)

	if today.After(q.lastDayReset) {
		q.dailyUsed = 0
		q.lastDayReset = today
	}
	if thisMonth.After(q.lastMonthReset) {
		q.monthlyUsed = 0
		q.lastMonthReset = thisMonth
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
