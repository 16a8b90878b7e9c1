package collector

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"ChipSentinel/internal/model"
)

// DefaultThrottle is the minimum spacing between remote calls.
const DefaultThrottle = time.Second

// ThrottledFetcher spaces out calls to the wrapped Fetcher.
// Every call waits on a shared limiter, so price and flow requests count alike.
type ThrottledFetcher struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewThrottledFetcher allows one call per interval with burst 1.
// A non-positive interval disables throttling.
func NewThrottledFetcher(next Fetcher, interval time.Duration) *ThrottledFetcher {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &ThrottledFetcher{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (t *ThrottledFetcher) Name() string { return t.next.Name() }

func (t *ThrottledFetcher) FetchDailySeries(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle wait: %w", err)
	}
	return t.next.FetchDailySeries(ctx, symbol, start, end)
}

func (t *ThrottledFetcher) FetchInstitutionalFlow(ctx context.Context, symbol string, start, end time.Time) (map[string]model.FlowRecord, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle wait: %w", err)
	}
	return t.next.FetchInstitutionalFlow(ctx, symbol, start, end)
}
