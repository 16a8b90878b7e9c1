package collector

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"ChipSentinel/internal/cache"
	"ChipSentinel/internal/metrics"
	"ChipSentinel/internal/model"
)

// DefaultCacheTTL matches the provider's end-of-day update cadence closely enough.
const DefaultCacheTTL = time.Hour

// Collector assembles a merged price and flow series for one symbol.
type Collector struct {
	Fetcher Fetcher
	Cache   cache.Cache
	TTL     time.Duration
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// NewCollector creates a new Collector. A nil cache disables caching.
func NewCollector(fetcher Fetcher, c cache.Cache, ttl time.Duration, m *metrics.Metrics) *Collector {
	if c == nil {
		c = cache.NewNoop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Collector{
		Fetcher: fetcher,
		Cache:   c,
		TTL:     ttl,
		Metrics: m,
		Now:     time.Now,
	}
}

// Collect returns the series covering [today-lookbackDays, today] in the market time zone.
// Repeated calls within TTL are served from the cache without touching the provider.
func (c *Collector) Collect(ctx context.Context, symbol string, lookbackDays int) (*model.Series, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol: %w", ErrNotFound)
	}
	store := c.Cache
	if store == nil {
		store = cache.NewNoop()
	}

	miss := false
	series, err := store.GetOrCompute(ctx, cache.Key{Symbol: symbol, LookbackDays: lookbackDays}, c.TTL,
		func(ctx context.Context) (*model.Series, error) {
			miss = true
			return c.fetch(ctx, symbol, lookbackDays)
		})
	c.Metrics.ObserveCache(!miss)
	if err != nil {
		return nil, err
	}
	return series, nil
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Collector) fetch(ctx context.Context, symbol string, lookbackDays int) (*model.Series, error) {
	now := c.now().In(model.MarketLocation)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, model.MarketLocation)
	start := end.AddDate(0, 0, -lookbackDays)
	source := c.Fetcher.Name()

	begin := time.Now()
	bars, err := c.Fetcher.FetchDailySeries(ctx, symbol, start, end)
	c.Metrics.ObserveFetch(source, "price", time.Since(begin), err)
	if err != nil {
		return nil, fmt.Errorf("fetch daily series %s: %w", symbol, err)
	}
	bars = normalizeBars(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch daily series %s: %w", symbol, ErrNotFound)
	}

	begin = time.Now()
	flow, err := c.Fetcher.FetchInstitutionalFlow(ctx, symbol, start, end)
	c.Metrics.ObserveFetch(source, "flow", time.Since(begin), err)
	switch {
	case err != nil:
		log.Printf("[WARN] %s: institutional flow unavailable: %v, defaulting to 0", symbol, err)
	case len(flow) == 0:
		log.Printf("[WARN] %s: no institutional flow rows, defaulting to 0", symbol)
	}
	for i := range bars {
		bars[i].InstitutionalNet = flow[bars[i].Day()].Net()
	}

	return &model.Series{
		Symbol:       symbol,
		LookbackDays: lookbackDays,
		Bars:         bars,
		Source:       source,
		FetchedAt:    c.now(),
	}, nil
}

// normalizeBars sorts by trading day and keeps the last row seen for each day.
func normalizeBars(in []model.DailyBar) []model.DailyBar {
	bars := make([]model.DailyBar, len(in))
	copy(bars, in)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Day() < bars[j].Day() })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Day() == b.Day() {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
