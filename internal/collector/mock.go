package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ChipSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// The requested window is always recorded, and applied to Bars only when ApplyWindow is set.
type MockFetcher struct {
	Bars        map[string][]model.DailyBar
	Flow        map[string]map[string]model.FlowRecord
	Errors      map[string]error // price fetch errors by symbol
	FlowErrors  map[string]error
	ApplyWindow bool

	mu         sync.Mutex
	priceCalls map[string]int
	flowCalls  map[string]int
	lastStart  time.Time
	lastEnd    time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailySeries(_ context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	m.mu.Lock()
	if m.priceCalls == nil {
		m.priceCalls = make(map[string]int)
	}
	m.priceCalls[symbol]++
	m.lastStart, m.lastEnd = start, end
	m.mu.Unlock()

	if err := m.Errors[symbol]; err != nil {
		return nil, err
	}
	bars := m.Bars[symbol]
	if len(bars) == 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrNotFound)
	}
	out := make([]model.DailyBar, 0, len(bars))
	for _, b := range bars {
		if m.ApplyWindow && (b.Date.Before(start) || b.Date.After(end)) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *MockFetcher) FetchInstitutionalFlow(_ context.Context, symbol string, _, _ time.Time) (map[string]model.FlowRecord, error) {
	m.mu.Lock()
	if m.flowCalls == nil {
		m.flowCalls = make(map[string]int)
	}
	m.flowCalls[symbol]++
	m.mu.Unlock()

	if err := m.FlowErrors[symbol]; err != nil {
		return nil, err
	}
	out := make(map[string]model.FlowRecord, len(m.Flow[symbol]))
	for k, v := range m.Flow[symbol] {
		out[k] = v
	}
	return out, nil
}

// PriceCalls returns how many times prices were requested for symbol.
func (m *MockFetcher) PriceCalls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.priceCalls[symbol]
}

// FlowCalls returns how many times flow was requested for symbol.
func (m *MockFetcher) FlowCalls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flowCalls[symbol]
}

// LastWindow returns the start and end of the most recent price request.
func (m *MockFetcher) LastWindow() (time.Time, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStart, m.lastEnd
}

// GenerateBars returns n consecutive daily bars ending on end, gently rising from basePrice.
func GenerateBars(n int, end time.Time, basePrice float64) []model.DailyBar {
	end = end.In(model.MarketLocation)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, model.MarketLocation)
	bars := make([]model.DailyBar, n)
	for i := 0; i < n; i++ {
		p := basePrice * (1 + float64(i-n/2)*0.001)
		bars[i] = model.DailyBar{
			Date:   last.AddDate(0, 0, -(n - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
