package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ChipSentinel/internal/collector"
	"ChipSentinel/internal/metrics"
	"ChipSentinel/internal/model"
	"ChipSentinel/internal/strategy"
)

var testNow = time.Date(2024, 3, 29, 15, 0, 0, 0, model.MarketLocation)

// buyBars returns 70 rising bars whose last day has a 3x volume spike.
func buyBars() []model.DailyBar {
	bars := collector.GenerateBars(70, testNow, 100)
	bars[len(bars)-1].Volume = 3000000
	return bars
}

// streakFlow gives the last two days of bars a positive trust net of 90,000 shares.
func streakFlow(bars []model.DailyBar) map[string]model.FlowRecord {
	n := len(bars)
	return map[string]model.FlowRecord{
		bars[n-2].Day(): {Buy: 90000},
		bars[n-1].Day(): {Buy: 90000},
	}
}

func newTestScreener(mock *collector.MockFetcher, m *metrics.Metrics) *Screener {
	col := collector.NewCollector(collector.NewThrottledFetcher(mock, 0), nil, time.Hour, m)
	col.Now = func() time.Time { return testNow }
	return New(col, strategy.DefaultThresholds(), m)
}

func TestAnalyze_Buy(t *testing.T) {
	bars := buyBars()
	mock := &collector.MockFetcher{
		Bars: map[string][]model.DailyBar{"2330": bars},
		Flow: map[string]map[string]model.FlowRecord{"2330": streakFlow(bars)},
	}
	report, err := newTestScreener(mock, nil).Analyze(context.Background(), "2330")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Signal == nil {
		t.Fatal("expected a signal")
	}
	c := report.Signal.Conditions
	if !c.InstitutionalStreak || !c.InstitutionalRatioMet || !c.VolumeSpike || !c.BullishTrend {
		t.Errorf("expected all buy conditions, got %+v", c)
	}
	if report.Signal.Verdict != model.VerdictBuy {
		t.Errorf("expected BUY, got %s", report.Signal.Verdict)
	}
	if len(report.Indicators) != len(report.Series.Bars) {
		t.Errorf("indicators misaligned: %d vs %d", len(report.Indicators), len(report.Series.Bars))
	}
}

func TestAnalyze_NotFound(t *testing.T) {
	_, err := newTestScreener(&collector.MockFetcher{}, nil).Analyze(context.Background(), "9999")
	if !errors.Is(err, collector.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalyze_NotEnoughHistoryKeepsSeries(t *testing.T) {
	mock := &collector.MockFetcher{
		Bars: map[string][]model.DailyBar{"2330": collector.GenerateBars(20, testNow, 100)},
	}
	report, err := newTestScreener(mock, nil).Analyze(context.Background(), "2330")
	if !errors.Is(err, strategy.ErrNotEnoughHistory) {
		t.Fatalf("expected ErrNotEnoughHistory, got %v", err)
	}
	if report == nil || report.Series.Len() != 20 || len(report.Indicators) != 20 {
		t.Fatalf("expected raw series in report, got %+v", report)
	}
	if report.Signal != nil {
		t.Error("expected no signal")
	}
}

func TestAnalyzeWith_Overrides(t *testing.T) {
	bars := buyBars()
	mock := &collector.MockFetcher{
		Bars: map[string][]model.DailyBar{"2330": bars},
		Flow: map[string]map[string]model.FlowRecord{"2330": streakFlow(bars)},
	}
	scr := newTestScreener(mock, nil)

	strict := strategy.DefaultThresholds()
	strict.VolumeMultiple = 5
	report, err := scr.AnalyzeWith(context.Background(), "2330", Options{LookbackDays: 200, Thresholds: &strict})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Signal.Buy {
		t.Error("a 5x volume multiple should reject the 2.1x spike")
	}
	start, _ := mock.LastWindow()
	if want := testNow.AddDate(0, 0, -200).Format(model.DateLayout); start.Format(model.DateLayout) != want {
		t.Errorf("expected lookback override start %s, got %s", want, start.Format(model.DateLayout))
	}

	bad := strategy.DefaultThresholds()
	bad.VolumeMultiple = -1
	if _, err := scr.AnalyzeWith(context.Background(), "2330", Options{Thresholds: &bad}); !errors.Is(err, strategy.ErrInvalidThresholds) {
		t.Errorf("expected ErrInvalidThresholds, got %v", err)
	}
}

func TestScan_SkipsFailingSymbol(t *testing.T) {
	bars := buyBars()
	mock := &collector.MockFetcher{
		Bars: map[string][]model.DailyBar{"A": bars, "C": bars},
		Flow: map[string]map[string]model.FlowRecord{
			"A": streakFlow(bars),
			"C": streakFlow(bars),
		},
		Errors: map[string]error{"B": errors.New("upstream 500")},
	}
	report := newTestScreener(mock, nil).Scan(context.Background(), []string{"A", "B", "C"})

	if report.Scanned != 3 {
		t.Errorf("expected 3 scanned, got %d", report.Scanned)
	}
	if len(report.Hits) != 2 || report.Hits[0].Symbol != "A" || report.Hits[1].Symbol != "C" {
		t.Fatalf("expected hits [A C], got %+v", report.Hits)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Symbol != "B" || report.Skipped[0].Reason != model.SkipFetchFailed {
		t.Errorf("expected B skipped as FETCH_FAILED, got %+v", report.Skipped)
	}
	if report.ID.String() == "" || report.FinishedAt.Before(report.StartedAt) {
		t.Errorf("unexpected report header: %+v", report)
	}
}

func TestScan_HitStatusAndFilters(t *testing.T) {
	bars := buyBars()
	flat := collector.GenerateBars(70, testNow, 100) // no volume spike

	mock := &collector.MockFetcher{
		Bars: map[string][]model.DailyBar{
			"BUY":     bars,
			"PARTIAL": flat,
			"NOFLOW":  bars,
			"SHORT":   collector.GenerateBars(30, testNow, 100),
		},
		Flow: map[string]map[string]model.FlowRecord{
			"BUY":     streakFlow(bars),
			"PARTIAL": streakFlow(flat),
		},
	}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	report := newTestScreener(mock, m).Scan(context.Background(),
		[]string{"buy", "PARTIAL", " ", "NOFLOW", "SHORT", "BUY"})

	if report.Scanned != 4 {
		t.Errorf("expected duplicates and empties collapsed to 4, got %d", report.Scanned)
	}
	if len(report.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", report.Hits)
	}
	if report.Hits[0].Symbol != "BUY" || report.Hits[0].Status != model.HitBuy {
		t.Errorf("unexpected first hit %+v", report.Hits[0])
	}
	if report.Hits[1].Symbol != "PARTIAL" || report.Hits[1].Status != model.HitPartial {
		t.Errorf("unexpected second hit %+v", report.Hits[1])
	}
	if report.BuyCount() != 1 {
		t.Errorf("expected 1 buy, got %d", report.BuyCount())
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Reason != model.SkipNotEnoughHistory {
		t.Errorf("expected SHORT skipped for history, got %+v", report.Skipped)
	}
	if got := testutil.ToFloat64(m.ScansTotal); got != 1 {
		t.Errorf("expected 1 scan recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.LastScanHits); got != 2 {
		t.Errorf("expected 2 hits recorded, got %v", got)
	}
}

func TestScan_IgnoresCancellation(t *testing.T) {
	bars := buyBars()
	mock := &collector.MockFetcher{
		Bars: map[string][]model.DailyBar{"A": bars},
		Flow: map[string]map[string]model.FlowRecord{"A": streakFlow(bars)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTestScreener(mock, nil).Scan(ctx, []string{"A"})
	if len(report.Hits) != 1 || len(report.Skipped) != 0 {
		t.Errorf("expected the scan to complete despite cancellation, got %+v", report)
	}
}

type panickySource struct{}

func (panickySource) Collect(context.Context, string, int) (*model.Series, error) {
	panic("boom")
}

func TestScan_RecoversPanics(t *testing.T) {
	scr := New(panickySource{}, strategy.DefaultThresholds(), nil)
	report := scr.Scan(context.Background(), []string{"A", "B"})
	if len(report.Skipped) != 2 {
		t.Errorf("expected both symbols skipped, got %+v", report.Skipped)
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{" 2330", "2317", "", "2330 ", "0050"})
	want := []string{"2330", "2317", "0050"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
