// Package screener runs the signal engine for one symbol or a whole watchlist.
package screener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"ChipSentinel/internal/calculator"
	"ChipSentinel/internal/metrics"
	"ChipSentinel/internal/model"
	"ChipSentinel/internal/strategy"
)

const (
	DefaultSingleLookback = 120
	DefaultScanLookback   = 120
)

// SeriesSource provides merged price and flow series.
type SeriesSource interface {
	Collect(ctx context.Context, symbol string, lookbackDays int) (*model.Series, error)
}

// Options overrides the screener defaults for one request. Zero values keep the defaults.
type Options struct {
	LookbackDays int
	Thresholds   *strategy.Thresholds
}

// Screener evaluates symbols against the configured thresholds.
type Screener struct {
	Source         SeriesSource
	Thresholds     strategy.Thresholds
	SingleLookback int
	ScanLookback   int
	Metrics        *metrics.Metrics
	Health         *metrics.HealthStatus
}

// New creates a Screener with default lookbacks.
func New(src SeriesSource, th strategy.Thresholds, m *metrics.Metrics) *Screener {
	return &Screener{
		Source:         src,
		Thresholds:     th,
		SingleLookback: DefaultSingleLookback,
		ScanLookback:   DefaultScanLookback,
		Metrics:        m,
	}
}

func (s *Screener) resolve(opts Options, lookback int) (int, strategy.Thresholds, error) {
	if opts.LookbackDays > 0 {
		lookback = opts.LookbackDays
	}
	th := s.Thresholds
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}
	if err := th.Validate(); err != nil {
		return 0, th, err
	}
	return lookback, th, nil
}

// Analyze evaluates a single symbol with the default options.
func (s *Screener) Analyze(ctx context.Context, symbol string) (*model.StockReport, error) {
	return s.AnalyzeWith(ctx, symbol, Options{})
}

// AnalyzeWith evaluates a single symbol.
// On strategy.ErrNotEnoughHistory the report still carries the series and indicators.
func (s *Screener) AnalyzeWith(ctx context.Context, symbol string, opts Options) (*model.StockReport, error) {
	lookback, th, err := s.resolve(opts, s.SingleLookback)
	if err != nil {
		return nil, err
	}

	series, err := s.Source.Collect(ctx, symbol, lookback)
	if err != nil {
		s.Metrics.ObserveSkip(model.SkipFetchFailed)
		return nil, err
	}

	report := &model.StockReport{
		Series:     series,
		Indicators: calculator.ComputeIndicators(series.Bars),
	}
	sig, err := strategy.EvaluateWith(series, report.Indicators, th)
	if err != nil {
		if errors.Is(err, strategy.ErrNotEnoughHistory) {
			s.Metrics.ObserveSkip(model.SkipNotEnoughHistory)
		}
		return report, err
	}
	report.Signal = sig
	s.Metrics.ObserveSignal(sig.Verdict)
	return report, nil
}

// Scan evaluates the watchlist with the default options.
func (s *Screener) Scan(ctx context.Context, symbols []string) *model.ScanReport {
	return s.ScanWith(ctx, symbols, Options{})
}

// ScanWith evaluates symbols one at a time in input order and collects those with an
// investment-trust streak. Failing symbols are skipped. The scan ignores cancellation
// of ctx and always runs to completion.
func (s *Screener) ScanWith(ctx context.Context, symbols []string, opts Options) *model.ScanReport {
	report := &model.ScanReport{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Hits:      []model.ScanHit{},
		Skipped:   []model.SkippedSymbol{},
	}
	lookback, th, err := s.resolve(opts, s.ScanLookback)
	if err != nil {
		log.Printf("[ERROR] scan %s: %v, falling back to configured thresholds", report.ID, err)
		lookback, th = s.ScanLookback, s.Thresholds
	}
	if lookback <= 0 {
		lookback = DefaultScanLookback
	}
	ctx = context.WithoutCancel(ctx)

	list := dedupe(symbols)
	log.Printf("[INFO] scan %s: %d symbols, lookback %d days", report.ID, len(list), lookback)
	for _, sym := range list {
		report.Scanned++
		hit, skip := s.scanOne(ctx, report.ID, sym, lookback, th)
		switch {
		case skip != nil:
			report.Skipped = append(report.Skipped, *skip)
			s.Metrics.ObserveSkip(skip.Reason)
		case hit != nil:
			report.Hits = append(report.Hits, *hit)
		}
	}

	report.FinishedAt = time.Now()
	s.Metrics.ObserveScan(report.FinishedAt.Sub(report.StartedAt), len(report.Hits))
	s.Health.RecordScan(report)
	log.Printf("[INFO] scan %s done: %d hits (%d buy), %d skipped in %v",
		report.ID, len(report.Hits), report.BuyCount(), len(report.Skipped),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return report
}

// scanOne returns a hit, a skip, or neither when the symbol has no streak.
func (s *Screener) scanOne(ctx context.Context, scanID uuid.UUID, symbol string, lookback int, th strategy.Thresholds) (hit *model.ScanHit, skip *model.SkippedSymbol) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] scan %s: %s panicked: %v", scanID, symbol, r)
			hit = nil
			skip = &model.SkippedSymbol{Symbol: symbol, Reason: model.SkipFetchFailed, Detail: fmt.Sprint(r)}
		}
	}()

	series, err := s.Source.Collect(ctx, symbol, lookback)
	if err != nil {
		log.Printf("[WARN] scan %s: %s skipped: %v", scanID, symbol, err)
		return nil, &model.SkippedSymbol{Symbol: symbol, Reason: model.SkipFetchFailed, Detail: err.Error()}
	}

	sig, err := strategy.EvaluateWith(series, calculator.ComputeIndicators(series.Bars), th)
	if err != nil {
		reason := model.SkipFetchFailed
		if errors.Is(err, strategy.ErrNotEnoughHistory) {
			reason = model.SkipNotEnoughHistory
		}
		log.Printf("[WARN] scan %s: %s skipped: %v", scanID, symbol, err)
		return nil, &model.SkippedSymbol{Symbol: symbol, Reason: reason, Detail: err.Error()}
	}
	s.Metrics.ObserveSignal(sig.Verdict)

	if !sig.Conditions.InstitutionalStreak {
		return nil, nil
	}
	status := model.HitPartial
	if sig.Buy {
		status = model.HitBuy
	}
	return &model.ScanHit{
		Symbol:             symbol,
		Status:             status,
		Close:              sig.Close,
		InstitutionalRatio: sig.InstitutionalRatio,
		PctChange:          sig.PctChange,
		VolumeRatio:        sig.VolumeRatio,
		Signal:             sig,
	}, nil
}

// dedupe trims and uppercases symbols, dropping empties and later duplicates.
func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
