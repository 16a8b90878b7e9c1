package model

import (
	"time"

	"github.com/google/uuid"
)

// Verdict is the headline outcome for the latest bar.
type Verdict string

const (
	VerdictBuy     Verdict = "BUY"
	VerdictWarning Verdict = "WARNING"
	VerdictWatch   Verdict = "WATCH"
)

// Conditions are the individual rule flags evaluated on the latest bar.
type Conditions struct {
	InstitutionalStreak   bool `json:"institutional_streak"`
	InstitutionalRatioMet bool `json:"institutional_ratio_met"`
	VolumeSpike           bool `json:"volume_spike"`
	BullishTrend          bool `json:"bullish_trend"`
	StrongCandle          bool `json:"strong_candle"`
}

// SignalResult is the evaluation of the most recent bar of a series.
type SignalResult struct {
	Symbol             string       `json:"symbol"`
	Date               time.Time    `json:"date"`
	Open               float64      `json:"open"`
	Close              float64      `json:"close"`
	Volume             int64        `json:"volume"`
	InstitutionalNet   int64        `json:"institutional_net"`
	PctChange          float64      `json:"pct_change"`
	InstitutionalRatio float64      `json:"institutional_ratio"`
	VolumeRatio        float64      `json:"volume_ratio"`
	Indicators         IndicatorSet `json:"indicators"`
	Conditions         Conditions   `json:"conditions"`
	Buy                bool         `json:"buy"`
	Warning            bool         `json:"warning"`
	Verdict            Verdict      `json:"verdict"`
}

// StockReport is everything the single-symbol view needs.
// Signal is nil when the series is too short to evaluate.
type StockReport struct {
	Series     *Series        `json:"series"`
	Indicators []IndicatorSet `json:"indicators"`
	Signal     *SignalResult  `json:"signal,omitempty"`
}

// HitStatus tells a full composite buy apart from a streak-only match.
type HitStatus string

const (
	HitBuy     HitStatus = "BUY"
	HitPartial HitStatus = "PARTIAL"
)

// ScanHit is one watchlist symbol that showed an investment-trust buying streak.
type ScanHit struct {
	Symbol             string        `json:"symbol"`
	Status             HitStatus     `json:"status"`
	Close              float64       `json:"close"`
	InstitutionalRatio float64       `json:"institutional_ratio"`
	PctChange          float64       `json:"pct_change"`
	VolumeRatio        float64       `json:"volume_ratio"`
	Signal             *SignalResult `json:"signal"`
}

// SkipReason explains why a symbol produced no evaluation during a scan.
type SkipReason string

const (
	SkipFetchFailed      SkipReason = "FETCH_FAILED"
	SkipNotEnoughHistory SkipReason = "NOT_ENOUGH_HISTORY"
)

// SkippedSymbol records a symbol left out of a scan.
type SkippedSymbol struct {
	Symbol string     `json:"symbol"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail"`
}

// ScanReport is the outcome of one batch scan.
type ScanReport struct {
	ID         uuid.UUID       `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Scanned    int             `json:"scanned"`
	Hits       []ScanHit       `json:"hits"`
	Skipped    []SkippedSymbol `json:"skipped"`
}

// BuyCount returns how many hits carry a full composite buy.
func (r *ScanReport) BuyCount() int {
	n := 0
	for _, h := range r.Hits {
		if h.Status == HitBuy {
			n++
		}
	}
	return n
}
