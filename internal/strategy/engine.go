package strategy

import (
	"errors"
	"fmt"

	"ChipSentinel/internal/calculator"
	"ChipSentinel/internal/model"
)

// MinHistoryBars is the shortest series that has a predecessor and a defined 60-day line.
const MinHistoryBars = calculator.LongClosePeriod

// ErrNotEnoughHistory is returned when the series is too short to evaluate.
var ErrNotEnoughHistory = errors.New("not enough history")

// Evaluate computes indicators for the series and classifies its latest bar.
func Evaluate(series *model.Series, th Thresholds) (*model.SignalResult, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	if series == nil {
		return nil, fmt.Errorf("%w: nil series", ErrNotEnoughHistory)
	}
	return EvaluateWith(series, calculator.ComputeIndicators(series.Bars), th)
}

// EvaluateWith classifies the latest bar using precomputed indicators aligned with series.Bars.
func EvaluateWith(series *model.Series, sets []model.IndicatorSet, th Thresholds) (*model.SignalResult, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	if series == nil {
		return nil, fmt.Errorf("%w: nil series", ErrNotEnoughHistory)
	}
	n := series.Len()
	if need := th.RequiredBars(); n < need {
		return nil, fmt.Errorf("%w: %s has %d bars, need %d", ErrNotEnoughHistory, series.Symbol, n, need)
	}
	if len(sets) != n {
		return nil, fmt.Errorf("indicator sets misaligned: %d sets for %d bars", len(sets), n)
	}

	last := series.Bars[n-1]
	ind := sets[n-1]

	res := &model.SignalResult{
		Symbol:             series.Symbol,
		Date:               last.Date,
		Open:               last.Open,
		Close:              last.Close,
		Volume:             last.Volume,
		InstitutionalNet:   last.InstitutionalNet,
		PctChange:          pctChange(last),
		InstitutionalRatio: institutionalRatio(last),
		VolumeRatio:        volumeRatio(last, ind),
		Indicators:         ind,
	}

	res.Conditions = model.Conditions{
		InstitutionalStreak:   institutionalStreak(series.Bars, th.StreakDays),
		InstitutionalRatioMet: last.Volume > 0 && res.InstitutionalRatio >= th.InstitutionalRatioPct,
		VolumeSpike:           res.VolumeRatio > 0 && res.VolumeRatio >= th.VolumeMultiple,
		BullishTrend:          bullishTrend(last, ind),
		StrongCandle:          last.Open > 0 && res.PctChange >= th.StrongCandlePct,
	}

	c := res.Conditions
	res.Buy = c.InstitutionalStreak && c.InstitutionalRatioMet && c.VolumeSpike && c.BullishTrend
	if th.RequireStrongCandle {
		res.Buy = res.Buy && c.StrongCandle
	}
	res.Warning = sellWarning(last, ind)

	switch {
	case res.Buy:
		res.Verdict = model.VerdictBuy
	case res.Warning:
		res.Verdict = model.VerdictWarning
	default:
		res.Verdict = model.VerdictWatch
	}
	return res, nil
}
