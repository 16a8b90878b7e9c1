package calculator

import "ChipSentinel/internal/model"

// Indicator windows, in trading days.
const (
	VolumeMAPeriod   = 5
	ShortClosePeriod = 10
	LongClosePeriod  = 60
)

// ComputeIndicators derives the rolling indicators for every bar of the series.
// The result is aligned with bars; it never fails on a short series.
func ComputeIndicators(bars []model.DailyBar) []model.IndicatorSet {
	closes := extractCloses(bars)
	volMA := RollingSMA(extractVolumes(bars), VolumeMAPeriod)
	ma10 := RollingSMA(closes, ShortClosePeriod)
	ma60 := RollingSMA(closes, LongClosePeriod)

	sets := make([]model.IndicatorSet, len(bars))
	for i := range bars {
		sets[i] = model.IndicatorSet{
			VolumeMA5: volMA[i],
			CloseMA10: ma10[i],
			CloseMA60: ma60[i],
		}
	}
	return sets
}
