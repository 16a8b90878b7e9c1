package strategy

import (
	"ChipSentinel/internal/model"
)

// pctChange returns the open-to-close move in percent; 0 when open is 0.
func pctChange(bar model.DailyBar) float64 {
	if bar.Open == 0 {
		return 0
	}
	return (bar.Close - bar.Open) / bar.Open * 100
}

// institutionalRatio returns investment-trust net flow as a percent of volume; 0 when volume is 0.
func institutionalRatio(bar model.DailyBar) float64 {
	if bar.Volume == 0 {
		return 0
	}
	return float64(bar.InstitutionalNet) / float64(bar.Volume) * 100
}

// volumeRatio returns volume over its 5-day average; 0 when the average is undefined or 0.
func volumeRatio(bar model.DailyBar, ind model.IndicatorSet) float64 {
	if !ind.VolumeMA5.Valid || ind.VolumeMA5.Float64 == 0 {
		return 0
	}
	return float64(bar.Volume) / ind.VolumeMA5.Float64
}

// institutionalStreak reports whether the trust net-bought on each of the last days bars.
func institutionalStreak(bars []model.DailyBar, days int) bool {
	if days < 1 || len(bars) < days {
		return false
	}
	for _, b := range bars[len(bars)-days:] {
		if b.InstitutionalNet <= 0 {
			return false
		}
	}
	return true
}

// bullishTrend: close strictly above the 60-day line.
func bullishTrend(bar model.DailyBar, ind model.IndicatorSet) bool {
	return ind.CloseMA60.Valid && bar.Close > ind.CloseMA60.Float64
}

// sellWarning: trust net-sold and close broke below the 10-day line.
func sellWarning(bar model.DailyBar, ind model.IndicatorSet) bool {
	return bar.InstitutionalNet < 0 && ind.CloseMA10.Valid && bar.Close < ind.CloseMA10.Float64
}
