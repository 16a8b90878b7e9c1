package calculator

import (
	"github.com/guregu/null/v6"
	"github.com/markcheno/go-talib"

	"ChipSentinel/internal/model"
)

// RollingSMA returns the trailing simple moving average aligned with values.
// Entries before the window fills are invalid rather than zero.
func RollingSMA(values []float64, period int) []null.Float {
	out := make([]null.Float, len(values))
	// talib.Sma indexes past the end when the input is shorter than the window.
	if period <= 0 || len(values) < period {
		return out
	}
	sma := talib.Sma(values, period)
	for i := period - 1; i < len(values); i++ {
		out[i] = null.FloatFrom(sma[i])
	}
	return out
}

func extractCloses(bars []model.DailyBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func extractVolumes(bars []model.DailyBar) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = float64(b.Volume)
	}
	return vols
}
