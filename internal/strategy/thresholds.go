package strategy

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidThresholds is returned for thresholds that cannot be evaluated.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Thresholds are the tunable parameters of the buy rule.
type Thresholds struct {
	// StreakDays is how many consecutive bars the trust must net-buy.
	StreakDays int `yaml:"streak_days" json:"streak_days"`
	// VolumeMultiple is the minimum volume over its 5-day average.
	VolumeMultiple float64 `yaml:"volume_multiple" json:"volume_multiple"`
	// InstitutionalRatioPct is the minimum net flow as a percent of volume.
	InstitutionalRatioPct float64 `yaml:"institutional_ratio_pct" json:"institutional_ratio_pct"`
	// StrongCandlePct is the open-to-close gain that counts as a strong candle.
	StrongCandlePct float64 `yaml:"strong_candle_pct" json:"strong_candle_pct"`
	// RequireStrongCandle adds the strong candle to the composite buy.
	RequireStrongCandle bool `yaml:"require_strong_candle" json:"require_strong_candle"`
}

// DefaultThresholds returns the standard rule parameters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StreakDays:            2,
		VolumeMultiple:        1.5,
		InstitutionalRatioPct: 2.0,
		StrongCandlePct:       3.0,
	}
}

// Validate checks that every threshold is usable.
func (t Thresholds) Validate() error {
	if t.StreakDays < 1 {
		return fmt.Errorf("%w: streak_days must be at least 1, got %d", ErrInvalidThresholds, t.StreakDays)
	}
	if !finite(t.VolumeMultiple) || t.VolumeMultiple <= 0 {
		return fmt.Errorf("%w: volume_multiple must be positive, got %v", ErrInvalidThresholds, t.VolumeMultiple)
	}
	if !finite(t.InstitutionalRatioPct) || t.InstitutionalRatioPct < 0 {
		return fmt.Errorf("%w: institutional_ratio_pct must be non-negative, got %v", ErrInvalidThresholds, t.InstitutionalRatioPct)
	}
	if !finite(t.StrongCandlePct) || t.StrongCandlePct < 0 {
		return fmt.Errorf("%w: strong_candle_pct must be non-negative, got %v", ErrInvalidThresholds, t.StrongCandlePct)
	}
	return nil
}

// RequiredBars returns the minimum series length Evaluate accepts.
func (t Thresholds) RequiredBars() int {
	need := MinHistoryBars
	if t.StreakDays > need {
		need = t.StreakDays
	}
	return need
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
