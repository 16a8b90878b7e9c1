package model

import "github.com/guregu/null/v6"

// IndicatorSet holds the rolling indicators for one bar.
// An invalid value means the window is not yet full; it is never the same as zero.
type IndicatorSet struct {
	VolumeMA5 null.Float `json:"volume_ma5"`
	CloseMA10 null.Float `json:"close_ma10"`
	CloseMA60 null.Float `json:"close_ma60"`
}
