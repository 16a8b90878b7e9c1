package model

import "time"

// DateLayout is the calendar-day key used by the flow dataset and the cache.
const DateLayout = "2006-01-02"

// MarketLocation is the exchange time zone; trading days are calendar days here.
var MarketLocation = loadMarketLocation()

func loadMarketLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// DailyBar is one trading day for one symbol.
type DailyBar struct {
	Date             time.Time `json:"date"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Close            float64   `json:"close"`
	Volume           int64     `json:"volume"`
	InstitutionalNet int64     `json:"institutional_net"` // investment-trust buy minus sell, 0 when unknown
}

// Day returns the bar's trading day formatted as DateLayout.
func (b DailyBar) Day() string {
	return b.Date.In(MarketLocation).Format(DateLayout)
}

// Series holds a strictly date-ordered, deduplicated run of bars for one symbol.
type Series struct {
	Symbol       string     `json:"symbol"`
	LookbackDays int        `json:"lookback_days"`
	Bars         []DailyBar `json:"bars"`
	Source       string     `json:"source"`
	FetchedAt    time.Time  `json:"fetched_at"`
}

// Last returns the most recent bar, or false for an empty series.
func (s *Series) Last() (DailyBar, bool) {
	if s == nil || len(s.Bars) == 0 {
		return DailyBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// FlowRecord is one day of investment-trust trading for a symbol.
type FlowRecord struct {
	Buy  int64 `json:"buy"`
	Sell int64 `json:"sell"`
}

// Net returns buy minus sell.
func (f FlowRecord) Net() int64 {
	return f.Buy - f.Sell
}
