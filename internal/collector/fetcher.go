package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"ChipSentinel/internal/model"
)

// ErrNotFound is returned when a provider has no price rows for a symbol.
var ErrNotFound = errors.New("no price data for symbol")

// Fetcher defines the interface for fetching market data.
// start and end are inclusive calendar days in model.MarketLocation.
type Fetcher interface {
	FetchDailySeries(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error)
	// FetchInstitutionalFlow returns investment-trust flow keyed by model.DateLayout day.
	// An empty map, not an error, means the provider has no flow for the window.
	FetchInstitutionalFlow(ctx context.Context, symbol string, start, end time.Time) (map[string]model.FlowRecord, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// parseDay parses a provider date string as a trading day in model.MarketLocation.
func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(model.DateLayout, s, model.MarketLocation)
}
