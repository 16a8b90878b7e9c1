package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"ChipSentinel/internal/model"
)

// DefaultYahooURL is the Yahoo Finance chart endpoint.
const DefaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
// Yahoo carries no institutional flow, so every bar's net flow is 0.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
	// OTC lists symbols traded on the Taipei Exchange (suffix .TWO); all others get .TW.
	OTC map[string]bool
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: DefaultYahooURL,
		OTC: map[string]bool{
			"3379": true,
			"6000": true,
			"6005": true,
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	if f.OTC[symbol] {
		return symbol + ".TWO"
	}
	return symbol + ".TW"
}

func (f *YahooFetcher) FetchDailySeries(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", fmt.Sprint(start.Unix()))
	// period2 is exclusive
	q.Set("period2", fmt.Sprint(end.AddDate(0, 0, 1).Unix()))
	u := f.BaseURL + url.PathEscape(f.yahooSymbol(symbol)) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("yahoo decode: invalid json")
	}

	chart := gjson.GetBytes(body, "chart")
	if desc := chart.Get("error.description"); desc.Exists() {
		return nil, fmt.Errorf("yahoo api error: %s", desc.String())
	}
	result := chart.Get("result.0")
	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNotFound)
	}

	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	bars := make([]model.DailyBar, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i].Type == gjson.Null || closes[i].Float() <= 0 {
			continue // skip null bars (holidays etc.)
		}
		t := time.Unix(ts.Int(), 0).In(model.MarketLocation)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, model.MarketLocation)
		bars = append(bars, model.DailyBar{
			Date:   day,
			Open:   floatAt(opens, i),
			High:   floatAt(highs, i),
			Low:    floatAt(lows, i),
			Close:  closes[i].Float(),
			Volume: int64(floatAt(volumes, i)),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNotFound)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// FetchInstitutionalFlow always returns an empty map.
func (f *YahooFetcher) FetchInstitutionalFlow(_ context.Context, _ string, _, _ time.Time) (map[string]model.FlowRecord, error) {
	return map[string]model.FlowRecord{}, nil
}

func floatAt(values []gjson.Result, i int) float64 {
	if i >= len(values) {
		return 0
	}
	return values[i].Float()
}
