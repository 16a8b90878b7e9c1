package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"ChipSentinel/internal/model"
)

// DefaultFinMindURL is the FinMind v4 data endpoint.
const DefaultFinMindURL = "https://api.finmindtrade.com/api/v4/data"

const (
	finMindPriceDataset = "TaiwanStockPrice"
	finMindFlowDataset  = "TaiwanStockInstitutionalInvestorsBuySell"
	investmentTrustName = "Investment_Trust"
)

// FinMindFetcher implements Fetcher using the FinMind open-data API.
type FinMindFetcher struct {
	Client  *http.Client
	BaseURL string
	Token   string // optional; anonymous access has a lower quota
}

// NewFinMindFetcher creates a FinMind fetcher. An empty baseURL uses DefaultFinMindURL.
func NewFinMindFetcher(baseURL, token, proxyURL string) *FinMindFetcher {
	if baseURL == "" {
		baseURL = DefaultFinMindURL
	}
	return &FinMindFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: baseURL,
		Token:   token,
	}
}

func (f *FinMindFetcher) Name() string { return "finmind" }

// query calls the endpoint and returns the "data" array.
func (f *FinMindFetcher) query(ctx context.Context, dataset, symbol string, start, end time.Time) ([]gjson.Result, error) {
	q := url.Values{}
	q.Set("dataset", dataset)
	q.Set("data_id", symbol)
	q.Set("start_date", start.In(model.MarketLocation).Format(model.DateLayout))
	q.Set("end_date", end.In(model.MarketLocation).Format(model.DateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finmind fetch %s: %w", dataset, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("finmind read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finmind %s: status %d, body: %s", dataset, resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("finmind %s: invalid json", dataset)
	}

	res := gjson.ParseBytes(body)
	if status := res.Get("status"); status.Exists() && status.Int() != http.StatusOK {
		return nil, fmt.Errorf("finmind %s: api status %d: %s", dataset, status.Int(), res.Get("msg").String())
	}
	return res.Get("data").Array(), nil
}

// FetchDailySeries returns bars sorted by date. Rows with a non-positive close are dropped.
func (f *FinMindFetcher) FetchDailySeries(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	rows, err := f.query(ctx, finMindPriceDataset, symbol, start, end)
	if err != nil {
		return nil, err
	}

	bars := make([]model.DailyBar, 0, len(rows))
	for _, row := range rows {
		day, err := parseDay(row.Get("date").String())
		if err != nil {
			continue
		}
		c := row.Get("close").Float()
		if c <= 0 {
			continue // suspended or malformed
		}
		bars = append(bars, model.DailyBar{
			Date:   day,
			Open:   row.Get("open").Float(),
			High:   row.Get("max").Float(),
			Low:    row.Get("min").Float(),
			Close:  c,
			Volume: row.Get("Trading_Volume").Int(),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("finmind %s: %w", symbol, ErrNotFound)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// FetchInstitutionalFlow returns investment-trust rows only. Repeated rows for a day are summed.
func (f *FinMindFetcher) FetchInstitutionalFlow(ctx context.Context, symbol string, start, end time.Time) (map[string]model.FlowRecord, error) {
	rows, err := f.query(ctx, finMindFlowDataset, symbol, start, end)
	if err != nil {
		return nil, err
	}

	flow := make(map[string]model.FlowRecord)
	for _, row := range rows {
		if row.Get("name").String() != investmentTrustName {
			continue
		}
		day, err := parseDay(row.Get("date").String())
		if err != nil {
			continue
		}
		key := day.Format(model.DateLayout)
		rec := flow[key]
		rec.Buy += row.Get("buy").Int()
		rec.Sell += row.Get("sell").Int()
		flow[key] = rec
	}
	return flow, nil
}
