// Package prices fetches daily futures price bars from the Yahoo Finance
// v8 chart endpoint.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// DefaultBaseURL is the chart endpoint; the ticker is appended to the path.
const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

const userAgent = "Mozilla/5.0 (compatible; cot-signal-service/1.0)"

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol       string `json:"symbol"`
		ExchangeName string `json:"exchangeName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// YahooFetcher downloads daily OHLCV bars.
type YahooFetcher struct {
	client   *http.Client
	baseURL  string
	limiter  *rate.Limiter
	location *time.Location
	logger   *zap.Logger
}

// NewYahooFetcher creates a fetcher. An empty baseURL uses DefaultBaseURL.
func NewYahooFetcher(client *http.Client, baseURL string, limiter *rate.Limiter, loc *time.Location, logger *zap.Logger) *YahooFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YahooFetcher{
		client:   client,
		baseURL:  baseURL,
		limiter:  limiter,
		location: loc,
		logger:   logger,
	}
}

// FetchPrices returns daily bars for symbol whose timestamps fall on a
// calendar day from start through end inclusive, sorted ascending.
// Timestamps are converted to the fetcher's location.
func (f *YahooFetcher) FetchPrices(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	first := models.CalendarDay(start, f.location)
	last := models.CalendarDay(end, f.location)
	if last.Before(first) {
		return nil, fmt.Errorf("invalid range %s to %s", first.Format(models.DateLayout), last.Format(models.DateLayout))
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for rate limit for %s: %w", symbol, err)
		}
	}

	q := url.Values{}
	q.Set("period1", fmt.Sprintf("%d", first.Unix()))
	q.Set("period2", fmt.Sprintf("%d", last.AddDate(0, 0, 1).Unix()))
	q.Set("interval", "1d")
	q.Set("events", "history")
	endpoint := f.baseURL + url.PathEscape(symbol) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build chart request for %s: %w", symbol, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart for %s: %w", symbol, err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to fetch chart for %s: status %d", symbol, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode chart for %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch chart for %s: status %d", symbol, resp.StatusCode)
	}
	if len(chart.Chart.Result) == 0 {
		return []models.PriceBar{}, nil
	}

	bars := parseBars(chart.Chart.Result[0], f.location)

	inRange := bars[:0]
	for _, b := range bars {
		d := models.CalendarDay(b.Timestamp, f.location)
		if d.Before(first) || d.After(last) {
			continue
		}
		inRange = append(inRange, b)
	}

	f.logger.Debug("Fetched price bars",
		zap.String("symbol", symbol),
		zap.Int("bars", len(inRange)))
	return inRange, nil
}

// parseBars converts chart data to bars. Entries without a close are
// dropped; other missing fields are left at zero.
func parseBars(result chartResult, loc *time.Location) []models.PriceBar {
	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	if len(result.Indicators.Quote) == 0 {
		return bars
	}
	q := result.Indicators.Quote[0]

	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		b := models.PriceBar{
			Timestamp: time.Unix(ts, 0).In(loc),
			Close:     *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			b.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			b.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			b.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars
}
