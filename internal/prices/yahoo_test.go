package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

var ny = mustLocation("America/New_York")

func mustLocation(name string) *time.Location {
	loc, err := models.LoadMarketLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Jan 2, 3 and 4 2024 at 05:00 UTC (midnight EST); the middle bar has no close.
const chartBody = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "GC=F", "exchangeName": "CMX"},
      "timestamp": [1704261600, 1704171600, 1704344400, 1704430800],
      "indicators": {"quote": [{
        "open":   [2050.0, 2060.5, null, 2040.0],
        "high":   [2070.0, 2075.0, null, 2050.0],
        "low":    [2040.0, 2055.0, null, 2030.0],
        "close":  [2065.0, 2070.0, null, 2045.0],
        "volume": [1200, 1500, null, 900]
      }]}
    }],
    "error": null
  }
}`

func TestYahooFetcher_FetchPrices(t *testing.T) {
	var gotPath, gotQuery, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	}))
	defer server.Close()

	f := NewYahooFetcher(server.Client(), server.URL+"/chart/", nil, ny, nil)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, ny)
	end := time.Date(2024, 1, 4, 0, 0, 0, 0, ny)

	bars, err := f.FetchPrices(context.Background(), "GC=F", start, end)
	require.NoError(t, err)

	assert.Equal(t, "/chart/GC=F", gotPath)
	assert.Contains(t, gotQuery, "interval=1d")
	assert.Contains(t, gotQuery, "period1=1704171600")
	assert.NotEmpty(t, gotAgent)

	// Jan 5 falls outside the range and the null close is dropped.
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
	assert.Equal(t, ny, bars[0].Timestamp.Location())
	assert.Equal(t, 2, bars[0].Timestamp.Day())
	assert.Equal(t, 2070.0, bars[0].Close)
	assert.Equal(t, int64(1500), bars[0].Volume)
	assert.Equal(t, 2065.0, bars[1].Close)
}

func TestYahooFetcher_ChartError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	f := NewYahooFetcher(server.Client(), server.URL+"/", nil, ny, nil)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, ny)
	_, err := f.FetchPrices(context.Background(), "XX=F", day, day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestYahooFetcher_NonJSONStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewYahooFetcher(server.Client(), server.URL+"/", nil, ny, nil)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, ny)
	_, err := f.FetchPrices(context.Background(), "GC=F", day, day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestYahooFetcher_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	f := NewYahooFetcher(server.Client(), server.URL+"/", nil, ny, nil)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, ny)
	bars, err := f.FetchPrices(context.Background(), "GC=F", day, day)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestYahooFetcher_InvertedRange(t *testing.T) {
	f := NewYahooFetcher(nil, "http://unused/", nil, ny, nil)
	_, err := f.FetchPrices(context.Background(), "GC=F",
		time.Date(2024, 2, 1, 0, 0, 0, 0, ny), time.Date(2024, 1, 1, 0, 0, 0, 0, ny))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid range"))
}

func TestParseBars_NoQuote(t *testing.T) {
	bars := parseBars(chartResult{Timestamp: []int64{1704171600}}, ny)
	assert.Empty(t, bars)
}

func TestYahooFetcher_RateLimitWaitNamesSymbol(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	limiter := rate.NewLimiter(rate.Limit(1), 1)
	f := NewYahooFetcher(nil, "http://unused/", limiter, ny, nil)
	_, err := f.FetchPrices(ctx, "GC=F", time.Date(2024, 1, 1, 0, 0, 0, 0, ny), time.Date(2024, 1, 31, 0, 0, 0, 0, ny))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "failed to wait for rate limit for GC=F")
}
