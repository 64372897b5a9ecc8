// Package datasource defines the data-access capabilities the pipeline
// depends on and a memoizing layer in front of them.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// ErrFetch wraps every upstream fetch failure
var ErrFetch = errors.New("fetch failed")

// FilingSource returns the regulatory filings published in one year
type FilingSource interface {
	FetchFilings(ctx context.Context, year int) ([]models.FilingReport, error)
}

// PriceSource returns daily bars for a ticker over [start, end]
type PriceSource interface {
	FetchPrices(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
}

// SharedCache is an optional cross-process cache, e.g. Redis
type SharedCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// FilingsKey is the memo key for one archive year
func FilingsKey(year int) string {
	return fmt.Sprintf("filings:%d", year)
}

// PricesKey is the memo key for a ticker and calendar-day range
func PricesKey(symbol string, start, end time.Time, loc *time.Location) string {
	return fmt.Sprintf("prices:%s:%s:%s", symbol,
		models.CalendarDay(start, loc).Format(models.DateLayout),
		models.CalendarDay(end, loc).Format(models.DateLayout))
}

// YearsCovering lists the calendar years from start through end in loc
func YearsCovering(start, end time.Time, loc *time.Location) []int {
	first, last := start.In(loc).Year(), end.In(loc).Year()
	if last < first {
		return nil
	}
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years
}
