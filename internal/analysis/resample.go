package analysis

import (
	"time"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// bucket is one resampled period and the observation representing it.
// Filled is true when the period had no observation of its own and the
// value was carried forward.
type bucket[T any] struct {
	Period time.Time
	Value  T
	Filled bool
}

// resampleLast groups time-ordered items into periods computed by periodOf,
// keeps the last item in each period and forward-fills every empty period
// between the first and last one.
func resampleLast[T any](items []T, at func(T) time.Time, periodOf func(time.Time) time.Time, next func(time.Time) time.Time) []bucket[T] {
	if len(items) == 0 {
		return nil
	}

	var observed []bucket[T]
	for _, item := range items {
		p := periodOf(at(item))
		if n := len(observed); n > 0 && observed[n-1].Period.Equal(p) {
			observed[n-1].Value = item
			continue
		}
		observed = append(observed, bucket[T]{Period: p, Value: item})
	}

	out := make([]bucket[T], 0, len(observed))
	for i, b := range observed {
		if i > 0 {
			prev := out[len(out)-1]
			for p := next(prev.Period); p.Before(b.Period); p = next(p) {
				out = append(out, bucket[T]{Period: p, Value: prev.Value, Filled: true})
			}
		}
		out = append(out, b)
	}
	return out
}

func weeklyLast[T any](items []T, at func(T) time.Time, loc *time.Location) []bucket[T] {
	return resampleLast(items, at,
		func(t time.Time) time.Time { return models.WeekEnding(t, loc) },
		func(t time.Time) time.Time { return t.AddDate(0, 0, 7) },
	)
}

func dailyLast[T any](items []T, at func(T) time.Time, loc *time.Location) []bucket[T] {
	return resampleLast(items, at,
		func(t time.Time) time.Time { return models.CalendarDay(t, loc) },
		func(t time.Time) time.Time { return t.AddDate(0, 0, 1) },
	)
}

func positionDate(p models.MerchantPosition) time.Time { return p.Date }

func barTime(b models.PriceBar) time.Time { return b.Timestamp }

func locationOrDefault(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
