package analysis

import (
	"time"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// BuildSignalHistory classifies the last observation of every calendar week
// spanned by the series. Weeks without a report repeat the previous week's
// observation. Entries are in chronological order.
func BuildSignalHistory(series models.MerchantPositionSeries, rules RuleSource, commodity string, loc *time.Location) []models.SignalHistoryEntry {
	weeks := weeklyLast(series, positionDate, locationOrDefault(loc))
	if len(weeks) == 0 {
		return []models.SignalHistoryEntry{}
	}

	history := make([]models.SignalHistoryEntry, 0, len(weeks))
	for _, w := range weeks {
		sig := Classify(w.Value.MerchantShortPct, w.Value.MerchantLongPct, rules, commodity)
		history = append(history, models.SignalHistoryEntry{
			Date:     w.Period,
			Signal:   sig.Type,
			ShortPct: w.Value.MerchantShortPct,
			LongPct:  w.Value.MerchantLongPct,
			Reasons:  sig.Reasons,
		})
	}
	return history
}

// MostRecentFirst returns a reversed copy of a chronological history.
func MostRecentFirst[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return out
}
