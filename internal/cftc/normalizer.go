package cftc

import (
	"sort"
	"strings"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// MerchantPositions selects the reports whose market name contains the
// commodity name, ignoring case, and returns them sorted by date. Every
// matching market is included, so "Gold" also picks up "MICRO GOLD"; use
// Markets on the result to see what matched. Values are copied as reported,
// percentages included. A blank commodity matches nothing.
func MerchantPositions(reports []models.FilingReport, commodity string) models.MerchantPositionSeries {
	series := models.MerchantPositionSeries{}

	needle := strings.ToLower(strings.TrimSpace(commodity))
	if needle == "" {
		return series
	}

	for _, r := range reports {
		if !strings.Contains(strings.ToLower(r.Market), needle) {
			continue
		}
		series = append(series, models.MerchantPosition{
			Date:             r.ReportDate,
			Market:           r.Market,
			MerchantLong:     r.MerchantLong,
			MerchantShort:    r.MerchantShort,
			MerchantLongPct:  r.MerchantLongPct,
			MerchantShortPct: r.MerchantShortPct,
			OpenInterest:     r.OpenInterest,
		})
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}
