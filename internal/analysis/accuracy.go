package analysis

import (
	"sort"
	"time"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// DefaultLookbackDays is the trailing window the accuracy analysis covers.
const DefaultLookbackDays = 365

// AccuracyOptions controls the trailing window. Now defaults to time.Now.
type AccuracyOptions struct {
	LookbackDays int
	Now          time.Time
	Location     *time.Location
}

// AccuracyResult lists the weeks where merchant bias matched the realized
// weekly return. WeeksEvaluated counts reported merchant weeks that had a
// defined week-over-week price change.
type AccuracyResult struct {
	Records        []models.AccuracyRecord
	WeeksEvaluated int
}

// AnalyzeAccuracy compares weekly merchant positioning with the weekly
// percentage change of the closing price over the lookback window.
//
// A week is emitted as Short when the price fell and short % exceeded
// long %, and as Long when the price rose and long % exceeded short %.
// Flat weeks, mismatches and weeks without a report emit nothing. Prices
// are forward-filled across empty weeks; positions are not.
func AnalyzeAccuracy(prices []models.PriceBar, series models.MerchantPositionSeries, opts AccuracyOptions) AccuracyResult {
	result := AccuracyResult{Records: []models.AccuracyRecord{}}

	loc := locationOrDefault(opts.Location)
	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.In(loc).Add(-time.Duration(lookback) * 24 * time.Hour)

	recentPrices := make([]models.PriceBar, 0, len(prices))
	for _, b := range prices {
		if !b.Timestamp.Before(cutoff) {
			recentPrices = append(recentPrices, b)
		}
	}
	sort.SliceStable(recentPrices, func(i, j int) bool {
		return recentPrices[i].Timestamp.Before(recentPrices[j].Timestamp)
	})

	recentPositions := make(models.MerchantPositionSeries, 0, len(series))
	for _, p := range series {
		if !p.Date.Before(cutoff) {
			recentPositions = append(recentPositions, p)
		}
	}

	if len(recentPrices) == 0 || len(recentPositions) == 0 {
		return result
	}

	returns := weeklyReturns(recentPrices, loc)

	for _, w := range weeklyLast(recentPositions, positionDate, loc) {
		if w.Filled {
			continue
		}
		change, ok := returns[w.Period.Unix()]
		if !ok {
			continue
		}
		result.WeeksEvaluated++

		shortPct := w.Value.MerchantShortPct
		longPct := w.Value.MerchantLongPct

		var side models.PositionSide
		switch {
		case change < 0 && shortPct > longPct:
			side = models.PositionShort
		case change > 0 && longPct > shortPct:
			side = models.PositionLong
		default:
			continue
		}

		result.Records = append(result.Records, models.AccuracyRecord{
			Date:           w.Period,
			PriceChangePct: change * 100,
			Position:       side,
			ShortPct:       shortPct,
			LongPct:        longPct,
		})
	}
	return result
}

// weeklyReturns maps week-ending dates (unix seconds) to the fractional
// change of the last close from the previous week. The first week has no
// return; neither does a week following a zero close.
func weeklyReturns(bars []models.PriceBar, loc *time.Location) map[int64]float64 {
	weeks := weeklyLast(bars, barTime, loc)
	returns := make(map[int64]float64, len(weeks))
	for i := 1; i < len(weeks); i++ {
		prev := weeks[i-1].Value.Close
		if prev == 0 {
			continue
		}
		returns[weeks[i].Period.Unix()] = (weeks[i].Value.Close - prev) / prev
	}
	return returns
}

// SuccessRate is the percentage of matched weeks over the length of the
// full position series, not the number of weeks in the lookback window.
func SuccessRate(matched, seriesLength int) float64 {
	if seriesLength == 0 {
		return 0
	}
	return float64(matched) / float64(seriesLength) * 100
}
