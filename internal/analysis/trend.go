package analysis

import (
	"sort"
	"time"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// DefaultTrendWindow is the moving average length in days.
const DefaultTrendWindow = 50

// AlignTrend places the daily closes and the open interest reports on one
// daily calendar spanning both series, forward-filling gaps. Each day gets
// the trailing moving average of the filled closes and an Up/Down label;
// days whose window is not yet complete have no average and no label.
func AlignTrend(prices []models.PriceBar, series models.MerchantPositionSeries, window int, loc *time.Location) ([]models.TrendPoint, []models.OpenInterestPoint) {
	loc = locationOrDefault(loc)
	if window <= 0 {
		window = DefaultTrendWindow
	}

	sorted := make([]models.PriceBar, len(prices))
	copy(sorted, prices)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	priceDays := dailyLast(sorted, barTime, loc)
	oiDays := dailyLast(series, positionDate, loc)
	if len(priceDays) == 0 && len(oiDays) == 0 {
		return []models.TrendPoint{}, []models.OpenInterestPoint{}
	}

	first, last := calendarBounds(priceDays, oiDays)

	trend := make([]models.TrendPoint, 0)
	openInterest := make([]models.OpenInterestPoint, 0)

	var (
		lastClose *float64
		lastOI    *int64
		pi, oj    int
		windowed  []float64
		sum       float64
	)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if pi < len(priceDays) && priceDays[pi].Period.Equal(day) {
			c := priceDays[pi].Value.Close
			lastClose = &c
			pi++
		}
		if oj < len(oiDays) && oiDays[oj].Period.Equal(day) {
			v := oiDays[oj].Value.OpenInterest
			lastOI = &v
			oj++
		}

		point := models.TrendPoint{Date: day, Trend: models.TrendNone}
		if lastClose != nil {
			c := *lastClose
			point.Close = &c

			windowed = append(windowed, c)
			sum += c
			if len(windowed) > window {
				sum -= windowed[0]
				windowed = windowed[1:]
			}
			if len(windowed) == window {
				ma := sum / float64(window)
				point.MovingAverage = &ma
				if c > ma {
					point.Trend = models.TrendUp
				} else {
					point.Trend = models.TrendDown
				}
			}
		}
		trend = append(trend, point)

		oiPoint := models.OpenInterestPoint{Date: day}
		if lastOI != nil {
			v := *lastOI
			oiPoint.OpenInterest = &v
		}
		openInterest = append(openInterest, oiPoint)
	}
	return trend, openInterest
}

func calendarBounds(priceDays []bucket[models.PriceBar], oiDays []bucket[models.MerchantPosition]) (time.Time, time.Time) {
	var first, last time.Time
	extend := func(lo, hi time.Time) {
		if first.IsZero() || lo.Before(first) {
			first = lo
		}
		if last.IsZero() || hi.After(last) {
			last = hi
		}
	}
	if n := len(priceDays); n > 0 {
		extend(priceDays[0].Period, priceDays[n-1].Period)
	}
	if n := len(oiDays); n > 0 {
		extend(oiDays[0].Period, oiDays[n-1].Period)
	}
	return first, last
}

// ExtremesWindowDays is the trailing window used by LastMonthExtremes.
const ExtremesWindowDays = 30

// LastMonthExtremes returns the highest high and lowest low among bars
// newer than 30 days before the last bar. Ties keep the earliest bar.
func LastMonthExtremes(prices []models.PriceBar) *models.PriceExtremes {
	if len(prices) == 0 {
		return nil
	}

	latest := prices[0].Timestamp
	for _, b := range prices[1:] {
		if b.Timestamp.After(latest) {
			latest = b.Timestamp
		}
	}
	start := latest.Add(-ExtremesWindowDays * 24 * time.Hour)

	var ext *models.PriceExtremes
	for _, b := range prices {
		if !b.Timestamp.After(start) {
			continue
		}
		if ext == nil {
			ext = &models.PriceExtremes{
				HighestPrice: b.High, HighestDate: b.Timestamp,
				LowestPrice: b.Low, LowestDate: b.Timestamp,
			}
			continue
		}
		if b.High > ext.HighestPrice || (b.High == ext.HighestPrice && b.Timestamp.Before(ext.HighestDate)) {
			ext.HighestPrice, ext.HighestDate = b.High, b.Timestamp
		}
		if b.Low < ext.LowestPrice || (b.Low == ext.LowestPrice && b.Timestamp.Before(ext.LowestDate)) {
			ext.LowestPrice, ext.LowestDate = b.Low, b.Timestamp
		}
	}
	return ext
}
