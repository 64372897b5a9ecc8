package models

import (
	"fmt"
	"strings"
	"time"
)

// FilingReport is one row of the CFTC disaggregated futures report,
// restricted to the fields the pipeline reads.
type FilingReport struct {
	Market           string    `json:"market"`
	ReportDate       time.Time `json:"report_date"`
	OpenInterest     int64     `json:"open_interest"`
	MerchantLong     int64     `json:"merchant_long"`
	MerchantShort    int64     `json:"merchant_short"`
	MerchantLongPct  float64   `json:"merchant_long_pct"`
	MerchantShortPct float64   `json:"merchant_short_pct"`
}

// MerchantPosition is a producer/merchant positioning observation for one
// commodity on one report date.
type MerchantPosition struct {
	Date             time.Time `json:"date"`
	Market           string    `json:"market"`
	MerchantLong     int64     `json:"merchant_long"`
	MerchantShort    int64     `json:"merchant_short"`
	MerchantLongPct  float64   `json:"merchant_long_pct"`
	MerchantShortPct float64   `json:"merchant_short_pct"`
	OpenInterest     int64     `json:"open_interest"`
}

// MerchantPositionSeries is ordered ascending by Date.
type MerchantPositionSeries []MerchantPosition

// Latest returns the most recent observation.
func (s MerchantPositionSeries) Latest() (MerchantPosition, bool) {
	if len(s) == 0 {
		return MerchantPosition{}, false
	}
	return s[len(s)-1], true
}

// Markets returns the distinct market names in first-seen order.
func (s MerchantPositionSeries) Markets() []string {
	seen := make(map[string]bool)
	var markets []string
	for _, p := range s {
		if !seen[p.Market] {
			seen[p.Market] = true
			markets = append(markets, p.Market)
		}
	}
	return markets
}

// Validate reports date ordering violations and percentages outside [0,100].
// Values are never modified.
func (s MerchantPositionSeries) Validate() error {
	var problems []string
	for i, p := range s {
		if i > 0 && p.Date.Before(s[i-1].Date) {
			problems = append(problems, fmt.Sprintf("row %d: date %s before %s",
				i, p.Date.Format(DateLayout), s[i-1].Date.Format(DateLayout)))
		}
		if p.MerchantLongPct < 0 || p.MerchantLongPct > 100 {
			problems = append(problems, fmt.Sprintf("row %d: long pct %.2f out of range", i, p.MerchantLongPct))
		}
		if p.MerchantShortPct < 0 || p.MerchantShortPct > 100 {
			problems = append(problems, fmt.Sprintf("row %d: short pct %.2f out of range", i, p.MerchantShortPct))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid merchant position series: %s", strings.Join(problems, "; "))
	}
	return nil
}
