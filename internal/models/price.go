package models

import "time"

// PriceBar is a daily OHLCV bar.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// TrendDirection labels a day's close relative to its moving average.
// TrendNone means the moving average is not defined yet.
type TrendDirection string

const (
	TrendUp   TrendDirection = "Up"
	TrendDown TrendDirection = "Down"
	TrendNone TrendDirection = ""
)

// TrendPoint is one calendar day of the aligned price series. Nil fields
// are days before the first observation or before the window fills.
type TrendPoint struct {
	Date          time.Time      `json:"date"`
	Close         *float64       `json:"close"`
	MovingAverage *float64       `json:"moving_average"`
	Trend         TrendDirection `json:"trend,omitempty"`
}

// OpenInterestPoint is one calendar day of the aligned open interest series.
type OpenInterestPoint struct {
	Date         time.Time `json:"date"`
	OpenInterest *int64    `json:"open_interest"`
}

// PriceExtremes holds the highest high and lowest low of a window.
type PriceExtremes struct {
	HighestPrice float64   `json:"highest_price"`
	HighestDate  time.Time `json:"highest_date"`
	LowestPrice  float64   `json:"lowest_price"`
	LowestDate   time.Time `json:"lowest_date"`
}
