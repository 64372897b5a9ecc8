package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commodity is a supported market and the futures ticker used for prices.
type Commodity struct {
	Name   string `json:"name" yaml:"name"`
	Slug   string `json:"slug" yaml:"slug"`
	Symbol string `json:"symbol" yaml:"symbol"`
}

// CommodityInfo is a catalog entry joined with its signal rule, if any.
type CommodityInfo struct {
	Commodity
	Rule *SignalRule `json:"rule,omitempty"`
}

// CurrentSignal summarizes the latest report for a commodity.
type CurrentSignal struct {
	Commodity    string      `json:"commodity"`
	ReportDate   time.Time   `json:"report_date"`
	ShortPct     float64     `json:"short_pct"`
	LongPct      float64     `json:"long_pct"`
	OpenInterest int64       `json:"open_interest"`
	Signal       Signal      `json:"signal"`
	Rule         *SignalRule `json:"rule,omitempty"`
	RuleSummary  string      `json:"rule_summary,omitempty"`
}

// AccuracySummary is the accuracy table plus the displayed success rate.
// SuccessRatePct divides by the full position series length, not by
// WeeksEvaluated.
type AccuracySummary struct {
	Records        []AccuracyRecord `json:"records"`
	WeeksEvaluated int              `json:"weeks_evaluated"`
	SeriesLength   int              `json:"series_length"`
	SuccessRatePct decimal.Decimal  `json:"success_rate_pct"`
	LookbackDays   int              `json:"lookback_days"`
}

// Dashboard is the full set of tables for one commodity and date range.
type Dashboard struct {
	Commodity      Commodity              `json:"commodity"`
	Start          time.Time              `json:"start"`
	End            time.Time              `json:"end"`
	Current        *CurrentSignal         `json:"current,omitempty"`
	MatchedMarkets []string               `json:"matched_markets"`
	Positions      MerchantPositionSeries `json:"positions"`
	History        []SignalHistoryEntry   `json:"history"`
	Accuracy       AccuracySummary        `json:"accuracy"`
	Trend          []TrendPoint           `json:"trend"`
	OpenInterest   []OpenInterestPoint    `json:"open_interest"`
	Extremes       *PriceExtremes         `json:"extremes,omitempty"`
	Prices         []PriceBar             `json:"prices"`
	Warnings       []string               `json:"warnings,omitempty"`
}
