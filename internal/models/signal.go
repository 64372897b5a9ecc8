package models

import (
	"strings"
	"time"
)

// SignalType is the categorical output of the classifier.
type SignalType string

const (
	SignalBullish SignalType = "BULLISH"
	SignalBearish SignalType = "BEARISH"
	SignalNeutral SignalType = "NEUTRAL"
)

// Valid reports whether s is one of the three known signals.
func (s SignalType) Valid() bool {
	switch s {
	case SignalBullish, SignalBearish, SignalNeutral:
		return true
	}
	return false
}

// SignalRule holds the percentage thresholds for one commodity.
type SignalRule struct {
	Commodity  string  `json:"commodity"`
	BearishMin float64 `json:"bearish_min"`
	BearishMax float64 `json:"bearish_max"`
	BullishMin float64 `json:"bullish_min"`
	BullishMax float64 `json:"bullish_max"`
}

// Signal is a classification plus the reasons that produced it.
type Signal struct {
	Type    SignalType `json:"signal"`
	Reasons []string   `json:"reasons"`
}

// NoTriggerReason is shown when no rule fired for a week.
const NoTriggerReason = "No specific trigger"

// SignalHistoryEntry is the classification of one week-ending date.
type SignalHistoryEntry struct {
	Date     time.Time  `json:"date"`
	Signal   SignalType `json:"signal"`
	ShortPct float64    `json:"short_pct"`
	LongPct  float64    `json:"long_pct"`
	Reasons  []string   `json:"reasons"`
}

// ReasonSummary joins the reasons for display.
func (e SignalHistoryEntry) ReasonSummary() string {
	if len(e.Reasons) == 0 {
		return NoTriggerReason
	}
	return strings.Join(e.Reasons, ", ")
}

// PositionSide is the direction merchants were biased towards.
type PositionSide string

const (
	PositionLong  PositionSide = "Long"
	PositionShort PositionSide = "Short"
)

// AccuracyRecord is a week in which merchant bias matched the realized
// weekly return.
type AccuracyRecord struct {
	Date           time.Time    `json:"date"`
	PriceChangePct float64      `json:"price_change_pct"`
	Position       PositionSide `json:"position"`
	ShortPct       float64      `json:"short_pct"`
	LongPct        float64      `json:"long_pct"`
}
