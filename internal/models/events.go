package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types published by this service
const (
	EventSignalChanged = "COT_SIGNAL_CHANGED"

	EventSource        = "cot-signal-service"
	EventSchemaVersion = "1"
)

// SignalChangedEvent represents a Kafka message announcing a new current
// signal for a commodity
type SignalChangedEvent struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	SchemaVersion string            `json:"schema_version"`
	Timestamp     time.Time         `json:"timestamp"`
	Data          SignalChangedData `json:"data"`
}

// SignalChangedData contains the signal and the positioning behind it
type SignalChangedData struct {
	Commodity      string          `json:"commodity"`
	Symbol         string          `json:"symbol"`
	Signal         SignalType      `json:"signal"`
	PreviousSignal SignalType      `json:"previous_signal,omitempty"`
	Reasons        []string        `json:"reasons"`
	ShortPct       decimal.Decimal `json:"short_pct"`
	LongPct        decimal.Decimal `json:"long_pct"`
	ReportDate     string          `json:"report_date"`
}
