package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types consumed from the refresh topic
const (
	EventReportReleased   = "COT_REPORT_RELEASED"
	EventRefreshRequested = "COT_REFRESH_REQUESTED"
)

// SignalRefresher recomputes current signals. reload drops cached filings
// for the current year first. An empty commodity list means every
// commodity in the catalog.
type SignalRefresher interface {
	Refresh(ctx context.Context, commodities []string, reload bool) error
}

// RefreshEvent asks the service to recompute current signals
type RefreshEvent struct {
	EventType string           `json:"event_type"`
	Source    string           `json:"source"`
	Timestamp string           `json:"timestamp"`
	Data      RefreshEventData `json:"data"`
}

// RefreshEventData lists the commodities to refresh
type RefreshEventData struct {
	Commodities []string `json:"commodities,omitempty"`
	ReportDate  string   `json:"report_date,omitempty"`
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// RefreshConsumer handles consuming refresh events from Kafka
type RefreshConsumer struct {
	reader    messageReader
	refresher SignalRefresher
	logger    *zap.Logger
}

// NewRefreshConsumer creates a new Kafka consumer for refresh events
func NewRefreshConsumer(brokers []string, topic, groupID string, refresher SignalRefresher, logger *zap.Logger) *RefreshConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-refresh",
		MinBytes:       1,
		MaxBytes:       1e6, // 1MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshConsumer{
		reader:    reader,
		refresher: refresher,
		logger:    logger,
	}
}

// Start begins consuming messages from Kafka
func (c *RefreshConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting refresh consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Refresh consumer shutting down")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Warn("Error reading refresh message", zap.Error(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Warn("Error processing refresh message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *RefreshConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event RefreshEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal refresh event: %w", err)
	}

	switch event.EventType {
	case EventReportReleased:
		c.logger.Info("New report released",
			zap.String("report_date", event.Data.ReportDate),
			zap.Strings("commodities", event.Data.Commodities))
		return c.refresher.Refresh(ctx, event.Data.Commodities, true)

	case EventRefreshRequested:
		return c.refresher.Refresh(ctx, event.Data.Commodities, false)

	default:
		c.logger.Debug("Ignoring unknown refresh event type", zap.String("event_type", event.EventType))
		return nil
	}
}

// Close closes the Kafka consumer
func (c *RefreshConsumer) Close() error {
	return c.reader.Close()
}
