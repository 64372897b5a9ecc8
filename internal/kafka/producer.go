package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trogers1052/cot-signal-service/internal/metrics"
	"github.com/trogers1052/cot-signal-service/internal/models"
)

// messageWriter is the part of kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes signal change events, remembering the last signal
// published for each commodity
type Producer struct {
	writer  messageWriter
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu   sync.Mutex
	last map[string]models.SignalType
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string, logger *zap.Logger, m *metrics.Metrics) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newProducer(writer, logger, m)
}

func newProducer(w messageWriter, logger *zap.Logger, m *metrics.Metrics) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Producer{
		writer:  w,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		last:    make(map[string]models.SignalType),
	}
}

// PublishIfChanged publishes a COT_SIGNAL_CHANGED event when the signal
// differs from the last one published for the commodity. It reports
// whether an event was written. The first signal seen for a commodity is
// always published.
func (p *Producer) PublishIfChanged(ctx context.Context, current models.CurrentSignal, symbol string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous, seen := p.last[current.Commodity]
	if seen && previous == current.Signal.Type {
		return false, nil
	}

	event := NewSignalChangedEvent(current, symbol, previous, p.now())
	if err := p.publish(ctx, current.Commodity, event); err != nil {
		p.metrics.EventsPublished.WithLabelValues(metrics.OutcomeError).Inc()
		return false, err
	}
	p.metrics.EventsPublished.WithLabelValues(metrics.OutcomeSuccess).Inc()
	p.last[current.Commodity] = current.Signal.Type

	p.logger.Info("Published signal change",
		zap.String("commodity", current.Commodity),
		zap.String("signal", string(current.Signal.Type)),
		zap.String("previous", string(previous)))
	return true, nil
}

// NewSignalChangedEvent builds the event envelope for a current signal
func NewSignalChangedEvent(current models.CurrentSignal, symbol string, previous models.SignalType, now time.Time) models.SignalChangedEvent {
	reasons := current.Signal.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return models.SignalChangedEvent{
		EventID:       uuid.New().String(),
		EventType:     models.EventSignalChanged,
		Source:        models.EventSource,
		SchemaVersion: models.EventSchemaVersion,
		Timestamp:     now.UTC(),
		Data: models.SignalChangedData{
			Commodity:      current.Commodity,
			Symbol:         symbol,
			Signal:         current.Signal.Type,
			PreviousSignal: previous,
			Reasons:        reasons,
			ShortPct:       decimal.NewFromFloat(current.ShortPct).Round(2),
			LongPct:        decimal.NewFromFloat(current.LongPct).Round(2),
			ReportDate:     current.ReportDate.Format(models.DateLayout),
		},
	}
}

func (p *Producer) publish(ctx context.Context, key string, event models.SignalChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}
	return nil
}

// Close closes the Kafka writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
