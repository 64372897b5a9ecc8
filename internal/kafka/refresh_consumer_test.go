package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Mock refresher and reader
// ---------------------------------------------------------------------------

type refreshCall struct {
	Commodities []string
	Reload      bool
}

type mockRefresher struct {
	mu    sync.Mutex
	calls []refreshCall
	err   error
}

func (m *mockRefresher) Refresh(ctx context.Context, commodities []string, reload bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, refreshCall{Commodities: commodities, Reload: reload})
	return m.err
}

func (m *mockRefresher) Calls() []refreshCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]refreshCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

type mockReader struct {
	msgs chan kafkago.Message
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	case msg := <-r.msgs:
		return msg, nil
	}
}

func (r *mockReader) Close() error { return nil }

func refreshPayload(t *testing.T, eventType string, commodities ...string) []byte {
	t.Helper()
	payload, err := json.Marshal(RefreshEvent{
		EventType: eventType,
		Source:    "cftc-watcher",
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      RefreshEventData{Commodities: commodities, ReportDate: "2024-03-05"},
	})
	require.NoError(t, err)
	return payload
}

// ---------------------------------------------------------------------------
// processMessage tests
// ---------------------------------------------------------------------------

func TestRefreshConsumer_processMessage_ReportReleased(t *testing.T) {
	refresher := &mockRefresher{}
	consumer := &RefreshConsumer{refresher: refresher, logger: zap.NewNop()}

	err := consumer.processMessage(context.Background(),
		kafkago.Message{Value: refreshPayload(t, EventReportReleased, "Gold", "Corn")})
	require.NoError(t, err)

	calls := refresher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"Gold", "Corn"}, calls[0].Commodities)
	assert.True(t, calls[0].Reload)
}

func TestRefreshConsumer_processMessage_RefreshRequested(t *testing.T) {
	refresher := &mockRefresher{}
	consumer := &RefreshConsumer{refresher: refresher, logger: zap.NewNop()}

	err := consumer.processMessage(context.Background(),
		kafkago.Message{Value: refreshPayload(t, EventRefreshRequested)})
	require.NoError(t, err)

	calls := refresher.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Commodities)
	assert.False(t, calls[0].Reload)
}

func TestRefreshConsumer_processMessage_UnknownEventType(t *testing.T) {
	refresher := &mockRefresher{}
	consumer := &RefreshConsumer{refresher: refresher, logger: zap.NewNop()}

	err := consumer.processMessage(context.Background(),
		kafkago.Message{Value: refreshPayload(t, "TOTALLY_UNKNOWN")})
	require.NoError(t, err)
	assert.Empty(t, refresher.Calls())
}

func TestRefreshConsumer_processMessage_InvalidJSON(t *testing.T) {
	consumer := &RefreshConsumer{refresher: &mockRefresher{}, logger: zap.NewNop()}

	err := consumer.processMessage(context.Background(), kafkago.Message{Value: []byte("{invalid")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestRefreshConsumer_processMessage_RefresherError(t *testing.T) {
	refresher := &mockRefresher{err: errors.New("upstream down")}
	consumer := &RefreshConsumer{refresher: refresher, logger: zap.NewNop()}

	err := consumer.processMessage(context.Background(),
		kafkago.Message{Value: refreshPayload(t, EventRefreshRequested, "Gold")})
	assert.EqualError(t, err, "upstream down")
}

// ---------------------------------------------------------------------------
// Start loop
// ---------------------------------------------------------------------------

func TestRefreshConsumer_Start_ProcessesUntilCanceled(t *testing.T) {
	refresher := &mockRefresher{}
	reader := &mockReader{msgs: make(chan kafkago.Message, 2)}
	consumer := &RefreshConsumer{reader: reader, refresher: refresher, logger: zap.NewNop()}

	reader.msgs <- kafkago.Message{Value: []byte("{invalid")}
	reader.msgs <- kafkago.Message{Value: refreshPayload(t, EventReportReleased, "Silver")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool { return len(refresher.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
	assert.Equal(t, []string{"Silver"}, refresher.Calls()[0].Commodities)
}
