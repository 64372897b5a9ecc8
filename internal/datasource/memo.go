package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/trogers1052/cot-signal-service/internal/metrics"
	"github.com/trogers1052/cot-signal-service/internal/models"
)

// Cache layer labels
const (
	layerMemory = "memory"
	layerShared = "redis"
)

// Source labels
const (
	sourceFilings = "cftc"
	sourcePrices  = "prices"
)

// MemoOptions configures a Memo. Every field is optional.
type MemoOptions struct {
	Shared       SharedCache
	SharedTTL    time.Duration
	FetchTimeout time.Duration
	Location     *time.Location
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// DefaultFetchTimeout bounds a shared fetch once it no longer follows the
// caller's context.
const DefaultFetchTimeout = 2 * time.Minute

// Memo memoizes filing and price fetches keyed by their parameters.
// In-process entries live until Forget is called; shared-cache entries
// expire after SharedTTL. Concurrent identical calls share one fetch and
// failures are never stored. The shared fetch is detached from any single
// caller's cancellation and bounded by FetchTimeout instead.
type Memo struct {
	filings FilingSource
	prices  PriceSource
	shared  SharedCache
	ttl     time.Duration
	timeout time.Duration
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[string]interface{}
	group   singleflight.Group
}

// NewMemo wraps the given sources
func NewMemo(filings FilingSource, prices PriceSource, opts MemoOptions) *Memo {
	m := &Memo{
		filings: filings,
		prices:  prices,
		shared:  opts.Shared,
		ttl:     opts.SharedTTL,
		timeout: opts.FetchTimeout,
		loc:     opts.Location,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		entries: make(map[string]interface{}),
	}
	if m.ttl <= 0 {
		m.ttl = 6 * time.Hour
	}
	if m.timeout <= 0 {
		m.timeout = DefaultFetchTimeout
	}
	if m.loc == nil {
		m.loc = time.UTC
	}
	if m.metrics == nil {
		m.metrics = metrics.New(nil)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// FetchFilings implements FilingSource
func (m *Memo) FetchFilings(ctx context.Context, year int) ([]models.FilingReport, error) {
	reports, err := load(ctx, m, FilingsKey(year), sourceFilings, func(ctx context.Context) ([]models.FilingReport, error) {
		return m.filings.FetchFilings(ctx, year)
	})
	if err != nil {
		return nil, err
	}
	for i := range reports {
		reports[i].ReportDate = reports[i].ReportDate.In(m.loc)
	}
	return reports, nil
}

// FetchPrices implements PriceSource
func (m *Memo) FetchPrices(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	key := PricesKey(symbol, start, end, m.loc)
	bars, err := load(ctx, m, key, sourcePrices, func(ctx context.Context) ([]models.PriceBar, error) {
		return m.prices.FetchPrices(ctx, symbol, start, end)
	})
	if err != nil {
		return nil, err
	}
	for i := range bars {
		bars[i].Timestamp = bars[i].Timestamp.In(m.loc)
	}
	return bars, nil
}

// Forget drops keys from both cache layers
func (m *Memo) Forget(ctx context.Context, keys ...string) {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()

	if m.shared != nil {
		if err := m.shared.Delete(ctx, keys...); err != nil {
			m.logger.Warn("Failed to delete shared cache keys",
				zap.Strings("keys", keys), zap.Error(err))
		}
	}
}

// Len returns the number of in-process entries
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// load returns a copy of the cached slice for key, fetching on a miss.
// Callers get their own slice so they can adjust it freely.
func load[T any](ctx context.Context, m *Memo, key, source string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := m.lookup(key); ok {
		m.metrics.CacheHits.WithLabelValues(layerMemory).Inc()
		return clone(v.([]T)), nil
	}
	m.metrics.CacheMisses.WithLabelValues(layerMemory).Inc()

	ch := m.group.DoChan(key, func() (interface{}, error) {
		if v, ok := m.lookup(key); ok {
			return v, nil
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()

		if m.shared != nil {
			var cached []T
			found, err := m.shared.GetJSON(ctx, key, &cached)
			switch {
			case err != nil:
				m.logger.Warn("Shared cache read failed", zap.String("key", key), zap.Error(err))
			case found:
				m.metrics.CacheHits.WithLabelValues(layerShared).Inc()
				m.store(key, cached)
				return cached, nil
			default:
				m.metrics.CacheMisses.WithLabelValues(layerShared).Inc()
			}
		}

		started := time.Now()
		fetched, err := fetch(ctx)
		m.metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
		if err != nil {
			m.metrics.FetchTotal.WithLabelValues(source, metrics.OutcomeError).Inc()
			m.logger.Warn("Upstream fetch failed", zap.String("key", key), zap.Error(err))
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, key, err)
		}
		m.metrics.FetchTotal.WithLabelValues(source, metrics.OutcomeSuccess).Inc()
		if fetched == nil {
			fetched = []T{}
		}

		m.store(key, fetched)
		if m.shared != nil {
			if err := m.shared.SetJSON(ctx, key, fetched, m.ttl); err != nil {
				m.logger.Warn("Shared cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]T)), nil
	}
}

func (m *Memo) lookup(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *Memo) store(key string, v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = v
}

func clone[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
