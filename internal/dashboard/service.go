// Package dashboard runs the signal pipeline for one commodity and date
// range and assembles every table the presentation layer renders.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trogers1052/cot-signal-service/internal/analysis"
	"github.com/trogers1052/cot-signal-service/internal/catalog"
	"github.com/trogers1052/cot-signal-service/internal/cftc"
	"github.com/trogers1052/cot-signal-service/internal/datasource"
	"github.com/trogers1052/cot-signal-service/internal/metrics"
	"github.com/trogers1052/cot-signal-service/internal/models"
	"github.com/trogers1052/cot-signal-service/internal/rules"
)

// ErrInvalidRange is returned when start falls after end
var ErrInvalidRange = errors.New("start date is after end date")

// SignalPublisher announces changes of the current signal
type SignalPublisher interface {
	PublishIfChanged(ctx context.Context, current models.CurrentSignal, symbol string) (bool, error)
}

// CacheInvalidator drops memoized fetch results
type CacheInvalidator interface {
	Forget(ctx context.Context, keys ...string)
}

// Options tunes the pipeline. Zero values take the defaults.
type Options struct {
	Location         *time.Location
	LookbackDays     int
	TrendWindow      int
	DefaultRangeDays int

	Publisher   SignalPublisher
	Invalidator CacheInvalidator
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Now         func() time.Time
}

// Service is the pipeline entry point
type Service struct {
	rules   *rules.Table
	catalog *catalog.Catalog
	filings datasource.FilingSource
	prices  datasource.PriceSource
	opts    Options
}

// NewService creates a Service
func NewService(table *rules.Table, cat *catalog.Catalog, filings datasource.FilingSource, prices datasource.PriceSource, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = analysis.DefaultLookbackDays
	}
	if opts.TrendWindow <= 0 {
		opts.TrendWindow = analysis.DefaultTrendWindow
	}
	if opts.DefaultRangeDays <= 0 {
		opts.DefaultRangeDays = 365
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		rules:   table,
		catalog: cat,
		filings: filings,
		prices:  prices,
		opts:    opts,
	}
}

// Location is the market timezone every date is expressed in
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// DefaultRange returns the range used when the caller gives none: the
// trailing DefaultRangeDays ending today.
func (s *Service) DefaultRange() (time.Time, time.Time) {
	end := models.CalendarDay(s.opts.Now(), s.opts.Location)
	return end.AddDate(0, 0, -s.opts.DefaultRangeDays), end
}

// Commodities lists the catalog joined with the signal rules
func (s *Service) Commodities() []models.CommodityInfo {
	all := s.catalog.All()
	infos := make([]models.CommodityInfo, 0, len(all))
	for _, c := range all {
		info := models.CommodityInfo{Commodity: c}
		if rule, ok := s.rules.Lookup(c.Name); ok {
			info.Rule = &rule
		}
		infos = append(infos, info)
	}
	return infos
}

// Dashboard computes every table for a commodity over [start, end]. The
// commodity may be given by name, slug or ticker. Upstream failures do not
// fail the call: the affected tables come back empty and the failure is
// listed in Warnings.
func (s *Service) Dashboard(ctx context.Context, key string, start, end time.Time) (*models.Dashboard, error) {
	commodity, err := s.catalog.Lookup(key)
	if err != nil {
		return nil, err
	}

	loc := s.opts.Location
	start = models.CalendarDay(start, loc)
	end = models.CalendarDay(end, loc)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	}

	logger := s.opts.Logger.With(zap.String("commodity", commodity.Name))
	d := &models.Dashboard{
		Commodity:      commodity,
		Start:          start,
		End:            end,
		MatchedMarkets: []string{},
		Positions:      models.MerchantPositionSeries{},
		Prices:         []models.PriceBar{},
		Warnings:       []string{},
	}

	series, warnings, _ := s.loadPositions(ctx, commodity, start, end)
	d.Warnings = append(d.Warnings, warnings...)
	d.Positions = series
	if markets := series.Markets(); markets != nil {
		d.MatchedMarkets = markets
	}
	if len(d.MatchedMarkets) > 1 {
		logger.Debug("Commodity matched several markets", zap.Strings("markets", d.MatchedMarkets))
	}

	bars, err := s.prices.FetchPrices(ctx, commodity.Symbol, start, end)
	if err != nil {
		logger.Warn("Price fetch failed", zap.String("symbol", commodity.Symbol), zap.Error(err))
		d.Warnings = append(d.Warnings, fmt.Sprintf("price data unavailable for %s: %v", commodity.Symbol, err))
		bars = []models.PriceBar{}
	}
	d.Prices = bars

	d.Current = s.currentSignal(commodity, series)
	if d.Current != nil && !end.Before(models.CalendarDay(s.opts.Now(), loc)) {
		s.publish(ctx, *d.Current, commodity.Symbol)
	}

	d.History = analysis.MostRecentFirst(analysis.BuildSignalHistory(series, s.rules, commodity.Name, loc))

	accuracy := analysis.AnalyzeAccuracy(bars, series, analysis.AccuracyOptions{
		LookbackDays: s.opts.LookbackDays,
		Now:          s.opts.Now(),
		Location:     loc,
	})
	d.Accuracy = models.AccuracySummary{
		Records:        analysis.MostRecentFirst(accuracy.Records),
		WeeksEvaluated: accuracy.WeeksEvaluated,
		SeriesLength:   len(series),
		SuccessRatePct: decimal.NewFromFloat(analysis.SuccessRate(len(accuracy.Records), len(series))).Round(1),
		LookbackDays:   s.opts.LookbackDays,
	}

	d.Trend, d.OpenInterest = analysis.AlignTrend(bars, series, s.opts.TrendWindow, loc)
	d.Extremes = analysis.LastMonthExtremes(bars)

	return d, nil
}

// Refresh recomputes the current signal of each commodity over the default
// range and publishes changes. An empty list refreshes the whole catalog.
// With reload set, the current year's filings are fetched again.
func (s *Service) Refresh(ctx context.Context, keys []string, reload bool) error {
	commodities := s.catalog.All()
	if len(keys) > 0 {
		commodities = commodities[:0]
		for _, k := range keys {
			c, err := s.catalog.Lookup(k)
			if err != nil {
				s.opts.Logger.Warn("Skipping refresh of unknown commodity", zap.String("commodity", k))
				continue
			}
			commodities = append(commodities, c)
		}
	}

	start, end := s.DefaultRange()
	if reload && s.opts.Invalidator != nil {
		s.opts.Invalidator.Forget(ctx, datasource.FilingsKey(end.Year()))
	}

	var errs []error
	for _, c := range commodities {
		series, _, err := s.loadPositions(ctx, c, start, end)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to refresh %s: %w", c.Name, err))
			continue
		}
		if current := s.currentSignal(c, series); current != nil {
			s.publish(ctx, *current, c.Symbol)
		}
	}
	return errors.Join(errs...)
}

// loadPositions fetches every archive year the range touches and returns
// the commodity's positions reported within the range. Failed years
// contribute nothing; they are listed in the warnings and joined into the
// returned error.
func (s *Service) loadPositions(ctx context.Context, commodity models.Commodity, start, end time.Time) (models.MerchantPositionSeries, []string, error) {
	loc := s.opts.Location
	var (
		reports  []models.FilingReport
		warnings []string
		failures []error
	)
	for _, year := range datasource.YearsCovering(start, end, loc) {
		yearly, err := s.filings.FetchFilings(ctx, year)
		if err != nil {
			s.opts.Logger.Warn("Filing fetch failed", zap.Int("year", year), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("positioning data unavailable for %d: %v", year, err))
			failures = append(failures, err)
			continue
		}
		reports = append(reports, yearly...)
	}

	limit := end.AddDate(0, 0, 1)
	series := models.MerchantPositionSeries{}
	for _, p := range cftc.MerchantPositions(reports, commodity.Name) {
		if p.Date.Before(start) || !p.Date.Before(limit) {
			continue
		}
		series = append(series, p)
	}

	if err := series.Validate(); err != nil {
		s.opts.Logger.Warn("Positioning data failed validation",
			zap.String("commodity", commodity.Name), zap.Error(err))
		warnings = append(warnings, err.Error())
	}
	return series, warnings, errors.Join(failures...)
}

func (s *Service) currentSignal(commodity models.Commodity, series models.MerchantPositionSeries) *models.CurrentSignal {
	latest, ok := series.Latest()
	if !ok {
		return nil
	}

	sig := analysis.Classify(latest.MerchantShortPct, latest.MerchantLongPct, s.rules, commodity.Name)
	s.opts.Metrics.SignalsEvaluated.WithLabelValues(string(sig.Type)).Inc()

	current := &models.CurrentSignal{
		Commodity:    commodity.Name,
		ReportDate:   latest.Date,
		ShortPct:     latest.MerchantShortPct,
		LongPct:      latest.MerchantLongPct,
		OpenInterest: latest.OpenInterest,
		Signal:       sig,
	}
	if rule, ok := s.rules.Lookup(commodity.Name); ok {
		current.Rule = &rule
		current.RuleSummary = rules.Describe(rule)
	}
	return current
}

func (s *Service) publish(ctx context.Context, current models.CurrentSignal, symbol string) {
	if s.opts.Publisher == nil {
		return
	}
	if _, err := s.opts.Publisher.PublishIfChanged(ctx, current, symbol); err != nil {
		s.opts.Logger.Warn("Failed to publish signal change",
			zap.String("commodity", current.Commodity), zap.Error(err))
	}
}
