package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/logger"
	"farewatch-service/pkg/metrics"
	"farewatch-service/pkg/utils"

	"github.com/shopspring/decimal"
)

// Run modes
const (
	ModeDirect  = "direct"
	ModeMonthly = "monthly"
)

// DefaultWindowDays is the rolling baseline window
const DefaultWindowDays = 7

// CollectorConfig describes what a run collects
type CollectorConfig struct {
	Origin          string
	Dest            string
	Currency        string
	Airlines        []string
	Adults          int
	MaxOffers       int
	TravelDate      time.Time
	CheapestOnly    bool
	PartitionByDate bool
	Start           time.Time // zero means today, resolved per run
	MonthsAhead     int
	WindowDays      int
}

// CandidateResult is what happened to one candidate, or to one month that
// produced no candidate.
type CandidateResult struct {
	Partition string
	Month     string
	Outcome   entity.Outcome
	Change    entity.PriceChange
	Alerted   bool
	Price     decimal.Decimal
	Currency  string
	Err       error
}

// RunReport lists every candidate outcome of one run
type RunReport struct {
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []CandidateResult
}

// Count returns how many results have the given outcome
func (r *RunReport) Count(outcome entity.Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Alerts returns how many results fired an alert
func (r *RunReport) Alerts() int {
	n := 0
	for _, res := range r.Results {
		if res.Alerted {
			n++
		}
	}
	return n
}

// FareCollector runs the search, dedupe, store and alert pipeline
type FareCollector struct {
	search   *FareSearch
	store    repository.FareRecordRepository
	detector *ChangeDetector
	baseline *RollingBaseline
	alerts   *AlertEngine
	cfg      CollectorConfig
	metrics  *metrics.Metrics
	logger   logger.Logger
	now      func() time.Time
}

// NewFareCollector creates a new fare collector
func NewFareCollector(
	search *FareSearch,
	store repository.FareRecordRepository,
	detector *ChangeDetector,
	baseline *RollingBaseline,
	alerts *AlertEngine,
	cfg CollectorConfig,
	logger logger.Logger,
) *FareCollector {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	return &FareCollector{
		search:   search,
		store:    store,
		detector: detector,
		baseline: baseline,
		alerts:   alerts,
		cfg:      cfg,
		logger:   logger.With("component", "collector"),
		now:      time.Now,
	}
}

// WithMetrics records outcomes and run durations
func (c *FareCollector) WithMetrics(m *metrics.Metrics) *FareCollector {
	c.metrics = m
	return c
}

// RunDirect collects the cheapest fare per carrier for the configured date.
// The returned error is the search failure, if any; the report is always set.
func (c *FareCollector) RunDirect(ctx context.Context) (*RunReport, error) {
	report := c.newReport(ModeDirect)
	defer c.finish(report)

	records, err := c.search.Direct(ctx, DirectQuery{
		Origin:       c.cfg.Origin,
		Dest:         c.cfg.Dest,
		TravelDate:   c.cfg.TravelDate,
		Currency:     c.cfg.Currency,
		Airlines:     c.cfg.Airlines,
		Adults:       c.cfg.Adults,
		Max:          c.cfg.MaxOffers,
		CheapestOnly: c.cfg.CheapestOnly,
	})
	route := fmt.Sprintf("%s-%s", c.cfg.Origin, c.cfg.Dest)
	if errors.Is(err, ErrNoOffers) {
		c.add(report, CandidateResult{Partition: route, Outcome: entity.OutcomeNoData})
		return report, nil
	}
	if err != nil {
		c.add(report, CandidateResult{Partition: route, Outcome: entity.OutcomeFailed, Err: err})
		return report, err
	}

	for _, rec := range records {
		p := entity.PartitionFor(rec, c.cfg.PartitionByDate)
		c.add(report, c.processCandidate(ctx, p, rec))
	}
	return report, nil
}

// RunMonthly collects the cheapest fare of each month. Every month keeps its
// own series per carrier, so a month is only compared with earlier scans of
// the same month. A zero Start means the current month at run time.
func (c *FareCollector) RunMonthly(ctx context.Context) (*RunReport, error) {
	report := c.newReport(ModeMonthly)
	defer c.finish(report)

	start := c.cfg.Start
	if start.IsZero() {
		start = utils.Today(c.now())
	}
	route := fmt.Sprintf("%s-%s", c.cfg.Origin, c.cfg.Dest)
	months := c.search.Monthly(ctx, MonthlyQuery{
		Origin:      c.cfg.Origin,
		Dest:        c.cfg.Dest,
		Start:       start,
		MonthsAhead: c.cfg.MonthsAhead,
		Currency:    c.cfg.Currency,
		Airlines:    c.cfg.Airlines,
		Adults:      c.cfg.Adults,
		Max:         c.cfg.MaxOffers,
	})

	for _, m := range months {
		month := m.Month.Format(utils.MONTH_LAYOUT)
		switch {
		case m.Err != nil:
			c.add(report, CandidateResult{Partition: route, Month: month, Outcome: entity.OutcomeFailed, Err: m.Err})
		case m.Record == nil:
			c.add(report, CandidateResult{Partition: route, Month: month, Outcome: entity.OutcomeNoData})
		default:
			res := c.processCandidate(ctx, entity.MonthlyPartitionFor(m.Record), m.Record)
			res.Month = month
			c.add(report, res)
		}
	}
	return report, ctx.Err()
}

// processCandidate drops duplicates, snapshots the baseline from the history
// before the append, appends, then evaluates alerts.
func (c *FareCollector) processCandidate(ctx context.Context, p entity.Partition, rec *entity.FareRecord) CandidateResult {
	result := CandidateResult{
		Partition: p.Key(),
		Price:     rec.Price,
		Currency:  rec.Currency,
	}

	last, found, err := c.store.LastRecord(ctx, p)
	if err != nil {
		result.Outcome = entity.OutcomeFailed
		result.Err = fmt.Errorf("failed to read last record: %w", err)
		return result
	}
	if found && c.detector.IsDuplicate(last, rec) {
		result.Outcome = entity.OutcomeDuplicate
		result.Change = entity.PriceUnchanged
		return result
	}

	var baseline *decimal.Decimal
	if avg, ok, err := c.baseline.RollingAverage(ctx, p, c.cfg.WindowDays); err != nil {
		c.logger.Warn("Failed to compute rolling baseline", "partition", p.Key(), "error", err)
	} else if ok {
		baseline = &avg
	}

	if err := c.store.Append(ctx, p, rec); err != nil {
		result.Outcome = entity.OutcomeFailed
		result.Err = fmt.Errorf("failed to append record: %w", err)
		return result
	}
	result.Outcome = entity.OutcomeSaved

	var previous *entity.FareRecord
	if found {
		previous = last
	}
	result.Change, result.Alerted = c.alerts.Evaluate(ctx, p, previous, rec, baseline)
	return result
}

func (c *FareCollector) newReport(mode string) *RunReport {
	c.logger.Info("Collection run started",
		"mode", mode,
		"route", c.cfg.Origin+"-"+c.cfg.Dest,
		"airlines", c.cfg.Airlines)
	return &RunReport{Mode: mode, StartedAt: c.now().UTC()}
}

func (c *FareCollector) add(report *RunReport, res CandidateResult) {
	report.Results = append(report.Results, res)

	fields := []interface{}{
		"partition", res.Partition,
		"outcome", res.Outcome,
	}
	if res.Month != "" {
		fields = append(fields, "month", res.Month)
	}
	if res.Outcome == entity.OutcomeSaved || res.Outcome == entity.OutcomeDuplicate {
		fields = append(fields, "price", res.Price.String(), "currency", res.Currency, "change", res.Change, "alerted", res.Alerted)
	}
	if res.Err != nil {
		fields = append(fields, "error", res.Err)
		c.logger.Error("Candidate failed", fields...)
	} else {
		c.logger.Info("Candidate processed", fields...)
	}

	if c.metrics != nil {
		c.metrics.CandidatesProcessed.WithLabelValues(string(res.Outcome)).Inc()
		if res.Outcome == entity.OutcomeFailed {
			c.metrics.ErrorsCount.WithLabelValues(report.Mode).Inc()
		}
	}
}

func (c *FareCollector) finish(report *RunReport) {
	report.FinishedAt = c.now().UTC()
	duration := report.FinishedAt.Sub(report.StartedAt)

	c.logger.Info("Collection run finished",
		"mode", report.Mode,
		"saved", report.Count(entity.OutcomeSaved),
		"duplicates", report.Count(entity.OutcomeDuplicate),
		"noData", report.Count(entity.OutcomeNoData),
		"failed", report.Count(entity.OutcomeFailed),
		"alerts", report.Alerts(),
		"duration", duration)

	if c.metrics != nil {
		c.metrics.RunDuration.Observe(duration.Seconds())
	}
}
