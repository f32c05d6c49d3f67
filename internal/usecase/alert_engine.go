package usecase

import (
	"context"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/logger"
	"farewatch-service/pkg/metrics"
	"farewatch-service/templates"

	"github.com/shopspring/decimal"
)

// DefaultThresholdRatio is the share of the baseline a price must reach to alert
const DefaultThresholdRatio = 0.8

// AlertConfig controls when and to whom alerts are sent
type AlertConfig struct {
	ThresholdRatio float64
	NotifyEnabled  bool
	Sender         string
	Recipient      string
}

// AlertEngine classifies accepted fares and raises notifications
type AlertEngine struct {
	baseline    *RollingBaseline
	notifier    NotifierRouter
	alertRepo   repository.AlertRepository
	airlineRepo repository.AirlineRepository
	airportRepo repository.AirportRepository
	cfg         AlertConfig
	metrics     *metrics.Metrics
	logger      logger.Logger
	now         func() time.Time
}

// NewAlertEngine creates a new alert engine
func NewAlertEngine(baseline *RollingBaseline, notifier NotifierRouter, cfg AlertConfig, logger logger.Logger) *AlertEngine {
	if cfg.ThresholdRatio <= 0 {
		cfg.ThresholdRatio = DefaultThresholdRatio
	}
	return &AlertEngine{
		baseline: baseline,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "alert_engine"),
		now:      time.Now,
	}
}

// WithAlertRepository records every fired alert in repo
func (e *AlertEngine) WithAlertRepository(repo repository.AlertRepository) *AlertEngine {
	e.alertRepo = repo
	return e
}

// WithLookups enables airline and airport names in messages
func (e *AlertEngine) WithLookups(airlines repository.AirlineRepository, airports repository.AirportRepository) *AlertEngine {
	e.airlineRepo = airlines
	e.airportRepo = airports
	return e
}

// WithMetrics counts alerts and delivery failures
func (e *AlertEngine) WithMetrics(m *metrics.Metrics) *AlertEngine {
	e.metrics = m
	return e
}

// Classify compares two adjacent observations of a partition
func (e *AlertEngine) Classify(previous, current *entity.FareRecord) entity.PriceChange {
	if previous == nil {
		return entity.PriceFirst
	}
	switch current.Price.Cmp(previous.Price) {
	case -1:
		return entity.PriceDecreased
	case 1:
		return entity.PriceIncreased
	default:
		return entity.PriceUnchanged
	}
}

// BelowThreshold reports whether price <= baseline * ratio
func BelowThreshold(price, baseline decimal.Decimal, ratio float64) bool {
	return price.LessThanOrEqual(baseline.Mul(decimal.NewFromFloat(ratio)))
}

// Evaluate classifies current against previous and against the baseline
// snapshot, and notifies when either check holds. Both reasons travel in
// one notification. Delivery problems are logged, never returned.
func (e *AlertEngine) Evaluate(ctx context.Context, p entity.Partition, previous, current *entity.FareRecord, baseline *decimal.Decimal) (entity.PriceChange, bool) {
	change := e.Classify(previous, current)

	var reasons []entity.AlertReason
	if change == entity.PriceDecreased {
		reasons = append(reasons, entity.ReasonPriceDrop)
	}
	if baseline != nil && BelowThreshold(current.Price, *baseline, e.cfg.ThresholdRatio) {
		reasons = append(reasons, entity.ReasonBelowBaseline)
	}
	if len(reasons) == 0 {
		return change, false
	}

	alert := &entity.FareAlert{
		PartitionKey:  p.Key(),
		Reasons:       reasons,
		Record:        *current,
		Baseline:      baseline,
		ThresholdRate: e.cfg.ThresholdRatio,
		CreatedAt:     e.now().UTC(),
	}
	if change == entity.PriceDecreased {
		prev := previous.Price
		alert.PreviousPrice = &prev
	}
	if low, found, err := e.baseline.HistoricalMin(ctx, p); err != nil {
		e.logger.Warn("Failed to compute all-time low", "partition", p.Key(), "error", err)
	} else if found {
		alert.AllTimeLow = &low
	}

	e.logger.Info("Fare alert triggered",
		"partition", p.Key(),
		"reasons", reasons,
		"price", current.Price.String(),
		"currency", current.Currency)

	e.dispatch(ctx, alert)
	e.record(ctx, alert)

	return change, true
}

func (e *AlertEngine) dispatch(ctx context.Context, alert *entity.FareAlert) {
	if !e.cfg.NotifyEnabled || e.notifier == nil {
		alert.Status = entity.AlertSuppressed
		e.logger.Info("Notifications disabled, alert suppressed", "partition", alert.PartitionKey)
		e.countAlert(alert.Status)
		return
	}

	n := e.compose(ctx, alert)
	if err := e.notifier.Dispatch(ctx, n); err != nil {
		alert.Status = entity.AlertFailed
		alert.ErrorDetail = err.Error()
		e.logger.Error("Failed to deliver fare alert", "partition", alert.PartitionKey, "error", err)
		if e.metrics != nil {
			e.metrics.ErrorsCount.WithLabelValues("notify").Inc()
		}
	} else {
		alert.Status = entity.AlertDelivered
	}
	e.countAlert(alert.Status)
}

func (e *AlertEngine) compose(ctx context.Context, alert *entity.FareAlert) *entity.Notification {
	view := templates.FareAlertView{Alert: alert}
	rec := alert.Record

	if e.airlineRepo != nil {
		if airline, err := e.airlineRepo.GetByCode(ctx, rec.Airline); err != nil {
			e.logger.Debug("Airline lookup failed", "code", rec.Airline, "error", err)
		} else if airline != nil {
			view.AirlineName = airline.Name
		}
	}
	if e.airportRepo != nil {
		view.OriginName = e.airportName(ctx, rec.Origin)
		view.DestName = e.airportName(ctx, rec.Dest)
	}

	reasons := make([]string, len(alert.Reasons))
	for i, r := range alert.Reasons {
		reasons[i] = string(r)
	}

	return &entity.Notification{
		From:          e.cfg.Sender,
		To:            e.cfg.Recipient,
		Subject:       templates.FareAlertSubject(view),
		Body:          templates.FareAlertBody(view),
		Flight:        rec,
		PreviousPrice: alert.PreviousPrice,
		AllTimeLow:    alert.AllTimeLow,
		Reasons:       reasons,
		Partition:     alert.PartitionKey,
	}
}

func (e *AlertEngine) airportName(ctx context.Context, code string) string {
	airport, err := e.airportRepo.GetByAirportCode(ctx, code)
	if err != nil || airport == nil {
		e.logger.Debug("Airport lookup failed", "code", code, "error", err)
		return ""
	}
	return airport.Label()
}

func (e *AlertEngine) record(ctx context.Context, alert *entity.FareAlert) {
	if e.alertRepo == nil {
		return
	}
	if err := e.alertRepo.Save(ctx, alert); err != nil {
		e.logger.Error("Failed to record fare alert", "partition", alert.PartitionKey, "error", err)
		if e.metrics != nil {
			e.metrics.ErrorsCount.WithLabelValues("alert_log").Inc()
		}
	}
}

func (e *AlertEngine) countAlert(status string) {
	if e.metrics != nil {
		e.metrics.AlertsSent.WithLabelValues(status).Inc()
	}
}
