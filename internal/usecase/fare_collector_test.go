package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/pkg/logger"
	"farewatch-service/pkg/metrics"
	"farewatch-service/pkg/resilience"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectorHarness struct {
	*searchHarness
	store     *memStore
	notifier  *fakeNotifier
	registry  *prometheus.Registry
	collector *FareCollector
}

func newCollectorHarness(cfg CollectorConfig, offersFn func(ctx context.Context, q entity.OfferQuery) ([]entity.FlightOffer, error)) *collectorHarness {
	h := &collectorHarness{
		searchHarness: newSearchHarness(offersFn),
		store:         newMemStore(),
		notifier:      &fakeNotifier{},
		registry:      prometheus.NewRegistry(),
	}
	m := metrics.NewMetrics("test", h.registry)
	baseline := NewRollingBaseline(h.store, clock)
	engine := NewAlertEngine(baseline, h.notifier, AlertConfig{NotifyEnabled: true, Recipient: "me@example.com"}, logger.NewNopLogger())
	h.collector = NewFareCollector(h.search, h.store, NewChangeDetector(decimal.Zero), baseline, engine, cfg, logger.NewNopLogger()).
		WithMetrics(m)
	h.collector.now = clock
	return h
}

func directConfig() CollectorConfig {
	return CollectorConfig{
		Origin:     "ICN",
		Dest:       "NRT",
		Currency:   "KRW",
		Airlines:   []string{"KE"},
		TravelDate: travelDate,
	}
}

func TestRunDirect_PriceDropIsSavedAndAlerted(t *testing.T) {
	h := newCollectorHarness(directConfig(), staticOffers(offer("KE", "95000", "703")))
	seed(h.store, testPartition, fare("100000", fixedNow.AddDate(0, 0, -30)))

	report, err := h.collector.RunDirect(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, entity.OutcomeSaved, res.Outcome)
	assert.Equal(t, entity.PriceDecreased, res.Change)
	assert.True(t, res.Alerted)
	assert.Equal(t, "icn-nrt_ke", res.Partition)

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, "100000", h.notifier.sent[0].PreviousPrice.String())
	assert.Equal(t, "95000", h.notifier.sent[0].Flight.Price.String())
	assert.Len(t, h.store.records["icn-nrt_ke"], 2)
	assert.Equal(t, float64(1), counterValue(t, h.registry, "test_candidates_processed_total", "saved"))
}

func TestRunDirect_DuplicateIsSkipped(t *testing.T) {
	h := newCollectorHarness(directConfig(), staticOffers(offer("KE", "100000.00005", "703")))
	seed(h.store, testPartition, fare("100000", fixedNow.AddDate(0, 0, -1)))

	report, err := h.collector.RunDirect(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, entity.OutcomeDuplicate, report.Results[0].Outcome)
	assert.False(t, report.Results[0].Alerted)
	assert.Equal(t, 1, h.store.appends)
	assert.Empty(t, h.notifier.sent)
}

func TestRunDirect_RepeatedObservationAppendsOnce(t *testing.T) {
	h := newCollectorHarness(directConfig(), staticOffers(offer("KE", "95000", "703")))

	for i := 0; i < 3; i++ {
		_, err := h.collector.RunDirect(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, h.store.appends)
	assert.Empty(t, h.notifier.sent)
}

func TestRunDirect_BaselineExcludesCandidate(t *testing.T) {
	h := newCollectorHarness(directConfig(), staticOffers(offer("KE", "79000", "703")))
	seed(h.store, testPartition,
		fare("122000", fixedNow.AddDate(0, 0, -3)),
		fare("78000", fixedNow.AddDate(0, 0, -1)),
	)

	report, err := h.collector.RunDirect(context.Background())

	require.NoError(t, err)
	res := report.Results[0]
	assert.Equal(t, entity.PriceIncreased, res.Change)
	assert.True(t, res.Alerted)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, []string{"below_baseline"}, h.notifier.sent[0].Reasons)
}

func TestRunDirect_PartitionByDate(t *testing.T) {
	cfg := directConfig()
	cfg.PartitionByDate = true
	h := newCollectorHarness(cfg, staticOffers(offer("KE", "95000", "703")))

	report, err := h.collector.RunDirect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "icn-nrt_ke_2025-08-25", report.Results[0].Partition)
}

func TestRunDirect_NoOffersIsReportedAsNoData(t *testing.T) {
	h := newCollectorHarness(directConfig(), staticOffers())

	report, err := h.collector.RunDirect(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, entity.OutcomeNoData, report.Results[0].Outcome)
}

func TestRunDirect_SearchFailureIsReported(t *testing.T) {
	h := newCollectorHarness(directConfig(), func(ctx context.Context, q entity.OfferQuery) ([]entity.FlightOffer, error) {
		return nil, errTransient
	})

	report, err := h.collector.RunDirect(context.Background())

	assert.ErrorIs(t, err, resilience.ErrRetriesExhausted)
	require.Len(t, report.Results, 1)
	assert.Equal(t, entity.OutcomeFailed, report.Results[0].Outcome)
	assert.Equal(t, 1, report.Count(entity.OutcomeFailed))
	assert.False(t, report.FinishedAt.IsZero())
}

func TestRunDirect_StoreFailureIsolatedPerCandidate(t *testing.T) {
	cfg := directConfig()
	cfg.Airlines = nil
	h := newCollectorHarness(cfg, staticOffers(offer("KE", "95000", "703"), offer("OZ", "97000", "102")))
	h.store.appendErr = errors.New("disk full")

	report, err := h.collector.RunDirect(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	for _, res := range report.Results {
		assert.Equal(t, entity.OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Err, h.store.appendErr)
	}
	assert.Empty(t, h.notifier.sent)
}

func TestRunMonthly_ReportsEveryMonth(t *testing.T) {
	cfg := CollectorConfig{
		Origin:      "ICN",
		Dest:        "NRT",
		Currency:    "KRW",
		Start:       time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		MonthsAhead: 3,
	}
	h := newCollectorHarness(cfg, staticOffers(offer("KE", "95000", "703")))
	h.dates.scanFn = func(ctx context.Context, q entity.DateQuery) ([]entity.DatePrice, error) {
		switch q.From.Month() {
		case time.August:
			return []entity.DatePrice{datePrice("2025-08-25", "90000")}, nil
		case time.September:
			return nil, errors.New("status 400")
		default:
			return nil, nil
		}
	}

	report, err := h.collector.RunMonthly(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, entity.OutcomeSaved, report.Results[0].Outcome)
	assert.Equal(t, "2025-08", report.Results[0].Month)
	assert.Equal(t, "icn-nrt_ke_2025-08", report.Results[0].Partition)
	assert.Equal(t, entity.OutcomeFailed, report.Results[1].Outcome)
	assert.Equal(t, "ICN-NRT", report.Results[1].Partition)
	assert.Equal(t, entity.OutcomeNoData, report.Results[2].Outcome)
	assert.Len(t, h.store.records["icn-nrt_ke_2025-08"], 1)
	assert.Equal(t, ModeMonthly, report.Mode)
}

// twoMonthScan answers Aug with KE 100000 on the 25th and Sep with OZ 60000
// on the 17th; augPrice lets a test move the August fare between runs.
func twoMonthScan(h *collectorHarness, augPrice *string) {
	h.dates.scanFn = func(ctx context.Context, q entity.DateQuery) ([]entity.DatePrice, error) {
		if q.From.Month() == time.August {
			return []entity.DatePrice{datePrice("2025-08-25", *augPrice)}, nil
		}
		return []entity.DatePrice{datePrice("2025-09-17", "60000")}, nil
	}
	h.offers.searchFn = func(ctx context.Context, q entity.OfferQuery) ([]entity.FlightOffer, error) {
		if q.TravelDate.Month() == time.August {
			return []entity.FlightOffer{offer("KE", *augPrice, "703")}, nil
		}
		return []entity.FlightOffer{offer("OZ", "60000", "102")}, nil
	}
}

func monthlyConfig(months int) CollectorConfig {
	return CollectorConfig{
		Origin:      "ICN",
		Dest:        "NRT",
		Currency:    "KRW",
		Start:       time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		MonthsAhead: months,
	}
}

func TestRunMonthly_EachMonthHasItsOwnSeries(t *testing.T) {
	h := newCollectorHarness(monthlyConfig(2), nil)
	augPrice := "100000"
	twoMonthScan(h, &augPrice)

	report, err := h.collector.RunMonthly(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "icn-nrt_ke_2025-08", report.Results[0].Partition)
	assert.Equal(t, "icn-nrt_oz_2025-09", report.Results[1].Partition)
	for _, res := range report.Results {
		assert.Equal(t, entity.OutcomeSaved, res.Outcome)
		assert.Equal(t, entity.PriceFirst, res.Change)
		assert.False(t, res.Alerted)
	}
	assert.Len(t, h.store.records["icn-nrt_ke_2025-08"], 1)
	assert.Len(t, h.store.records["icn-nrt_oz_2025-09"], 1)
	assert.Empty(t, h.notifier.sent)
}

func TestRunMonthly_UnchangedScanAppendsOnce(t *testing.T) {
	h := newCollectorHarness(monthlyConfig(2), nil)
	augPrice := "100000"
	twoMonthScan(h, &augPrice)

	var last *RunReport
	for i := 0; i < 3; i++ {
		report, err := h.collector.RunMonthly(context.Background())
		require.NoError(t, err)
		last = report
	}

	assert.Equal(t, 2, h.store.appends)
	assert.Empty(t, h.notifier.sent)
	assert.Equal(t, 2, last.Count(entity.OutcomeDuplicate))
	assert.Zero(t, last.Alerts())
}

func TestRunMonthly_DropWithinMonthAlerts(t *testing.T) {
	h := newCollectorHarness(monthlyConfig(2), nil)
	augPrice := "100000"
	twoMonthScan(h, &augPrice)

	_, err := h.collector.RunMonthly(context.Background())
	require.NoError(t, err)

	augPrice = "90000"
	report, err := h.collector.RunMonthly(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	aug, sep := report.Results[0], report.Results[1]
	assert.Equal(t, entity.OutcomeSaved, aug.Outcome)
	assert.Equal(t, entity.PriceDecreased, aug.Change)
	assert.True(t, aug.Alerted)
	assert.Equal(t, entity.OutcomeDuplicate, sep.Outcome)

	require.Len(t, h.notifier.sent, 1)
	n := h.notifier.sent[0]
	assert.Equal(t, "icn-nrt_ke_2025-08", n.Partition)
	assert.Equal(t, "100000", n.PreviousPrice.String())
	assert.Equal(t, "90000", n.Flight.Price.String())
	assert.Equal(t, []string{"price_drop"}, n.Reasons)
	assert.Equal(t, 3, h.store.appends)
}

func TestRunMonthly_BaselineIsPerMonth(t *testing.T) {
	h := newCollectorHarness(monthlyConfig(2), nil)
	augPrice := "79000"
	twoMonthScan(h, &augPrice)
	// A cheap September history must not lower August's reference.
	seed(h.store, entity.Partition{Origin: "ICN", Dest: "NRT", Airline: "OZ", Month: ptrTime(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))},
		fare("30000", fixedNow.AddDate(0, 0, -2)))
	august := entity.Partition{Origin: "ICN", Dest: "NRT", Airline: "KE", Month: ptrTime(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))}
	seed(h.store, august, fare("100000", fixedNow.AddDate(0, 0, -2)))

	report, err := h.collector.RunMonthly(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Results[0].Alerted)
	require.NotEmpty(t, h.notifier.sent)
	assert.ElementsMatch(t, []string{"price_drop", "below_baseline"}, h.notifier.sent[0].Reasons)
	assert.Len(t, h.store.records[august.Key()], 2)
}

func TestRunMonthly_StartFollowsTheClock(t *testing.T) {
	cfg := monthlyConfig(1)
	cfg.Start = time.Time{}
	h := newCollectorHarness(cfg, staticOffers(offer("KE", "95000", "703")))
	now := fixedNow
	h.collector.now = func() time.Time { return now }

	_, err := h.collector.RunMonthly(context.Background())
	require.NoError(t, err)

	now = time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC)
	_, err = h.collector.RunMonthly(context.Background())
	require.NoError(t, err)

	require.Len(t, h.dates.queries, 2)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), h.dates.queries[0].From)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), h.dates.queries[1].From)
}

func ptrTime(t time.Time) *time.Time { return &t }
