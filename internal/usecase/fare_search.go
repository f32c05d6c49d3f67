package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/logger"
	"farewatch-service/pkg/metrics"
	"farewatch-service/pkg/resilience"
	"farewatch-service/pkg/utils"
)

// ErrNoOffers is returned when a search yields nothing usable
var ErrNoOffers = errors.New("no offers found")

// Search phases, used as retry operation names and metric labels
const (
	PhaseOffers = "offers"
	PhaseDates  = "dates"
)

// DirectQuery asks for the cheapest fare per carrier on one travel date
type DirectQuery struct {
	Origin       string
	Dest         string
	TravelDate   time.Time
	Currency     string
	Airlines     []string
	Adults       int
	Max          int
	CheapestOnly bool
}

// MonthlyQuery asks for the cheapest fare of each month in a horizon
type MonthlyQuery struct {
	Origin      string
	Dest        string
	Start       time.Time
	MonthsAhead int
	Currency    string
	Airlines    []string
	Adults      int
	Max         int
}

// MonthResult is the outcome of one month of a monthly scan. A nil Record
// with a nil Err means the month had no data.
type MonthResult struct {
	Month     time.Time
	Candidate *entity.DatePrice
	FromCache bool
	Record    *entity.FareRecord
	Err       error
}

// FareSearch queries the offer source with retries and rate limiting
type FareSearch struct {
	offers  repository.OfferSearchRepository
	dates   repository.DatePriceRepository
	cache   repository.DatePriceCache
	retry   *resilience.Policy
	pause   time.Duration
	sleep   resilience.SleepFunc
	metrics *metrics.Metrics
	logger  logger.Logger
	now     func() time.Time
}

// NewFareSearch creates a new fare search
func NewFareSearch(
	offers repository.OfferSearchRepository,
	dates repository.DatePriceRepository,
	retry *resilience.Policy,
	pause time.Duration,
	logger logger.Logger,
) *FareSearch {
	return &FareSearch{
		offers: offers,
		dates:  dates,
		retry:  retry,
		pause:  pause,
		sleep:  resilience.SleepContext,
		logger: logger.With("component", "fare_search"),
		now:    time.Now,
	}
}

// WithCache enables the date-scan cache
func (s *FareSearch) WithCache(cache repository.DatePriceCache) *FareSearch {
	s.cache = cache
	return s
}

// WithMetrics counts external calls
func (s *FareSearch) WithMetrics(m *metrics.Metrics) *FareSearch {
	s.metrics = m
	return s
}

// WithSleep replaces the inter-call pause sleeper
func (s *FareSearch) WithSleep(sleep resilience.SleepFunc) *FareSearch {
	s.sleep = sleep
	return s
}

// WithClock replaces the clock used for collection timestamps
func (s *FareSearch) WithClock(now func() time.Time) *FareSearch {
	s.now = now
	return s
}

// call runs one external query under the retry policy and pauses afterwards,
// whatever the outcome.
func (s *FareSearch) call(ctx context.Context, phase string, fn func(ctx context.Context) error) error {
	err := s.retry.Do(ctx, phase, func(ctx context.Context) error {
		if s.metrics != nil {
			s.metrics.SearchCalls.WithLabelValues(phase).Inc()
		}
		return fn(ctx)
	})
	if pauseErr := s.sleep(ctx, s.pause); pauseErr != nil && err == nil {
		err = pauseErr
	}
	return err
}

func (s *FareSearch) searchOffers(ctx context.Context, q entity.OfferQuery) ([]entity.FlightOffer, error) {
	var offers []entity.FlightOffer
	err := s.call(ctx, PhaseOffers, func(ctx context.Context) error {
		var err error
		offers, err = s.offers.SearchOffers(ctx, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("offer search %s-%s %s: %w", q.Origin, q.Dest, utils.FormatDate(q.TravelDate), err)
	}
	return offers, nil
}

// Direct returns one candidate per carrier, or only the global cheapest when
// CheapestOnly is set. Carriers follow allow-list order, or alphabetical
// order without an allow-list.
func (s *FareSearch) Direct(ctx context.Context, q DirectQuery) ([]*entity.FareRecord, error) {
	offers, err := s.searchOffers(ctx, entity.OfferQuery{
		Origin:     q.Origin,
		Dest:       q.Dest,
		TravelDate: q.TravelDate,
		Adults:     q.Adults,
		Currency:   q.Currency,
		Airlines:   q.Airlines,
		Max:        q.Max,
	})
	if err != nil {
		return nil, err
	}

	best := make(map[string]*entity.FlightOffer)
	for i := range offers {
		offer := &offers[i]
		carrier := offer.LeadingCarrier()
		if carrier == "" {
			continue
		}
		if len(q.Airlines) > 0 && !utils.ContainsCode(q.Airlines, carrier) {
			continue
		}
		if cur, ok := best[carrier]; !ok || offer.Price.LessThan(cur.Price) {
			best[carrier] = offer
		}
	}
	if len(best) == 0 {
		return nil, fmt.Errorf("%w: %s-%s on %s", ErrNoOffers, q.Origin, q.Dest, utils.FormatDate(q.TravelDate))
	}

	var order []string
	if len(q.Airlines) > 0 {
		for _, code := range q.Airlines {
			if _, ok := best[code]; ok {
				order = append(order, code)
			}
		}
	} else {
		for code := range best {
			order = append(order, code)
		}
		sort.Strings(order)
	}

	collectedAt := s.now().UTC()
	if q.CheapestOnly {
		cheapest := best[order[0]]
		for _, code := range order[1:] {
			if best[code].Price.LessThan(cheapest.Price) {
				cheapest = best[code]
			}
		}
		return []*entity.FareRecord{toFareRecord(cheapest, q.Origin, q.Dest, q.TravelDate, collectedAt)}, nil
	}

	records := make([]*entity.FareRecord, 0, len(order))
	for _, code := range order {
		records = append(records, toFareRecord(best[code], q.Origin, q.Dest, q.TravelDate, collectedAt))
	}

	s.logger.Info("Direct search completed",
		"route", q.Origin+"-"+q.Dest,
		"travelDate", utils.FormatDate(q.TravelDate),
		"offers", len(offers),
		"carriers", len(records))

	return records, nil
}

// Monthly scans each month of the horizon in two phases: the cheapest date
// from a coarse date-price scan, then the cheapest real offer on that date.
// A failing month is recorded in its result and the scan moves on.
func (s *FareSearch) Monthly(ctx context.Context, q MonthlyQuery) []MonthResult {
	start := utils.FirstDayOfMonth(q.Start)
	results := make([]MonthResult, 0, q.MonthsAhead)

	for i := 0; i < q.MonthsAhead; i++ {
		if ctx.Err() != nil {
			break
		}
		month := utils.AddMonths(start, i)
		result := s.scanMonth(ctx, q, month)
		if result.Err != nil {
			s.logger.Warn("Month scan failed",
				"month", month.Format(utils.MONTH_LAYOUT),
				"error", result.Err)
		}
		results = append(results, result)
	}

	return results
}

func (s *FareSearch) scanMonth(ctx context.Context, q MonthlyQuery, month time.Time) MonthResult {
	result := MonthResult{Month: month}

	candidate, fromCache, err := s.cheapestDate(ctx, q.Origin, q.Dest, month)
	if err != nil {
		result.Err = err
		return result
	}
	if candidate == nil {
		s.logger.Info("No date prices for month", "month", month.Format(utils.MONTH_LAYOUT))
		return result
	}
	result.Candidate = candidate
	result.FromCache = fromCache

	offers, err := s.searchOffers(ctx, entity.OfferQuery{
		Origin:     q.Origin,
		Dest:       q.Dest,
		TravelDate: candidate.Date,
		Adults:     q.Adults,
		Currency:   q.Currency,
		Airlines:   q.Airlines,
		Max:        q.Max,
	})
	if err != nil {
		result.Err = err
		return result
	}

	var cheapest *entity.FlightOffer
	for i := range offers {
		if offers[i].LeadingCarrier() == "" {
			continue
		}
		if cheapest == nil || offers[i].Price.LessThan(cheapest.Price) {
			cheapest = &offers[i]
		}
	}
	if cheapest == nil {
		s.logger.Info("No offers on cheapest date", "date", utils.FormatDate(candidate.Date))
		return result
	}

	result.Record = toFareRecord(cheapest, q.Origin, q.Dest, candidate.Date, s.now().UTC())
	return result
}

// cheapestDate runs phase one for a month, consulting the cache first
func (s *FareSearch) cheapestDate(ctx context.Context, origin, dest string, month time.Time) (*entity.DatePrice, bool, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, origin, dest, month)
		if err != nil {
			s.logger.Warn("Date cache read failed", "month", month.Format(utils.MONTH_LAYOUT), "error", err)
		} else if ok {
			return cached, true, nil
		}
	}

	q := entity.DateQuery{
		Origin: origin,
		Dest:   dest,
		From:   month,
		To:     utils.LastDayOfMonth(month),
	}
	var prices []entity.DatePrice
	err := s.call(ctx, PhaseDates, func(ctx context.Context) error {
		var err error
		prices, err = s.dates.ScanDatePrices(ctx, q)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("date scan %s-%s %s: %w", origin, dest, month.Format(utils.MONTH_LAYOUT), err)
	}

	var best *entity.DatePrice
	for i := range prices {
		if best == nil || prices[i].Price.LessThan(best.Price) {
			best = &prices[i]
		}
	}

	if best != nil && s.cache != nil {
		if err := s.cache.Set(ctx, origin, dest, month, best); err != nil {
			s.logger.Warn("Date cache write failed", "month", month.Format(utils.MONTH_LAYOUT), "error", err)
		}
	}
	return best, false, nil
}

// toFareRecord maps an offer to a record: first itinerary, carrier and
// flight number from the first segment, arrival from the last.
func toFareRecord(offer *entity.FlightOffer, origin, dest string, travelDate, collectedAt time.Time) *entity.FareRecord {
	itinerary := offer.Itineraries[0]
	first := itinerary.Segments[0]
	last := itinerary.Segments[len(itinerary.Segments)-1]

	return &entity.FareRecord{
		CollectedAt: collectedAt,
		TravelDate:  utils.Today(travelDate),
		Origin:      origin,
		Dest:        dest,
		Airline:     first.CarrierCode,
		FlightNo:    first.CarrierCode + first.Number,
		DepTime:     first.DepartureAt,
		ArrTime:     last.ArrivalAt,
		Stops:       len(itinerary.Segments) - 1,
		Duration:    itinerary.Duration,
		Price:       offer.Price,
		Currency:    offer.Currency,
	}
}
