package usecase

import (
	"context"
	"errors"
	"iter"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"

	"github.com/shopspring/decimal"
)

var (
	fixedNow     = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	errTransient = errors.New("status 503")
)

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func clock() time.Time { return fixedNow }

func noSleep(ctx context.Context, d time.Duration) error { return nil }

// memStore keeps partitions in memory
type memStore struct {
	records   map[string][]*entity.FareRecord
	appends   int
	appendErr error
	readErr   error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string][]*entity.FareRecord)}
}

func (s *memStore) Append(ctx context.Context, p entity.Partition, rec *entity.FareRecord) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	cp := *rec
	s.records[p.Key()] = append(s.records[p.Key()], &cp)
	s.appends++
	return nil
}

func (s *memStore) ReadAll(ctx context.Context, p entity.Partition) iter.Seq2[*entity.FareRecord, error] {
	return func(yield func(*entity.FareRecord, error) bool) {
		if s.readErr != nil {
			yield(nil, s.readErr)
			return
		}
		for _, rec := range s.records[p.Key()] {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (s *memStore) LastRecord(ctx context.Context, p entity.Partition) (*entity.FareRecord, bool, error) {
	if s.readErr != nil {
		return nil, false, s.readErr
	}
	recs := s.records[p.Key()]
	if len(recs) == 0 {
		return nil, false, nil
	}
	return recs[len(recs)-1], true, nil
}

var _ repository.FareRecordRepository = (*memStore)(nil)

type fakeOfferSearch struct {
	searchFn func(ctx context.Context, q entity.OfferQuery) ([]entity.FlightOffer, error)
	queries  []entity.OfferQuery
}

func (f *fakeOfferSearch) SearchOffers(ctx context.Context, q entity.OfferQuery) ([]entity.FlightOffer, error) {
	f.queries = append(f.queries, q)
	return f.searchFn(ctx, q)
}

type fakeDateScan struct {
	scanFn  func(ctx context.Context, q entity.DateQuery) ([]entity.DatePrice, error)
	queries []entity.DateQuery
}

func (f *fakeDateScan) ScanDatePrices(ctx context.Context, q entity.DateQuery) ([]entity.DatePrice, error) {
	f.queries = append(f.queries, q)
	return f.scanFn(ctx, q)
}

type fakeDateCache struct {
	entries map[string]*entity.DatePrice
	sets    int
}

func cacheKey(origin, dest string, month time.Time) string {
	return origin + dest + month.Format("2006-01")
}

func (c *fakeDateCache) Get(ctx context.Context, origin, dest string, month time.Time) (*entity.DatePrice, bool, error) {
	dp, ok := c.entries[cacheKey(origin, dest, month)]
	return dp, ok, nil
}

func (c *fakeDateCache) Set(ctx context.Context, origin, dest string, month time.Time, dp *entity.DatePrice) error {
	if c.entries == nil {
		c.entries = make(map[string]*entity.DatePrice)
	}
	c.entries[cacheKey(origin, dest, month)] = dp
	c.sets++
	return nil
}

type fakeNotifier struct {
	dispatchFn func(ctx context.Context, n *entity.Notification) error
	sent       []*entity.Notification
}

func (f *fakeNotifier) Register(name string, channel repository.NotificationRepository) {}

func (f *fakeNotifier) Channels() []string { return []string{"fake"} }

func (f *fakeNotifier) Dispatch(ctx context.Context, n *entity.Notification) error {
	f.sent = append(f.sent, n)
	if f.dispatchFn != nil {
		return f.dispatchFn(ctx, n)
	}
	return nil
}

type fakeAlertRepo struct {
	saved   []*entity.FareAlert
	saveErr error
}

func (r *fakeAlertRepo) Save(ctx context.Context, alert *entity.FareAlert) error {
	r.saved = append(r.saved, alert)
	return r.saveErr
}

func (r *fakeAlertRepo) FindByPartition(ctx context.Context, partitionKey string, limit int) ([]*entity.FareAlert, error) {
	return r.saved, nil
}

type fakeAirlines struct {
	getFn func(ctx context.Context, code string) (*entity.Airline, error)
}

func (f *fakeAirlines) GetByCode(ctx context.Context, code string) (*entity.Airline, error) {
	return f.getFn(ctx, code)
}

type fakeAirports struct {
	getFn func(ctx context.Context, code string) (*entity.Airport, error)
}

func (f *fakeAirports) GetByAirportCode(ctx context.Context, code string) (*entity.Airport, error) {
	return f.getFn(ctx, code)
}

// offer builds a one-itinerary offer; each flight number adds a segment
func offer(carrier, price string, numbers ...string) entity.FlightOffer {
	segs := make([]entity.Segment, 0, len(numbers))
	for i, n := range numbers {
		segs = append(segs, entity.Segment{
			CarrierCode:   carrier,
			Number:        n,
			DepartureCode: "ICN",
			DepartureAt:   "2025-08-25T09:0" + string(rune('0'+i)) + ":00",
			ArrivalCode:   "NRT",
			ArrivalAt:     "2025-08-25T11:2" + string(rune('0'+i)) + ":00",
		})
	}
	return entity.FlightOffer{
		Price:       decimal.RequireFromString(price),
		Currency:    "KRW",
		Itineraries: []entity.Itinerary{{Duration: "PT2H20M", Segments: segs}},
	}
}

func fare(price string, collectedAt time.Time) *entity.FareRecord {
	return &entity.FareRecord{
		CollectedAt: collectedAt,
		TravelDate:  time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC),
		Origin:      "ICN",
		Dest:        "NRT",
		Airline:     "KE",
		FlightNo:    "KE703",
		DepTime:     "2025-08-25T09:00:00",
		ArrTime:     "2025-08-25T11:20:00",
		Stops:       0,
		Duration:    "PT2H20M",
		Price:       decimal.RequireFromString(price),
		Currency:    "KRW",
	}
}
