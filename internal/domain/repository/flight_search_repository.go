package repository

import (
	"context"
	"time"

	"farewatch-service/internal/domain/entity"
)

// OfferSearchRepository queries priced flight offers for one departure date
type OfferSearchRepository interface {
	SearchOffers(ctx context.Context, q entity.OfferQuery) ([]entity.FlightOffer, error)
}

// DatePriceRepository scans indicative prices over a date range
type DatePriceRepository interface {
	ScanDatePrices(ctx context.Context, q entity.DateQuery) ([]entity.DatePrice, error)
}

// DatePriceCache remembers the cheapest date found for a route and month
type DatePriceCache interface {
	Get(ctx context.Context, origin, dest string, month time.Time) (*entity.DatePrice, bool, error)
	Set(ctx context.Context, origin, dest string, month time.Time, dp *entity.DatePrice) error
}
