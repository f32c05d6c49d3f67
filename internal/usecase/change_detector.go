package usecase

import (
	"farewatch-service/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// DefaultPriceTolerance is the largest price delta still treated as unchanged
var DefaultPriceTolerance = decimal.New(1, -4)

// ChangeDetector decides whether a candidate repeats the last stored record
type ChangeDetector struct {
	tolerance decimal.Decimal
}

// NewChangeDetector creates a detector. A non-positive tolerance takes the default.
func NewChangeDetector(tolerance decimal.Decimal) *ChangeDetector {
	if !tolerance.IsPositive() {
		tolerance = DefaultPriceTolerance
	}
	return &ChangeDetector{tolerance: tolerance}
}

// IsDuplicate reports whether candidate carries the same observation as last.
// Collection timestamps are ignored; a nil last is never a duplicate.
func (d *ChangeDetector) IsDuplicate(last, candidate *entity.FareRecord) bool {
	if last == nil || candidate == nil {
		return false
	}
	if last.Price.Sub(candidate.Price).Abs().GreaterThan(d.tolerance) {
		return false
	}
	if last.Stops != candidate.Stops {
		return false
	}
	return last.TravelDateString() == candidate.TravelDateString() &&
		last.Origin == candidate.Origin &&
		last.Dest == candidate.Dest &&
		last.Airline == candidate.Airline &&
		last.FlightNo == candidate.FlightNo &&
		last.DepTime == candidate.DepTime &&
		last.ArrTime == candidate.ArrTime &&
		last.Duration == candidate.Duration &&
		last.Currency == candidate.Currency
}
