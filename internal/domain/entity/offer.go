package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlightOffer is a priced itinerary returned by the offer search.
type FlightOffer struct {
	ID          string
	Price       decimal.Decimal
	Currency    string
	Itineraries []Itinerary
}

// Itinerary is one direction of an offer.
type Itinerary struct {
	Duration string
	Segments []Segment
}

// Segment is a single flight leg.
type Segment struct {
	CarrierCode   string
	Number        string
	DepartureCode string
	DepartureAt   string
	ArrivalCode   string
	ArrivalAt     string
}

// LeadingCarrier returns the carrier of the first segment of the first
// itinerary, or "" when the offer has no segments.
func (o *FlightOffer) LeadingCarrier() string {
	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return ""
	}
	return o.Itineraries[0].Segments[0].CarrierCode
}

// OfferQuery is the request to the offer-search collaborator.
type OfferQuery struct {
	Origin     string
	Dest       string
	TravelDate time.Time
	Adults     int
	Currency   string
	Airlines   []string
	Max        int
}

// DateQuery is the request to the date-price scan collaborator.
type DateQuery struct {
	Origin string
	Dest   string
	From   time.Time
	To     time.Time
}

// DatePrice is an indicative price for a departure date.
type DatePrice struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}
