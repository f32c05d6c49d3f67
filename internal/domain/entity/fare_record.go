// internal/domain/entity/fare_record.go
package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// FareRecord is one observation of the cheapest fare for a flight.
type FareRecord struct {
	CollectedAt time.Time       `json:"collectedAt"`
	TravelDate  time.Time       `json:"travelDate"`
	Origin      string          `json:"origin"`
	Dest        string          `json:"dest"`
	Airline     string          `json:"airline"`
	FlightNo    string          `json:"flightNo"`
	DepTime     string          `json:"depTime"`
	ArrTime     string          `json:"arrTime"`
	Stops       int             `json:"stops"`
	Duration    string          `json:"duration"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

// TravelDateString renders the travel date as YYYY-MM-DD.
func (r *FareRecord) TravelDateString() string {
	return r.TravelDate.Format(dateLayout)
}

// Route renders the route as ORIGIN-DEST.
func (r *FareRecord) Route() string {
	return fmt.Sprintf("%s-%s", r.Origin, r.Dest)
}

// Validate checks the record invariants.
func (r *FareRecord) Validate() error {
	if r.Origin == "" || r.Dest == "" {
		return errors.New("fare record: origin and dest are required")
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("fare record: negative price %s", r.Price)
	}
	if r.Stops < 0 {
		return fmt.Errorf("fare record: negative stops %d", r.Stops)
	}
	return nil
}

// Partition identifies one append-only fare series.
type Partition struct {
	Origin     string
	Dest       string
	Airline    string
	TravelDate *time.Time // optional
	Month      *time.Time // set for the cheapest-of-month series
}

// PartitionFor returns the partition a record belongs to. When byDate is set
// the travel date becomes part of the key.
func PartitionFor(r *FareRecord, byDate bool) Partition {
	p := Partition{Origin: r.Origin, Dest: r.Dest, Airline: r.Airline}
	if byDate {
		d := r.TravelDate
		p.TravelDate = &d
	}
	return p
}

// MonthlyPartitionFor returns the (route, airline, travel month) series that
// holds the cheapest fare of the record's month.
func MonthlyPartitionFor(r *FareRecord) Partition {
	m := time.Date(r.TravelDate.Year(), r.TravelDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Partition{Origin: r.Origin, Dest: r.Dest, Airline: r.Airline, Month: &m}
}

// IsMonthly reports whether p is a cheapest-of-month series.
func (p Partition) IsMonthly() bool {
	return p.Month != nil
}

// Key renders the partition as a stable lower-case identifier, e.g.
// "icn-nrt_ke", "icn-nrt_ke_2025-08-25" or "icn-nrt_ke_2025-08".
func (p Partition) Key() string {
	key := fmt.Sprintf("%s-%s_%s", p.Origin, p.Dest, p.Airline)
	if p.TravelDate != nil {
		key += "_" + p.TravelDate.Format(dateLayout)
	}
	if p.Month != nil {
		key += "_" + p.Month.Format(monthLayout)
	}
	return strings.ToLower(key)
}

func (p Partition) String() string {
	return p.Key()
}
