package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceChange classifies two adjacent observations.
type PriceChange string

const (
	PriceDecreased PriceChange = "decreased"
	PriceIncreased PriceChange = "increased"
	PriceUnchanged PriceChange = "unchanged"
	PriceFirst     PriceChange = "first"
)

// AlertReason is why an alert fired.
type AlertReason string

const (
	ReasonPriceDrop     AlertReason = "price_drop"
	ReasonBelowBaseline AlertReason = "below_baseline"
)

// Alert delivery status
const (
	AlertDelivered  = "DELIVERED"
	AlertFailed     = "FAILED"
	AlertSuppressed = "SUPPRESSED"
)

// FareAlert is a fired alert together with the figures that triggered it.
type FareAlert struct {
	ID            string
	PartitionKey  string
	Reasons       []AlertReason
	Record        FareRecord
	PreviousPrice *decimal.Decimal
	Baseline      *decimal.Decimal
	AllTimeLow    *decimal.Decimal
	ThresholdRate float64
	Status        string
	ErrorDetail   string
	CreatedAt     time.Time
}

// HasReason reports whether r is among the alert reasons.
func (a *FareAlert) HasReason(r AlertReason) bool {
	for _, reason := range a.Reasons {
		if reason == r {
			return true
		}
	}
	return false
}
