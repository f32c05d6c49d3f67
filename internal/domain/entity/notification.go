package entity

import "github.com/shopspring/decimal"

// Notification is a composed alert message ready for a transport.
type Notification struct {
	From          string           `json:"from"`
	To            string           `json:"to"`
	Subject       string           `json:"subject"`
	Body          string           `json:"text"`
	Flight        FareRecord       `json:"flight"`
	PreviousPrice *decimal.Decimal `json:"previousPrice,omitempty"`
	AllTimeLow    *decimal.Decimal `json:"allTimeLow,omitempty"`
	Reasons       []string         `json:"reasons"`
	Partition     string           `json:"partition"`
}
