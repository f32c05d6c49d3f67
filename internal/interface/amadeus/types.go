package amadeus

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx answer from the Amadeus API
type StatusError struct {
	Operation  string
	StatusCode int
	Code       int
	Title      string
	Detail     string
}

func (e *StatusError) Error() string {
	msg := e.Title
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("amadeus %s: status %d: %s", e.Operation, e.StatusCode, msg)
}

// IsTransient reports whether err is a rate-limit or server-side failure
// worth retrying.
func IsTransient(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Wire shapes. They never leave this package.

type errorResponse struct {
	Errors []struct {
		Status int    `json:"status"`
		Code   int    `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

type priceJSON struct {
	Currency   string `json:"currency"`
	Total      string `json:"total"`
	GrandTotal string `json:"grandTotal"`
	Base       string `json:"base"`
}

type endpointJSON struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type segmentJSON struct {
	CarrierCode string       `json:"carrierCode"`
	Number      string       `json:"number"`
	Departure   endpointJSON `json:"departure"`
	Arrival     endpointJSON `json:"arrival"`
}

type itineraryJSON struct {
	Duration string        `json:"duration"`
	Segments []segmentJSON `json:"segments"`
}

type offerJSON struct {
	ID          string          `json:"id"`
	Price       priceJSON       `json:"price"`
	Itineraries []itineraryJSON `json:"itineraries"`
}

type offersResponse struct {
	Data []offerJSON `json:"data"`
}

type flightDateJSON struct {
	DepartureDate string    `json:"departureDate"`
	ReturnDate    string    `json:"returnDate"`
	Price         priceJSON `json:"price"`
}

type flightDatesResponse struct {
	Data []flightDateJSON `json:"data"`
}
