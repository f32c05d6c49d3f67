package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/logger"
	"farewatch-service/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	TestBaseURL       = "https://test.api.amadeus.com"
	ProductionBaseURL = "https://api.amadeus.com"

	defaultAdults    = 1
	defaultMaxOffers = 250
)

// BaseURLFor maps the AMADEUS_HOSTNAME setting ("test" | "production") to
// the API host.
func BaseURLFor(hostname string) string {
	if strings.EqualFold(hostname, "production") {
		return ProductionBaseURL
	}
	return TestBaseURL
}

// Client talks to the Amadeus Self-Service flight APIs. The http.Client is
// expected to attach the OAuth2 bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     logger.Logger
}

var (
	_ repository.OfferSearchRepository = (*Client)(nil)
	_ repository.DatePriceRepository   = (*Client)(nil)
)

// NewClient creates a new Amadeus client
func NewClient(httpClient *http.Client, baseURL string, logger logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With("component", "amadeus"),
	}
}

// SearchOffers calls Flight Offers Search for a single departure date
func (c *Client) SearchOffers(ctx context.Context, q entity.OfferQuery) ([]entity.FlightOffer, error) {
	adults := q.Adults
	if adults <= 0 {
		adults = defaultAdults
	}
	limit := q.Max
	if limit <= 0 {
		limit = defaultMaxOffers
	}

	params := url.Values{}
	params.Set("originLocationCode", q.Origin)
	params.Set("destinationLocationCode", q.Dest)
	params.Set("departureDate", utils.FormatDate(q.TravelDate))
	params.Set("adults", strconv.Itoa(adults))
	params.Set("max", strconv.Itoa(limit))
	if q.Currency != "" {
		params.Set("currencyCode", q.Currency)
	}
	if len(q.Airlines) > 0 {
		params.Set("includedAirlineCodes", strings.Join(q.Airlines, ","))
	}

	var resp offersResponse
	if err := c.get(ctx, "flight-offers", "/v2/shopping/flight-offers", params, &resp); err != nil {
		return nil, err
	}

	offers := make([]entity.FlightOffer, 0, len(resp.Data))
	for _, raw := range resp.Data {
		offer, err := toFlightOffer(raw)
		if err != nil {
			c.logger.Debug("Skipping malformed offer", "offerId", raw.ID, "error", err)
			continue
		}
		offers = append(offers, offer)
	}

	c.logger.Debug("Flight offers fetched",
		"origin", q.Origin,
		"dest", q.Dest,
		"date", utils.FormatDate(q.TravelDate),
		"received", len(resp.Data),
		"usable", len(offers))

	return offers, nil
}

// ScanDatePrices calls Flight Cheapest Date Search over [From, To]
func (c *Client) ScanDatePrices(ctx context.Context, q entity.DateQuery) ([]entity.DatePrice, error) {
	params := url.Values{}
	params.Set("origin", q.Origin)
	params.Set("destination", q.Dest)
	params.Set("departureDate", fmt.Sprintf("%s,%s", utils.FormatDate(q.From), utils.FormatDate(q.To)))

	var resp flightDatesResponse
	if err := c.get(ctx, "flight-dates", "/v1/shopping/flight-dates", params, &resp); err != nil {
		return nil, err
	}

	prices := make([]entity.DatePrice, 0, len(resp.Data))
	for _, item := range resp.Data {
		priceText := firstNonEmpty(item.Price.Total, item.Price.GrandTotal, item.Price.Base)
		if priceText == "" || item.DepartureDate == "" {
			continue
		}
		price, err := decimal.NewFromString(priceText)
		if err != nil {
			continue
		}
		date, err := utils.ParseDate(item.DepartureDate)
		if err != nil {
			continue
		}
		prices = append(prices, entity.DatePrice{Date: date, Price: price})
	}
	return prices, nil
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/vnd.amadeus+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("amadeus %s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("amadeus %s: reading body: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Operation: operation, StatusCode: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && len(apiErr.Errors) > 0 {
			first := apiErr.Errors[0]
			statusErr.Code = first.Code
			if first.Title != "" {
				statusErr.Title = first.Title
			}
			statusErr.Detail = first.Detail
		}
		return statusErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("amadeus %s: decoding response: %w", operation, err)
	}
	return nil
}

func toFlightOffer(raw offerJSON) (entity.FlightOffer, error) {
	priceText := firstNonEmpty(raw.Price.GrandTotal, raw.Price.Total)
	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return entity.FlightOffer{}, fmt.Errorf("price %q: %w", priceText, err)
	}
	if len(raw.Itineraries) == 0 || len(raw.Itineraries[0].Segments) == 0 {
		return entity.FlightOffer{}, fmt.Errorf("offer without segments")
	}

	offer := entity.FlightOffer{
		ID:       raw.ID,
		Price:    price,
		Currency: raw.Price.Currency,
	}
	for _, it := range raw.Itineraries {
		itinerary := entity.Itinerary{Duration: it.Duration}
		for _, seg := range it.Segments {
			itinerary.Segments = append(itinerary.Segments, entity.Segment{
				CarrierCode:   seg.CarrierCode,
				Number:        seg.Number,
				DepartureCode: seg.Departure.IataCode,
				DepartureAt:   seg.Departure.At,
				ArrivalCode:   seg.Arrival.IataCode,
				ArrivalAt:     seg.Arrival.At,
			})
		}
		offer.Itineraries = append(offer.Itineraries, itinerary)
	}
	return offer, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
