package amadeus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/infrastructure/oauth"
	"farewatch-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offersBody = `{
  "data": [
    {
      "id": "1",
      "price": {"currency": "KRW", "total": "98000.00", "grandTotal": "98000.00"},
      "itineraries": [{
        "duration": "PT2H20M",
        "segments": [{
          "carrierCode": "KE", "number": "703",
          "departure": {"iataCode": "ICN", "at": "2025-08-25T09:00:00"},
          "arrival": {"iataCode": "NRT", "at": "2025-08-25T11:20:00"}
        }]
      }]
    },
    {
      "id": "2",
      "price": {"currency": "KRW", "grandTotal": "not-a-number"},
      "itineraries": [{"duration": "PT2H", "segments": [{"carrierCode": "OZ", "number": "102"}]}]
    },
    {
      "id": "3",
      "price": {"currency": "KRW", "grandTotal": "70000"},
      "itineraries": []
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.Client(), server.URL, logger.NewNopLogger())
}

func TestSearchOffers_MapsTypedOffers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/shopping/flight-offers", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "ICN", q.Get("originLocationCode"))
		assert.Equal(t, "NRT", q.Get("destinationLocationCode"))
		assert.Equal(t, "2025-08-25", q.Get("departureDate"))
		assert.Equal(t, "1", q.Get("adults"))
		assert.Equal(t, "250", q.Get("max"))
		assert.Equal(t, "KRW", q.Get("currencyCode"))
		assert.Equal(t, "KE,OZ", q.Get("includedAirlineCodes"))
		fmt.Fprint(w, offersBody)
	})

	offers, err := client.SearchOffers(context.Background(), entity.OfferQuery{
		Origin:     "ICN",
		Dest:       "NRT",
		TravelDate: time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC),
		Currency:   "KRW",
		Airlines:   []string{"KE", "OZ"},
	})

	require.NoError(t, err)
	require.Len(t, offers, 1, "malformed offers are dropped at the boundary")
	offer := offers[0]
	assert.Equal(t, "98000", offer.Price.String())
	assert.Equal(t, "KRW", offer.Currency)
	assert.Equal(t, "KE", offer.LeadingCarrier())
	assert.Equal(t, "PT2H20M", offer.Itineraries[0].Duration)
	assert.Equal(t, "2025-08-25T11:20:00", offer.Itineraries[0].Segments[0].ArrivalAt)
}

func TestScanDatePrices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/shopping/flight-dates", r.URL.Path)
		assert.Equal(t, "2025-09-01,2025-09-30", r.URL.Query().Get("departureDate"))
		fmt.Fprint(w, `{"data":[
			{"departureDate":"2025-09-03","price":{"total":"120000.00"}},
			{"departureDate":"2025-09-17","price":{"grandTotal":"87000"}},
			{"departureDate":"","price":{"total":"1"}},
			{"departureDate":"2025-09-20","price":{}}
		]}`)
	})

	prices, err := client.ScanDatePrices(context.Background(), entity.DateQuery{
		Origin: "ICN",
		Dest:   "NRT",
		From:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "2025-09-17", prices[1].Date.Format("2006-01-02"))
	assert.Equal(t, "87000", prices[1].Price.String())
}

func TestStatusErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"errors":[{"status":400,"code":477,"title":"INVALID FORMAT","detail":"bad date"}]}`)
			})

			_, err := client.SearchOffers(context.Background(), entity.OfferQuery{Origin: "ICN", Dest: "NRT"})

			require.Error(t, err)
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, 477, statusErr.Code)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestIsTransient_NonStatusError(t *testing.T) {
	assert.False(t, IsTransient(errors.New("dial tcp: connection refused")))
	assert.False(t, IsTransient(nil))
}

func TestClient_UsesClientCredentialsToken(t *testing.T) {
	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-123","token_type":"Bearer","expires_in":1799}`)
	})
	mux.HandleFunc("/v1/shopping/flight-dates", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	auth := oauth.NewAmadeusOAuth("id", "secret", server.URL, logger.NewNopLogger())
	client := NewClient(auth.HTTPClient(context.Background(), 5*time.Second), server.URL, logger.NewNopLogger())

	for i := 0; i < 2; i++ {
		_, err := client.ScanDatePrices(context.Background(), entity.DateQuery{Origin: "ICN", Dest: "NRT"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, tokenCalls, "token is cached between calls")
}

func TestBaseURLFor(t *testing.T) {
	assert.Equal(t, ProductionBaseURL, BaseURLFor("production"))
	assert.Equal(t, TestBaseURL, BaseURLFor("test"))
	assert.Equal(t, TestBaseURL, BaseURLFor(""))
}
