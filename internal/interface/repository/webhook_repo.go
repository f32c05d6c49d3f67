package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/logger"
)

// WebhookRepository posts notifications as JSON to an HTTP endpoint
type WebhookRepository struct {
	logger      logger.Logger
	url         string
	bearerToken string
	client      *http.Client
}

// NewWebhookRepository creates a new webhook notification repository
func NewWebhookRepository(url, bearerToken string, timeout time.Duration, logger logger.Logger) repository.NotificationRepository {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookRepository{
		logger:      logger.With("component", "webhook"),
		url:         url,
		bearerToken: bearerToken,
		client:      &http.Client{Timeout: timeout},
	}
}

type webhookFlight struct {
	Route      string `json:"route"`
	TravelDate string `json:"travelDate"`
	Airline    string `json:"airline"`
	FlightNo   string `json:"flightNo"`
	DepTime    string `json:"depTime"`
	ArrTime    string `json:"arrTime"`
	Stops      int    `json:"stops"`
	Duration   string `json:"duration"`
	Price      string `json:"price"`
	Currency   string `json:"currency"`
	Previous   string `json:"previousPrice,omitempty"`
	AllTimeLow string `json:"allTimeLow,omitempty"`
}

type webhookPayload struct {
	To        string        `json:"to,omitempty"`
	Subject   string        `json:"subject"`
	Text      string        `json:"text"`
	Partition string        `json:"partition"`
	Reasons   []string      `json:"reasons"`
	Flight    webhookFlight `json:"flight"`
	SentAt    string        `json:"sentAt"`
}

// Send posts the notification and expects a 2xx response
func (r *WebhookRepository) Send(ctx context.Context, n *entity.Notification) error {
	payload := webhookPayload{
		To:        n.To,
		Subject:   n.Subject,
		Text:      n.Body,
		Partition: n.Partition,
		Reasons:   n.Reasons,
		Flight: webhookFlight{
			Route:      n.Flight.Route(),
			TravelDate: n.Flight.TravelDateString(),
			Airline:    n.Flight.Airline,
			FlightNo:   n.Flight.FlightNo,
			DepTime:    n.Flight.DepTime,
			ArrTime:    n.Flight.ArrTime,
			Stops:      n.Flight.Stops,
			Duration:   n.Flight.Duration,
			Price:      n.Flight.Price.String(),
			Currency:   n.Flight.Currency,
		},
		SentAt: time.Now().UTC().Format(time.RFC3339),
	}
	if n.PreviousPrice != nil {
		payload.Flight.Previous = n.PreviousPrice.String()
	}
	if n.AllTimeLow != nil {
		payload.Flight.AllTimeLow = n.AllTimeLow.String()
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if r.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearerToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errorBody map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorBody)
		return fmt.Errorf("webhook returned status %d: %v", resp.StatusCode, errorBody)
	}

	r.logger.Info("Webhook notification delivered",
		"partition", n.Partition,
		"subject", n.Subject,
		"status", resp.StatusCode)

	return nil
}
