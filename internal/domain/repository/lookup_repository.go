package repository

import (
	"context"

	"farewatch-service/internal/domain/entity"
)

// AirlineRepository resolves carrier codes to display names
type AirlineRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.Airline, error)
}

// AirportRepository resolves IATA airport codes to display names
type AirportRepository interface {
	GetByAirportCode(ctx context.Context, code string) (*entity.Airport, error)
}
