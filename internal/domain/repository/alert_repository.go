package repository

import (
	"context"

	"farewatch-service/internal/domain/entity"
)

// AlertRepository keeps an audit log of fired alerts
type AlertRepository interface {
	Save(ctx context.Context, alert *entity.FareAlert) error
	FindByPartition(ctx context.Context, partitionKey string, limit int) ([]*entity.FareAlert, error)
}
