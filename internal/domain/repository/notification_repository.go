package repository

import (
	"context"

	"farewatch-service/internal/domain/entity"
)

// NotificationRepository delivers a composed notification over one transport
type NotificationRepository interface {
	Send(ctx context.Context, n *entity.Notification) error
}
