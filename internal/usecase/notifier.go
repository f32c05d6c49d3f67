package usecase

import (
	"context"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
)

// NotifierRouter fans a notification out to every registered transport
type NotifierRouter interface {
	// Register adds a named transport
	Register(name string, channel repository.NotificationRepository)

	// Dispatch sends n on every transport and joins their failures
	Dispatch(ctx context.Context, n *entity.Notification) error

	// Channels lists the registered transport names in registration order
	Channels() []string
}
