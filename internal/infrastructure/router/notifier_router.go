package router

import (
	"context"
	"errors"
	"fmt"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/internal/usecase"
	"farewatch-service/pkg/logger"
)

type channel struct {
	name      string
	transport repository.NotificationRepository
}

// NotifierRouter delivers notifications to every registered transport
type NotifierRouter struct {
	channels []channel
	logger   logger.Logger
}

var _ usecase.NotifierRouter = (*NotifierRouter)(nil)

// NewNotifierRouter creates a new notifier router
func NewNotifierRouter(logger logger.Logger) *NotifierRouter {
	return &NotifierRouter{
		channels: make([]channel, 0),
		logger:   logger.With("component", "notifier_router"),
	}
}

// Register registers a transport under name
func (r *NotifierRouter) Register(name string, transport repository.NotificationRepository) {
	r.channels = append(r.channels, channel{name: name, transport: transport})
	r.logger.Info("Registered notification channel", "channel", name)
}

// Channels returns the registered channel names
func (r *NotifierRouter) Channels() []string {
	names := make([]string, len(r.channels))
	for i, ch := range r.channels {
		names[i] = ch.name
	}
	return names
}

// Dispatch sends n on every channel. One failing channel does not stop the
// others; all failures are joined into the returned error.
func (r *NotifierRouter) Dispatch(ctx context.Context, n *entity.Notification) error {
	if len(r.channels) == 0 {
		return errors.New("no notification channel registered")
	}

	var errs []error
	for _, ch := range r.channels {
		if err := ch.transport.Send(ctx, n); err != nil {
			r.logger.Warn("Notification channel failed", "channel", ch.name, "partition", n.Partition, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
			continue
		}
		r.logger.Debug("Notification sent", "channel", ch.name, "partition", n.Partition)
	}
	return errors.Join(errs...)
}
