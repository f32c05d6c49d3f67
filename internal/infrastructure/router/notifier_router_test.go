package router

import (
	"context"
	"errors"
	"testing"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sendFn func(ctx context.Context, n *entity.Notification) error
	sent   int
}

func (f *fakeTransport) Send(ctx context.Context, n *entity.Notification) error {
	f.sent++
	if f.sendFn != nil {
		return f.sendFn(ctx, n)
	}
	return nil
}

func TestDispatch_FansOutToEveryChannel(t *testing.T) {
	r := NewNotifierRouter(logger.NewNopLogger())
	mail, hook := &fakeTransport{}, &fakeTransport{}
	r.Register("gmail", mail)
	r.Register("webhook", hook)

	err := r.Dispatch(context.Background(), &entity.Notification{Subject: "drop"})

	require.NoError(t, err)
	assert.Equal(t, 1, mail.sent)
	assert.Equal(t, 1, hook.sent)
	assert.Equal(t, []string{"gmail", "webhook"}, r.Channels())
}

func TestDispatch_FailureDoesNotStopOtherChannels(t *testing.T) {
	r := NewNotifierRouter(logger.NewNopLogger())
	boom := errors.New("quota exceeded")
	mail := &fakeTransport{sendFn: func(ctx context.Context, n *entity.Notification) error { return boom }}
	hook := &fakeTransport{}
	r.Register("gmail", mail)
	r.Register("webhook", hook)

	err := r.Dispatch(context.Background(), &entity.Notification{Subject: "drop"})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "gmail: quota exceeded")
	assert.Equal(t, 1, hook.sent)
}

func TestDispatch_NoChannels(t *testing.T) {
	r := NewNotifierRouter(logger.NewNopLogger())
	assert.Error(t, r.Dispatch(context.Background(), &entity.Notification{}))
}
