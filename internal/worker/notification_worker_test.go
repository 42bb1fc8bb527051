package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/reimbursement-service/internal/config"
	"github.com/spec-kit/reimbursement-service/internal/events"
	"github.com/spec-kit/reimbursement-service/internal/service"
)

type countingPublisher struct{ calls int }

func (p *countingPublisher) Publish(context.Context, string, []byte) error {
	p.calls++
	return nil
}

func TestStartNotificationWorker_RegistersHandlers(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &countingPublisher{}
	notifier := service.NewNotificationService(dispatcher, publisher, zap.NewNop(), config.NotificationConfig{RedisChannel: "events"})

	StartNotificationWorker(notifier, zap.NewNop())

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketSubmitted, TicketID: "t1"}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketProcessed, TicketID: "t1"}))
	assert.Equal(t, 2, publisher.calls)
}

func TestStartNotificationWorker_Nil(t *testing.T) {
	assert.NotPanics(t, func() { StartNotificationWorker(nil, nil) })
}
