package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/reimbursement-service/internal/config"
	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/events"
	"github.com/spec-kit/reimbursement-service/internal/repository"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return p.err
}

func TestNotificationService_PublishesTicketEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &recordingPublisher{}
	notifier := NewNotificationService(dispatcher, publisher, zap.NewNop(), config.NotificationConfig{
		EmailFrom:    "noreply@example.com",
		WebhookURL:   "http://hooks.local/tickets",
		RedisChannel: "reimbursement.events",
	})
	notifier.RegisterHandlers()

	svc := NewTicketService(TicketDependencies{
		TicketStore: repository.NewMemoryTicketStore(),
		Dispatcher:  dispatcher,
	})
	ticket := submit(t, svc, alice, 15, "parking")
	_, err := svc.Approve(context.Background(), bob, ticket.ID)
	require.NoError(t, err)

	require.Len(t, publisher.payloads, 2)
	assert.Equal(t, []string{"reimbursement.events", "reimbursement.events"}, publisher.channels)

	var decoded struct {
		Type     events.EventType `json:"type"`
		TicketID string           `json:"ticket_id"`
		Payload  struct {
			Decision domain.TicketStatus `json:"decision"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(publisher.payloads[1], &decoded))
	assert.Equal(t, events.EventTicketProcessed, decoded.Type)
	assert.Equal(t, ticket.ID, decoded.TicketID)
	assert.Equal(t, domain.TicketStatusApproved, decoded.Payload.Decision)
}

func TestNotificationService_NoChannelSkipsPublish(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &recordingPublisher{}
	NewNotificationService(dispatcher, publisher, zap.NewNop(), config.NotificationConfig{}).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketSubmitted, TicketID: "t1"})
	require.NoError(t, err)
	assert.Empty(t, publisher.payloads)
}

func TestNotificationService_PublishFailureDoesNotFailTransition(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &recordingPublisher{err: errors.New("redis down")}
	NewNotificationService(dispatcher, publisher, zap.NewNop(), config.NotificationConfig{RedisChannel: "c"}).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketProcessed, TicketID: "t1"})
	assert.Error(t, err)

	svc := NewTicketService(TicketDependencies{
		TicketStore: repository.NewMemoryTicketStore(),
		Dispatcher:  dispatcher,
	})
	ticket := submit(t, svc, alice, 15, "parking")
	processed, err := svc.Deny(context.Background(), bob, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDenied, processed.Status)
}
