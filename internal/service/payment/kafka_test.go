package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type recordingPublisher struct {
	topic string
	key   string
	event interface{}
	err   error
}

func (p *recordingPublisher) PublishEvent(topic string, key string, event interface{}) error {
	p.topic, p.key, p.event = topic, key, event
	return p.err
}

func TestKafkaService_PublishesReconcileCommand(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewKafkaService(pub, "storefront.payment.commands", nil)
	fixed := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	require.NoError(t, svc.ReconcilePaymentIntent(context.Background(), "pi_9"))

	assert.Equal(t, "storefront.payment.commands", pub.topic)
	assert.Equal(t, "pi_9", pub.key)
	assert.Equal(t, ReconcileCommand{Command: CommandReconcileIntent, PaymentIntentID: "pi_9", RequestedAt: fixed}, pub.event)
}

func TestKafkaService_Errors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewKafkaService(pub, "topic", nil)

	assert.Error(t, svc.ReconcilePaymentIntent(context.Background(), "pi_1"))
	assert.True(t, errors.Is(svc.ReconcilePaymentIntent(context.Background(), ""), domain.ErrPaymentIntentRequired))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(svc.ReconcilePaymentIntent(ctx, "pi_1"), context.Canceled))
}
