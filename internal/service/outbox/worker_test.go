package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/repository"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func seedOutbox(t *testing.T, db *memory.Database, events ...string) {
	t.Helper()

	uow, err := repository.NewFactory(db).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Close()

	created := time.Now().UTC().Add(-time.Minute)
	for i, eventID := range events {
		msg := &domain.OutboxMessage{
			EventID:       eventID,
			AggregateType: domain.AggregateTypeOrder,
			AggregateID:   "pi_" + eventID,
			EventType:     domain.EventTypeOrderCreated,
			Payload:       []byte(`{"status":"pending"}`),
			Status:        domain.OutboxStatusPending,
			CreatedAt:     created.Add(time.Duration(i) * time.Second),
			UpdatedAt:     created,
		}
		if err := uow.OutboxMessages().Add(msg); err != nil {
			t.Fatalf("add outbox message: %v", err)
		}
	}
	if _, err := uow.Complete(context.Background()); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func loadOutbox(t *testing.T, db *memory.Database) map[string]*domain.OutboxMessage {
	t.Helper()

	uow, err := repository.NewFactory(db).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Close()

	all, err := uow.OutboxMessages().ListAll(context.Background())
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	byEvent := make(map[string]*domain.OutboxMessage, len(all))
	for _, msg := range all {
		byEvent[msg.EventID] = msg
	}
	return byEvent
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	db := memory.NewDatabase()
	seedOutbox(t, db, "evt-1")
	publisher := &stubPublisher{}

	worker := NewWorker(
		repository.NewFactory(db),
		publisher,
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)

	if sent := worker.ProcessOnce(context.Background()); sent != 1 {
		t.Fatalf("expected 1 sent message, got %d", sent)
	}

	msg := loadOutbox(t, db)["evt-1"]
	if msg.Status != domain.OutboxStatusSent {
		t.Fatalf("expected status sent, got %s", msg.Status)
	}
	if msg.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", msg.Attempts)
	}
	if got := publisher.calls(); got != 1 {
		t.Fatalf("expected 1 publish call, got %d", got)
	}
	if got := publisher.published()[0].EventID; got != "evt-1" {
		t.Fatalf("unexpected published event %s", got)
	}

	if sent := worker.ProcessOnce(context.Background()); sent != 0 {
		t.Fatalf("sent message must not be republished, got %d", sent)
	}
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	db := memory.NewDatabase()
	seedOutbox(t, db, "evt-2")
	publisher := &stubPublisher{err: errors.New("publish failed")}
	dlqPublisher := &stubPublisher{}

	worker := NewWorker(
		repository.NewFactory(db),
		publisher,
		WithDLQPublisher(dlqPublisher),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)

	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	msg := loadOutbox(t, db)["evt-2"]
	if msg.Status != domain.OutboxStatusFailed {
		t.Fatalf("expected status failed, got %s", msg.Status)
	}
	if msg.Attempts != 3 {
		t.Fatalf("expected 3 attempts recorded, got %d", msg.Attempts)
	}
	if got := dlqPublisher.calls(); got != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", got)
	}
	if got := dlqPublisher.published()[0].EventID; got != "evt-2" {
		t.Fatalf("DLQ event must keep event id, got %s", got)
	}
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	db := memory.NewDatabase()
	seedOutbox(t, db, "evt-3")
	publisher := &stubPublisher{
		sequenceErrors: []error{
			errors.New("attempt 1"),
			errors.New("attempt 2"),
			nil,
		},
	}

	worker := NewWorker(
		repository.NewFactory(db),
		publisher,
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)

	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	msg := loadOutbox(t, db)["evt-3"]
	if msg.Status != domain.OutboxStatusSent || msg.Attempts != 3 {
		t.Fatalf("unexpected message state: status=%s attempts=%d", msg.Status, msg.Attempts)
	}
}

func TestWorker_ProcessOnce_RespectsBatchSizeAndOrder(t *testing.T) {
	t.Parallel()

	db := memory.NewDatabase()
	seedOutbox(t, db, "evt-a", "evt-b", "evt-c")
	publisher := &stubPublisher{}

	worker := NewWorker(repository.NewFactory(db), publisher, WithBatchSize(2), WithRetryBaseDelay(0))

	if sent := worker.ProcessOnce(context.Background()); sent != 2 {
		t.Fatalf("expected 2 sent messages, got %d", sent)
	}
	published := publisher.published()
	if published[0].EventID != "evt-a" || published[1].EventID != "evt-b" {
		t.Fatalf("expected oldest first, got %s, %s", published[0].EventID, published[1].EventID)
	}

	stats, err := worker.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 1 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestWorker_Stats_Empty(t *testing.T) {
	t.Parallel()

	worker := NewWorker(repository.NewFactory(memory.NewDatabase()), &stubPublisher{})
	stats, err := worker.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestWorker_RetryBackoff(t *testing.T) {
	t.Parallel()

	worker := NewWorker(nil, nil, WithRetryBaseDelay(10*time.Millisecond))
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{4, 80 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := worker.retryBackoff(tt.attempt); got != tt.want {
			t.Fatalf("retryBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	callCount      int
	events         []domain.OutboxMessage
}

func (s *stubPublisher) Publish(event domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	var err error
	if len(s.sequenceErrors) > 0 {
		err = s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
	} else {
		err = s.err
	}
	if err == nil {
		s.events = append(s.events, event)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPublisher) published() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.events...)
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(
		repository.NewFactory(memory.NewDatabase()),
		&stubPublisher{},
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
