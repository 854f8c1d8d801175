package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var outboxMapper = &tableMapper{
	name: "outbox_messages",
	columns: []string{
		"id", "event_id", "aggregate_type", "aggregate_id", "event_type",
		"payload", "status", "attempts", "created_at", "updated_at",
	},
	fields: map[string]string{
		domain.FieldID:              "id",
		domain.OutboxFieldStatus:    "status",
		domain.OutboxFieldCreatedAt: "created_at",
		domain.OutboxFieldEventType: "event_type",
	},
	scan: func(row scanner) (domain.Entity, error) {
		var (
			msg    domain.OutboxMessage
			status string
		)
		if err := row.Scan(
			&msg.ID, &msg.EventID, &msg.AggregateType, &msg.AggregateID, &msg.EventType,
			&msg.Payload, &status, &msg.Attempts, &msg.CreatedAt, &msg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		msg.Status = domain.OutboxStatus(status)
		return &msg, nil
	},
	insert: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, func(), error) {
		msg := e.(*domain.OutboxMessage)

		eventID := msg.EventID
		if eventID == "" {
			eventID = uuid.NewString()
		}
		status := msg.Status
		if status == "" {
			status = domain.OutboxStatusPending
		}
		createdAt := msg.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		payload := msg.Payload
		if len(payload) == 0 {
			payload = []byte("{}")
		}

		id, err := insertRow(ctx, tx, "outbox_messages", msg.ID,
			[]string{"event_id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "attempts", "created_at", "updated_at"},
			[]any{eventID, msg.AggregateType, msg.AggregateID, msg.EventType, payload, string(status), msg.Attempts, createdAt, createdAt},
		)
		if err != nil {
			return 0, nil, fmt.Errorf("insert outbox message: %w", err)
		}
		return 1, func() {
			msg.ID = id
			msg.EventID = eventID
			msg.Status = status
			msg.CreatedAt = createdAt
		}, nil
	},
	update: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error) {
		msg := e.(*domain.OutboxMessage)
		updatedAt := msg.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}
		return execAffected(ctx, tx, `
			UPDATE outbox_messages SET status = $2, attempts = $3, updated_at = $4
			WHERE id = $1
		`, msg.ID, string(msg.Status), msg.Attempts, updatedAt)
	},
	remove: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error) {
		return execAffected(ctx, tx, `DELETE FROM outbox_messages WHERE id = $1`, e.GetID())
	},
}
