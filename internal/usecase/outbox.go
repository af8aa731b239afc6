package usecase

import (
	"context"

	"estore/internal/event"
	repo "estore/internal/repository"
)

// 業務データと同じTxでイベントを積む
func enqueue(ctx context.Context, outbox repo.OutboxRepository, topic string, payload interface{}) error {
	ev, err := event.NewOutboxEvent(topic, payload)
	if err != nil {
		return err
	}
	return outbox.Create(ctx, ev)
}
