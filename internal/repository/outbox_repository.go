package repository

import (
	"context"
	"time"

	"estore/internal/domain/model"
)

type OutboxRepository interface {
	Create(ctx context.Context, e model.OutboxEvent) error
	// pending行(とlease切れのprocessing行)をprocessingにして返す。取れた行だけ返る
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error)
	MarkDone(ctx context.Context, id string) error
	// attemptsを進めpendingへ戻す。maxAttemptsに達したらfailed
	MarkAttemptFailed(ctx context.Context, id string, lastErr string, maxAttempts int) error
}
