package repository

import (
	"context"
	"time"

	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"gorm.io/gorm"
)

type OutboxGormRepository struct {
	db *gorm.DB
}

func NewOutboxGormRepository(db *gorm.DB) *OutboxGormRepository {
	return &OutboxGormRepository{db: db}
}

func (r *OutboxGormRepository) Create(ctx context.Context, e model.OutboxEvent) error {
	if e.Status == "" {
		e.Status = model.OutboxStatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return translate(r.db.WithContext(ctx).Create(&e).Error)
}

// 候補を古い順に読み、1行ずつ条件付きUPDATEで取る。
// 別インスタンスが先に取った行はRowsAffected==0になるので返さない
func (r *OutboxGormRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error) {
	now := time.Now()
	staleBefore := now.Add(-lease)
	const claimable = "status = ? OR (status = ? AND claimed_at < ?)"

	var candidates []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where(claimable, model.OutboxStatusPending, model.OutboxStatusProcessing, staleBefore).
		Order("created_at asc").
		Order("id asc").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return []model.OutboxEvent{}, err
	}

	claimed := make([]model.OutboxEvent, 0, len(candidates))
	for _, e := range candidates {
		res := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
			Where("id = ?", e.ID).
			Where(claimable, model.OutboxStatusPending, model.OutboxStatusProcessing, staleBefore).
			Updates(map[string]interface{}{
				"status":     model.OutboxStatusProcessing,
				"claimed_at": now,
			})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected != 1 {
			continue
		}
		e.Status = model.OutboxStatusProcessing
		e.ClaimedAt = &now
		claimed = append(claimed, e)
	}
	return claimed, nil
}

func (r *OutboxGormRepository) MarkDone(ctx context.Context, id string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.OutboxStatusDone,
			"processed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 1文で加算する。SETの右辺は更新前の値を見る
func (r *OutboxGormRepository) MarkAttemptFailed(ctx context.Context, id string, lastErr string, maxAttempts int) error {
	res := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastErr,
			"claimed_at": nil,
			"status": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END",
				maxAttempts, model.OutboxStatusFailed, model.OutboxStatusPending),
			"processed_at": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE processed_at END",
				maxAttempts, time.Now()),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
