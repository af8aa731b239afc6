package usecase

import (
	"context"
	"net/http"
	"time"

	"estore/internal/domain/model"
	repo "estore/internal/repository"
)

type TrackingUsecase struct {
	tracking repo.TrackingRepository
}

func NewTrackingUsecase(tracking repo.TrackingRepository) *TrackingUsecase {
	return &TrackingUsecase{tracking: tracking}
}

type TrackingView struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	MemberID   int64     `json:"member_id"`
	MemberName string    `json:"member_name"`
	Status     int       `json:"status"`
	StatusName string    `json:"status_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type TrackingListOutput struct {
	Items []TrackingView `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// 注文の履歴を古い順で
func (u *TrackingUsecase) ListByOrder(ctx context.Context, orderID int64) ([]TrackingView, error) {
	if orderID <= 0 {
		return []TrackingView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rows, err := u.tracking.ListByOrderID(ctx, orderID)
	if err != nil {
		return []TrackingView{}, dbError("tracking.list_by_order", err)
	}
	return toTrackingViews(rows), nil
}

// statusは"ALL"/空/名前/数字
func (u *TrackingUsecase) List(ctx context.Context, page, limit int, status string) (TrackingListOutput, error) {
	if err := validatePage(page, limit); err != nil {
		return TrackingListOutput{}, err
	}
	statuses, err := resolveStatuses(status, nil)
	if err != nil {
		return TrackingListOutput{}, err
	}

	rows, total, err := u.tracking.List(ctx, repo.TrackingListFilter{
		Page:     page,
		Limit:    limit,
		Statuses: statuses,
	})
	if err != nil {
		return TrackingListOutput{}, dbError("tracking.list", err)
	}
	return TrackingListOutput{
		Items: toTrackingViews(rows),
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func toTrackingViews(rows []model.TrackingOrder) []TrackingView {
	out := make([]TrackingView, 0, len(rows))
	for _, t := range rows {
		out = append(out, TrackingView{
			ID:         t.ID,
			OrderID:    t.OrderID,
			MemberID:   t.MemberID,
			MemberName: t.MemberName,
			Status:     int(t.Status),
			StatusName: t.Status.String(),
			CreatedAt:  t.CreatedAt,
			UpdatedAt:  t.UpdatedAt,
		})
	}
	return out
}
