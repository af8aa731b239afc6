package repository

import (
	"context"

	"estore/internal/domain/model"
)

type MemberSearchQuery struct {
	Email       string
	CompanyName string
}

type MemberRepository interface {
	List(ctx context.Context, page, limit int) ([]model.Member, int64, error)
	Search(ctx context.Context, q MemberSearchQuery) ([]model.Member, error)
	FindByID(ctx context.Context, id int64) (model.Member, error)
	// emailは大小無視で検索
	FindByEmail(ctx context.Context, email string) (model.Member, error)
	Create(ctx context.Context, m model.Member) (model.Member, error)
	Update(ctx context.Context, m model.Member) error
	Delete(ctx context.Context, id int64) error
}
