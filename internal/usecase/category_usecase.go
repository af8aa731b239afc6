package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"estore/internal/domain/model"
	"estore/internal/event"
	repo "estore/internal/repository"
)

type CategoryUsecase struct {
	tx         repo.TransactionManager
	categories repo.CategoryRepository
	products   repo.ProductRepository
}

func NewCategoryUsecase(tx repo.TransactionManager, categories repo.CategoryRepository, products repo.ProductRepository) *CategoryUsecase {
	return &CategoryUsecase{tx: tx, categories: categories, products: products}
}

type CategoryInput struct {
	CategoryName string
	Description  string
}

type CategoryListOutput struct {
	Items []model.Category `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func validateCategoryInput(in CategoryInput) error {
	name := strings.TrimSpace(in.CategoryName)
	if name == "" {
		return NewHTTPError(http.StatusBadRequest, "category_name required")
	}
	if len(name) > 40 {
		return NewHTTPError(http.StatusBadRequest, "category_name too long")
	}
	return nil
}

func (u *CategoryUsecase) List(ctx context.Context, page, limit int) (CategoryListOutput, error) {
	if err := validatePage(page, limit); err != nil {
		return CategoryListOutput{}, err
	}
	items, total, err := u.categories.List(ctx, page, limit)
	if err != nil {
		return CategoryListOutput{}, dbError("category.list", err)
	}
	return CategoryListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (u *CategoryUsecase) Get(ctx context.Context, id int64) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	c, err := u.categories.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Category{}, dbError("category.get", err)
	}
	return c, nil
}

func (u *CategoryUsecase) Create(ctx context.Context, in CategoryInput) (model.Category, error) {
	if err := validateCategoryInput(in); err != nil {
		return model.Category{}, err
	}

	var created model.Category
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Categories().Create(ctx, model.Category{
			CategoryName: strings.TrimSpace(in.CategoryName),
			Description:  strings.TrimSpace(in.Description),
		})
		if err != nil {
			return err
		}
		created = c
		return enqueue(ctx, r.Outbox(), event.TopicCategoryCreated, c)
	})
	if err != nil {
		return model.Category{}, txError("category.create", err)
	}
	return created, nil
}

func (u *CategoryUsecase) Update(ctx context.Context, id int64, in CategoryInput) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := validateCategoryInput(in); err != nil {
		return model.Category{}, err
	}

	c := model.Category{
		ID:           id,
		CategoryName: strings.TrimSpace(in.CategoryName),
		Description:  strings.TrimSpace(in.Description),
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Categories().Update(ctx, c)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		return enqueue(ctx, r.Outbox(), event.TopicCategoryUpdated, c)
	})
	if err != nil {
		return model.Category{}, txError("category.update", err)
	}
	return c, nil
}

// 商品が1つでも紐づいていれば削除できない
func (u *CategoryUsecase) CanDelete(ctx context.Context, id int64) (bool, error) {
	used, err := u.products.ExistsByCategoryID(ctx, id)
	if err != nil {
		return false, dbError("category.can_delete", err)
	}
	return !used, nil
}

func (u *CategoryUsecase) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		used, err := r.Products().ExistsByCategoryID(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return NewHTTPError(http.StatusConflict, "category has products")
		}

		err = r.Categories().Delete(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		return enqueue(ctx, r.Outbox(), event.TopicCategoryDeleted, event.IDPayload{ID: id})
	})
	return txError("category.delete", err)
}
