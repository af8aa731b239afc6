package repository

import (
	"context"
	"strings"

	"estore/internal/domain/model"
	repo "estore/internal/repository"

	"gorm.io/gorm"
)

type MemberGormRepository struct {
	db *gorm.DB
}

// DI
func NewMemberGormRepository(db *gorm.DB) *MemberGormRepository {
	return &MemberGormRepository{db: db}
}

func (r *MemberGormRepository) List(ctx context.Context, page, limit int) ([]model.Member, int64, error) {
	var members []model.Member
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Member{})
	if err := tx.Count(&total).Error; err != nil {
		return []model.Member{}, 0, err
	}
	if err := tx.Order("id asc").Offset(offsetOf(page, limit)).Limit(limit).Find(&members).Error; err != nil {
		return []model.Member{}, 0, err
	}
	return members, total, nil
}

// email/会社名の部分一致
func (r *MemberGormRepository) Search(ctx context.Context, q repo.MemberSearchQuery) ([]model.Member, error) {
	var members []model.Member

	tx := r.db.WithContext(ctx).Model(&model.Member{})
	if s := strings.TrimSpace(q.Email); s != "" {
		tx = tx.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(q.CompanyName); s != "" {
		tx = tx.Where("LOWER(company_name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if err := tx.Order("id asc").Find(&members).Error; err != nil {
		return []model.Member{}, err
	}
	return members, nil
}

func (r *MemberGormRepository) FindByID(ctx context.Context, id int64) (model.Member, error) {
	var m model.Member
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return model.Member{}, translate(err)
	}
	return m, nil
}

func (r *MemberGormRepository) FindByEmail(ctx context.Context, email string) (model.Member, error) {
	var m model.Member
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&m).Error
	if err != nil {
		return model.Member{}, translate(err)
	}
	return m, nil
}

func (r *MemberGormRepository) Create(ctx context.Context, m model.Member) (model.Member, error) {
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return model.Member{}, translate(err)
	}
	return m, nil
}

func (r *MemberGormRepository) Update(ctx context.Context, m model.Member) error {
	res := r.db.WithContext(ctx).Model(&model.Member{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"email":         strings.ToLower(strings.TrimSpace(m.Email)),
		"company_name":  m.CompanyName,
		"city":          m.City,
		"country":       m.Country,
		"password_hash": m.PasswordHash,
		"role":          m.Role,
		"token_version": m.TokenVersion,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *MemberGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Member{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
