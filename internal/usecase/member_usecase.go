package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"estore/internal/domain/model"
	"estore/internal/event"
	repo "estore/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// usecaseがValidatorInterfaceに依存する約束
type MemberValidator interface {
	// 形式チェックのみ。重複はusecase側で見る
	ValidateMember(ctx context.Context, in MemberInput, passwordRequired bool) error
}

type MemberUsecase struct {
	tx        repo.TransactionManager
	members   repo.MemberRepository
	validator MemberValidator
}

func NewMemberUsecase(tx repo.TransactionManager, members repo.MemberRepository, validator MemberValidator) *MemberUsecase {
	return &MemberUsecase{tx: tx, members: members, validator: validator}
}

type MemberInput struct {
	Email       string
	CompanyName string
	City        string
	Country     string
	// 更新時は空なら変更しない
	Password string
	Role     model.Role
}

type MemberListOutput struct {
	Items []model.Member `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (u *MemberUsecase) List(ctx context.Context, page, limit int) (MemberListOutput, error) {
	if err := validatePage(page, limit); err != nil {
		return MemberListOutput{}, err
	}
	items, total, err := u.members.List(ctx, page, limit)
	if err != nil {
		return MemberListOutput{}, dbError("member.list", err)
	}
	return MemberListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (u *MemberUsecase) Get(ctx context.Context, id int64) (model.Member, error) {
	if id <= 0 {
		return model.Member{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := u.members.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Member{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Member{}, dbError("member.get", err)
	}
	return m, nil
}

// email・会社名の部分一致
func (u *MemberUsecase) Search(ctx context.Context, q repo.MemberSearchQuery) ([]model.Member, error) {
	q.Email = strings.TrimSpace(q.Email)
	q.CompanyName = strings.TrimSpace(q.CompanyName)
	if len(q.Email) > 100 || len(q.CompanyName) > 100 {
		return []model.Member{}, NewHTTPError(http.StatusBadRequest, "query too long")
	}
	items, err := u.members.Search(ctx, q)
	if err != nil {
		return []model.Member{}, dbError("member.search", err)
	}
	return items, nil
}

func (u *MemberUsecase) Create(ctx context.Context, in MemberInput) (model.Member, error) {
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if !in.Role.Valid() {
		return model.Member{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}
	if err := u.validator.ValidateMember(ctx, in, true); err != nil {
		return model.Member{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	email := normalizeEmail(in.Email)
	if _, err := u.members.FindByEmail(ctx, email); err == nil {
		return model.Member{}, NewHTTPError(http.StatusConflict, "email already used")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return model.Member{}, dbError("member.create", err)
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.Member{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	m, err := u.members.Create(ctx, model.Member{
		Email:        email,
		CompanyName:  strings.TrimSpace(in.CompanyName),
		City:         strings.TrimSpace(in.City),
		Country:      strings.TrimSpace(in.Country),
		PasswordHash: string(pwHash),
		Role:         in.Role,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// 同時登録で先を越された
		return model.Member{}, NewHTTPError(http.StatusConflict, "email already used")
	}
	if err != nil {
		return model.Member{}, dbError("member.create", err)
	}
	return m, nil
}

// 管理者による更新。roleも変えられる
func (u *MemberUsecase) Update(ctx context.Context, id int64, in MemberInput) (model.Member, error) {
	if in.Role != "" && !in.Role.Valid() {
		return model.Member{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}
	return u.save(ctx, id, in)
}

// 本人によるプロフィール更新。roleは変えない
func (u *MemberUsecase) UpdateProfile(ctx context.Context, memberID int64, in MemberInput) (model.Member, error) {
	if memberID <= 0 {
		return model.Member{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	in.Role = ""
	return u.save(ctx, memberID, in)
}

func (u *MemberUsecase) save(ctx context.Context, id int64, in MemberInput) (model.Member, error) {
	if id <= 0 {
		return model.Member{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := u.validator.ValidateMember(ctx, in, false); err != nil {
		return model.Member{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var saved model.Member
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Members().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}

		email := normalizeEmail(in.Email)
		// emailを変えるときだけ重複を見る
		if email != cur.Email {
			other, err := r.Members().FindByEmail(ctx, email)
			if err == nil && other.ID != id {
				return NewHTTPError(http.StatusConflict, "email already used")
			}
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return err
			}
		}

		next := cur
		next.Email = email
		next.CompanyName = strings.TrimSpace(in.CompanyName)
		next.City = strings.TrimSpace(in.City)
		next.Country = strings.TrimSpace(in.Country)

		// パスワードかroleが変わったら既存トークンを無効化
		if in.Password != "" {
			pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			next.PasswordHash = string(pwHash)
			next.TokenVersion++
		}
		if in.Role != "" && in.Role != cur.Role {
			next.Role = in.Role
			if in.Password == "" {
				next.TokenVersion++
			}
		}

		err = r.Members().Update(ctx, next)
		if errors.Is(err, repo.ErrDuplicate) {
			return NewHTTPError(http.StatusConflict, "email already used")
		}
		if err != nil {
			return err
		}

		saved, err = r.Members().FindByID(ctx, id)
		if err != nil {
			return err
		}
		return enqueue(ctx, r.Outbox(), event.TopicMemberUpdated, saved)
	})
	if err != nil {
		return model.Member{}, txError("member.update", err)
	}
	return saved, nil
}

func (u *MemberUsecase) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	err := u.members.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return dbError("member.delete", err)
	}
	return nil
}

type ForceLogoutResult struct {
	MemberID     int64 `json:"member_id"`
	TokenVersion int   `json:"token_version"`
}

// token_versionを上げて発行済みトークンを全部無効にする
func (u *MemberUsecase) ForceLogout(ctx context.Context, id int64) (ForceLogoutResult, error) {
	if id <= 0 {
		return ForceLogoutResult{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var res ForceLogoutResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		m, err := r.Members().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		m.TokenVersion++
		if err := r.Members().Update(ctx, m); err != nil {
			return err
		}
		res = ForceLogoutResult{MemberID: m.ID, TokenVersion: m.TokenVersion}
		return nil
	})
	if err != nil {
		return ForceLogoutResult{}, txError("member.force_logout", err)
	}
	return res, nil
}
