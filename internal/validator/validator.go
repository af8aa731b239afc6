package validator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"estore/internal/usecase"

	"github.com/go-playground/validator/v10"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// echo.Validator と usecase.MemberValidator を兼ねる
type Validator struct {
	v            *validator.Validate
	requireGmail bool
}

func New(requireGmail bool) *Validator {
	v := validator.New()

	// エラーのフィールド名はjsonタグ名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("email_like", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("gmail", func(fl validator.FieldLevel) bool {
		return strings.HasSuffix(strings.ToLower(fl.Field().String()), "@gmail.com")
	})

	return &Validator{v: v, requireGmail: requireGmail}
}

// echoのc.Validate用
func (x *Validator) Validate(i interface{}) error {
	if err := x.v.Struct(i); err != nil {
		return errors.New(Message(err))
	}
	return nil
}

type memberRules struct {
	Email       string `json:"email" validate:"required,max=100,email_like"`
	CompanyName string `json:"company_name" validate:"required,max=40"`
	City        string `json:"city" validate:"required,max=15"`
	Country     string `json:"country" validate:"required,max=15"`
	Password    string `json:"password" validate:"omitempty,min=6,max=72"`
}

func (x *Validator) ValidateMember(_ context.Context, in usecase.MemberInput, passwordRequired bool) error {
	rules := memberRules{
		Email:       strings.TrimSpace(in.Email),
		CompanyName: strings.TrimSpace(in.CompanyName),
		City:        strings.TrimSpace(in.City),
		Country:     strings.TrimSpace(in.Country),
		Password:    in.Password,
	}
	if passwordRequired && rules.Password == "" {
		return errors.New("password is required")
	}
	if err := x.v.Struct(rules); err != nil {
		return errors.New(Message(err))
	}
	if x.requireGmail {
		if err := x.v.Var(rules.Email, "gmail"); err != nil {
			return errors.New("email must be a gmail.com address")
		}
	}
	return nil
}

// 最初の違反だけを人が読める形に
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email_like":
		return fmt.Sprintf("%s is not a valid email address", fe.Field())
	case "gte", "gt":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
