package repository

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	// versionが一致しない（他の更新が先に入った）
	ErrConflict = errors.New("version conflict")
)
