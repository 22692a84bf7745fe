package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 一意制約違反（order_numberなど）
	ErrDuplicate = errors.New("duplicate")

	// 条件付き更新で対象行が変わっていた
	ErrConflict = errors.New("conflict")
)
