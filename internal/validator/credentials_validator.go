package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")
	// パスワードが短い
	ErrPasswordTooShort = errors.New("password too short")
	// よくある弱いパスワード
	ErrWeakPassword = errors.New("weak password")
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 12

// サインアップの入力を検証
func ValidateRegister(email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return ErrInvalidInput
	}
	if !IsEmailLike(email) {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if isWeakPassword(password) {
		return ErrWeakPassword
	}
	return nil
}

// ログインの入力を検証
func ValidateLogin(email string, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrInvalidInput
	}
	if !IsEmailLike(email) {
		return ErrInvalidInput
	}
	return nil
}

// 簡易メール形式をチェック
func IsEmailLike(s string) bool {
	return emailRe.MatchString(s)
}

func isWeakPassword(password string) bool {
	normalized := strings.ToLower(strings.TrimSpace(password))

	weak := map[string]struct{}{
		"password":     {},
		"password123":  {},
		"123456789012": {},
		"qwertyuiop12": {},
		"letmein12345": {},
		"admin1234567": {},
	}

	_, ok := weak[normalized]
	return ok
}
