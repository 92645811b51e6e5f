// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// Usernameはセッション検索時にusersテーブルと結合して埋められる。
type Session struct {
	ID        string
	UserID    string
	Username  string
	UserAgent string
	Device    string // useragentの解析結果（例: "Chrome 120 / Windows"）
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SignupInput は登録フォームの入力値。
type SignupInput struct {
	Username  string `form:"username" validate:"required,min=3,max=150,username"`
	Password1 string `form:"password1" validate:"required,min=8,max=128"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

// LoginInput はログインフォームの入力値。
type LoginInput struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required,max=128"`
}
