// Package user はユーザー登録のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/notenews/internal/auth"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
)

// DuplicateUsernameWarning はユーザー名重複時のusernameフィールドのエラー。
const DuplicateUsernameWarning = "Пользователь с таким именем уже существует."

// InputValidator はフォーム入力の検証インターフェース。
type InputValidator interface {
	Validate(s any) error
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	validator InputValidator
	hash      func(password string) (string, error)
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, validator InputValidator) *Service {
	return &Service{
		userRepo:  userRepo,
		validator: validator,
		hash:      auth.HashPassword,
		now:       time.Now,
	}
}

// Signup は新しいユーザーを登録する。
// 重複判定はusersテーブルの一意制約に任せ、違反時はusernameフィールドのエラーを返す。
func (s *Service) Signup(ctx context.Context, input model.SignupInput) (*model.User, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	hash, err := s.hash(input.Password1)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, model.NewFieldError("password1", "Пароль слишком длинный.")
		}
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewFieldError("username", DuplicateUsernameWarning)
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを登録しました",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}
