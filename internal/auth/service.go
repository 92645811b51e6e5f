// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/mileusna/useragent"

	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		now:         time.Now,
	}
}

// Authenticate はユーザー名とパスワードを照合する。
// ユーザーが存在しない場合もパスワード不一致と同じINVALID_CREDENTIALSを返す。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		CheckPassword(string(dummyHash), password)
		slog.Info("login failed: unknown user", slog.String("username", username))
		return nil, model.NewInvalidCredentialsError()
	}
	if !CheckPassword(user.PasswordHash, password) {
		slog.Info("login failed: wrong password", slog.String("user_id", user.ID))
		return nil, model.NewInvalidCredentialsError()
	}

	return user, nil
}

// StartSession はユーザーのセッションを発行する。
// User-Agentを解析した端末概要をセッションに記録する。
func (s *Service) StartSession(ctx context.Context, user *model.User, userAgent string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Username:  user.Username,
		UserAgent: userAgent,
		Device:    DescribeDevice(userAgent),
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("device", session.Device),
	)
	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// DescribeDevice はUser-Agentから "Chrome 120 / Windows" 形式の概要を返す。
// 解析できない場合は空文字を返す。
func DescribeDevice(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.Parse(userAgent)
	if ua.Name == "" {
		return ""
	}

	browser := ua.Name
	if ua.VersionNo.Major > 0 {
		browser = fmt.Sprintf("%s %d", ua.Name, ua.VersionNo.Major)
	}
	if ua.Bot {
		return browser + " (bot)"
	}
	if ua.OS == "" {
		return browser
	}
	return browser + " / " + ua.OS
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
