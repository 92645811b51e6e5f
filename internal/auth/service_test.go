package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
)

func init() {
	passwordCost = bcrypt.MinCost
}

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, session *model.Session) error
	findByIDFn      func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn    func(ctx context.Context, id string) error
	deleteExpiredFn func(ctx context.Context, before time.Time) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, before)
	}
	return 0, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return hash
}

// --- テスト ---

func TestHashPassword_RoundTrip(t *testing.T) {
	hash := mustHash(t, "correct horse")

	if hash == "correct horse" {
		t.Fatal("hash should differ from plain password")
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("CheckPassword() = false for the right password")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("CheckPassword() = true for a wrong password")
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}

	_, err := HashPassword(string(long))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("HashPassword() error = %v, want ErrPasswordTooLong", err)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	hash := mustHash(t, "s3cret-pass")
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: username, PasswordHash: hash}, nil
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	user, err := svc.Authenticate(context.Background(), "ivan", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", user.ID, "user-1")
	}
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	hash := mustHash(t, "s3cret-pass")
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "パスワード不一致", username: "ivan", password: "wrong-pass"},
		{name: "存在しないユーザー", username: "nobody", password: "s3cret-pass"},
	}

	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username != "ivan" {
				return nil, nil
			}
			return &model.User{ID: "user-1", Username: username, PasswordHash: hash}, nil
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tt.username, tt.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
			}
		})
	}
}

func TestAuthenticate_RepositoryError(t *testing.T) {
	dbErr := errors.New("connection refused")
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return nil, dbErr
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	_, err := svc.Authenticate(context.Background(), "ivan", "pass")
	if !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped db error, got %v", err)
	}
}

func TestStartSession_CreatesSessionWithDevice(t *testing.T) {
	var created *model.Session
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			created = session
			return nil
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	session, err := svc.StartSession(context.Background(), &model.User{ID: "user-1", Username: "ivan"}, ua)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected session to be saved")
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if session.UserID != "user-1" || session.Username != "ivan" {
		t.Errorf("session = %+v", session)
	}
	if !session.ExpiresAt.Equal(fixed.Add(24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", session.ExpiresAt, fixed.Add(24*time.Hour))
	}
	if session.Device != "Chrome 120 / Windows" {
		t.Errorf("Device = %q, want %q", session.Device, "Chrome 120 / Windows")
	}
	if session.UserAgent != ua {
		t.Error("user agent should be stored as is")
	}
}

func TestStartSession_SaveError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			return errors.New("db error")
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.StartSession(context.Background(), &model.User{ID: "user-1"}, ""); err == nil {
		t.Fatal("expected error from StartSession")
	}
}

func TestStartSession_UniqueIDs(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 60})
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		s, err := svc.StartSession(context.Background(), &model.User{ID: "u"}, "")
		if err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
		if seen[s.ID] {
			t.Fatalf("duplicate session ID: %s", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestDescribeDevice(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{name: "空", ua: "", want: ""},
		{
			name: "Firefox on Linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			want: "Firefox 121 / Linux",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeDevice(tt.ua); got != tt.want {
				t.Errorf("DescribeDevice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deletedSessionID string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.Logout(context.Background(), "session-to-delete"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deletedSessionID != "session-to-delete" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-to-delete")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}
