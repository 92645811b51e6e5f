package comment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/notenews/internal/metrics"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/security"
	"github.com/hitoshi/notenews/internal/validation"
)

// --- モック ---

type mockCommentRepo struct {
	createFn             func(ctx context.Context, c *model.Comment) error
	findByIDAndAuthorFn  func(ctx context.Context, id int64, authorID string) (*model.Comment, error)
	updateTextByAuthorFn func(ctx context.Context, id int64, authorID, text string) (int64, bool, error)
	deleteByAuthorFn     func(ctx context.Context, id int64, authorID string) (int64, bool, error)
}

func (m *mockCommentRepo) Create(ctx context.Context, c *model.Comment) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return nil
}
func (m *mockCommentRepo) FindByIDAndAuthor(ctx context.Context, id int64, authorID string) (*model.Comment, error) {
	if m.findByIDAndAuthorFn != nil {
		return m.findByIDAndAuthorFn(ctx, id, authorID)
	}
	return nil, nil
}
func (m *mockCommentRepo) ListByNews(ctx context.Context, newsID int64) ([]*model.Comment, error) {
	return nil, nil
}
func (m *mockCommentRepo) UpdateTextByAuthor(ctx context.Context, id int64, authorID, text string) (int64, bool, error) {
	if m.updateTextByAuthorFn != nil {
		return m.updateTextByAuthorFn(ctx, id, authorID, text)
	}
	return 0, false, nil
}
func (m *mockCommentRepo) DeleteByAuthor(ctx context.Context, id int64, authorID string) (int64, bool, error) {
	if m.deleteByAuthorFn != nil {
		return m.deleteByAuthorFn(ctx, id, authorID)
	}
	return 0, false, nil
}

type mockNewsRepo struct {
	findByIDFn func(ctx context.Context, id int64) (*model.News, error)
}

func (m *mockNewsRepo) ListLatest(ctx context.Context, limit int) ([]*model.News, error) {
	return nil, nil
}
func (m *mockNewsRepo) FindByID(ctx context.Context, id int64) (*model.News, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.News{ID: id}, nil
}
func (m *mockNewsRepo) UpsertFromSource(ctx context.Context, n *model.News) (bool, error) {
	return false, nil
}

type countingMetrics struct {
	metrics.Nop
	created  int
	rejected int
}

func (c *countingMetrics) RecordCommentCreated()  { c.created++ }
func (c *countingMetrics) RecordCommentRejected() { c.rejected++ }

func newTestService(repo *mockCommentRepo, newsRepo *mockNewsRepo, m metrics.MetricsCollector) *Service {
	if newsRepo == nil {
		newsRepo = &mockNewsRepo{}
	}
	return NewService(repo, newsRepo, validation.New(), security.NewModerationFilter(nil), m)
}

// --- テスト ---

// TestService_Create はコメントが著者とニュースを設定して保存されることを検証する。
func TestService_Create(t *testing.T) {
	var saved *model.Comment
	repo := &mockCommentRepo{
		createFn: func(ctx context.Context, c *model.Comment) error {
			c.ID = 42
			saved = c
			return nil
		},
	}
	m := &countingMetrics{}
	svc := newTestService(repo, nil, m)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	c, err := svc.Create(context.Background(), "user-1", 3, model.CommentInput{Text: "Хорошая новость"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != 42 || saved.AuthorID != "user-1" || saved.NewsID != 3 {
		t.Errorf("saved comment = %+v", saved)
	}
	if !saved.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", saved.CreatedAt, fixed)
	}
	if m.created != 1 {
		t.Errorf("created = %d, want 1", m.created)
	}
}

// TestService_Create_Moderation は禁止語を含むコメントが保存されないことを検証する。
func TestService_Create_Moderation(t *testing.T) {
	texts := []string{
		"Какой-то текст, редиска, еще текст",
		"Ты НЕГОДЯЙ",
		"Редиска!",
	}
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			repo := &mockCommentRepo{
				createFn: func(ctx context.Context, c *model.Comment) error {
					t.Fatal("rejected comment should not be saved")
					return nil
				},
			}
			m := &countingMetrics{}
			svc := newTestService(repo, nil, m)

			_, err := svc.Create(context.Background(), "user-1", 1, model.CommentInput{Text: text})
			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if got := verr.Field("text"); len(got) != 1 || got[0] != "Не ругайтесь!" {
				t.Errorf("text errors = %v", got)
			}
			if m.rejected != 1 {
				t.Errorf("rejected = %d, want 1", m.rejected)
			}
		})
	}
}

// TestService_Create_EmptyText は空のコメントが検証エラーになることを検証する。
func TestService_Create_EmptyText(t *testing.T) {
	svc := newTestService(&mockCommentRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", 1, model.CommentInput{Text: ""})
	var verr *model.ValidationError
	if !errors.As(err, &verr) || len(verr.Field("text")) == 0 {
		t.Fatalf("expected text ValidationError, got %v", err)
	}
}

// TestService_Create_NewsNotFound は存在しないニュースへの投稿がNEWS_NOT_FOUNDになることを検証する。
func TestService_Create_NewsNotFound(t *testing.T) {
	newsRepo := &mockNewsRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.News, error) {
			return nil, nil
		},
	}
	svc := newTestService(&mockCommentRepo{}, newsRepo, nil)

	_, err := svc.Create(context.Background(), "user-1", 5, model.CommentInput{Text: "ok"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNewsNotFound {
		t.Fatalf("expected NEWS_NOT_FOUND, got %v", err)
	}
}

// TestService_Get は著者以外がCOMMENT_NOT_FOUNDになることを検証する。
func TestService_Get(t *testing.T) {
	repo := &mockCommentRepo{
		findByIDAndAuthorFn: func(ctx context.Context, id int64, authorID string) (*model.Comment, error) {
			if authorID == "author" {
				return &model.Comment{ID: id, AuthorID: authorID}, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	if _, err := svc.Get(context.Background(), "author", 1); err != nil {
		t.Fatalf("author should get comment: %v", err)
	}
	_, err := svc.Get(context.Background(), "reader", 1)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCommentNotFound {
		t.Fatalf("expected COMMENT_NOT_FOUND, got %v", err)
	}
}

// TestService_Update は著者による更新と著者以外の拒否を検証する。
func TestService_Update(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		text    string
		wantErr string
		wantID  int64
	}{
		{name: "著者による更新", userID: "author", text: "Обновленный текст", wantID: 9},
		{name: "著者以外", userID: "reader", text: "Обновленный текст", wantErr: model.ErrCodeCommentNotFound},
		{name: "禁止語", userID: "author", text: "негодяй", wantErr: "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCommentRepo{
				updateTextByAuthorFn: func(ctx context.Context, id int64, authorID, text string) (int64, bool, error) {
					if authorID != "author" {
						return 0, false, nil
					}
					return 9, true, nil
				},
			}
			svc := newTestService(repo, nil, nil)

			newsID, err := svc.Update(context.Background(), tt.userID, 1, model.CommentInput{Text: tt.text})
			switch tt.wantErr {
			case "":
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if newsID != tt.wantID {
					t.Errorf("newsID = %d, want %d", newsID, tt.wantID)
				}
			case "validation":
				var verr *model.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
			default:
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != tt.wantErr {
					t.Fatalf("expected %s, got %v", tt.wantErr, err)
				}
			}
		})
	}
}

// TestService_Delete は著者による削除と著者以外の拒否を検証する。
func TestService_Delete(t *testing.T) {
	deleted := map[int64]bool{}
	repo := &mockCommentRepo{
		deleteByAuthorFn: func(ctx context.Context, id int64, authorID string) (int64, bool, error) {
			if authorID != "author" {
				return 0, false, nil
			}
			deleted[id] = true
			return 4, true, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	_, err := svc.Delete(context.Background(), "reader", 1)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsNotFound() {
		t.Fatalf("expected not found for non-author, got %v", err)
	}
	if deleted[1] {
		t.Fatal("non-author should not delete")
	}

	newsID, err := svc.Delete(context.Background(), "author", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newsID != 4 || !deleted[1] {
		t.Errorf("newsID = %d, deleted = %v", newsID, deleted[1])
	}
}

// TestService_Delete_RepoError はリポジトリエラーがラップされることを検証する。
func TestService_Delete_RepoError(t *testing.T) {
	dbErr := errors.New("db down")
	repo := &mockCommentRepo{
		deleteByAuthorFn: func(ctx context.Context, id int64, authorID string) (int64, bool, error) {
			return 0, false, dbErr
		},
	}
	svc := newTestService(repo, nil, nil)

	if _, err := svc.Delete(context.Background(), "author", 1); !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped db error, got %v", err)
	}
}
