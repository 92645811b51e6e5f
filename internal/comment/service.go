// Package comment はニュースへのコメントの投稿・編集・削除を提供する。
// 編集と削除は著者に限定され、著者以外には存在しないものとして扱う。
package comment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/notenews/internal/metrics"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
	"github.com/hitoshi/notenews/internal/security"
)

// Moderator はコメント本文の禁止語チェックのインターフェース。
type Moderator interface {
	// Check は本文に含まれる禁止語を返す。含まれない場合はfalseを返す。
	Check(text string) (string, bool)
}

// InputValidator はフォーム入力の検証インターフェース。
type InputValidator interface {
	Validate(s any) error
}

// Service はコメントのサービス層。
type Service struct {
	commentRepo repository.CommentRepository
	newsRepo    repository.NewsRepository
	validator   InputValidator
	moderator   Moderator
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	commentRepo repository.CommentRepository,
	newsRepo repository.NewsRepository,
	validator InputValidator,
	moderator Moderator,
	m metrics.MetricsCollector,
) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		commentRepo: commentRepo,
		newsRepo:    newsRepo,
		validator:   validator,
		moderator:   moderator,
		metrics:     m,
		now:         time.Now,
	}
}

// Create はニュースにコメントを投稿する。
// 禁止語を含む場合はtextフィールドのValidationErrorを返し、何も保存しない。
func (s *Service) Create(ctx context.Context, userID string, newsID int64, input model.CommentInput) (*model.Comment, error) {
	n, err := s.newsRepo.FindByID(ctx, newsID)
	if err != nil {
		return nil, fmt.Errorf("ニュースの取得に失敗しました: %w", err)
	}
	if n == nil {
		return nil, model.NewNewsNotFoundError(newsID)
	}

	if err := s.check(userID, input); err != nil {
		return nil, err
	}

	c := &model.Comment{
		NewsID:    newsID,
		AuthorID:  userID,
		Text:      input.Text,
		CreatedAt: s.now(),
	}
	if err := s.commentRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	s.metrics.RecordCommentCreated()
	slog.Info("comment created",
		slog.String("user_id", userID),
		slog.Int64("news_id", newsID),
		slog.Int64("comment_id", c.ID),
	)
	return c, nil
}

// Get は著者のコメントを取得する。
func (s *Service) Get(ctx context.Context, userID string, commentID int64) (*model.Comment, error) {
	c, err := s.commentRepo.FindByIDAndAuthor(ctx, commentID, userID)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCommentNotFoundError(commentID)
	}
	return c, nil
}

// Update は著者のコメント本文を更新し、所属ニュースのIDを返す。
// 禁止語チェックは投稿時と同じく行う。
func (s *Service) Update(ctx context.Context, userID string, commentID int64, input model.CommentInput) (int64, error) {
	if err := s.check(userID, input); err != nil {
		return 0, err
	}

	newsID, found, err := s.commentRepo.UpdateTextByAuthor(ctx, commentID, userID, input.Text)
	if err != nil {
		return 0, fmt.Errorf("コメントの更新に失敗しました: %w", err)
	}
	if !found {
		return 0, model.NewCommentNotFoundError(commentID)
	}
	return newsID, nil
}

// Delete は著者のコメントを削除し、所属ニュースのIDを返す。
func (s *Service) Delete(ctx context.Context, userID string, commentID int64) (int64, error) {
	newsID, found, err := s.commentRepo.DeleteByAuthor(ctx, commentID, userID)
	if err != nil {
		return 0, fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	if !found {
		return 0, model.NewCommentNotFoundError(commentID)
	}
	slog.Info("comment deleted",
		slog.String("user_id", userID),
		slog.Int64("comment_id", commentID),
	)
	return newsID, nil
}

func (s *Service) check(userID string, input model.CommentInput) error {
	if err := s.validator.Validate(input); err != nil {
		return err
	}
	if word, found := s.moderator.Check(input.Text); found {
		s.metrics.RecordCommentRejected()
		slog.Info("comment rejected by moderation",
			slog.String("user_id", userID),
			slog.String("word", word),
		)
		return model.NewFieldError("text", security.ModerationWarning)
	}
	return nil
}
