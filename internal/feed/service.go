package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
)

// FeedDetector はフィード検出のインターフェース。
// テスタビリティのためDetectorを抽象化する。
type FeedDetector interface {
	Detect(ctx context.Context, inputURL string) (*Detection, error)
}

// SourceService はニュースソース登録のサービス層。
// 検出 → 重複チェック → 保存 のフローを統括する。
type SourceService struct {
	repo     repository.NewsSourceRepository
	detector FeedDetector
	now      func() time.Time
}

// NewSourceService はSourceServiceの新しいインスタンスを生成する。
func NewSourceService(repo repository.NewsSourceRepository, detector FeedDetector) *SourceService {
	return &SourceService{
		repo:     repo,
		detector: detector,
		now:      time.Now,
	}
}

// AddSource はURLからフィードを検出し、ニュースソースとして登録する。
// 登録したソースは次回の取り込みですぐにフェッチされる。
func (s *SourceService) AddSource(ctx context.Context, inputURL string) (*model.NewsSource, error) {
	detected, err := s.detector.Detect(ctx, inputURL)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByFeedURL(ctx, detected.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to look up news source: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateSourceError(detected.FeedURL)
	}

	title := detected.Title
	if title == "" {
		// 初期タイトルはフィードURL（取り込み時にフィードのタイトルで更新される）
		title = detected.FeedURL
	}

	now := s.now()
	source := &model.NewsSource{
		ID:          uuid.New().String(),
		FeedURL:     detected.FeedURL,
		SiteURL:     detected.SiteURL,
		Title:       title,
		FetchStatus: model.FetchStatusActive,
		NextFetchAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, source); err != nil {
		// 検索と作成の間に同じURLが登録された場合
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateSourceError(detected.FeedURL)
		}
		return nil, fmt.Errorf("failed to create news source: %w", err)
	}

	slog.Info("news source registered",
		slog.String("source_id", source.ID),
		slog.String("feed_url", source.FeedURL),
	)
	return source, nil
}
