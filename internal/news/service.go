// Package news はニュース一覧と詳細の読み取りを提供する。
package news

import (
	"context"
	"fmt"

	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
)

// HomeLimit はホームに表示するニュースの最大件数。
const HomeLimit = 10

// Detail はニュース詳細ページの内容。
type Detail struct {
	News     *model.News
	Comments []*model.Comment
}

// Service はニュースのサービス層。
type Service struct {
	newsRepo    repository.NewsRepository
	commentRepo repository.CommentRepository
}

// NewService はServiceを生成する。
func NewService(newsRepo repository.NewsRepository, commentRepo repository.CommentRepository) *Service {
	return &Service{newsRepo: newsRepo, commentRepo: commentRepo}
}

// Home は日付の新しい順に最大HomeLimit件のニュースを返す。
func (s *Service) Home(ctx context.Context) ([]*model.News, error) {
	items, err := s.newsRepo.ListLatest(ctx, HomeLimit)
	if err != nil {
		return nil, fmt.Errorf("ニュース一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// Detail はニュースとそのコメント（古い順）を返す。
func (s *Service) Detail(ctx context.Context, newsID int64) (*Detail, error) {
	n, err := s.newsRepo.FindByID(ctx, newsID)
	if err != nil {
		return nil, fmt.Errorf("ニュースの取得に失敗しました: %w", err)
	}
	if n == nil {
		return nil, model.NewNewsNotFoundError(newsID)
	}

	comments, err := s.commentRepo.ListByNews(ctx, newsID)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	return &Detail{News: n, Comments: comments}, nil
}
