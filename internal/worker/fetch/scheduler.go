// Package fetch はニュースソースのバックグラウンド取り込みを提供する。
// スケジューラ、フェッチャー、インポーター、リトライ/バックオフ戦略を含む。
package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
)

// SourceFetcher はソース単位のフェッチの実行インターフェース。
type SourceFetcher interface {
	// Fetch は指定ソースをフェッチし、結果に応じてソース状態を更新する。
	Fetch(ctx context.Context, src *model.NewsSource) error
}

// Scheduler はソースフェッチのスケジューリングと並列制御を行う。
type Scheduler struct {
	sourceRepo     repository.NewsSourceRepository
	fetcher        SourceFetcher
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	sourceRepo repository.NewsSourceRepository,
	fetcher SourceFetcher,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		sourceRepo:     sourceRepo,
		fetcher:        fetcher,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start はinterval間隔でRunOnceを繰り返す。起動直後にも1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("取り込みスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("取り込みサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("取り込みスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("取り込みサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はフェッチ期限が来たソースを取得し、並列でフェッチする。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	sources, err := s.sourceRepo.ListDueForFetch(ctx)
	if err != nil {
		return err
	}
	s.run(ctx, sources)
	return nil
}

// RunAll は期限に関係なくアクティブな全ソースをフェッチする。
// importコマンドの一括取り込みで使う。
func (s *Scheduler) RunAll(ctx context.Context) error {
	sources, err := s.sourceRepo.ListActive(ctx)
	if err != nil {
		return err
	}
	s.run(ctx, sources)
	return nil
}

func (s *Scheduler) run(ctx context.Context, sources []*model.NewsSource) {
	start := time.Now()

	if len(sources) == 0 {
		s.logger.Info("フェッチ対象のソースはありません")
		return
	}

	s.logger.Info("取り込みサイクルを開始します",
		slog.Int("source_count", len(sources)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		sem <- struct{}{}

		go func(src *model.NewsSource) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.fetcher.Fetch(ctx, src); err != nil {
				s.logger.Error("ソースのフェッチに失敗しました",
					slog.String("source_id", src.ID),
					slog.String("feed_url", src.FeedURL),
					slog.String("error", err.Error()),
				)
			}
		}(src)
	}

	wg.Wait()

	s.logger.Info("取り込みサイクルが完了しました",
		slog.Int("source_count", len(sources)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}
