package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/notenews/internal/metrics"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
)

// NewsImporter はパース済みエントリの保存処理のインターフェース。
type NewsImporter interface {
	Import(ctx context.Context, sourceID string, entries []model.ParsedEntry) (int, int, error)
}

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// FetcherConfig はFetcherの動作設定。
type FetcherConfig struct {
	Timeout          time.Duration
	MaxResponseBytes int64
	// Interval は成功時に次回フェッチまで空ける時間。
	Interval time.Duration
}

// Fetcher は個別ソースのHTTPフェッチとパースを行う。
// ETag/Last-Modifiedを使用した条件付きGET、SSRF検証、
// gofeedによるパース、Importerによるニュース保存を実行する。
type Fetcher struct {
	sourceRepo repository.NewsSourceRepository
	importer   NewsImporter
	ssrfGuard  SSRFValidator
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	config     FetcherConfig
	now        func() time.Time
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(
	sourceRepo repository.NewsSourceRepository,
	importer NewsImporter,
	ssrfGuard SSRFValidator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	config FetcherConfig,
) *Fetcher {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = 5 << 20
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Minute
	}
	return &Fetcher{
		sourceRepo: sourceRepo,
		importer:   importer,
		ssrfGuard:  ssrfGuard,
		metrics:    collector,
		logger:     logger,
		config:     config,
		now:        time.Now,
	}
}

// Fetch はソースをフェッチし、結果に応じてソースの状態を更新する。
// SourceFetcherインターフェースを実装する。
func (f *Fetcher) Fetch(ctx context.Context, src *model.NewsSource) error {
	start := f.now()
	defer func() { f.metrics.RecordFetchLatency(time.Since(start)) }()

	if err := f.ssrfGuard.ValidateURL(src.FeedURL); err != nil {
		f.logger.Error("SSRF検証に失敗しました",
			slog.String("source_id", src.ID),
			slog.String("feed_url", src.FeedURL),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordFetchFailure(src.ID, "ssrf")
		ApplyStop(src, fmt.Sprintf("ssrf check failed: %s", err.Error()), f.now())
		f.saveState(ctx, src)
		return fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := f.ssrfGuard.NewSafeClient(f.config.Timeout, f.config.MaxResponseBytes)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.FeedURL, nil)
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", "notenews/1.0 (+news import)")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	// 条件付きGET
	if src.ETag != "" {
		req.Header.Set("If-None-Match", src.ETag)
	}
	if src.LastModified != "" {
		req.Header.Set("If-Modified-Since", src.LastModified)
	}

	resp, err := client.Do(req)
	if err != nil {
		f.logger.Error("HTTPリクエストに失敗しました",
			slog.String("source_id", src.ID),
			slog.String("feed_url", src.FeedURL),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordFetchFailure(src.ID, "request")
		ApplyBackoff(src, fmt.Sprintf("request failed: %s", err.Error()), f.now())
		f.saveState(ctx, src)
		return fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	switch ClassifyHTTPStatus(resp.StatusCode) {
	case FetchResultNotModified:
		f.logger.Info("ソースは未変更です（304）",
			slog.String("source_id", src.ID),
			slog.Int("http_status", resp.StatusCode),
		)
		f.metrics.RecordFetchSuccess(src.ID)
		ApplySuccess(src, f.config.Interval, f.now())
		return f.sourceRepo.UpdateFetchState(ctx, src)

	case FetchResultStop:
		reason := fmt.Sprintf("stopped on HTTP status %d", resp.StatusCode)
		f.logger.Warn("ソースのフェッチを停止します",
			slog.String("source_id", src.ID),
			slog.String("feed_url", src.FeedURL),
			slog.Int("http_status", resp.StatusCode),
		)
		f.metrics.RecordFetchFailure(src.ID, "stopped")
		ApplyStop(src, reason, f.now())
		return f.sourceRepo.UpdateFetchState(ctx, src)

	case FetchResultBackoff:
		f.logger.Warn("ソースのフェッチにバックオフを適用します",
			slog.String("source_id", src.ID),
			slog.Int("http_status", resp.StatusCode),
			slog.Int("consecutive_errors", src.ConsecutiveErrors+1),
		)
		f.metrics.RecordFetchFailure(src.ID, "backoff")
		ApplyBackoff(src, fmt.Sprintf("backoff on HTTP status %d", resp.StatusCode), f.now())
		return f.sourceRepo.UpdateFetchState(ctx, src)

	case FetchResultOK:
	default:
		f.logger.Warn("予期しないHTTPステータスコード",
			slog.String("source_id", src.ID),
			slog.Int("http_status", resp.StatusCode),
		)
		f.metrics.RecordFetchFailure(src.ID, "unexpected_status")
		ApplyBackoff(src, fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode), f.now())
		return f.sourceRepo.UpdateFetchState(ctx, src)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxResponseBytes))
	if err != nil {
		f.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("source_id", src.ID),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordFetchFailure(src.ID, "read")
		ApplyBackoff(src, fmt.Sprintf("read failed: %s", err.Error()), f.now())
		return f.sourceRepo.UpdateFetchState(ctx, src)
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		src.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		src.LastModified = lastMod
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		f.logger.Error("フィードのパースに失敗しました",
			slog.String("source_id", src.ID),
			slog.String("feed_url", src.FeedURL),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordParseFailure(src.ID)
		ApplyParseFailure(src, err.Error(), f.config.Interval, f.now())
		f.saveState(ctx, src)
		// パース失敗はカウントして継続する
		return nil
	}

	if parsed.Title != "" {
		src.Title = parsed.Title
	}
	if parsed.Link != "" {
		src.SiteURL = parsed.Link
	}

	entries := convertItems(parsed.Items)
	inserted, updated, err := f.importer.Import(ctx, src.ID, entries)
	f.metrics.RecordNewsUpserted(inserted, updated)
	if err != nil {
		f.logger.Error("ニュースのUPSERTに失敗しました",
			slog.String("source_id", src.ID),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordFetchFailure(src.ID, "upsert")
		ApplyBackoff(src, fmt.Sprintf("upsert failed: %s", err.Error()), f.now())
		f.saveState(ctx, src)
		return nil
	}

	f.metrics.RecordFetchSuccess(src.ID)
	ApplySuccess(src, f.config.Interval, f.now())
	if err := f.sourceRepo.UpdateFetchState(ctx, src); err != nil {
		f.logger.Error("ソース状態の更新に失敗しました",
			slog.String("source_id", src.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	f.logger.Info("ソースのフェッチが完了しました",
		slog.String("source_id", src.ID),
		slog.String("feed_url", src.FeedURL),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("news_inserted", inserted),
		slog.Int("news_updated", updated),
		slog.Int("entries_total", len(entries)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// saveState は状態を保存し、失敗はログのみ残す。
func (f *Fetcher) saveState(ctx context.Context, src *model.NewsSource) {
	if err := f.sourceRepo.UpdateFetchState(ctx, src); err != nil {
		f.logger.Error("ソース状態の更新に失敗しました",
			slog.String("source_id", src.ID),
			slog.String("error", err.Error()),
		)
	}
}
