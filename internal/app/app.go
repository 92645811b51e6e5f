// Package app はコマンドの解析と依存関係のワイヤリングを行い、各モードを起動する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/notenews/internal/auth"
	"github.com/hitoshi/notenews/internal/comment"
	"github.com/hitoshi/notenews/internal/config"
	"github.com/hitoshi/notenews/internal/database"
	"github.com/hitoshi/notenews/internal/feed"
	"github.com/hitoshi/notenews/internal/handler"
	"github.com/hitoshi/notenews/internal/logger"
	"github.com/hitoshi/notenews/internal/metrics"
	"github.com/hitoshi/notenews/internal/middleware"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/news"
	"github.com/hitoshi/notenews/internal/note"
	"github.com/hitoshi/notenews/internal/repository"
	"github.com/hitoshi/notenews/internal/security"
	"github.com/hitoshi/notenews/internal/user"
	"github.com/hitoshi/notenews/internal/validation"
	"github.com/hitoshi/notenews/internal/view"
	"github.com/hitoshi/notenews/internal/worker/cleanup"
	fetchpkg "github.com/hitoshi/notenews/internal/worker/fetch"
)

// Init は環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// 返されたCloserはログファイルを閉じる。
func Init(w io.Writer) (*config.Config, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	_, closer := logger.SetupDefault(w, logger.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
	return cfg, closer, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, rest, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, closer, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer closer.Close()

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandImport:
		return runImport(ctx, cfg)
	case CommandAddSource:
		return runAddSource(ctx, w, cfg, rest)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// newSessionRepo はセッションリポジトリを生成する。
// REDIS_URLが設定されていればRedisキャッシュを前段に置く。Redisに接続できない場合はDBのみで動作する。
func newSessionRepo(ctx context.Context, cfg *config.Config, db *sql.DB) (repository.SessionRepository, io.Closer) {
	pg := repository.NewPostgresSessionRepo(db)
	if cfg.RedisURL == "" {
		return pg, nopCloser{}
	}

	cache, err := repository.NewRedisSessionCache(ctx, cfg.RedisURL)
	if err != nil {
		slog.Warn("session cache disabled", slog.String("error", err.Error()))
		return pg, nopCloser{}
	}
	slog.Info("session cache enabled")
	return repository.NewCachedSessionRepo(pg, cache, slog.Default()), cache
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newMetrics はPrometheusレジストリとコレクターを生成する。
func newMetrics() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// runServe はHTTPサーバーモードで起動する。
// マイグレーションを適用し、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	if err := runMigrate(cfg); err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	noteRepo := repository.NewPostgresNoteRepo(db)
	newsRepo := repository.NewPostgresNewsRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	sessionRepo, cacheCloser := newSessionRepo(ctx, cfg, db)
	defer cacheCloser.Close()

	// 2. 横断的な部品の初期化
	moderation, err := security.LoadModerationFilter(cfg.ModerationWordsFile)
	if err != nil {
		return fmt.Errorf("failed to load moderation words: %w", err)
	}
	validator := validation.New()
	reg, collector := newMetrics()

	renderer, err := view.NewHTMLRenderer(security.NewContentSanitizer())
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitComment),
	)
	defer rateLimiter.Stop()

	// 3. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo, auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	userService := user.NewService(userRepo, validator)
	noteService := note.NewService(noteRepo, validator, nil, collector)
	newsService := news.NewService(newsRepo, commentRepo)
	commentService := comment.NewService(commentRepo, newsRepo, validator, moderation, collector)

	// 4. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Cookie: middleware.CookieConfig{
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure,
			MaxAge: cfg.SessionMaxAge,
		},

		Renderer:  renderer,
		Validator: validator,

		AuthService:    authService,
		SignupService:  userService,
		NoteService:    noteService,
		NewsService:    newsService,
		CommentService: commentService,
	})

	// 5. 期限切れセッションの定期削除
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	go cleanup.NewCleanupJob(sessionRepo, slog.Default()).Start(jobCtx, cfg.SessionCleanupInterval)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serveUntilDone(ctx, server, cfg.ShutdownTimeout)
}

// serveUntilDone はサーバーを起動し、ctxがキャンセルされたらタイムアウト付きで停止する。
func serveUntilDone(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// newScheduler はニュース取り込みのスケジューラを組み立てる。
func newScheduler(cfg *config.Config, db *sql.DB, collector metrics.MetricsCollector) *fetchpkg.Scheduler {
	sourceRepo := repository.NewPostgresNewsSourceRepo(db)
	newsRepo := repository.NewPostgresNewsRepo(db)

	importer := fetchpkg.NewImporter(newsRepo, security.NewContentSanitizer())
	fetcher := fetchpkg.NewFetcher(sourceRepo, importer, security.NewSSRFGuard(), collector, slog.Default(), fetchpkg.FetcherConfig{
		Timeout:          cfg.NewsFetchTimeout,
		MaxResponseBytes: cfg.NewsMaxResponseBytes,
		Interval:         cfg.NewsFetchInterval,
	})
	return fetchpkg.NewScheduler(sourceRepo, fetcher, slog.Default(), cfg.NewsFetchConcurrency)
}

// runWorker はニュース取り込みワーカーとして常駐する。
// 監視用に /health と /metrics だけを公開するHTTPサーバーも起動する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, collector := newMetrics()
	scheduler := newScheduler(cfg, db, collector)

	r := chi.NewRouter()
	r.Get("/health", handler.NewHealthHandler(db).Health)
	r.Get("/metrics", metrics.Handler(reg).ServeHTTP)
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("worker starting",
		slog.Duration("fetch_interval", cfg.NewsFetchInterval),
		slog.Int("max_concurrent", cfg.NewsFetchConcurrency),
	)

	// HTTPサーバーが異常終了した場合もスケジューラを止める
	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Start(workerCtx, cfg.NewsFetchInterval)
	}()

	err = serveUntilDone(workerCtx, server, cfg.ShutdownTimeout)
	cancel()
	<-done
	slog.Info("worker stopped gracefully")
	return err
}

// runImport はアクティブな全ソースを1回だけ取り込んで終了する。
func runImport(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := newScheduler(cfg, db, metrics.Nop{}).RunAll(ctx); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

// runAddSource はURLからフィードを検出してニュースソースとして登録する。
func runAddSource(ctx context.Context, w io.Writer, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: notenews add-source <url>")
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	detector := feed.NewDetector(security.NewSSRFGuard(), feed.DetectorConfig{
		Timeout:          cfg.NewsFetchTimeout,
		MaxResponseBytes: cfg.NewsMaxResponseBytes,
	})
	service := feed.NewSourceService(repository.NewPostgresNewsSourceRepo(db), detector)

	src, err := service.AddSource(ctx, args[0])
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("add-source: %s", apiErr.Message)
		}
		return fmt.Errorf("add-source: %w", err)
	}

	fmt.Fprintf(w, "added source %s: %s (%s)\n", src.ID, src.Title, src.FeedURL)
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
