package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notenews/internal/metrics"
	"github.com/hitoshi/notenews/internal/middleware"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/urls"
	"github.com/hitoshi/notenews/internal/view"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Cookie            middleware.CookieConfig
	HealthChecker     HealthChecker

	Renderer  view.Renderer
	Validator InputValidator

	// 認証・登録
	AuthService   AuthServiceInterface
	SignupService SignupServiceInterface

	// ノート
	NoteService NoteServiceInterface

	// ニュースとコメント
	NewsService    NewsServiceInterface
	CommentService CommentServiceInterface
}

// NewRouter は全ページのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → Session → CSRF → RateLimit(General)
//
// ログインが必要なページはRequireLoginでログインページへリダイレクトする。
// /health と /metrics はセッションとCSRFの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.Get("/health", NewHealthHandler(deps.HealthChecker).Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	noteHandler := NewNoteHandler(deps.NoteService, deps.Renderer)
	newsHandler := NewNewsHandler(deps.NewsService, deps.CommentService, deps.Renderer)
	commentHandler := NewCommentHandler(deps.CommentService, deps.Renderer)
	authHandler := NewAuthHandler(deps.AuthService, deps.SignupService, deps.Validator, deps.Cookie, deps.Renderer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(middleware.CSRFConfig{
			CookieSecure: deps.Cookie.Secure,
			CookieDomain: deps.Cookie.Domain,
		}))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// --- 誰でも閲覧できるページ ---
		r.Get(urls.Pattern(urls.NotesHome), noteHandler.Home)
		r.Get(urls.Pattern(urls.NewsHome), newsHandler.Home)
		r.Get(urls.Pattern(urls.NewsDetail), newsHandler.Detail)

		r.Get(urls.Pattern(urls.UsersLogin), authHandler.Login)
		r.Post(urls.Pattern(urls.UsersLogin), authHandler.Login)
		r.Get(urls.Pattern(urls.UsersLogout), authHandler.Logout)
		r.Post(urls.Pattern(urls.UsersLogout), authHandler.Logout)
		r.Get(urls.Pattern(urls.UsersSignup), authHandler.Signup)
		r.Post(urls.Pattern(urls.UsersSignup), authHandler.Signup)

		// --- ログインが必要なページ ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin)

			// コメント投稿（投稿専用レート制限を追加）
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.CommentMiddleware()).Post(urls.Pattern(urls.NewsDetail), newsHandler.PostComment)
			} else {
				r.Post(urls.Pattern(urls.NewsDetail), newsHandler.PostComment)
			}

			r.Get(urls.Pattern(urls.NotesList), noteHandler.List)
			r.Get(urls.Pattern(urls.NotesSuccess), noteHandler.Success)
			getPost(r, urls.Pattern(urls.NotesAdd), noteHandler.Add)
			r.Get(urls.Pattern(urls.NotesDetail), noteHandler.Detail)
			getPost(r, urls.Pattern(urls.NotesEdit), noteHandler.Edit)
			getPost(r, urls.Pattern(urls.NotesDelete), noteHandler.Delete)

			getPost(r, urls.Pattern(urls.NewsEdit), commentHandler.Edit)
			getPost(r, urls.Pattern(urls.NewsDelete), commentHandler.Delete)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			renderError(w, r, deps.Renderer, http.StatusNotFound, model.NewPageNotFoundError())
		})
	})

	return r
}

// getPost はフォームページのGETとPOSTを同じハンドラーに登録する。
func getPost(r chi.Router, pattern string, h http.HandlerFunc) {
	r.Get(pattern, h)
	r.Post(pattern, h)
}
