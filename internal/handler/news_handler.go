package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/notenews/internal/middleware"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/news"
	"github.com/hitoshi/notenews/internal/urls"
	"github.com/hitoshi/notenews/internal/view"
)

// NewsServiceInterface はニュースハンドラーが必要とする閲覧サービスインターフェース。
type NewsServiceInterface interface {
	Home(ctx context.Context) ([]*model.News, error)
	Detail(ctx context.Context, newsID int64) (*news.Detail, error)
}

// CommentServiceInterface はコメントの作成・編集・削除サービスインターフェース。
// UpdateとDeleteはリダイレクト先のニュースIDを返す。
type CommentServiceInterface interface {
	Create(ctx context.Context, userID string, newsID int64, input model.CommentInput) (*model.Comment, error)
	Get(ctx context.Context, userID string, commentID int64) (*model.Comment, error)
	Update(ctx context.Context, userID string, commentID int64, input model.CommentInput) (int64, error)
	Delete(ctx context.Context, userID string, commentID int64) (int64, error)
}

// NewsHandler はニュース閲覧とコメント投稿のHTTPハンドラー。
type NewsHandler struct {
	news     NewsServiceInterface
	comments CommentServiceInterface
	renderer view.Renderer
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(newsService NewsServiceInterface, commentService CommentServiceInterface, renderer view.Renderer) *NewsHandler {
	return &NewsHandler{
		news:     newsService,
		comments: commentService,
		renderer: renderer,
	}
}

// Home は最新ニュースの一覧を表示する。
// GET /news/
func (h *NewsHandler) Home(w http.ResponseWriter, r *http.Request) {
	feed, err := h.news.Home(r.Context())
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "news/home.html", view.Data{
		"news_feed": feed,
	})
}

// Detail はニュース本文とコメントを表示する。
// コメントフォームはログインユーザーにのみ渡す。
// GET /news/{id}/
func (h *NewsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	newsID, ok := int64URLParam(r, "id")
	if !ok {
		renderError(w, r, h.renderer, http.StatusNotFound, model.NewNewsNotFoundError(0))
		return
	}

	var form *view.Form
	if _, err := middleware.UserIDFromContext(r.Context()); err == nil {
		form = view.NewForm(nil, nil)
	}
	h.renderDetail(w, r, newsID, form)
}

// PostComment はコメントを投稿する。
// 成功時はコメント欄へリダイレクトし、入力エラー時はフォームにエラーを付けて再表示する。
// POST /news/{id}/
func (h *NewsHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	newsID, ok := int64URLParam(r, "id")
	if !ok {
		renderError(w, r, h.renderer, http.StatusNotFound, model.NewNewsNotFoundError(0))
		return
	}
	if !parseForm(w, r) {
		return
	}

	input := model.CommentInput{Text: r.PostFormValue("text")}
	_, err := h.comments.Create(r.Context(), userID, newsID, input)
	if verr, isValidation := asValidationError(err); isValidation {
		h.renderDetail(w, r, newsID, view.NewForm(r.PostForm, verr))
		return
	}
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	http.Redirect(w, r, commentsURL(newsID), http.StatusFound)
}

func (h *NewsHandler) renderDetail(w http.ResponseWriter, r *http.Request, newsID int64, form *view.Form) {
	detail, err := h.news.Detail(r.Context(), newsID)
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	data := view.Data{
		"object":   detail.News,
		"comments": detail.Comments,
	}
	if form != nil {
		data["form"] = form
	}
	h.renderer.Render(w, r, http.StatusOK, "news/detail.html", data)
}

// commentsURL はニュース詳細ページのコメント欄のURLを返す。
func commentsURL(newsID int64) string {
	return urls.WithFragment(urls.Reverse(urls.NewsDetail, newsID), "comments")
}
