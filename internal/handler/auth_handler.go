package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/notenews/internal/middleware"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/urls"
	"github.com/hitoshi/notenews/internal/view"
)

// InvalidLoginMessage は認証失敗時にフォームに表示するメッセージ。
const InvalidLoginMessage = "Пожалуйста, введите правильные имя пользователя и пароль. Оба поля могут быть чувствительны к регистру."

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	StartSession(ctx context.Context, user *model.User, userAgent string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// SignupServiceInterface はユーザー登録サービスインターフェース。
type SignupServiceInterface interface {
	Signup(ctx context.Context, input model.SignupInput) (*model.User, error)
}

// AuthHandler はログイン・ログアウト・登録のHTTPハンドラー。
type AuthHandler struct {
	auth      AuthServiceInterface
	signup    SignupServiceInterface
	validator InputValidator
	cookie    middleware.CookieConfig
	renderer  view.Renderer
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	auth AuthServiceInterface,
	signup SignupServiceInterface,
	validator InputValidator,
	cookie middleware.CookieConfig,
	renderer view.Renderer,
) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		signup:    signup,
		validator: validator,
		cookie:    cookie,
		renderer:  renderer,
	}
}

// Login はログインフォームの表示と送信を処理する。
// GET, POST /auth/login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.renderLogin(w, r, r.URL.Query().Get("next"), view.NewForm(nil, nil))
		return
	}

	if !parseForm(w, r) {
		return
	}
	next := r.PostFormValue("next")
	input := model.LoginInput{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	if err := h.validator.Validate(input); err != nil {
		if verr, ok := asValidationError(err); ok {
			h.renderLogin(w, r, next, view.NewForm(r.PostForm, verr))
			return
		}
		handleServiceError(w, r, h.renderer, err)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), input.Username, input.Password)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredentials {
			verr := model.NewValidationError()
			verr.AddNonField(InvalidLoginMessage)
			h.renderLogin(w, r, next, view.NewForm(r.PostForm, verr))
			return
		}
		handleServiceError(w, r, h.renderer, err)
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	http.Redirect(w, r, urls.SafeNext(next, urls.Reverse(urls.NotesHome)), http.StatusFound)
}

// Logout はセッションを破棄してログアウト完了ページを表示する。
// GET, POST /auth/logout/
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			// セッション削除に失敗してもCookieは削除する
			slog.Error("failed to delete session", slog.String("error", err.Error()))
		}
	}

	middleware.ClearSessionCookie(w, h.cookie)
	// このリクエストの描画ではログアウト済みとして扱う
	r = r.WithContext(middleware.ContextWithUser(r.Context(), "", ""))
	h.renderer.Render(w, r, http.StatusOK, "users/logout.html", view.Data{})
}

// Signup はユーザー登録フォームの表示と送信を処理する。
// 登録に成功するとそのままログインしてトップページへリダイレクトする。
// GET, POST /auth/signup/
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.renderSignup(w, r, view.NewForm(nil, nil))
		return
	}

	if !parseForm(w, r) {
		return
	}
	input := model.SignupInput{
		Username:  r.PostFormValue("username"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}

	user, err := h.signup.Signup(r.Context(), input)
	if verr, ok := asValidationError(err); ok {
		h.renderSignup(w, r, view.NewForm(r.PostForm, verr))
		return
	}
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	http.Redirect(w, r, urls.Reverse(urls.NotesHome), http.StatusFound)
}

// startSession はセッションを開始してCookieを設定する。失敗時はエラーページを返す。
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) bool {
	session, err := h.auth.StartSession(r.Context(), user, r.UserAgent())
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return false
	}
	middleware.SetSessionCookie(w, h.cookie, session.ID)
	return true
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, next string, form *view.Form) {
	h.renderer.Render(w, r, http.StatusOK, "users/login.html", view.Data{
		"next": next,
		"form": form,
	})
}

func (h *AuthHandler) renderSignup(w http.ResponseWriter, r *http.Request, form *view.Form) {
	h.renderer.Render(w, r, http.StatusOK, "users/signup.html", view.Data{"form": form})
}
