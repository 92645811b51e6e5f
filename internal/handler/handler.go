// Package handler はHTMLページを返すHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notenews/internal/middleware"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/view"
)

const errorTemplate = "errors/error.html"

// InputValidator はフォーム入力の検証インターフェース。
type InputValidator interface {
	Validate(s any) error
}

// renderError はエラーページを描画する。
func renderError(w http.ResponseWriter, r *http.Request, renderer view.Renderer, status int, apiErr *model.APIError) {
	renderer.Render(w, r, status, errorTemplate, view.Data{
		"status": status,
		"error":  apiErr,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスのページに変換する。
// ValidationErrorはフォームの再表示で扱うため、ここには渡さない。
func handleServiceError(w http.ResponseWriter, r *http.Request, renderer view.Renderer, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		renderError(w, r, renderer, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱い、詳細はログのみに残す
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	renderError(w, r, renderer, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch {
	case apiErr.IsNotFound():
		return http.StatusNotFound
	case apiErr.Code == model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case apiErr.Code == model.ErrCodeCSRFTokenInvalid:
		return http.StatusForbidden
	case apiErr.Code == model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// asValidationError はerrがValidationErrorならそれを返す。
func asValidationError(err error) (*model.ValidationError, bool) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// requireUserID はRequireLogin配下のハンドラーでユーザーIDを取り出す。
// ルーター設定の誤りでミドルウェアを通っていない場合のみ失敗する。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		slog.Error("handler reached without authenticated user", slog.String("path", r.URL.Path))
		middleware.WriteInternalServerError(w)
		return "", false
	}
	return userID, true
}

// int64URLParam はURLパラメータを正の整数として解釈する。
func int64URLParam(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseForm はフォームを解析する。失敗した場合は400を返す。
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}
