package handler

import (
	"net/http"

	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/view"
)

// CommentHandler はコメントの編集・削除のHTTPハンドラー。
// 他のユーザーのコメントは存在しないものとして扱う。
type CommentHandler struct {
	service  CommentServiceInterface
	renderer view.Renderer
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface, renderer view.Renderer) *CommentHandler {
	return &CommentHandler{service: service, renderer: renderer}
}

// Edit はコメント編集フォームの表示と送信を処理する。
// GET, POST /news/edit_comment/{id}/
func (h *CommentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	commentID, ok := int64URLParam(r, "id")
	if !ok {
		renderError(w, r, h.renderer, http.StatusNotFound, model.NewCommentNotFoundError(0))
		return
	}

	comment, err := h.service.Get(r.Context(), userID, commentID)
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	if r.Method != http.MethodPost {
		form := view.NewForm(map[string][]string{"text": {comment.Text}}, nil)
		h.renderer.Render(w, r, http.StatusOK, "news/comment_edit.html", view.Data{
			"comment": comment,
			"form":    form,
		})
		return
	}

	if !parseForm(w, r) {
		return
	}
	newsID, err := h.service.Update(r.Context(), userID, commentID, model.CommentInput{Text: r.PostFormValue("text")})
	if verr, isValidation := asValidationError(err); isValidation {
		h.renderer.Render(w, r, http.StatusOK, "news/comment_edit.html", view.Data{
			"comment": comment,
			"form":    view.NewForm(r.PostForm, verr),
		})
		return
	}
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	http.Redirect(w, r, commentsURL(newsID), http.StatusFound)
}

// Delete はコメント削除の確認と実行を処理する。
// GET, POST /news/delete_comment/{id}/
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	commentID, ok := int64URLParam(r, "id")
	if !ok {
		renderError(w, r, h.renderer, http.StatusNotFound, model.NewCommentNotFoundError(0))
		return
	}

	if r.Method != http.MethodPost {
		comment, err := h.service.Get(r.Context(), userID, commentID)
		if err != nil {
			handleServiceError(w, r, h.renderer, err)
			return
		}
		h.renderer.Render(w, r, http.StatusOK, "news/comment_delete.html", view.Data{"comment": comment})
		return
	}

	newsID, err := h.service.Delete(r.Context(), userID, commentID)
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	http.Redirect(w, r, commentsURL(newsID), http.StatusFound)
}
