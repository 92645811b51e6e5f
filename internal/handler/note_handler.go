package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/urls"
	"github.com/hitoshi/notenews/internal/view"
)

// NoteServiceInterface はノートハンドラーが必要とするサービスインターフェース。
type NoteServiceInterface interface {
	List(ctx context.Context, userID string) ([]*model.Note, error)
	Get(ctx context.Context, userID, slug string) (*model.Note, error)
	Create(ctx context.Context, userID string, input model.NoteInput) (*model.Note, error)
	Update(ctx context.Context, userID, slug string, input model.NoteInput) (*model.Note, error)
	Delete(ctx context.Context, userID, slug string) error
}

// NoteHandler はノート関連のHTTPハンドラー。
type NoteHandler struct {
	service  NoteServiceInterface
	renderer view.Renderer
}

// NewNoteHandler はNoteHandlerを生成する。
func NewNoteHandler(service NoteServiceInterface, renderer view.Renderer) *NoteHandler {
	return &NoteHandler{service: service, renderer: renderer}
}

// Home はトップページを表示する。
// GET /
func (h *NoteHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "notes/home.html", view.Data{})
}

// List はログインユーザー自身のノート一覧を表示する。
// GET /notes/
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	notes, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "notes/list.html", view.Data{
		"object_list": notes,
	})
}

// Add はノート作成フォームの表示と送信を処理する。
// GET, POST /add/
func (h *NoteHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if r.Method != http.MethodPost {
		h.renderForm(w, r, nil, view.NewForm(nil, nil))
		return
	}

	if !parseForm(w, r) {
		return
	}
	_, err := h.service.Create(r.Context(), userID, noteInputFromForm(r))
	if verr, isValidation := asValidationError(err); isValidation {
		h.renderForm(w, r, nil, view.NewForm(r.PostForm, verr))
		return
	}
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	http.Redirect(w, r, urls.Reverse(urls.NotesSuccess), http.StatusFound)
}

// Detail はノートを表示する。他のユーザーのノートは存在しないものとして扱う。
// GET /note/{slug}/
func (h *NoteHandler) Detail(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	note, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "notes/detail.html", view.Data{"note": note})
}

// Edit はノート編集フォームの表示と送信を処理する。
// GET, POST /edit/{slug}/
func (h *NoteHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")

	note, err := h.service.Get(r.Context(), userID, slug)
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	if r.Method != http.MethodPost {
		values := url.Values{
			"title": {note.Title},
			"text":  {note.Text},
			"slug":  {note.Slug},
		}
		h.renderForm(w, r, note, view.NewForm(values, nil))
		return
	}

	if !parseForm(w, r) {
		return
	}
	_, err = h.service.Update(r.Context(), userID, slug, noteInputFromForm(r))
	if verr, isValidation := asValidationError(err); isValidation {
		h.renderForm(w, r, note, view.NewForm(r.PostForm, verr))
		return
	}
	if err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	http.Redirect(w, r, urls.Reverse(urls.NotesSuccess), http.StatusFound)
}

// Delete はノート削除の確認と実行を処理する。
// GET, POST /delete/{slug}/
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")

	if r.Method != http.MethodPost {
		note, err := h.service.Get(r.Context(), userID, slug)
		if err != nil {
			handleServiceError(w, r, h.renderer, err)
			return
		}
		h.renderer.Render(w, r, http.StatusOK, "notes/delete.html", view.Data{"note": note})
		return
	}

	if err := h.service.Delete(r.Context(), userID, slug); err != nil {
		handleServiceError(w, r, h.renderer, err)
		return
	}

	http.Redirect(w, r, urls.Reverse(urls.NotesSuccess), http.StatusFound)
}

// Success は作成・編集・削除の完了ページを表示する。
// GET /done/
func (h *NoteHandler) Success(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "notes/success.html", view.Data{})
}

func (h *NoteHandler) renderForm(w http.ResponseWriter, r *http.Request, note *model.Note, form *view.Form) {
	data := view.Data{"form": form}
	if note != nil {
		data["note"] = note
	}
	h.renderer.Render(w, r, http.StatusOK, "notes/form.html", data)
}

func noteInputFromForm(r *http.Request) model.NoteInput {
	return model.NoteInput{
		Title: r.PostFormValue("title"),
		Text:  r.PostFormValue("text"),
		Slug:  r.PostFormValue("slug"),
	}
}
