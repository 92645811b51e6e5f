// Package view はサーバー描画のHTMLテンプレートを提供する。
// テンプレートはバイナリに埋め込まれ、起動時に全ページを解析する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hitoshi/notenews/internal/middleware"
	"github.com/hitoshi/notenews/internal/security"
	"github.com/hitoshi/notenews/internal/urls"
)

//go:embed templates
var templateFS embed.FS

const (
	baseTemplate = "templates/base.html"

	// ExcerptLength はニュース一覧の抜粋の最大文字数。
	ExcerptLength = 200
)

// Data はテンプレートに渡す値。
type Data map[string]any

// Renderer はページ描画のインターフェース。ハンドラーのテストでは記録用の実装に差し替える。
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data Data)
}

// HTMLRenderer は埋め込みテンプレートを使うRenderer。
type HTMLRenderer struct {
	pages map[string]*template.Template
}

// NewHTMLRenderer は全ページのテンプレートを解析する。
// 各ページはbase.htmlと組み合わせ、"content"ブロックを定義する。
func NewHTMLRenderer(sanitizer security.ContentSanitizer) (*HTMLRenderer, error) {
	funcs := template.FuncMap{
		"url": urls.Reverse,
		"urlFragment": func(fragment, name string, args ...any) string {
			return urls.WithFragment(urls.Reverse(name, args...), fragment)
		},
		"excerpt": func(raw string) string {
			return sanitizer.Excerpt(raw, ExcerptLength)
		},
		// 取り込み時にサニタイズ済みの本文を、表示直前にもう一度許可リストに通す。
		"sanitized": func(raw string) template.HTML {
			return template.HTML(sanitizer.Sanitize(raw))
		},
		"date":     func(t time.Time) string { return t.Format("02.01.2006") },
		"datetime": func(t time.Time) string { return t.Format("02.01.2006 15:04") },
		"isoDate":  func(t time.Time) string { return t.Format(time.RFC3339) },
	}

	base, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, baseTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}

	pages := make(map[string]*template.Template)
	err = fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == baseTemplate || path.Ext(p) != ".html" {
			return nil
		}
		t, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(templateFS, p); err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}
		pages[strings.TrimPrefix(p, "templates/")] = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &HTMLRenderer{pages: pages}, nil
}

// Render はページを描画する。ユーザー名とCSRFトークンは共通値として追加する。
// 実行エラー時に途中までのHTMLを返さないよう、バッファに描画してから書き込む。
func (h *HTMLRenderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data Data) {
	t, ok := h.pages[name]
	if !ok {
		slog.Error("template not found", slog.String("template", name))
		middleware.WriteInternalServerError(w)
		return
	}

	if data == nil {
		data = Data{}
	}
	data["current_user"] = middleware.UsernameFromContext(r.Context())
	data["csrf_token"] = middleware.CSRFTokenFromContext(r.Context())
	data["csrf_field"] = middleware.CSRFFormField

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base.html", data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write response", slog.String("error", err.Error()))
	}
}

// Pages は解析済みのページ名を返す。
func (h *HTMLRenderer) Pages() []string {
	names := make([]string, 0, len(h.pages))
	for name := range h.pages {
		names = append(names, name)
	}
	return names
}
