package middleware

import (
	"fmt"
	"html"
	"net/http"

	"github.com/hitoshi/notenews/internal/model"
)

// WriteErrorResponse はミドルウェアが返す簡易エラーページを書き込む。
// テンプレートに依存せず、コード・メッセージ・対処方法のみを含める。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Error-Code", apiErr.Code)
	w.WriteHeader(statusCode)
	fmt.Fprintf(w,
		"<!DOCTYPE html>\n<html lang=\"ru\"><head><meta charset=\"utf-8\"><title>%d</title></head>"+
			"<body><h1>%d %s</h1><p>%s</p><p>%s</p></body></html>\n",
		statusCode, statusCode, html.EscapeString(http.StatusText(statusCode)),
		html.EscapeString(apiErr.Message), html.EscapeString(apiErr.Action),
	)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
