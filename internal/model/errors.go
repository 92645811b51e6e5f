// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"sort"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// 画面に表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, notes, news, feed, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNoteNotFound       = "NOTE_NOT_FOUND"
	ErrCodeNewsNotFound       = "NEWS_NOT_FOUND"
	ErrCodeCommentNotFound    = "COMMENT_NOT_FOUND"
	ErrCodePageNotFound       = "PAGE_NOT_FOUND"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeCSRFTokenInvalid   = "CSRF_TOKEN_INVALID"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeFeedNotDetected    = "FEED_NOT_DETECTED"
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeSSRFBlocked        = "SSRF_BLOCKED"
	ErrCodeFetchFailed        = "FETCH_FAILED"
	ErrCodeParseFailed        = "PARSE_FAILED"
	ErrCodeDuplicateSource    = "DUPLICATE_SOURCE"
)

// IsNotFound は404として扱うべきエラーコードかどうかを判定する。
func (e *APIError) IsNotFound() bool {
	return strings.HasSuffix(e.Code, "_NOT_FOUND")
}

// NewNoteNotFoundError はノート未検出エラーを生成する。
// 他人のノートに対しても同じエラーを返し、存在を明かさない。
func NewNoteNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeNoteNotFound,
		Message:  fmt.Sprintf("Заметка не найдена: %s", slug),
		Category: "notes",
		Action:   "Проверьте адрес заметки.",
	}
}

// NewNewsNotFoundError はニュース未検出エラーを生成する。
func NewNewsNotFoundError(newsID int64) *APIError {
	return &APIError{
		Code:     ErrCodeNewsNotFound,
		Message:  fmt.Sprintf("Новость не найдена: %d", newsID),
		Category: "news",
		Action:   "Вернитесь на главную страницу новостей.",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID int64) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("Комментарий не найден: %d", commentID),
		Category: "news",
		Action:   "Вернитесь к новости.",
	}
}

// NewPageNotFoundError はルートに一致しないURLのエラーを生成する。
func NewPageNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodePageNotFound,
		Message:  "Страница не найдена",
		Category: "system",
		Action:   "Проверьте адрес страницы.",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Пожалуйста, введите правильные имя пользователя и пароль.",
		Category: "auth",
		Action:   "Оба поля могут быть чувствительны к регистру.",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "Слишком много запросов.",
		Category: "system",
		Action:   "Подождите немного и повторите попытку.",
	}
}

// NewCSRFTokenInvalidError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "Ошибка проверки CSRF.",
		Category: "auth",
		Action:   "Обновите страницу и отправьте форму ещё раз.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ残す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Внутренняя ошибка сервера.",
		Category: "system",
		Action:   "Повторите попытку позже.",
	}
}

// NewFeedNotDetectedError はフィード未検出エラーを生成する。
func NewFeedNotDetectedError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotDetected,
		Message:  fmt.Sprintf("RSS/Atom feed not detected: %s", url),
		Category: "feed",
		Action:   "Specify the feed URL directly or check the page URL.",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("invalid URL: %s", reason),
		Category: "feed",
		Action:   "Use an http:// or https:// URL.",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "access to the URL was blocked by the network policy",
		Category: "feed",
		Action:   "Use a public web site. Private and loopback addresses are not allowed.",
	}
}

// NewFetchFailedError はフェッチ失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("fetch failed: %s", reason),
		Category: "feed",
		Action:   "Check the URL and retry later.",
	}
}

// NewParseFailedError はパース失敗エラーを生成する。
func NewParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  "failed to parse the feed",
		Category: "feed",
		Action:   "Check that the URL serves a valid RSS/Atom document.",
	}
}

// NewDuplicateSourceError は登録済みニュースソースの重複エラーを生成する。
func NewDuplicateSourceError(feedURL string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSource,
		Message:  fmt.Sprintf("news source already registered: %s", feedURL),
		Category: "feed",
		Action:   "Run the import command to refresh the existing source.",
	}
}

// ValidationError はフォームのフィールド単位の検証エラーを表す。
// ハンドラーはこのエラーを受け取るとフォームを200で再描画する。
type ValidationError struct {
	Fields   map[string][]string
	NonField []string
}

// NewValidationError は空のValidationErrorを生成する。
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// NewFieldError は単一フィールドの検証エラーを生成する。
func NewFieldError(field, message string) *ValidationError {
	v := NewValidationError()
	v.Add(field, message)
	return v
}

// Add はフィールドにエラーメッセージを追加する。
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], message)
}

// AddNonField はフィールドに紐付かないエラーを追加する。
func (v *ValidationError) AddNonField(message string) {
	v.NonField = append(v.NonField, message)
}

// HasErrors はエラーが1件以上あるかを返す。
func (v *ValidationError) HasErrors() bool {
	return len(v.Fields) > 0 || len(v.NonField) > 0
}

// Field は指定フィールドのエラーメッセージを返す。
func (v *ValidationError) Field(name string) []string {
	if v == nil {
		return nil
	}
	return v.Fields[name]
}

// Error はerrorインターフェースを実装する。
func (v *ValidationError) Error() string {
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+len(v.NonField))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(v.Fields[name], "; ")))
	}
	parts = append(parts, v.NonField...)
	return "validation failed: " + strings.Join(parts, ", ")
}
