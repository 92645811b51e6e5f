// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は取り込んだニュース本文のHTMLを許可リスト方式で無害化する。
// ModerationFilter はコメント本文の禁止語チェックを行う。
// SSRFGuard はニュースソース取得時の外部HTTPアクセスを制限する。
package security

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はHTMLコンテンツのサニタイズ機能のインターフェース。
type ContentSanitizer interface {
	// Sanitize はニュース本文として表示してよいHTMLだけを残す。冪等。
	Sanitize(rawHTML string) string
	// Excerpt はタグを全て除いたプレーンテキストを先頭maxRunes文字で切り詰めて返す。
	Excerpt(rawHTML string, maxRunes int) string
}

type contentSanitizer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewContentSanitizer はニュース本文用のポリシーを構築する。
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img
//   - a: 絶対URLのhrefのみ。target="_blank"とrel="noreferrer noopener"を付与
//   - img: httpsのsrcとaltのみ
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(*url.URL) bool { return true })

	return &contentSanitizer{
		policy: p,
		strict: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

// Excerpt はニュース一覧用の抜粋を返す。切り詰めた場合は末尾に"…"を付ける。
// 結果はエスケープ前のテキストで、テンプレート側でエスケープされる。
func (s *contentSanitizer) Excerpt(rawHTML string, maxRunes int) string {
	text := strings.Join(strings.Fields(html.UnescapeString(s.strict.Sanitize(rawHTML))), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
