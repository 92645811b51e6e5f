package note

import (
	"strings"

	"github.com/gosimple/slug"
)

// MaxSlugLength はnotes.slugカラムの長さ上限。
const MaxSlugLength = 100

// Slugify はタイトルを翻字してURLに使えるslugに変換する。
// 決定的で、結果はASCIIの英小文字・数字・ハイフンのみ。MaxSlugLength文字で切り詰める。
func Slugify(title string) string {
	s := slug.Make(title)
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}
