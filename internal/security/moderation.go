package security

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModerationWarning はコメントが禁止語を含む場合にtextフィールドへ付けるエラー。
const ModerationWarning = "Не ругайтесь!"

// DefaultBannedWords は設定ファイルがない場合の禁止語リスト。
var DefaultBannedWords = []string{"редиска", "негодяй"}

// ModerationFilter はコメント本文の禁止語チェックを行う。
// 本文と禁止語の両方を小文字化して部分一致で判定する。
type ModerationFilter struct {
	words []string
}

// moderationFile は禁止語YAMLファイルの形式。
//
//	banned_words:
//	  - редиска
//	  - негодяй
type moderationFile struct {
	BannedWords []string `yaml:"banned_words"`
}

// NewModerationFilter は禁止語リストからフィルタを生成する。
// 空白のみの語は無視し、有効な語が1つもない場合はDefaultBannedWordsを使う。
func NewModerationFilter(words []string) *ModerationFilter {
	normalized := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			normalized = append(normalized, w)
		}
	}
	if len(normalized) == 0 {
		return NewModerationFilter(DefaultBannedWords)
	}
	return &ModerationFilter{words: normalized}
}

// LoadModerationFilter はYAMLファイルから禁止語を読み込む。pathが空ならデフォルトを返す。
func LoadModerationFilter(path string) (*ModerationFilter, error) {
	if path == "" {
		return NewModerationFilter(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read moderation words file: %w", err)
	}

	var f moderationFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse moderation words file: %w", err)
	}
	if len(f.BannedWords) == 0 {
		return nil, fmt.Errorf("moderation words file %s has no banned_words", path)
	}

	return NewModerationFilter(f.BannedWords), nil
}

// Check は本文に禁止語が含まれるかを判定し、最初に見つかった語を返す。
func (f *ModerationFilter) Check(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, w := range f.words {
		if strings.Contains(lowered, w) {
			return w, true
		}
	}
	return "", false
}

// Words は正規化済みの禁止語リストのコピーを返す。
func (f *ModerationFilter) Words() []string {
	out := make([]string, len(f.words))
	copy(out, f.words)
	return out
}
