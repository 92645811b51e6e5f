package view

import (
	"net/url"

	"github.com/hitoshi/notenews/internal/model"
)

// Form はテンプレートに渡すフォームの入力値と検証エラー。
type Form struct {
	values url.Values
	err    *model.ValidationError
}

// NewForm はフォームを生成する。valuesとerrはnilでもよい。
func NewForm(values url.Values, err *model.ValidationError) *Form {
	if values == nil {
		values = url.Values{}
	}
	return &Form{values: values, err: err}
}

// Value はフィールドの入力値を返す。
func (f *Form) Value(name string) string {
	return f.values.Get(name)
}

// Errors はフィールドの検証エラーを返す。
func (f *Form) Errors(name string) []string {
	return f.err.Field(name)
}

// NonFieldErrors はフィールドに紐付かないエラーを返す。
func (f *Form) NonFieldErrors() []string {
	if f.err == nil {
		return nil
	}
	return f.err.NonField
}

// Valid は検証エラーがない場合にtrueを返す。
func (f *Form) Valid() bool {
	return f.err == nil || !f.err.HasErrors()
}

// ValidationError はフォームの検証エラーを返す。テスト用。
func (f *Form) ValidationError() *model.ValidationError {
	return f.err
}
