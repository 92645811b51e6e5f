// Package validation はフォーム入力の検証を提供する。
// go-playground/validatorの結果をmodel.ValidationErrorに変換し、
// フィールド名はformタグの名前で返す。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/notenews/internal/model"
)

var (
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)
)

// Validator はフォーム構造体の検証器。並行利用しても安全。
type Validator struct {
	v *validator.Validate
}

// New はカスタムルール（slugchars, username）を登録したValidatorを生成する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// 登録は起動時のみ。失敗はプログラミングエラー。
	mustRegister(v, "slugchars", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Validate は構造体を検証する。
// 検証エラーは*model.ValidationErrorとして返し、それ以外のエラーはそのまま返す。
func (x *Validator) Validate(s any) error {
	err := x.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := model.NewValidationError()
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

// message はルール毎のユーザー向けメッセージを返す。
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Обязательное поле."
	case "max":
		return fmt.Sprintf("Убедитесь, что это значение содержит не более %s символов.", fe.Param())
	case "min":
		return fmt.Sprintf("Убедитесь, что это значение содержит не менее %s символов.", fe.Param())
	case "slugchars":
		return "Значение должно состоять только из латинских букв, цифр, знаков подчеркивания или дефиса."
	case "username":
		return "Введите правильное имя пользователя. Оно может содержать только буквы, цифры и знаки @/./+/-/_."
	case "eqfield":
		return "Введенные пароли не совпадают."
	default:
		return "Некорректное значение."
	}
}
