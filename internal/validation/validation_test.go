package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/notenews/internal/model"
)

func TestValidate_NoteInput(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		input      model.NoteInput
		wantFields []string
	}{
		{
			name:  "valid with slug",
			input: model.NoteInput{Title: "Заголовок", Text: "Текст", Slug: "my-note_1"},
		},
		{
			name:  "valid without slug",
			input: model.NoteInput{Title: "Заголовок", Text: "Текст"},
		},
		{
			name:       "missing title and text",
			input:      model.NoteInput{},
			wantFields: []string{"title", "text"},
		},
		{
			name:       "cyrillic slug rejected",
			input:      model.NoteInput{Title: "a", Text: "b", Slug: "заметка"},
			wantFields: []string{"slug"},
		},
		{
			name:       "title too long",
			input:      model.NoteInput{Title: strings.Repeat("я", 101), Text: "b"},
			wantFields: []string{"title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			for _, f := range tt.wantFields {
				if len(verr.Field(f)) == 0 {
					t.Errorf("expected error on field %q, got %v", f, verr.Fields)
				}
			}
		})
	}
}

func TestValidate_UsesFormTagNames(t *testing.T) {
	v := New()

	err := v.Validate(model.CommentInput{})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["text"]; !ok {
		t.Errorf("expected field key %q, got %v", "text", verr.Fields)
	}
	if _, ok := verr.Fields["Text"]; ok {
		t.Error("struct field name should not leak into error keys")
	}
}

func TestValidate_MaxCountsRunes(t *testing.T) {
	v := New()

	// 100文字のキリル文字はバイト数では100を超えるが、文字数では上限内。
	if err := v.Validate(model.NoteInput{Title: strings.Repeat("ж", 100), Text: "x"}); err != nil {
		t.Errorf("100 runes should be accepted: %v", err)
	}
}

func TestValidate_NonStructIsNotValidationError(t *testing.T) {
	v := New()

	err := v.Validate("not a struct")
	if err == nil {
		t.Fatal("expected error")
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		t.Error("non-struct input should not produce ValidationError")
	}
}
