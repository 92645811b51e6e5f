package model

import "time"

// Note はユーザー個人のノートを表す。slugは全体で一意。
type Note struct {
	ID        string
	Title     string
	Text      string
	Slug      string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteInput はノート作成・編集フォームの入力値。
type NoteInput struct {
	Title string `form:"title" validate:"required,max=100"`
	Text  string `form:"text" validate:"required"`
	Slug  string `form:"slug" validate:"omitempty,max=100,slugchars"`
}
