package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/notenews/internal/model"
)

// PostgresNoteRepo はPostgreSQLを使用したノートリポジトリ。
type PostgresNoteRepo struct {
	db *sql.DB
}

// NewPostgresNoteRepo はPostgresNoteRepoを生成する。
func NewPostgresNoteRepo(db *sql.DB) *PostgresNoteRepo {
	return &PostgresNoteRepo{db: db}
}

const noteColumns = `id, title, text, slug, author_id, created_at, updated_at`

func scanNote(row interface{ Scan(dest ...any) error }) (*model.Note, error) {
	note := &model.Note{}
	err := row.Scan(&note.ID, &note.Title, &note.Text, &note.Slug, &note.AuthorID,
		&note.CreatedAt, &note.UpdatedAt)
	return note, err
}

// ListByAuthor は著者のノート一覧を作成順に返す。
func (r *PostgresNoteRepo) ListByAuthor(ctx context.Context, authorID string) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE author_id = $1 ORDER BY created_at ASC, id ASC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []*model.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// FindBySlugAndAuthor はslugと著者が一致するノートを取得する。
func (r *PostgresNoteRepo) FindBySlugAndAuthor(ctx context.Context, slug, authorID string) (*model.Note, error) {
	note, err := scanNote(r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE slug = $1 AND author_id = $2`,
		slug, authorID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	return note, nil
}

// Create はノートを作成する。slugの一意性はnotes_slug_key制約で保証する。
func (r *PostgresNoteRepo) Create(ctx context.Context, note *model.Note) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, text, slug, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		note.ID, note.Title, note.Text, note.Slug, note.AuthorID, note.CreatedAt, note.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("slug %q: %w", note.Slug, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// UpdateBySlugAndAuthor は著者が一致する場合のみノートを更新する。
func (r *PostgresNoteRepo) UpdateBySlugAndAuthor(ctx context.Context, slug, authorID string, input model.NoteInput) (*model.Note, error) {
	note, err := scanNote(r.db.QueryRowContext(ctx,
		`UPDATE notes SET title = $3, text = $4, slug = $5, updated_at = now()
		 WHERE slug = $1 AND author_id = $2
		 RETURNING `+noteColumns,
		slug, authorID, input.Title, input.Text, input.Slug,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("slug %q: %w", input.Slug, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

// DeleteBySlugAndAuthor は著者が一致する場合のみノートを削除する。
func (r *PostgresNoteRepo) DeleteBySlugAndAuthor(ctx context.Context, slug, authorID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE slug = $1 AND author_id = $2`,
		slug, authorID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ NoteRepository = (*PostgresNoteRepo)(nil)
