package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/notenews/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// Create はコメントを作成し、採番されたIDを設定する。
// created_atは呼び出し側で設定した値を使い、作成順と一致させる。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO comments (news_id, author_id, text, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		comment.NewsID, comment.AuthorID, comment.Text, comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// FindByIDAndAuthor はIDと著者が一致するコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByIDAndAuthor(ctx context.Context, id int64, authorID string) (*model.Comment, error) {
	c := &model.Comment{}
	err := r.db.QueryRowContext(ctx,
		`SELECT c.id, c.news_id, c.author_id, u.username, c.text, c.created_at
		 FROM comments c
		 INNER JOIN users u ON u.id = c.author_id
		 WHERE c.id = $1 AND c.author_id = $2`,
		id, authorID,
	).Scan(&c.ID, &c.NewsID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return c, nil
}

// ListByNews はニュースのコメントを作成日時の昇順で返す。
func (r *PostgresCommentRepo) ListByNews(ctx context.Context, newsID int64) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.news_id, c.author_id, u.username, c.text, c.created_at
		 FROM comments c
		 INNER JOIN users u ON u.id = c.author_id
		 WHERE c.news_id = $1
		 ORDER BY c.created_at ASC, c.id ASC`,
		newsID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		c := &model.Comment{}
		if err := rows.Scan(&c.ID, &c.NewsID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

// UpdateTextByAuthor は著者が一致する場合のみ本文を更新する。
func (r *PostgresCommentRepo) UpdateTextByAuthor(ctx context.Context, id int64, authorID, text string) (int64, bool, error) {
	var newsID int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE comments SET text = $3 WHERE id = $1 AND author_id = $2 RETURNING news_id`,
		id, authorID, text,
	).Scan(&newsID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to update comment: %w", err)
	}
	return newsID, true, nil
}

// DeleteByAuthor は著者が一致する場合のみコメントを削除する。
func (r *PostgresCommentRepo) DeleteByAuthor(ctx context.Context, id int64, authorID string) (int64, bool, error) {
	var newsID int64
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM comments WHERE id = $1 AND author_id = $2 RETURNING news_id`,
		id, authorID,
	).Scan(&newsID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to delete comment: %w", err)
	}
	return newsID, true, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
