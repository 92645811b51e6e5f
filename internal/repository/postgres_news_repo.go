package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/notenews/internal/model"
)

// PostgresNewsRepo はPostgreSQLを使用したニュースリポジトリ。
type PostgresNewsRepo struct {
	db *sql.DB
}

// NewPostgresNewsRepo はPostgresNewsRepoを生成する。
func NewPostgresNewsRepo(db *sql.DB) *PostgresNewsRepo {
	return &PostgresNewsRepo{db: db}
}

const newsSelect = `SELECT n.id, n.title, n.text, n.date, n.source_id, n.guid, n.link, n.created_at,
		        (SELECT count(*) FROM comments c WHERE c.news_id = n.id)
		 FROM news n`

func scanNews(row interface{ Scan(dest ...any) error }) (*model.News, error) {
	news := &model.News{}
	var sourceID, guid, link sql.NullString
	err := row.Scan(&news.ID, &news.Title, &news.Text, &news.Date, &sourceID, &guid, &link,
		&news.CreatedAt, &news.CommentCount)
	if err != nil {
		return nil, err
	}
	if sourceID.Valid {
		id := sourceID.String
		news.SourceID = &id
	}
	news.GUID = nullStringValue(guid)
	news.Link = nullStringValue(link)
	return news, nil
}

// ListLatest は日付の新しい順にlimit件のニュースを返す。同日の場合は後から登録されたものが先。
func (r *PostgresNewsRepo) ListLatest(ctx context.Context, limit int) ([]*model.News, error) {
	rows, err := r.db.QueryContext(ctx,
		newsSelect+` ORDER BY n.date DESC, n.id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	defer rows.Close()

	var list []*model.News
	for rows.Next() {
		news, err := scanNews(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan news: %w", err)
		}
		list = append(list, news)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate news: %w", err)
	}
	return list, nil
}

// FindByID は指定IDのニュースを取得する。見つからない場合はnilを返す。
func (r *PostgresNewsRepo) FindByID(ctx context.Context, id int64) (*model.News, error) {
	news, err := scanNews(r.db.QueryRowContext(ctx, newsSelect+` WHERE n.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find news: %w", err)
	}
	return news, nil
}

// UpsertFromSource は(source_id, guid)をキーにニュースを作成または更新する。
// 既存行の日付とコメントは維持し、タイトル・本文・リンクのみ上書きする。
func (r *PostgresNewsRepo) UpsertFromSource(ctx context.Context, news *model.News) (bool, error) {
	if news.SourceID == nil || news.GUID == "" {
		return false, fmt.Errorf("source_id and guid are required for upsert")
	}

	var inserted bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO news (title, text, date, source_id, guid, link, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (source_id, guid) DO UPDATE SET
		    title = EXCLUDED.title,
		    text = EXCLUDED.text,
		    link = EXCLUDED.link
		 RETURNING id, (xmax = 0)`,
		news.Title, news.Text, news.Date, *news.SourceID, news.GUID, nullString(news.Link), news.CreatedAt,
	).Scan(&news.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert news: %w", err)
	}
	return inserted, nil
}

// compile-time interface check
var _ NewsRepository = (*PostgresNewsRepo)(nil)
