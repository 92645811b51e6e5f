package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/notenews/internal/model"
)

// PostgresNewsSourceRepo はPostgreSQLを使用したニュースソースリポジトリ。
type PostgresNewsSourceRepo struct {
	db *sql.DB
}

// NewPostgresNewsSourceRepo はPostgresNewsSourceRepoを生成する。
func NewPostgresNewsSourceRepo(db *sql.DB) *PostgresNewsSourceRepo {
	return &PostgresNewsSourceRepo{db: db}
}

const sourceColumns = `id, feed_url, site_url, title, etag, last_modified, fetch_status,
		        consecutive_errors, error_message, next_fetch_at, created_at, updated_at`

func scanSource(row interface{ Scan(dest ...any) error }) (*model.NewsSource, error) {
	src := &model.NewsSource{}
	var siteURL, etag, lastModified, errorMessage sql.NullString
	err := row.Scan(
		&src.ID, &src.FeedURL, &siteURL, &src.Title, &etag, &lastModified, &src.FetchStatus,
		&src.ConsecutiveErrors, &errorMessage, &src.NextFetchAt, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	src.SiteURL = nullStringValue(siteURL)
	src.ETag = nullStringValue(etag)
	src.LastModified = nullStringValue(lastModified)
	src.ErrorMessage = nullStringValue(errorMessage)
	return src, nil
}

// FindByFeedURL はフィードURLでソースを検索する。見つからない場合はnilを返す。
func (r *PostgresNewsSourceRepo) FindByFeedURL(ctx context.Context, feedURL string) (*model.NewsSource, error) {
	src, err := scanSource(r.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM news_sources WHERE feed_url = $1`,
		feedURL,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ニュースソースの検索に失敗しました: %w", err)
	}
	return src, nil
}

// Create はソースを作成する。
func (r *PostgresNewsSourceRepo) Create(ctx context.Context, src *model.NewsSource) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO news_sources (id, feed_url, site_url, title, etag, last_modified,
		                           fetch_status, consecutive_errors, error_message,
		                           next_fetch_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		src.ID, src.FeedURL, nullString(src.SiteURL), src.Title,
		nullString(src.ETag), nullString(src.LastModified),
		src.FetchStatus, src.ConsecutiveErrors, nullString(src.ErrorMessage),
		src.NextFetchAt, src.CreatedAt, src.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("feed_url %q: %w", src.FeedURL, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("ニュースソースの作成に失敗しました: %w", err)
	}
	return nil
}

// ListDueForFetch はフェッチ対象のソースを排他的に取得する。
func (r *PostgresNewsSourceRepo) ListDueForFetch(ctx context.Context) ([]*model.NewsSource, error) {
	return r.list(ctx,
		`SELECT `+sourceColumns+`
		 FROM news_sources
		 WHERE next_fetch_at <= now()
		   AND fetch_status = 'active'
		 ORDER BY next_fetch_at ASC
		 FOR UPDATE SKIP LOCKED`,
	)
}

// ListActive はアクティブな全ソースを返す。
func (r *PostgresNewsSourceRepo) ListActive(ctx context.Context) ([]*model.NewsSource, error) {
	return r.list(ctx,
		`SELECT `+sourceColumns+`
		 FROM news_sources
		 WHERE fetch_status = 'active'
		 ORDER BY created_at ASC`,
	)
}

func (r *PostgresNewsSourceRepo) list(ctx context.Context, query string) ([]*model.NewsSource, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ニュースソースの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sources []*model.NewsSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("ニュースソースの読み取りに失敗しました: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ニュースソースの走査に失敗しました: %w", err)
	}
	return sources, nil
}

// UpdateFetchState はソースのフェッチ状態を更新する。
func (r *PostgresNewsSourceRepo) UpdateFetchState(ctx context.Context, src *model.NewsSource) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE news_sources SET
		    fetch_status = $2,
		    consecutive_errors = $3,
		    error_message = $4,
		    next_fetch_at = $5,
		    etag = $6,
		    last_modified = $7,
		    updated_at = now()
		 WHERE id = $1`,
		src.ID,
		src.FetchStatus,
		src.ConsecutiveErrors,
		nullString(src.ErrorMessage),
		src.NextFetchAt,
		nullString(src.ETag),
		nullString(src.LastModified),
	)
	if err != nil {
		return fmt.Errorf("フェッチ状態の更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ NewsSourceRepository = (*PostgresNewsSourceRepo)(nil)
