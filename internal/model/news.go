package model

import "time"

// News は公開済みのニュースを表す。
// SourceIDとGUIDはニュースソースから取り込んだ場合のみ設定される。
type News struct {
	ID           int64
	Title        string
	Text         string
	Date         time.Time
	SourceID     *string
	GUID         string
	Link         string
	CommentCount int
	CreatedAt    time.Time
}

// Comment はニュースへのコメントを表す。
type Comment struct {
	ID         int64
	NewsID     int64
	AuthorID   string
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

// CommentInput はコメントフォームの入力値。
type CommentInput struct {
	Text string `form:"text" validate:"required,max=2000"`
}

// NewsSource はニュースの取り込み元となるRSS/Atomフィードを表す。
type NewsSource struct {
	ID                string
	FeedURL           string
	SiteURL           string
	Title             string
	ETag              string
	LastModified      string
	FetchStatus       FetchStatus
	ConsecutiveErrors int
	ErrorMessage      string
	NextFetchAt       time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FetchStatus はニュースソースのフェッチ状態を表す。
type FetchStatus string

const (
	// FetchStatusActive はアクティブなフェッチ状態。
	FetchStatusActive FetchStatus = "active"
	// FetchStatusStopped は停止されたフェッチ状態。
	FetchStatusStopped FetchStatus = "stopped"
	// FetchStatusError はエラーによるフェッチ停止状態。
	FetchStatusError FetchStatus = "error"
)

// ParsedEntry はフィードパーサーから取得した未保存のエントリを表す。
type ParsedEntry struct {
	GUID        string
	Title       string
	Link        string
	Content     string // 未サニタイズのHTML
	Summary     string // 未サニタイズ
	PublishedAt *time.Time
	UpdatedAt   *time.Time
}
