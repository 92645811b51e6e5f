// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/notenews/internal/model"
)

// ErrDuplicate は一意制約違反を表す。呼び出し側はerrors.Isで判定する。
var ErrDuplicate = errors.New("duplicate key")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションをユーザー名付きで取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired はbefore時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// NoteRepository はノートの永続化インターフェース。
// 所有者チェックはすべてauthor_idを条件に含む単一クエリで行う。
type NoteRepository interface {
	// ListByAuthor は著者のノート一覧を作成順に返す。
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Note, error)

	// FindBySlugAndAuthor はslugと著者が一致するノートを取得する。
	// 存在しない場合も他人のノートの場合もnilを返す。
	FindBySlugAndAuthor(ctx context.Context, slug, authorID string) (*model.Note, error)

	// Create はノートを作成する。slugが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, note *model.Note) error

	// UpdateBySlugAndAuthor は著者が一致する場合のみノートを更新し、更新後のノートを返す。
	// 該当なしの場合はnil、新しいslugが重複する場合はErrDuplicateを返す。
	UpdateBySlugAndAuthor(ctx context.Context, slug, authorID string, input model.NoteInput) (*model.Note, error)

	// DeleteBySlugAndAuthor は著者が一致する場合のみノートを削除する。削除したかどうかを返す。
	DeleteBySlugAndAuthor(ctx context.Context, slug, authorID string) (bool, error)
}

// NewsRepository はニュースの永続化インターフェース。
type NewsRepository interface {
	// ListLatest は日付の新しい順にlimit件のニュースをコメント数付きで返す。
	ListLatest(ctx context.Context, limit int) ([]*model.News, error)

	// FindByID は指定IDのニュースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.News, error)

	// UpsertFromSource は(source_id, guid)をキーにニュースを作成または更新する。
	// 新規作成の場合はtrueを返す。
	UpsertFromSource(ctx context.Context, news *model.News) (bool, error)
}

// CommentRepository はコメントの永続化インターフェース。
// 編集・削除は著者を条件に含む単一クエリで行い、該当しなければfound=falseを返す。
type CommentRepository interface {
	// Create はコメントを作成し、採番されたIDを設定する。
	Create(ctx context.Context, comment *model.Comment) error

	// FindByIDAndAuthor はIDと著者が一致するコメントを取得する。見つからない場合はnilを返す。
	FindByIDAndAuthor(ctx context.Context, id int64, authorID string) (*model.Comment, error)

	// ListByNews はニュースのコメントを作成日時の昇順で返す。
	ListByNews(ctx context.Context, newsID int64) ([]*model.Comment, error)

	// UpdateTextByAuthor は著者が一致する場合のみ本文を更新し、所属ニュースのIDを返す。
	UpdateTextByAuthor(ctx context.Context, id int64, authorID, text string) (newsID int64, found bool, err error)

	// DeleteByAuthor は著者が一致する場合のみコメントを削除し、所属ニュースのIDを返す。
	DeleteByAuthor(ctx context.Context, id int64, authorID string) (newsID int64, found bool, err error)
}

// NewsSourceRepository はニュース取り込み元フィードの永続化インターフェース。
type NewsSourceRepository interface {
	// FindByFeedURL はフィードURLでソースを検索する。見つからない場合はnilを返す。
	FindByFeedURL(ctx context.Context, feedURL string) (*model.NewsSource, error)

	// Create はソースを作成する。
	Create(ctx context.Context, source *model.NewsSource) error

	// ListDueForFetch はnext_fetch_at <= now() かつ fetch_status = 'active' のソースを
	// FOR UPDATE SKIP LOCKEDで排他的に取得する。
	ListDueForFetch(ctx context.Context) ([]*model.NewsSource, error)

	// ListActive はfetch_status = 'active' の全ソースを返す。
	ListActive(ctx context.Context) ([]*model.NewsSource, error)

	// UpdateFetchState はソースのフェッチ状態を更新する。
	UpdateFetchState(ctx context.Context, source *model.NewsSource) error
}
