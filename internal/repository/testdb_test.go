package repository

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/notenews/internal/database"
	"github.com/hitoshi/notenews/internal/model"
	_ "github.com/lib/pq"
)

// testSchema はリポジトリテスト専用のスキーマ。
// マイグレーションテストがpublicのテーブルをドロップするため分離する。
const testSchema = "repository_test"

// setupTestDB はTEST_DATABASE_URLのデータベースに専用スキーマを作り直し、マイグレーションを適用する。
// 環境変数が未設定、または接続できない場合はスキップする。
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	baseURL := os.Getenv("TEST_DATABASE_URL")
	if baseURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	admin, err := sql.Open("postgres", baseURL)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	defer admin.Close()
	if err := admin.Ping(); err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	if _, err := admin.Exec(`DROP SCHEMA IF EXISTS ` + testSchema + ` CASCADE; CREATE SCHEMA ` + testSchema); err != nil {
		t.Fatalf("スキーマの作成に失敗: %v", err)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("TEST_DATABASE_URL のパースに失敗: %v", err)
	}
	q := u.Query()
	q.Set("search_path", testSchema)
	u.RawQuery = q.Encode()
	dbURL := u.String()

	if _, err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser はテスト用ユーザーを作成してIDを返す。
func createTestUser(t *testing.T, db *sql.DB, username string) string {
	t.Helper()
	now := time.Now()
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := NewPostgresUserRepo(db).Create(context.Background(), user); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	return user.ID
}

// insertTestNews は手動登録相当のニュースを作成してIDを返す。
func insertTestNews(t *testing.T, db *sql.DB, title string, date time.Time) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		`INSERT INTO news (title, text, date) VALUES ($1, $2, $3) RETURNING id`,
		title, "текст", date.Format("2006-01-02"),
	).Scan(&id)
	if err != nil {
		t.Fatalf("ニュース作成に失敗: %v", err)
	}
	return id
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("件数取得に失敗: %v", err)
	}
	return n
}
