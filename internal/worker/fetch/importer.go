package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
	"github.com/hitoshi/notenews/internal/security"
)

// maxTitleLength はnews.titleの列幅。
const maxTitleLength = 200

// Importer はパース済みエントリをサニタイズしてニュースとして保存する。
type Importer struct {
	newsRepo  repository.NewsRepository
	sanitizer security.ContentSanitizer
	now       func() time.Time
}

// NewImporter はImporterを生成する。
func NewImporter(newsRepo repository.NewsRepository, sanitizer security.ContentSanitizer) *Importer {
	return &Importer{newsRepo: newsRepo, sanitizer: sanitizer, now: time.Now}
}

// Import はエントリを(source_id, guid)でUPSERTし、新規件数と更新件数を返す。
// 途中で失敗した場合はそれまでの件数とエラーを返す。
func (im *Importer) Import(ctx context.Context, sourceID string, entries []model.ParsedEntry) (inserted, updated int, err error) {
	for _, e := range entries {
		news := im.toNews(sourceID, e)
		if news == nil {
			continue
		}

		created, err := im.newsRepo.UpsertFromSource(ctx, news)
		if err != nil {
			return inserted, updated, fmt.Errorf("upsert guid %q: %w", news.GUID, err)
		}
		if created {
			inserted++
		} else {
			updated++
		}
	}
	return inserted, updated, nil
}

// toNews はエントリをニュースに変換する。タイトルも本文もないエントリはnilを返す。
func (im *Importer) toNews(sourceID string, e model.ParsedEntry) *model.News {
	text := e.Content
	if text == "" {
		text = e.Summary
	}
	text = strings.TrimSpace(im.sanitizer.Sanitize(text))

	title := strings.TrimSpace(im.sanitizer.Excerpt(e.Title, maxTitleLength))
	if title == "" && text == "" {
		return nil
	}
	if title == "" {
		title = im.sanitizer.Excerpt(text, maxTitleLength)
	}

	now := im.now()
	date := now
	switch {
	case e.PublishedAt != nil:
		date = *e.PublishedAt
	case e.UpdatedAt != nil:
		date = *e.UpdatedAt
	}

	src := sourceID
	return &model.News{
		Title:     title,
		Text:      text,
		Date:      date,
		SourceID:  &src,
		GUID:      entryGUID(e),
		Link:      e.Link,
		CreatedAt: now,
	}
}

// entryGUID はエントリの識別子を返す。
// 優先順位: GUID > リンク > タイトルと公開日時のハッシュ
func entryGUID(e model.ParsedEntry) string {
	if e.GUID != "" {
		return e.GUID
	}
	if e.Link != "" {
		return e.Link
	}
	data := e.Title
	if e.PublishedAt != nil {
		data += "|" + e.PublishedAt.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(data))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// convertItems はgofeedの記事をmodel.ParsedEntryに変換する。
func convertItems(items []*gofeed.Item) []model.ParsedEntry {
	entries := make([]model.ParsedEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		e := model.ParsedEntry{
			GUID:        item.GUID,
			Title:       item.Title,
			Link:        item.Link,
			Content:     item.Content,
			Summary:     item.Description,
			PublishedAt: item.PublishedParsed,
			UpdatedAt:   item.UpdatedParsed,
		}

		// LinkがなくGUIDがURL形式の場合はGUIDをLinkとして使用
		if e.Link == "" && (strings.HasPrefix(e.GUID, "http://") || strings.HasPrefix(e.GUID, "https://")) {
			e.Link = e.GUID
		}
		entries = append(entries, e)
	}
	return entries
}
