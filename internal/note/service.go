// Package note は個人ノートのドメインロジックを提供する。
// 全ての操作は所有者に限定され、他人のノートは存在しないものとして扱う。
package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/notenews/internal/metrics"
	"github.com/hitoshi/notenews/internal/model"
	"github.com/hitoshi/notenews/internal/repository"
)

// DuplicateSlugWarning はslug重複時のメッセージ接尾辞。
const DuplicateSlugWarning = " - такой slug уже существует, придумайте уникальное значение!"

// SlugifyFunc はタイトルからslugを生成する純粋関数。
type SlugifyFunc func(title string) string

// InputValidator はフォーム入力の検証インターフェース。
type InputValidator interface {
	Validate(s any) error
}

// Service はノートのサービス層。
type Service struct {
	repo      repository.NoteRepository
	validator InputValidator
	slugify   SlugifyFunc
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceを生成する。slugifyがnilの場合はSlugifyを使う。
func NewService(repo repository.NoteRepository, validator InputValidator, slugify SlugifyFunc, m metrics.MetricsCollector) *Service {
	if slugify == nil {
		slugify = Slugify
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		repo:      repo,
		validator: validator,
		slugify:   slugify,
		metrics:   m,
		now:       time.Now,
	}
}

// List は所有者のノート一覧を返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Note, error) {
	notes, err := s.repo.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ノート一覧の取得に失敗しました: %w", err)
	}
	return notes, nil
}

// Get は所有者のノートをslugで取得する。他人のノートもNOTE_NOT_FOUNDになる。
func (s *Service) Get(ctx context.Context, userID, slug string) (*model.Note, error) {
	note, err := s.repo.FindBySlugAndAuthor(ctx, slug, userID)
	if err != nil {
		return nil, fmt.Errorf("ノートの取得に失敗しました: %w", err)
	}
	if note == nil {
		return nil, model.NewNoteNotFoundError(slug)
	}
	return note, nil
}

// Create はノートを作成する。slugが空の場合はタイトルから生成する。
// slugが重複する場合はslugフィールドのValidationErrorを返す。
func (s *Service) Create(ctx context.Context, userID string, input model.NoteInput) (*model.Note, error) {
	input, err := s.prepare(input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	note := &model.Note{
		ID:        uuid.New().String(),
		Title:     input.Title,
		Text:      input.Text,
		Slug:      input.Slug,
		AuthorID:  userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateSlugError(input.Slug)
		}
		return nil, fmt.Errorf("ノートの作成に失敗しました: %w", err)
	}

	s.metrics.RecordNoteCreated()
	slog.Info("note created",
		slog.String("user_id", userID),
		slog.String("slug", note.Slug),
	)
	return note, nil
}

// Update は所有者のノートを更新する。所有者確認と更新は単一のUPDATEで行う。
func (s *Service) Update(ctx context.Context, userID, slug string, input model.NoteInput) (*model.Note, error) {
	input, err := s.prepare(input)
	if err != nil {
		return nil, err
	}

	note, err := s.repo.UpdateBySlugAndAuthor(ctx, slug, userID, input)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateSlugError(input.Slug)
		}
		return nil, fmt.Errorf("ノートの更新に失敗しました: %w", err)
	}
	if note == nil {
		return nil, model.NewNoteNotFoundError(slug)
	}
	return note, nil
}

// Delete は所有者のノートを削除する。所有者確認と削除は単一のDELETEで行う。
func (s *Service) Delete(ctx context.Context, userID, slug string) error {
	deleted, err := s.repo.DeleteBySlugAndAuthor(ctx, slug, userID)
	if err != nil {
		return fmt.Errorf("ノートの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewNoteNotFoundError(slug)
	}
	slog.Info("note deleted",
		slog.String("user_id", userID),
		slog.String("slug", slug),
	)
	return nil
}

// prepare は入力を検証し、空のslugをタイトルから補完する。
func (s *Service) prepare(input model.NoteInput) (model.NoteInput, error) {
	if err := s.validator.Validate(input); err != nil {
		return input, err
	}
	if input.Slug == "" {
		input.Slug = s.slugify(input.Title)
		if input.Slug == "" {
			return input, model.NewFieldError("slug", "Не удалось сформировать slug из заголовка, укажите его вручную.")
		}
	}
	return input, nil
}

func duplicateSlugError(slug string) *model.ValidationError {
	return model.NewFieldError("slug", slug+DuplicateSlugWarning)
}
