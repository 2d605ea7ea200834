// Package content は管理者が運用するお知らせ・環境音カタログと、
// ユーザーのサウンドミックスを提供する。
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/security"
)

const announcementTitleMaxLength = 200

// AnnouncementInput はお知らせの作成・部分更新の入力。
type AnnouncementInput struct {
	Title       model.Optional[string] `json:"title"`
	Content     model.Optional[string] `json:"content"`
	IsPublished model.Optional[bool]   `json:"is_published"`
}

// AnnouncementService はお知らせ管理のサービス層。
type AnnouncementService struct {
	repo      repository.AnnouncementRepository
	sanitizer security.HTMLSanitizer
	now       func() time.Time
}

// NewAnnouncementService はAnnouncementServiceを生成する。
func NewAnnouncementService(repo repository.AnnouncementRepository, sanitizer security.HTMLSanitizer) *AnnouncementService {
	return &AnnouncementService{repo: repo, sanitizer: sanitizer, now: time.Now}
}

// List はお知らせを新しい順に返す。publishedOnlyがtrueの場合は公開済みのみ。
func (s *AnnouncementService) List(ctx context.Context, publishedOnly bool) ([]*model.Announcement, error) {
	list, err := s.repo.List(ctx, publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	if list == nil {
		list = []*model.Announcement{}
	}
	return list, nil
}

// Get は指定IDのお知らせを返す。
func (s *AnnouncementService) Get(ctx context.Context, id string) (*model.Announcement, error) {
	if !model.IsValidID(id) {
		return nil, model.NewAnnouncementNotFoundError(id)
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find announcement: %w", err)
	}
	if a == nil {
		return nil, model.NewAnnouncementNotFoundError(id)
	}
	return a, nil
}

// Create はお知らせを作成する。本文は保存前にサニタイズする。
func (s *AnnouncementService) Create(ctx context.Context, in AnnouncementInput) (*model.Announcement, error) {
	a := &model.Announcement{
		ID:          uuid.New().String(),
		IsPublished: true,
		CreatedAt:   s.now(),
	}
	if !in.Title.Present() {
		return nil, model.NewValidationError("title は必須です。")
	}
	if err := s.apply(a, in); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}
	slog.Info("announcement created", slog.String("announcement_id", a.ID))
	return a, nil
}

// Update は指定されたフィールドのみを更新する。
func (s *AnnouncementService) Update(ctx context.Context, id string, in AnnouncementInput) (*model.Announcement, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(a, in); err != nil {
		return nil, err
	}

	ok, err := s.repo.Update(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to update announcement: %w", err)
	}
	if !ok {
		return nil, model.NewAnnouncementNotFoundError(id)
	}
	return a, nil
}

// Delete はお知らせを削除する。
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if !model.IsValidID(id) {
		return model.NewAnnouncementNotFoundError(id)
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete announcement: %w", err)
	}
	if !ok {
		return model.NewAnnouncementNotFoundError(id)
	}
	return nil
}

func (s *AnnouncementService) apply(a *model.Announcement, in AnnouncementInput) error {
	if in.Title.Set {
		title := strings.TrimSpace(in.Title.Value)
		if in.Title.Null || title == "" {
			return model.NewValidationError("title は必須です。")
		}
		if utf8.RuneCountInString(title) > announcementTitleMaxLength {
			return model.NewValidationError(fmt.Sprintf("title は%d文字以内で入力してください。", announcementTitleMaxLength))
		}
		a.Title = title
	}
	if in.Content.Set {
		a.Content = s.sanitizer.Sanitize(in.Content.Value)
	}
	if in.IsPublished.Present() {
		a.IsPublished = in.IsPublished.Value
	}
	return nil
}
