// Package focus は集中セッションの記録とガーデンアイテムの派生を提供する。
package focus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/metrics"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

// 入力値の制約
const (
	durationMaxMinutes = 1440
	reasonMaxLength    = 200
)

// itemTypeByCategory はタスクカテゴリからガーデンアイテム種別への固定の対応表。
var itemTypeByCategory = map[string]model.ItemType{
	"study": model.ItemTypeTree,
	"学习":    model.ItemTypeTree,
	"work":  model.ItemTypeFlower,
	"工作":    model.ItemTypeFlower,
	"life":  model.ItemTypeStone,
	"生活":    model.ItemTypeStone,
}

// MapItemType はカテゴリからアイテム種別を決定する。
// カテゴリは前後の空白を除いて小文字化し、対応がなければtreeとする。中断時はdead_を付与する。
func MapItemType(category string, isDead bool) model.ItemType {
	base, ok := itemTypeByCategory[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		base = model.ItemTypeTree
	}
	if isDead {
		return base.Dead()
	}
	return base
}

// Input は集中セッションの作成・部分更新の入力。
type Input struct {
	TaskID            model.Optional[string]    `json:"task"`
	DurationMinutes   model.Optional[int]       `json:"duration_minutes"`
	IsCompleted       model.Optional[bool]      `json:"is_completed"`
	InterruptedReason model.Optional[string]    `json:"interrupted_reason"`
	StartedAt         model.Optional[time.Time] `json:"started_at"`
	EndedAt           model.Optional[time.Time] `json:"ended_at"`
}

// Service は集中セッションのサービス層。
type Service struct {
	sessionRepo repository.FocusSessionRepository
	taskRepo    repository.TaskRepository
	metrics     metrics.MetricsCollector
	loc         *time.Location
	now         func() time.Time
}

// NewService はServiceを生成する。locはガーデンアイテムの日付を決めるタイムゾーン。
func NewService(
	sessionRepo repository.FocusSessionRepository,
	taskRepo repository.TaskRepository,
	collector metrics.MetricsCollector,
	loc *time.Location,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		sessionRepo: sessionRepo,
		taskRepo:    taskRepo,
		metrics:     collector,
		loc:         loc,
		now:         time.Now,
	}
}

// List はユーザーのセッションを新しい順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.FocusSession, error) {
	sessions, err := s.sessionRepo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*model.FocusSession{}
	}
	return sessions, nil
}

// Get は呼び出し元が所有するセッションを取得する。
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*model.FocusSession, error) {
	if !model.IsValidID(sessionID) {
		return nil, model.NewSessionNotFoundError(sessionID)
	}
	fs, err := s.sessionRepo.FindByID(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if fs == nil {
		return nil, model.NewSessionNotFoundError(sessionID)
	}
	return fs, nil
}

// Create はセッションを記録し、対応するガーデンアイテムを1件だけ作成する。
// セッションとアイテムは同一トランザクションで保存され、片方だけが残ることはない。
func (s *Service) Create(ctx context.Context, userID string, in Input) (*model.FocusSession, error) {
	if !in.DurationMinutes.Present() {
		return nil, model.NewValidationError("duration_minutesは必須です。")
	}

	fs := &model.FocusSession{
		ID:          uuid.New().String(),
		UserID:      userID,
		IsCompleted: true,
		CreatedAt:   s.now(),
	}
	task, err := s.apply(ctx, userID, fs, in)
	if err != nil {
		return nil, err
	}

	stored, created, err := s.sessionRepo.CreateWithGardenItem(ctx, fs, s.newGardenItem(fs, task))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.metrics.RecordFocusSession(fs.IsCompleted)
	if created {
		s.metrics.RecordGardenItemCreated()
		slog.Info("garden item created",
			slog.String("user_id", fs.UserID),
			slog.String("session_id", fs.ID),
			slog.String("item_type", string(stored.ItemType)),
		)
	}

	return fs, nil
}

// newGardenItem はセッションから派生するガーデンアイテムを組み立てる。
// 日付は作成時刻をlocで解釈したローカル日付。
func (s *Service) newGardenItem(fs *model.FocusSession, task *model.Task) *model.GardenItem {
	category := ""
	if task != nil {
		category = task.Category
	}
	sessionID := fs.ID
	return &model.GardenItem{
		ID:        uuid.New().String(),
		UserID:    fs.UserID,
		SessionID: &sessionID,
		Date:      model.LocalDate(fs.CreatedAt, s.loc),
		Category:  category,
		ItemType:  MapItemType(category, !fs.IsCompleted),
		IsDead:    !fs.IsCompleted,
		CreatedAt: fs.CreatedAt,
	}
}

// Update はセッションを部分更新する。既存のガーデンアイテムは変更しない。
func (s *Service) Update(ctx context.Context, userID, sessionID string, in Input) (*model.FocusSession, error) {
	fs, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.apply(ctx, userID, fs, in); err != nil {
		return nil, err
	}

	ok, err := s.sessionRepo.Update(ctx, fs)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	if !ok {
		return nil, model.NewSessionNotFoundError(sessionID)
	}
	return fs, nil
}

// Delete はセッションを削除する。派生したガーデンアイテムのsession_idはNULLになる。
func (s *Service) Delete(ctx context.Context, userID, sessionID string) error {
	if !model.IsValidID(sessionID) {
		return model.NewSessionNotFoundError(sessionID)
	}
	ok, err := s.sessionRepo.Delete(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !ok {
		return model.NewSessionNotFoundError(sessionID)
	}
	return nil
}

// apply は入力値を検証してセッションに反映し、紐付くタスクを返す。
// タスクは呼び出し元が所有している必要がある。
func (s *Service) apply(ctx context.Context, userID string, fs *model.FocusSession, in Input) (*model.Task, error) {
	if in.DurationMinutes.Set {
		d := in.DurationMinutes.Value
		if in.DurationMinutes.Null || d < 0 || d > durationMaxMinutes {
			return nil, model.NewValidationError(fmt.Sprintf("duration_minutesは0〜%dの範囲で指定してください。", durationMaxMinutes))
		}
		fs.DurationMinutes = d
	}

	if in.IsCompleted.Present() {
		fs.IsCompleted = in.IsCompleted.Value
	}

	if in.InterruptedReason.Set {
		reason := strings.TrimSpace(in.InterruptedReason.Value)
		if len([]rune(reason)) > reasonMaxLength {
			return nil, model.NewValidationError(fmt.Sprintf("interrupted_reasonは%d文字以内で指定してください。", reasonMaxLength))
		}
		fs.InterruptedReason = reason
	}

	if in.StartedAt.Set {
		fs.StartedAt = timeOrNil(in.StartedAt)
	}
	if in.EndedAt.Set {
		fs.EndedAt = timeOrNil(in.EndedAt)
	}
	if fs.StartedAt != nil && fs.EndedAt != nil && fs.EndedAt.Before(*fs.StartedAt) {
		return nil, model.NewValidationError("ended_atはstarted_at以降で指定してください。")
	}

	if in.TaskID.Set {
		if in.TaskID.Null || in.TaskID.Value == "" {
			fs.TaskID = nil
		} else {
			id := in.TaskID.Value
			fs.TaskID = &id
		}
	}

	if fs.TaskID == nil {
		return nil, nil
	}
	if !model.IsValidID(*fs.TaskID) {
		return nil, model.NewValidationError(fmt.Sprintf("指定されたタスクが見つかりません: %s", *fs.TaskID))
	}
	task, err := s.taskRepo.FindByID(ctx, userID, *fs.TaskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, model.NewValidationError(fmt.Sprintf("指定されたタスクが見つかりません: %s", *fs.TaskID))
	}
	return task, nil
}

func timeOrNil(o model.Optional[time.Time]) *time.Time {
	if !o.Present() {
		return nil
	}
	t := o.Value
	return &t
}
