// Package task はユーザーが所有するタスクの管理を提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

// 入力値の制約
const (
	titleMaxLength    = 200
	categoryMaxLength = 100
)

// ListParams はタスク一覧のクエリパラメータ。空文字は未指定を表す。
type ListParams struct {
	Status   string
	Category *string
	IsToday  string
	Priority string
	Named    string
}

// Input はタスクの作成・部分更新の入力。
type Input struct {
	Title              model.Optional[string] `json:"title"`
	Category           model.Optional[string] `json:"category"`
	Status             model.Optional[string] `json:"status"`
	Priority           model.Optional[string] `json:"priority"`
	Deadline           model.Optional[string] `json:"deadline"`
	IsToday            model.Optional[bool]   `json:"is_today"`
	EstimatedPomodoros model.Optional[int]    `json:"estimated_pomodoros"`
}

// ToggleResult は今日の予定フラグ切り替えの結果。
type ToggleResult struct {
	ID      string
	IsToday bool
}

// Service はタスク管理のサービス層。
type Service struct {
	repo repository.TaskRepository
	now  func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.TaskRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List はフィルタ条件に一致するタスクを新しい順に返す。
// named=today は is_today=true、named=important は priority=important と同じ意味で、全条件はANDで結合する。
func (s *Service) List(ctx context.Context, userID string, params ListParams) ([]*model.Task, error) {
	filter, empty, err := buildFilter(params)
	if err != nil {
		return nil, err
	}
	if empty {
		return []*model.Task{}, nil
	}

	tasks, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}
	return tasks, nil
}

// buildFilter はクエリパラメータを検証してフィルタに変換する。
// 条件同士が矛盾して結果が必ず空になる場合はemptyにtrueを返す。
func buildFilter(params ListParams) (filter model.TaskFilter, empty bool, err error) {
	if params.Status != "" {
		st := model.TaskStatus(params.Status)
		if !st.Valid() {
			return filter, false, model.NewValidationError(fmt.Sprintf("無効なstatusです: %s", params.Status))
		}
		filter.Status = &st
	}
	if params.Priority != "" {
		pr := model.TaskPriority(params.Priority)
		if !pr.Valid() {
			return filter, false, model.NewValidationError(fmt.Sprintf("無効なpriorityです: %s", params.Priority))
		}
		filter.Priority = &pr
	}
	if params.IsToday != "" {
		b, perr := strconv.ParseBool(params.IsToday)
		if perr != nil {
			return filter, false, model.NewValidationError(fmt.Sprintf("無効なis_todayです: %s", params.IsToday))
		}
		filter.IsToday = &b
	}
	if params.Category != nil {
		c := *params.Category
		filter.Category = &c
	}

	switch model.TaskNamedFilter(params.Named) {
	case "":
	case model.TaskFilterToday:
		if filter.IsToday != nil && !*filter.IsToday {
			return filter, true, nil
		}
		t := true
		filter.IsToday = &t
	case model.TaskFilterImportant:
		if filter.Priority != nil && *filter.Priority != model.TaskPriorityImportant {
			return filter, true, nil
		}
		pr := model.TaskPriorityImportant
		filter.Priority = &pr
	default:
		return filter, false, model.NewValidationError(fmt.Sprintf("無効なfilterです: %s", params.Named))
	}

	return filter, false, nil
}

// Create はタスクを作成する。titleは必須。
func (s *Service) Create(ctx context.Context, userID string, in Input) (*model.Task, error) {
	t := &model.Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    model.TaskStatusTodo,
		Priority:  model.TaskPriorityNormal,
		CreatedAt: s.now(),
	}
	if !in.Title.Present() {
		return nil, model.NewValidationError("titleは必須です。")
	}
	if err := apply(t, in); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	slog.Info("task created",
		slog.String("user_id", userID),
		slog.String("task_id", t.ID),
	)
	return t, nil
}

// Get は呼び出し元が所有するタスクを取得する。他ユーザーのタスクは未検出として扱う。
func (s *Service) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	if !model.IsValidID(taskID) {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	t, err := s.repo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if t == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return t, nil
}

// Update はタスクを部分更新する。
func (s *Service) Update(ctx context.Context, userID, taskID string, in Input) (*model.Task, error) {
	t, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if err := apply(t, in); err != nil {
		return nil, err
	}

	ok, err := s.repo.Update(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if !ok {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return t, nil
}

// Delete はタスクを削除する。紐付く集中セッションのtask_idはNULLになる。
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	if !model.IsValidID(taskID) {
		return model.NewTaskNotFoundError(taskID)
	}
	ok, err := s.repo.Delete(ctx, userID, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !ok {
		return model.NewTaskNotFoundError(taskID)
	}
	return nil
}

// ToggleToday は今日の予定フラグを反転する。
// 他ユーザーのタスクは変更せず未検出エラーを返す。
func (s *Service) ToggleToday(ctx context.Context, userID, taskID string) (*ToggleResult, error) {
	if !model.IsValidID(taskID) {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	isToday, err := s.repo.ToggleToday(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle today: %w", err)
	}
	if isToday == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return &ToggleResult{ID: taskID, IsToday: *isToday}, nil
}

// apply は入力値を検証してタスクに反映する。
func apply(t *model.Task, in Input) error {
	if in.Title.Set {
		title := strings.TrimSpace(in.Title.Value)
		if in.Title.Null || title == "" {
			return model.NewValidationError("titleは必須です。")
		}
		if len([]rune(title)) > titleMaxLength {
			return model.NewValidationError(fmt.Sprintf("titleは%d文字以内で指定してください。", titleMaxLength))
		}
		t.Title = title
	}

	if in.Category.Set {
		category := strings.TrimSpace(in.Category.Value)
		if len([]rune(category)) > categoryMaxLength {
			return model.NewValidationError(fmt.Sprintf("categoryは%d文字以内で指定してください。", categoryMaxLength))
		}
		t.Category = category
	}

	if in.Status.Present() {
		st := model.TaskStatus(in.Status.Value)
		if !st.Valid() {
			return model.NewValidationError(fmt.Sprintf("無効なstatusです: %s", in.Status.Value))
		}
		t.Status = st
	}

	if in.Priority.Present() {
		pr := model.TaskPriority(in.Priority.Value)
		if !pr.Valid() {
			return model.NewValidationError(fmt.Sprintf("無効なpriorityです: %s", in.Priority.Value))
		}
		t.Priority = pr
	}

	if in.Deadline.Set {
		if in.Deadline.Null || in.Deadline.Value == "" {
			t.Deadline = nil
		} else {
			d, err := time.Parse(model.DateLayout, in.Deadline.Value)
			if err != nil {
				return model.NewInvalidDateError(in.Deadline.Value)
			}
			t.Deadline = &d
		}
	}

	if in.IsToday.Present() {
		t.IsToday = in.IsToday.Value
	}

	if in.EstimatedPomodoros.Set {
		if in.EstimatedPomodoros.Null {
			t.EstimatedPomodoros = nil
		} else {
			n := in.EstimatedPomodoros.Value
			if n < 0 {
				return model.NewValidationError("estimated_pomodorosは0以上で指定してください。")
			}
			t.EstimatedPomodoros = &n
		}
	}

	return nil
}
