package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

const (
	taskID1 = "3f2b8c1e-6a4d-4f0e-9b7a-1c2d3e4f5a60"
	taskID2 = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

// --- モック ---

type mockTaskRepo struct {
	listFn     func(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, error)
	findByIDFn func(ctx context.Context, userID, id string) (*model.Task, error)
	createFn   func(ctx context.Context, t *model.Task) error
	updateFn   func(ctx context.Context, t *model.Task) (bool, error)
	deleteFn   func(ctx context.Context, userID, id string) (bool, error)
	toggleFn   func(ctx context.Context, userID, id string) (*bool, error)
}

func (m *mockTaskRepo) List(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter)
	}
	return nil, nil
}

func (m *mockTaskRepo) FindByID(ctx context.Context, userID, id string) (*model.Task, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, userID, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) Create(ctx context.Context, t *model.Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, t)
	}
	return nil
}

func (m *mockTaskRepo) Update(ctx context.Context, t *model.Task) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, t)
	}
	return true, nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return true, nil
}

func (m *mockTaskRepo) ToggleToday(ctx context.Context, userID, id string) (*bool, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, id)
	}
	return nil, nil
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("code = %q, want %q", apiErr.Code, code)
	}
}

// --- List ---

// TestService_List_NamedFilters は名前付きフィルタが対応する条件に変換されることを検証する。
func TestService_List_NamedFilters(t *testing.T) {
	var got model.TaskFilter
	repo := &mockTaskRepo{
		listFn: func(_ context.Context, _ string, filter model.TaskFilter) ([]*model.Task, error) {
			got = filter
			return nil, nil
		},
	}
	svc := NewService(repo)

	tasks, err := svc.List(context.Background(), "u-1", ListParams{Named: "today", Status: "doing"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if tasks == nil {
		t.Error("empty result should be a non-nil slice")
	}
	if got.IsToday == nil || !*got.IsToday {
		t.Error("named=today should set is_today=true")
	}
	if got.Status == nil || *got.Status != model.TaskStatusDoing {
		t.Error("status filter should be kept alongside named filter")
	}

	if _, err := svc.List(context.Background(), "u-1", ListParams{Named: "important"}); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if got.Priority == nil || *got.Priority != model.TaskPriorityImportant {
		t.Error("named=important should set priority=important")
	}
}

// TestService_List_CategoryFilter はカテゴリ条件がそのまま渡されることを検証する。
func TestService_List_CategoryFilter(t *testing.T) {
	var got model.TaskFilter
	repo := &mockTaskRepo{
		listFn: func(_ context.Context, _ string, filter model.TaskFilter) ([]*model.Task, error) {
			got = filter
			return []*model.Task{{ID: taskID1}}, nil
		},
	}
	svc := NewService(repo)
	category := "study"

	tasks, err := svc.List(context.Background(), "u-1", ListParams{Category: &category, IsToday: "false"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("len = %d, want 1", len(tasks))
	}
	if got.Category == nil || *got.Category != "study" {
		t.Error("category filter not passed")
	}
	if got.IsToday == nil || *got.IsToday {
		t.Error("is_today=false should be passed")
	}
}

// TestService_List_ContradictoryFilters は矛盾する条件の場合にDBを参照せず空を返すことを検証する。
func TestService_List_ContradictoryFilters(t *testing.T) {
	repo := &mockTaskRepo{
		listFn: func(context.Context, string, model.TaskFilter) ([]*model.Task, error) {
			t.Error("repository should not be called")
			return nil, nil
		},
	}
	svc := NewService(repo)

	for _, params := range []ListParams{
		{Named: "today", IsToday: "false"},
		{Named: "important", Priority: "normal"},
	} {
		tasks, err := svc.List(context.Background(), "u-1", params)
		if err != nil {
			t.Fatalf("List(%+v) returned error: %v", params, err)
		}
		if len(tasks) != 0 {
			t.Errorf("List(%+v) should be empty", params)
		}
	}
}

// TestService_List_InvalidValues は未知の値がバリデーションエラーになることを検証する。
func TestService_List_InvalidValues(t *testing.T) {
	svc := NewService(&mockTaskRepo{})

	for _, params := range []ListParams{
		{Status: "archived"},
		{Priority: "urgent"},
		{Named: "someday"},
		{IsToday: "maybe"},
	} {
		_, err := svc.List(context.Background(), "u-1", params)
		assertCode(t, err, model.ErrCodeValidation)
	}
}

// --- Create / Update ---

// TestService_Create_Defaults はデフォルト値でタスクが作成されることを検証する。
func TestService_Create_Defaults(t *testing.T) {
	var created *model.Task
	repo := &mockTaskRepo{
		createFn: func(_ context.Context, tk *model.Task) error {
			created = tk
			return nil
		},
	}
	svc := NewService(repo)

	got, err := svc.Create(context.Background(), "u-1", Input{
		Title:    model.Some(" Read book "),
		Deadline: model.Some("2024-05-01"),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created != got {
		t.Error("created task should be returned")
	}
	if got.Title != "Read book" || got.UserID != "u-1" || got.ID == "" {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.Status != model.TaskStatusTodo || got.Priority != model.TaskPriorityNormal {
		t.Errorf("defaults = %s/%s, want todo/normal", got.Status, got.Priority)
	}
	if got.Deadline == nil || !got.Deadline.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("deadline = %v", got.Deadline)
	}
}

// TestService_Create_Validation は不正な入力がバリデーションエラーになることを検証する。
func TestService_Create_Validation(t *testing.T) {
	svc := NewService(&mockTaskRepo{
		createFn: func(context.Context, *model.Task) error {
			t.Error("Create should not be called")
			return nil
		},
	})

	long := make([]rune, 201)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name string
		in   Input
		code string
	}{
		{"missing title", Input{}, model.ErrCodeValidation},
		{"blank title", Input{Title: model.Some("  ")}, model.ErrCodeValidation},
		{"long title", Input{Title: model.Some(string(long))}, model.ErrCodeValidation},
		{"bad status", Input{Title: model.Some("a"), Status: model.Some("archived")}, model.ErrCodeValidation},
		{"bad priority", Input{Title: model.Some("a"), Priority: model.Some("urgent")}, model.ErrCodeValidation},
		{"bad deadline", Input{Title: model.Some("a"), Deadline: model.Some("05/01/2024")}, model.ErrCodeInvalidDate},
		{"negative estimate", Input{Title: model.Some("a"), EstimatedPomodoros: model.Some(-1)}, model.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u-1", tt.in)
			assertCode(t, err, tt.code)
		})
	}
}

// TestService_Update_Partial は未指定フィールドが保持され、nullでクリアされることを検証する。
func TestService_Update_Partial(t *testing.T) {
	deadline := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	estimate := 3
	repo := &mockTaskRepo{
		findByIDFn: func(_ context.Context, userID, id string) (*model.Task, error) {
			return &model.Task{
				ID: id, UserID: userID, Title: "old", Category: "work",
				Status: model.TaskStatusTodo, Priority: model.TaskPriorityNormal,
				Deadline: &deadline, EstimatedPomodoros: &estimate,
			}, nil
		},
	}
	svc := NewService(repo)

	got, err := svc.Update(context.Background(), "u-1", taskID1, Input{
		Status:   model.Some("done"),
		Deadline: model.Null[string](),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Title != "old" || got.Category != "work" {
		t.Error("unspecified fields should be preserved")
	}
	if got.Status != model.TaskStatusDone {
		t.Errorf("status = %q, want done", got.Status)
	}
	if got.Deadline != nil {
		t.Error("deadline should be cleared by null")
	}
	if got.EstimatedPomodoros == nil || *got.EstimatedPomodoros != 3 {
		t.Error("estimate should be preserved")
	}
}

// TestService_Update_ForeignTask は他ユーザーのタスクが未検出になることを検証する。
func TestService_Update_ForeignTask(t *testing.T) {
	repo := &mockTaskRepo{
		updateFn: func(context.Context, *model.Task) (bool, error) {
			t.Error("Update should not be called")
			return false, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), "u-1", taskID2, Input{Title: model.Some("x")})
	assertCode(t, err, model.ErrCodeTaskNotFound)
}

// TestService_Delete は削除結果に応じたエラーを検証する。
func TestService_Delete(t *testing.T) {
	repo := &mockTaskRepo{
		deleteFn: func(_ context.Context, _, id string) (bool, error) {
			return id == taskID1, nil
		},
	}
	svc := NewService(repo)

	if err := svc.Delete(context.Background(), "u-1", taskID1); err != nil {
		t.Errorf("Delete returned error: %v", err)
	}
	assertCode(t, svc.Delete(context.Background(), "u-1", taskID2), model.ErrCodeTaskNotFound)
}

// --- ToggleToday ---

// TestService_ToggleToday は反転後の値が返ることを検証する。
func TestService_ToggleToday(t *testing.T) {
	repo := &mockTaskRepo{
		toggleFn: func(_ context.Context, userID, id string) (*bool, error) {
			v := true
			return &v, nil
		},
	}
	svc := NewService(repo)

	res, err := svc.ToggleToday(context.Background(), "u-1", taskID1)
	if err != nil {
		t.Fatalf("ToggleToday returned error: %v", err)
	}
	if res.ID != taskID1 || !res.IsToday {
		t.Errorf("result = %+v, want {taskID1 true}", res)
	}
}

// TestService_ToggleToday_ForeignTask は他ユーザーのタスクが未検出になり変更されないことを検証する。
func TestService_ToggleToday_ForeignTask(t *testing.T) {
	var scopedTo string
	repo := &mockTaskRepo{
		toggleFn: func(_ context.Context, userID, _ string) (*bool, error) {
			scopedTo = userID
			return nil, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.ToggleToday(context.Background(), "intruder", taskID1)
	assertCode(t, err, model.ErrCodeTaskNotFound)
	if scopedTo != "intruder" {
		t.Error("toggle must be scoped to the caller")
	}
}

// TestService_MalformedID_NotFound はUUIDでないIDがリポジトリに渡らず未検出になることを検証する。
func TestService_MalformedID_NotFound(t *testing.T) {
	fail := func(method string) { t.Errorf("%s should not be called for a malformed id", method) }
	repo := &mockTaskRepo{
		findByIDFn: func(context.Context, string, string) (*model.Task, error) {
			fail("FindByID")
			return nil, nil
		},
		deleteFn: func(context.Context, string, string) (bool, error) {
			fail("Delete")
			return false, nil
		},
		toggleFn: func(context.Context, string, string) (*bool, error) {
			fail("ToggleToday")
			return nil, errors.New("invalid input syntax for type uuid")
		},
	}
	svc := NewService(repo)
	ctx := context.Background()

	for _, id := range []string{"42", "abc", "", taskID1 + "0"} {
		_, err := svc.ToggleToday(ctx, "u-1", id)
		assertCode(t, err, model.ErrCodeTaskNotFound)

		_, err = svc.Get(ctx, "u-1", id)
		assertCode(t, err, model.ErrCodeTaskNotFound)

		_, err = svc.Update(ctx, "u-1", id, Input{Title: model.Some("x")})
		assertCode(t, err, model.ErrCodeTaskNotFound)

		assertCode(t, svc.Delete(ctx, "u-1", id), model.ErrCodeTaskNotFound)
	}
}

// TestService_ToggleToday_ErrorMessageNotDuplicated はDBエラーの文脈が重複せずに包まれることを検証する。
func TestService_ToggleToday_ErrorMessageNotDuplicated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE tasks SET is_today = NOT is_today`).
		WithArgs(taskID1, "u-1").
		WillReturnError(errors.New("connection reset"))

	svc := NewService(repository.NewPostgresTaskRepo(db))
	_, err = svc.ToggleToday(context.Background(), "u-1", taskID1)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := strings.Count(err.Error(), "toggle today"); got != 1 {
		t.Errorf("error %q mentions toggle today %d times, want 1", err, got)
	}
	if !strings.HasSuffix(err.Error(), "connection reset") {
		t.Errorf("error %q should keep the driver cause", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
