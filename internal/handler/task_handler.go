package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	List(ctx context.Context, userID string, params task.ListParams) ([]*model.Task, error)
	Create(ctx context.Context, userID string, in task.Input) (*model.Task, error)
	Get(ctx context.Context, userID, taskID string) (*model.Task, error)
	Update(ctx context.Context, userID, taskID string, in task.Input) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	// ToggleToday は今日の予定フラグを反転する。
	ToggleToday(ctx context.Context, userID, taskID string) (*task.ToggleResult, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// taskResponse はタスクのAPIレスポンス。
type taskResponse struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	Status             string    `json:"status"`
	Priority           string    `json:"priority"`
	Deadline           *string   `json:"deadline"`
	IsToday            bool      `json:"is_today"`
	EstimatedPomodoros *int      `json:"estimated_pomodoros"`
	CreatedAt          time.Time `json:"created_at"`
}

// toggleTodayResponse は今日の予定フラグ切り替えのレスポンス。
type toggleTodayResponse struct {
	ID      string `json:"id"`
	IsToday bool   `json:"is_today"`
}

// List はタスク一覧を返す。
// GET /api/tasks?status=&category=&is_today=&priority=&filter=today|important
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := task.ListParams{
		Status:   q.Get("status"),
		IsToday:  q.Get("is_today"),
		Priority: q.Get("priority"),
		Named:    q.Get("filter"),
	}
	if c := q.Get("category"); c != "" {
		params.Category = &c
	}

	tasks, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = toTaskResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はタスクを作成する。
// POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in task.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	t, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskResponse(t))
}

// Get はタスクを1件返す。
// GET /api/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// Update はタスクを部分更新する。
// PUT /api/tasks/{id}, PATCH /api/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in task.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	t, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// Delete はタスクを削除する。
// DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetToday は今日の予定フラグを切り替える。
// POST /api/tasks/{id}/set_today
func (h *TaskHandler) SetToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	result, err := h.service.ToggleToday(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toggleTodayResponse{ID: result.ID, IsToday: result.IsToday})
}

func toTaskResponse(t *model.Task) taskResponse {
	resp := taskResponse{
		ID:                 t.ID,
		Title:              t.Title,
		Category:           t.Category,
		Status:             string(t.Status),
		Priority:           string(t.Priority),
		IsToday:            t.IsToday,
		EstimatedPomodoros: t.EstimatedPomodoros,
		CreatedAt:          t.CreatedAt,
	}
	if t.Deadline != nil {
		d := formatDate(*t.Deadline)
		resp.Deadline = &d
	}
	return resp
}
