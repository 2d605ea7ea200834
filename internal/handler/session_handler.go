package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/focus"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// FocusServiceInterface は集中セッションハンドラーが必要とするサービスインターフェース。
type FocusServiceInterface interface {
	List(ctx context.Context, userID string) ([]*model.FocusSession, error)
	Get(ctx context.Context, userID, sessionID string) (*model.FocusSession, error)
	// Create はセッションを記録し、対応するガーデンアイテムを1件だけ生成する。
	Create(ctx context.Context, userID string, in focus.Input) (*model.FocusSession, error)
	Update(ctx context.Context, userID, sessionID string, in focus.Input) (*model.FocusSession, error)
	Delete(ctx context.Context, userID, sessionID string) error
}

// SessionHandler は集中セッションのHTTPハンドラー。
type SessionHandler struct {
	service FocusServiceInterface
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service FocusServiceInterface) *SessionHandler {
	return &SessionHandler{service: service}
}

// sessionResponse は集中セッションのAPIレスポンス。
type sessionResponse struct {
	ID                string     `json:"id"`
	Task              *string    `json:"task"`
	DurationMinutes   int        `json:"duration_minutes"`
	IsCompleted       bool       `json:"is_completed"`
	InterruptedReason string     `json:"interrupted_reason"`
	StartedAt         *time.Time `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

// List はセッション一覧を新しい順に返す。
// GET /api/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sessions, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]sessionResponse, len(sessions))
	for i, fs := range sessions {
		resp[i] = toSessionResponse(fs)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はセッションを記録する。
// POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in focus.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	fs, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(fs))
}

// Get はセッションを1件返す。
// GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	fs, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(fs))
}

// Update はセッションを部分更新する。
// PUT /api/sessions/{id}, PATCH /api/sessions/{id}
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in focus.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	fs, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(fs))
}

// Delete はセッションを削除する。ガーデンアイテムは残り、参照のみNULLになる。
// DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func toSessionResponse(fs *model.FocusSession) sessionResponse {
	return sessionResponse{
		ID:                fs.ID,
		Task:              fs.TaskID,
		DurationMinutes:   fs.DurationMinutes,
		IsCompleted:       fs.IsCompleted,
		InterruptedReason: fs.InterruptedReason,
		StartedAt:         fs.StartedAt,
		EndedAt:           fs.EndedAt,
		CreatedAt:         fs.CreatedAt,
	}
}
