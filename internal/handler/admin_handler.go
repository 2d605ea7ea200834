package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/admin"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

// AdminServiceInterface は管理レポートハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	Overview(ctx context.Context) (*admin.Overview, error)
	ListUsers(ctx context.Context) ([]repository.AdminUserRow, error)
}

// AdminHandler は管理者向けレポートのHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

type adminOverviewResponse struct {
	TotalUsers        int     `json:"total_users"`
	TotalFocusMinutes int     `json:"total_focus_minutes"`
	TodayFocusMinutes int     `json:"today_focus_minutes"`
	TodaySessions     int     `json:"today_sessions"`
	TopScene          *string `json:"top_scene"`
	TodayPlanUsers    int     `json:"today_plan_users"`
}

type adminUserResponse struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Nickname          string    `json:"nickname"`
	Role              string    `json:"role"`
	DateJoined        time.Time `json:"date_joined"`
	TotalFocusMinutes int       `json:"total_focus_minutes"`
	TotalSessions     int       `json:"total_sessions"`
}

// Overview はサービス全体の利用状況を返す。
// GET /api/admin/overview
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.Overview(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, adminOverviewResponse{
		TotalUsers:        ov.TotalUsers,
		TotalFocusMinutes: ov.TotalFocusMinutes,
		TodayFocusMinutes: ov.TodayFocusMinutes,
		TodaySessions:     ov.TodaySessions,
		TopScene:          ov.TopScene,
		TodayPlanUsers:    ov.TodayPlanUsers,
	})
}

// ListUsers はユーザー一覧を登録日の新しい順に返す。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]adminUserResponse, len(rows))
	for i, row := range rows {
		resp[i] = adminUserResponse{
			ID:                row.ID,
			Username:          row.Username,
			Nickname:          row.Nickname,
			Role:              row.Role,
			DateJoined:        row.DateJoined,
			TotalFocusMinutes: row.TotalFocusMinutes,
			TotalSessions:     row.TotalSessions,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
