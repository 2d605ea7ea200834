package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/garden"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/stats"
)

// StatsServiceInterface は統計ハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	Today(ctx context.Context, userID string) (*stats.TodayStats, error)
	Overview(ctx context.Context, userID string, days int) (*stats.Overview, error)
}

// GardenServiceInterface はガーデンハンドラーが必要とするサービスインターフェース。
type GardenServiceInterface interface {
	Overview(ctx context.Context, userID string) (*garden.Overview, error)
	Items(ctx context.Context, userID, rangeParam, dateParam string) ([]*model.GardenItem, error)
	Summary(ctx context.Context, userID, rangeParam, dateParam string) ([]stats.DaySummary, error)
}

// StatsHandler は統計とガーデン表示のHTTPハンドラー。
type StatsHandler struct {
	stats  StatsServiceInterface
	garden GardenServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(statsService StatsServiceInterface, gardenService GardenServiceInterface) *StatsHandler {
	return &StatsHandler{stats: statsService, garden: gardenService}
}

type todayStatsResponse struct {
	TodayMinutes  int `json:"today_minutes"`
	TodaySessions int `json:"today_sessions"`
	StreakDays    int `json:"streak_days"`
}

type dailyMinutesResponse struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}

type statsOverviewResponse struct {
	DailyMinutes   []dailyMinutesResponse `json:"daily_minutes"`
	CategoryStats  map[string]int         `json:"category_stats"`
	CompletionRate float64                `json:"completion_rate"`
	TotalTasks     int                    `json:"total_tasks"`
	CompletedTasks int                    `json:"completed_tasks"`
}

type gardenOverviewResponse struct {
	TotalSessions     int    `json:"total_sessions"`
	CompletedCount    int    `json:"completed_count"`
	AbortedCount      int    `json:"aborted_count"`
	StreakDays        int    `json:"streak_days"`
	TodayFocusMinutes int    `json:"today_focus_minutes"`
	TotalPomodoros    int    `json:"total_pomodoros"`
	CurrentExp        int    `json:"current_exp"`
	Level             int    `json:"level"`
	NextLevelExp      int    `json:"next_level_exp"`
	Stage             string `json:"stage"`
}

type gardenItemResponse struct {
	ID        string    `json:"id"`
	Session   *string   `json:"session"`
	Date      string    `json:"date"`
	Category  string    `json:"category"`
	ItemType  string    `json:"item_type"`
	IsDead    bool      `json:"is_dead"`
	CreatedAt time.Time `json:"created_at"`
}

type countsResponse struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Aborted   int `json:"aborted"`
}

type daySummaryResponse struct {
	Date       string                    `json:"date"`
	Total      int                       `json:"total"`
	Completed  int                       `json:"completed"`
	Aborted    int                       `json:"aborted"`
	ByCategory map[string]countsResponse `json:"by_category"`
}

// Today は今日の集中時間・セッション数・連続日数を返す。
// GET /api/stats/today
func (h *StatsHandler) Today(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	today, err := h.stats.Today(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todayStatsResponse{
		TodayMinutes:  today.TodayMinutes,
		TodaySessions: today.TodaySessions,
		StreakDays:    today.StreakDays,
	})
}

// Overview は直近N日間の統計を返す。
// GET /api/stats/overview?days=N
func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	days, err := stats.ParseDays(r.URL.Query().Get("days"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	ov, err := h.stats.Overview(r.Context(), userID, days)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	daily := make([]dailyMinutesResponse, len(ov.DailyMinutes))
	for i, d := range ov.DailyMinutes {
		daily[i] = dailyMinutesResponse{Date: d.Date, Minutes: d.Minutes}
	}
	categories := ov.CategoryStats
	if categories == nil {
		categories = map[string]int{}
	}

	writeJSON(w, http.StatusOK, statsOverviewResponse{
		DailyMinutes:   daily,
		CategoryStats:  categories,
		CompletionRate: ov.CompletionRate,
		TotalTasks:     ov.TotalTasks,
		CompletedTasks: ov.CompletedTasks,
	})
}

// GardenOverview はガーデンの成長状況を返す。
// GET /api/garden/overview
func (h *StatsHandler) GardenOverview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	ov, err := h.garden.Overview(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gardenOverviewResponse{
		TotalSessions:     ov.TotalSessions,
		CompletedCount:    ov.CompletedCount,
		AbortedCount:      ov.AbortedCount,
		StreakDays:        ov.StreakDays,
		TodayFocusMinutes: ov.TodayFocusMinutes,
		TotalPomodoros:    ov.TotalPomodoros,
		CurrentExp:        ov.CurrentExp,
		Level:             ov.Level.Level,
		NextLevelExp:      ov.NextLevelExp,
		Stage:             ov.Stage,
	})
}

// GardenItems は指定範囲のガーデンアイテムを新しい順に返す。
// GET /api/garden/items?range=day|week|month&date=YYYY-MM-DD
func (h *StatsHandler) GardenItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	items, err := h.garden.Items(r.Context(), userID, q.Get("range"), q.Get("date"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]gardenItemResponse, len(items))
	for i, item := range items {
		resp[i] = gardenItemResponse{
			ID:        item.ID,
			Session:   item.SessionID,
			Date:      formatDate(item.Date),
			Category:  item.Category,
			ItemType:  string(item.ItemType),
			IsDead:    item.IsDead,
			CreatedAt: item.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GardenSummary は指定範囲の日別集計を返す。
// GET /api/garden/summary?range=week|month&date=YYYY-MM-DD
func (h *StatsHandler) GardenSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	days, err := h.garden.Summary(r.Context(), userID, q.Get("range"), q.Get("date"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]daySummaryResponse, len(days))
	for i, d := range days {
		byCategory := make(map[string]countsResponse, len(d.ByCategory))
		for name, c := range d.ByCategory {
			byCategory[name] = countsResponse{Total: c.Total, Completed: c.Completed, Aborted: c.Aborted}
		}
		resp[i] = daySummaryResponse{
			Date:       d.Date,
			Total:      d.Counts.Total,
			Completed:  d.Counts.Completed,
			Aborted:    d.Counts.Aborted,
			ByCategory: byCategory,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
