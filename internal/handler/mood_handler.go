package handler

import (
	"context"
	"net/http"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/mood"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/stats"
)

// MoodServiceInterface は気分記録ハンドラーが必要とするサービスインターフェース。
type MoodServiceInterface interface {
	// Today は今日の記録を返す。記録がない場合はnilを返す。
	Today(ctx context.Context, userID string) (*model.MoodRecord, error)
	SetToday(ctx context.Context, userID string, in mood.Input) (*model.MoodRecord, error)
	Recent(ctx context.Context, userID string, days int) ([]*model.MoodRecord, error)
}

// MoodHandler は気分記録のHTTPハンドラー。
type MoodHandler struct {
	service MoodServiceInterface
}

// NewMoodHandler はMoodHandlerを生成する。
func NewMoodHandler(service MoodServiceInterface) *MoodHandler {
	return &MoodHandler{service: service}
}

type moodResponse struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Mood int    `json:"mood"`
	Note string `json:"note"`
}

// emptyMoodResponse は今日の記録がまだ無い場合のレスポンス。
type emptyMoodResponse struct {
	Mood *int   `json:"mood"`
	Note string `json:"note"`
}

// Today は今日の気分記録を返す。
// GET /api/moods/today
func (h *MoodHandler) Today(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Today(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, emptyMoodResponse{})
		return
	}

	writeJSON(w, http.StatusOK, toMoodResponse(rec))
}

// SetToday は今日の気分を記録する。同じ日に複数回呼ぶと上書きされる。
// POST /api/moods/today
func (h *MoodHandler) SetToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in mood.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	rec, err := h.service.SetToday(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMoodResponse(rec))
}

// Recent は直近N日間の記録を新しい順に返す。
// GET /api/moods/recent?days=N
func (h *MoodHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	days, err := stats.ParseDays(r.URL.Query().Get("days"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	records, err := h.service.Recent(r.Context(), userID, days)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]moodResponse, len(records))
	for i, rec := range records {
		resp[i] = toMoodResponse(rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

func toMoodResponse(rec *model.MoodRecord) moodResponse {
	return moodResponse{
		ID:   rec.ID,
		Date: formatDate(rec.Date),
		Mood: rec.Mood,
		Note: rec.Note,
	}
}
