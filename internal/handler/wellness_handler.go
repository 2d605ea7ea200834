package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/catalog"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/content"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// CatalogInterface はウェルネスカタログの読み取りインターフェース。
type CatalogInterface interface {
	Home() catalog.Home
	Stories(tag string) catalog.StoryList
	Story(id int) (catalog.Story, bool)
	Meditation() catalog.MeditationOverview
	Scenes(tag string) catalog.SceneList
}

// MixServiceInterface はサウンドミックスハンドラーが必要とするサービスインターフェース。
type MixServiceInterface interface {
	List(ctx context.Context, userID string) ([]content.Mix, error)
	Create(ctx context.Context, userID string, in content.MixInput) (*content.Mix, error)
}

// WellnessHandler は睡眠・瞑想・サウンドシーンとサウンドミックスのHTTPハンドラー。
type WellnessHandler struct {
	catalog CatalogInterface
	mixes   MixServiceInterface
}

// NewWellnessHandler はWellnessHandlerを生成する。
func NewWellnessHandler(c CatalogInterface, mixes MixServiceInterface) *WellnessHandler {
	return &WellnessHandler{catalog: c, mixes: mixes}
}

type mixListResponse struct {
	Presets []content.Mix `json:"presets"`
}

// Home はホーム画面のハイライトを返す。
// GET /api/wellness/home
func (h *WellnessHandler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Home())
}

// Stories は睡眠ストーリー一覧を返す。
// GET /api/sleep/stories?tag=
func (h *WellnessHandler) Stories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Stories(r.URL.Query().Get("tag")))
}

// Story は睡眠ストーリーを1件返す。
// GET /api/sleep/stories/{id}
func (h *WellnessHandler) Story(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		handleServiceError(w, model.NewStoryNotFoundError(raw))
		return
	}

	story, ok := h.catalog.Story(id)
	if !ok {
		handleServiceError(w, model.NewStoryNotFoundError(raw))
		return
	}
	writeJSON(w, http.StatusOK, story)
}

// Meditation は瞑想の概要を返す。
// GET /api/meditations/overview
func (h *WellnessHandler) Meditation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Meditation())
}

// Scenes はサウンドシーン一覧を返す。
// GET /api/sounds/scenes?tag=
func (h *WellnessHandler) Scenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Scenes(r.URL.Query().Get("tag")))
}

// ListMixes はプリセットと保存済みミックスを返す。
// GET /api/sounds/mixes
func (h *WellnessHandler) ListMixes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	mixes, err := h.mixes.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mixListResponse{Presets: mixes})
}

// CreateMix はミックスを保存する。
// POST /api/sounds/mixes
func (h *WellnessHandler) CreateMix(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in content.MixInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	mix, err := h.mixes.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mix)
}
