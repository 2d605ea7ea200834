package handler

import (
	"context"
	"net/http"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/user"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*user.Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch user.ProfilePatch) (*user.Profile, error)
}

// ProfileHandler はプロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// profileRequest はプロフィール更新リクエストのボディ。
// role と username は受け付けても無視する。
type profileRequest struct {
	Nickname                 *string `json:"nickname"`
	Email                    *string `json:"email"`
	Avatar                   *string `json:"avatar"`
	Bio                      *string `json:"bio"`
	DefaultFocusMinutes      *int    `json:"default_focus_minutes"`
	DefaultShortBreakMinutes *int    `json:"default_short_break_minutes"`
	DefaultLongBreakMinutes  *int    `json:"default_long_break_minutes"`
	DefaultScene             *string `json:"default_scene"`
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	Username                 string `json:"username"`
	Nickname                 string `json:"nickname"`
	Role                     string `json:"role"`
	Avatar                   string `json:"avatar"`
	Bio                      string `json:"bio"`
	Email                    string `json:"email"`
	DefaultFocusMinutes      int    `json:"default_focus_minutes"`
	DefaultShortBreakMinutes int    `json:"default_short_break_minutes"`
	DefaultLongBreakMinutes  int    `json:"default_long_break_minutes"`
	DefaultScene             string `json:"default_scene"`
}

// Get は自分のプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// Update はプロフィールを部分更新する。PUTとPATCHの両方で使う。
// PUT /api/profile, PATCH /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	p, err := h.service.UpdateProfile(r.Context(), userID, user.ProfilePatch{
		Nickname:                 req.Nickname,
		Email:                    req.Email,
		Avatar:                   req.Avatar,
		Bio:                      req.Bio,
		DefaultFocusMinutes:      req.DefaultFocusMinutes,
		DefaultShortBreakMinutes: req.DefaultShortBreakMinutes,
		DefaultLongBreakMinutes:  req.DefaultLongBreakMinutes,
		DefaultScene:             req.DefaultScene,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func toProfileResponse(p *user.Profile) profileResponse {
	return profileResponse{
		Username:                 p.User.Username,
		Nickname:                 p.Profile.Nickname,
		Role:                     string(p.Profile.Role),
		Avatar:                   p.Profile.Avatar,
		Bio:                      p.Profile.Bio,
		Email:                    p.User.Email,
		DefaultFocusMinutes:      p.Profile.DefaultFocusMinutes,
		DefaultShortBreakMinutes: p.Profile.DefaultShortBreakMinutes,
		DefaultLongBreakMinutes:  p.Profile.DefaultLongBreakMinutes,
		DefaultScene:             p.Profile.DefaultScene,
	}
}
