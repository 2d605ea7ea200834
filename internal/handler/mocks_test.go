package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/admin"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/auth"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/content"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/focus"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/garden"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/middleware"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/mood"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/stats"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/task"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/user"
)

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストへユーザーIDを注入する。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディから統一エラーフォーマットをパースする。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// decodeBody はレスポンスボディをmapとしてデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

// decodeList はレスポンスボディを配列としてデコードする。
func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var body []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

// --- モック定義 ---

type mockAuthService struct {
	registerFn func(ctx context.Context, username, password, nickname string) (*auth.Result, error)
	loginFn    func(ctx context.Context, username, password string) (*auth.Result, error)
	logoutFn   func(ctx context.Context, userID string) error
}

func (m *mockAuthService) Register(ctx context.Context, username, password, nickname string) (*auth.Result, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, password, nickname)
	}
	return nil, model.NewValidationError("not configured")
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*auth.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return nil, model.NewLoginFailedError()
}

func (m *mockAuthService) Logout(ctx context.Context, userID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, userID)
	}
	return nil
}

type mockProfileService struct {
	getProfileFn    func(ctx context.Context, userID string) (*user.Profile, error)
	updateProfileFn func(ctx context.Context, userID string, patch user.ProfilePatch) (*user.Profile, error)
}

func (m *mockProfileService) GetProfile(ctx context.Context, userID string) (*user.Profile, error) {
	return m.getProfileFn(ctx, userID)
}

func (m *mockProfileService) UpdateProfile(ctx context.Context, userID string, patch user.ProfilePatch) (*user.Profile, error) {
	return m.updateProfileFn(ctx, userID, patch)
}

type mockTaskService struct {
	listFn        func(ctx context.Context, userID string, params task.ListParams) ([]*model.Task, error)
	createFn      func(ctx context.Context, userID string, in task.Input) (*model.Task, error)
	getFn         func(ctx context.Context, userID, taskID string) (*model.Task, error)
	updateFn      func(ctx context.Context, userID, taskID string, in task.Input) (*model.Task, error)
	deleteFn      func(ctx context.Context, userID, taskID string) error
	toggleTodayFn func(ctx context.Context, userID, taskID string) (*task.ToggleResult, error)
}

func (m *mockTaskService) List(ctx context.Context, userID string, params task.ListParams) ([]*model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, params)
	}
	return []*model.Task{}, nil
}

func (m *mockTaskService) Create(ctx context.Context, userID string, in task.Input) (*model.Task, error) {
	return m.createFn(ctx, userID, in)
}

func (m *mockTaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return m.getFn(ctx, userID, taskID)
}

func (m *mockTaskService) Update(ctx context.Context, userID, taskID string, in task.Input) (*model.Task, error) {
	return m.updateFn(ctx, userID, taskID, in)
}

func (m *mockTaskService) Delete(ctx context.Context, userID, taskID string) error {
	return m.deleteFn(ctx, userID, taskID)
}

func (m *mockTaskService) ToggleToday(ctx context.Context, userID, taskID string) (*task.ToggleResult, error) {
	return m.toggleTodayFn(ctx, userID, taskID)
}

type mockFocusService struct {
	listFn   func(ctx context.Context, userID string) ([]*model.FocusSession, error)
	getFn    func(ctx context.Context, userID, sessionID string) (*model.FocusSession, error)
	createFn func(ctx context.Context, userID string, in focus.Input) (*model.FocusSession, error)
	updateFn func(ctx context.Context, userID, sessionID string, in focus.Input) (*model.FocusSession, error)
	deleteFn func(ctx context.Context, userID, sessionID string) error
}

func (m *mockFocusService) List(ctx context.Context, userID string) ([]*model.FocusSession, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []*model.FocusSession{}, nil
}

func (m *mockFocusService) Get(ctx context.Context, userID, sessionID string) (*model.FocusSession, error) {
	return m.getFn(ctx, userID, sessionID)
}

func (m *mockFocusService) Create(ctx context.Context, userID string, in focus.Input) (*model.FocusSession, error) {
	return m.createFn(ctx, userID, in)
}

func (m *mockFocusService) Update(ctx context.Context, userID, sessionID string, in focus.Input) (*model.FocusSession, error) {
	return m.updateFn(ctx, userID, sessionID, in)
}

func (m *mockFocusService) Delete(ctx context.Context, userID, sessionID string) error {
	return m.deleteFn(ctx, userID, sessionID)
}

type mockStatsService struct {
	todayFn    func(ctx context.Context, userID string) (*stats.TodayStats, error)
	overviewFn func(ctx context.Context, userID string, days int) (*stats.Overview, error)
}

func (m *mockStatsService) Today(ctx context.Context, userID string) (*stats.TodayStats, error) {
	return m.todayFn(ctx, userID)
}

func (m *mockStatsService) Overview(ctx context.Context, userID string, days int) (*stats.Overview, error) {
	return m.overviewFn(ctx, userID, days)
}

type mockGardenService struct {
	overviewFn func(ctx context.Context, userID string) (*garden.Overview, error)
	itemsFn    func(ctx context.Context, userID, rangeParam, dateParam string) ([]*model.GardenItem, error)
	summaryFn  func(ctx context.Context, userID, rangeParam, dateParam string) ([]stats.DaySummary, error)
}

func (m *mockGardenService) Overview(ctx context.Context, userID string) (*garden.Overview, error) {
	return m.overviewFn(ctx, userID)
}

func (m *mockGardenService) Items(ctx context.Context, userID, rangeParam, dateParam string) ([]*model.GardenItem, error) {
	return m.itemsFn(ctx, userID, rangeParam, dateParam)
}

func (m *mockGardenService) Summary(ctx context.Context, userID, rangeParam, dateParam string) ([]stats.DaySummary, error) {
	return m.summaryFn(ctx, userID, rangeParam, dateParam)
}

type mockMoodService struct {
	todayFn    func(ctx context.Context, userID string) (*model.MoodRecord, error)
	setTodayFn func(ctx context.Context, userID string, in mood.Input) (*model.MoodRecord, error)
	recentFn   func(ctx context.Context, userID string, days int) ([]*model.MoodRecord, error)
}

func (m *mockMoodService) Today(ctx context.Context, userID string) (*model.MoodRecord, error) {
	return m.todayFn(ctx, userID)
}

func (m *mockMoodService) SetToday(ctx context.Context, userID string, in mood.Input) (*model.MoodRecord, error) {
	return m.setTodayFn(ctx, userID, in)
}

func (m *mockMoodService) Recent(ctx context.Context, userID string, days int) ([]*model.MoodRecord, error) {
	return m.recentFn(ctx, userID, days)
}

type mockAnnouncementService struct {
	listFn   func(ctx context.Context, publishedOnly bool) ([]*model.Announcement, error)
	getFn    func(ctx context.Context, id string) (*model.Announcement, error)
	createFn func(ctx context.Context, in content.AnnouncementInput) (*model.Announcement, error)
	updateFn func(ctx context.Context, id string, in content.AnnouncementInput) (*model.Announcement, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockAnnouncementService) List(ctx context.Context, publishedOnly bool) ([]*model.Announcement, error) {
	if m.listFn != nil {
		return m.listFn(ctx, publishedOnly)
	}
	return []*model.Announcement{}, nil
}

func (m *mockAnnouncementService) Get(ctx context.Context, id string) (*model.Announcement, error) {
	return m.getFn(ctx, id)
}

func (m *mockAnnouncementService) Create(ctx context.Context, in content.AnnouncementInput) (*model.Announcement, error) {
	return m.createFn(ctx, in)
}

func (m *mockAnnouncementService) Update(ctx context.Context, id string, in content.AnnouncementInput) (*model.Announcement, error) {
	return m.updateFn(ctx, id, in)
}

func (m *mockAnnouncementService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockSoundService struct {
	listFn   func(ctx context.Context, publishedOnly bool) ([]*model.AmbientSound, error)
	getFn    func(ctx context.Context, id string, publishedOnly bool) (*model.AmbientSound, error)
	createFn func(ctx context.Context, in content.SoundInput, upload *content.Upload) (*model.AmbientSound, error)
	updateFn func(ctx context.Context, id string, in content.SoundInput, upload *content.Upload) (*model.AmbientSound, error)
	deleteFn func(ctx context.Context, id string) error
	importFn func(ctx context.Context, in content.ImportInput) (*content.ImportResult, error)
}

func (m *mockSoundService) List(ctx context.Context, publishedOnly bool) ([]*model.AmbientSound, error) {
	if m.listFn != nil {
		return m.listFn(ctx, publishedOnly)
	}
	return []*model.AmbientSound{}, nil
}

func (m *mockSoundService) Get(ctx context.Context, id string, publishedOnly bool) (*model.AmbientSound, error) {
	return m.getFn(ctx, id, publishedOnly)
}

func (m *mockSoundService) Create(ctx context.Context, in content.SoundInput, upload *content.Upload) (*model.AmbientSound, error) {
	return m.createFn(ctx, in, upload)
}

func (m *mockSoundService) Update(ctx context.Context, id string, in content.SoundInput, upload *content.Upload) (*model.AmbientSound, error) {
	return m.updateFn(ctx, id, in, upload)
}

func (m *mockSoundService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSoundService) ImportFeed(ctx context.Context, in content.ImportInput) (*content.ImportResult, error) {
	return m.importFn(ctx, in)
}

// PlaybackURL はアップロードファイルがあれば固定のメディアURLを返す。
func (m *mockSoundService) PlaybackURL(a *model.AmbientSound) string {
	if a.File != "" {
		return "http://localhost:8080/media/" + a.File
	}
	return a.FileURL
}

type mockMixService struct {
	listFn   func(ctx context.Context, userID string) ([]content.Mix, error)
	createFn func(ctx context.Context, userID string, in content.MixInput) (*content.Mix, error)
}

func (m *mockMixService) List(ctx context.Context, userID string) ([]content.Mix, error) {
	return m.listFn(ctx, userID)
}

func (m *mockMixService) Create(ctx context.Context, userID string, in content.MixInput) (*content.Mix, error) {
	return m.createFn(ctx, userID, in)
}

type mockAdminService struct {
	overviewFn  func(ctx context.Context) (*admin.Overview, error)
	listUsersFn func(ctx context.Context) ([]repository.AdminUserRow, error)
}

func (m *mockAdminService) Overview(ctx context.Context) (*admin.Overview, error) {
	return m.overviewFn(ctx)
}

func (m *mockAdminService) ListUsers(ctx context.Context) ([]repository.AdminUserRow, error) {
	return m.listUsersFn(ctx)
}
