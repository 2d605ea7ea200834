package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/metrics"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/middleware"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	// trueの場合のみX-Forwarded-For/X-Real-IPをクライアントIPとして採用する
	TrustProxyHeaders bool
	Authenticator     middleware.TokenAuthenticator
	Authorizer        middleware.Authorizer

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証・プロフィール
	AuthService    AuthServiceInterface
	ProfileService ProfileServiceInterface

	// タスク・集中セッション・統計
	TaskService   TaskServiceInterface
	FocusService  FocusServiceInterface
	StatsService  StatsServiceInterface
	GardenService GardenServiceInterface
	MoodService   MoodServiceInterface

	// コンテンツ
	AnnouncementService AnnouncementServiceInterface
	SoundService        SoundServiceInterface
	MaxUploadSize       int64
	Catalog             CatalogInterface
	MixService          MixServiceInterface

	// 管理
	AdminService AdminServiceInterface

	// 静的配信（nilの場合はルートを登録しない）
	MediaHandler http.Handler
	SPAHandler   http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → Recovery → SecurityHeaders → Logging → CORS → StripSlashes
//	  → TokenAuth → RateLimit(General) [→ Admin]
//
// 登録・ログインはトークン認証の外に置き、IPアドレス単位のレート制限のみを適用する。
// RealIPはTrustProxyHeadersが有効な場合だけ挟む。無効時はRemoteAddrがレート制限のキーになる。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(chimw.StripSlashes)

	authHandler := NewAuthHandler(deps.AuthService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	taskHandler := NewTaskHandler(deps.TaskService)
	sessionHandler := NewSessionHandler(deps.FocusService)
	statsHandler := NewStatsHandler(deps.StatsService, deps.GardenService)
	moodHandler := NewMoodHandler(deps.MoodService)
	contentHandler := NewContentHandler(deps.AnnouncementService, deps.SoundService, deps.MaxUploadSize)
	wellnessHandler := NewWellnessHandler(deps.Catalog, deps.MixService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: TokenAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/api/auth/logout", authHandler.Logout)

		// プロフィール
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Put("/", profileHandler.Update)
			r.Patch("/", profileHandler.Update)
		})

		// タスク管理
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Put("/", taskHandler.Update)
				r.Patch("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
				r.Post("/set_today", taskHandler.SetToday)
			})
		})

		// 集中セッション
		r.Route("/api/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Put("/", sessionHandler.Update)
				r.Patch("/", sessionHandler.Update)
				r.Delete("/", sessionHandler.Delete)
			})
		})

		// 統計・気分・ガーデン
		r.Get("/api/stats/today", statsHandler.Today)
		r.Get("/api/stats/overview", statsHandler.Overview)

		r.Get("/api/moods/today", moodHandler.Today)
		r.Post("/api/moods/today", moodHandler.SetToday)
		r.Get("/api/moods/recent", moodHandler.Recent)

		r.Get("/api/garden/overview", statsHandler.GardenOverview)
		r.Get("/api/garden/items", statsHandler.GardenItems)
		r.Get("/api/garden/summary", statsHandler.GardenSummary)

		// お知らせ・環境音・ウェルネス
		r.Get("/api/announcements", contentHandler.ListPublishedAnnouncements)

		r.Route("/api/sounds", func(r chi.Router) {
			r.Get("/", contentHandler.ListPublishedSounds)
			r.Get("/scenes", wellnessHandler.Scenes)
			r.Get("/mixes", wellnessHandler.ListMixes)
			r.Post("/mixes", wellnessHandler.CreateMix)
			r.Get("/{id}", contentHandler.GetPublishedSound)
		})

		r.Get("/api/wellness/home", wellnessHandler.Home)
		r.Get("/api/sleep/stories", wellnessHandler.Stories)
		r.Get("/api/sleep/stories/{id}", wellnessHandler.Story)
		r.Get("/api/meditations/overview", wellnessHandler.Meditation)

		// --- 管理者のみ ---
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewAdminMiddleware(deps.Authorizer))

			r.Get("/overview", adminHandler.Overview)
			r.Get("/users", adminHandler.ListUsers)

			r.Route("/announcements", func(r chi.Router) {
				r.Get("/", contentHandler.ListAnnouncements)
				r.Post("/", contentHandler.CreateAnnouncement)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", contentHandler.GetAnnouncement)
					r.Put("/", contentHandler.UpdateAnnouncement)
					r.Patch("/", contentHandler.UpdateAnnouncement)
					r.Delete("/", contentHandler.DeleteAnnouncement)
				})
			})

			r.Route("/sounds", func(r chi.Router) {
				r.Get("/", contentHandler.ListSounds)
				r.Post("/", contentHandler.CreateSound)
				r.Post("/import", contentHandler.ImportSounds)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", contentHandler.GetSound)
					r.Put("/", contentHandler.UpdateSound)
					r.Patch("/", contentHandler.UpdateSound)
					r.Delete("/", contentHandler.DeleteSound)
				})
			})
		})
	})

	// --- 静的配信 ---

	if deps.MediaHandler != nil {
		r.Method(http.MethodGet, "/media/*", deps.MediaHandler)
		r.Method(http.MethodHead, "/media/*", deps.MediaHandler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) || deps.SPAHandler == nil || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
				Code:     "NOT_FOUND",
				Message:  "リソースが見つかりません。",
				Category: model.CategoryNotFound,
				Action:   "URLを確認してください。",
			})
			return
		}
		deps.SPAHandler.ServeHTTP(w, r)
	})

	return r
}

// isAPIPath はAPIまたは運用エンドポイントのパスかどうかを判定する。
func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/media/")
}
