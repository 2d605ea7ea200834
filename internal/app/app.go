package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/admin"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/auth"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/catalog"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/config"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/content"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/database"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/focus"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/garden"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/handler"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/logger"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/metrics"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/middleware"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/mood"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/security"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/stats"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/task"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/user"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/web"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envを読み込んだ後に環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envと環境変数から設定を読み込む
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("time_zone", cfg.TimeZone),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandBootstrap:
		return runBootstrap(cfg)
	case CommandCreateAdmin:
		return runCreateAdmin(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// services はコマンド間で共有するドメインサービス群。
type services struct {
	auth          *auth.Service
	user          *user.Service
	task          *task.Service
	focus         *focus.Service
	stats         *stats.Service
	garden        *garden.Service
	mood          *mood.Service
	announcements *content.AnnouncementService
	sounds        *content.SoundService
	mixes         *content.MixService
	admin         *admin.Service
	media         *content.MediaStore
}

// newServices はリポジトリとドメインサービスを初期化する。
// 集計系のリポジトリは同じ接続プールをsqlxでラップして使う。
func newServices(db *sql.DB, cfg *config.Config, collector metrics.MetricsCollector, cat *catalog.Catalog) *services {
	// 1. リポジトリの初期化
	xdb := database.Wrap(db)
	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresTokenRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)
	sessionRepo := repository.NewPostgresFocusSessionRepo(db)
	gardenRepo := repository.NewPostgresGardenItemRepo(db)
	moodRepo := repository.NewPostgresMoodRepo(db)
	announcementRepo := repository.NewPostgresAnnouncementRepo(db)
	soundRepo := repository.NewPostgresSoundRepo(db)
	mixRepo := repository.NewPostgresSoundMixRepo(db)
	statsRepo := repository.NewPostgresStatsRepo(xdb)
	reportRepo := repository.NewPostgresReportRepo(xdb)

	// 2. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewAnnouncementSanitizer()

	// 3. ドメインサービスの初期化
	media := content.NewMediaStore(cfg.MediaRoot)
	statsService := stats.NewService(statsRepo, cfg.Location)

	return &services{
		auth: auth.NewService(userRepo, tokenRepo, profileRepo, collector, auth.ServiceConfig{
			TokenMaxAge: cfg.TokenLifetime(),
		}),
		user:          user.NewService(userRepo, profileRepo),
		task:          task.NewService(taskRepo),
		focus:         focus.NewService(sessionRepo, taskRepo, collector, cfg.Location),
		stats:         statsService,
		garden:        garden.NewService(statsService, statsRepo, gardenRepo, cfg.Location),
		mood:          mood.NewService(moodRepo, cfg.Location),
		announcements: content.NewAnnouncementService(announcementRepo, sanitizer),
		sounds: content.NewSoundService(soundRepo, media, ssrfGuard, content.SoundConfig{
			BaseURL:       cfg.BaseURL,
			MaxUploadSize: cfg.MaxUploadSize,
			ProbeEnabled:  cfg.SoundProbeEnabled,
			FetchTimeout:  cfg.SoundFetchTimeout,
			FetchMaxSize:  cfg.SoundFetchMaxSize,
		}),
		mixes: content.NewMixService(mixRepo, cat),
		admin: admin.NewService(reportRepo, cfg.Location),
		media: media,
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// buildRouter は全依存関係をワイヤリングしたHTTPハンドラーを構築する。
// 返されたRateLimiterはサーバー停止時にStopする。
func buildRouter(db *sql.DB, cfg *config.Config) (http.Handler, *middleware.RateLimiter, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 2. ウェルネスカタログ
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	// 3. ドメインサービス
	svc := newServices(db, cfg, collector, cat)
	if err := svc.media.EnsureDirs(); err != nil {
		return nil, nil, err
	}

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		TrustProxyHeaders: cfg.TrustProxy,
		Authenticator:     svc.auth,
		Authorizer:        svc.auth,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		AuthService:    svc.auth,
		ProfileService: svc.user,

		TaskService:   svc.task,
		FocusService:  svc.focus,
		StatsService:  svc.stats,
		GardenService: svc.garden,
		MoodService:   svc.mood,

		AnnouncementService: svc.announcements,
		SoundService:        svc.sounds,
		MaxUploadSize:       cfg.MaxUploadSize,
		Catalog:             cat,
		MixService:          svc.mixes,

		AdminService: svc.admin,

		MediaHandler: web.NewMediaHandler(cfg.MediaRoot),
		SPAHandler:   web.NewSPAHandler(cfg.StaticDir),
	}

	return handler.NewRouter(deps), rateLimiter, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDB(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	router, rateLimiter, err := buildRouter(db, cfg)
	if err != nil {
		return err
	}
	defer rateLimiter.Stop()

	// アップロードを受けるため書き込みタイムアウトは長めに取る
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れトークンの削除ジョブをTOKEN_CLEANUP_SCHEDULEに従って実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDB(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	collector := metrics.NewCollector(prometheus.NewRegistry())
	tokenRepo := repository.NewPostgresTokenRepo(db)
	authService := auth.NewService(
		repository.NewPostgresUserRepo(db), tokenRepo, repository.NewPostgresProfileRepo(db),
		collector, auth.ServiceConfig{TokenMaxAge: cfg.TokenLifetime()},
	)

	job := cleanup.NewCleanupJob(authService, slog.Default())
	scheduler, err := cleanup.NewScheduler(job, cfg.TokenCleanupSchedule, cfg.Location)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("worker starting",
		slog.String("token_cleanup_schedule", cfg.TokenCleanupSchedule),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runBootstrap は初回起動時の準備を行う。
// マイグレーション、メディアディレクトリの作成、同梱環境音マニフェストの同期を順に実行する。
// 何度実行しても結果は変わらない。
func runBootstrap(cfg *config.Config) error {
	if err := runMigrate(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	svc := newServices(db, cfg, metrics.Nop{}, cat)
	if err := svc.media.EnsureDirs(); err != nil {
		return err
	}

	manifestPath := filepath.Join(cfg.BootstrapDir, content.ManifestFile)
	entries, err := content.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	result, err := svc.sounds.SyncManifest(ctx, entries, filepath.Join(cfg.BootstrapDir, content.SoundsDir))
	if err != nil {
		return fmt.Errorf("failed to sync bundled sounds: %w", err)
	}

	slog.Info("bootstrap completed",
		slog.String("manifest", manifestPath),
		slog.Int("sounds_created", result.Created),
		slog.Int("sounds_skipped", result.Skipped),
	)
	return nil
}

// runCreateAdmin は管理者ユーザーを作成する。既存ユーザーの場合はパスワードを再設定して管理者にする。
func runCreateAdmin(cfg *config.Config, args []string) error {
	creds, err := parseCreateAdminArgs(args, os.Getenv, os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	authService := auth.NewService(
		repository.NewPostgresUserRepo(db), repository.NewPostgresTokenRepo(db), repository.NewPostgresProfileRepo(db),
		metrics.Nop{}, auth.ServiceConfig{TokenMaxAge: cfg.TokenLifetime()},
	)

	u, err := authService.CreateAdmin(ctx, creds.Username, creds.Password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("admin user ready",
		slog.String("user_id", u.ID),
		slog.String("username", u.Username),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
