// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string
	BaseURL    string

	// Time zone（ローカル日付の境界に使用）
	TimeZone string
	Location *time.Location

	// Auth
	TokenMaxAge int // トークン有効期間（秒）

	// CORS
	CORSAllowedOrigin string

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral int
	RateLimitAuth    int

	// リバースプロキシのX-Forwarded-For等を信頼するか
	TrustProxy bool

	// Files
	MediaRoot     string
	StaticDir     string
	BootstrapDir  string
	CatalogPath   string
	MaxUploadSize int64

	// Sound URL fetch
	SoundProbeEnabled bool
	SoundFetchTimeout time.Duration
	SoundFetchMaxSize int64

	// Worker
	TokenCleanupSchedule string

	// Logging
	LogLevel string
}

// LoadDotEnv は.envファイルが存在すれば環境変数として読み込む。
// 既に設定済みの環境変数は上書きしない。ファイルが存在しない場合は何もしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、またはTIME_ZONEが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.TimeZone = getEnvString("TIME_ZONE", "Asia/Shanghai")
	cfg.TokenMaxAge = getEnvInt("TOKEN_MAX_AGE", 2592000)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)
	cfg.MediaRoot = getEnvString("MEDIA_ROOT", "./data/media")
	cfg.StaticDir = getEnvString("STATIC_DIR", "./static/app")
	cfg.BootstrapDir = getEnvString("BOOTSTRAP_DIR", "./bootstrap")
	cfg.CatalogPath = getEnvString("CATALOG_PATH", "")
	cfg.MaxUploadSize = getEnvInt64("MAX_UPLOAD_SIZE", 20<<20)
	cfg.SoundProbeEnabled = getEnvBool("SOUND_PROBE_ENABLED", false)
	cfg.SoundFetchTimeout = getEnvDuration("SOUND_FETCH_TIMEOUT", 10*time.Second)
	cfg.SoundFetchMaxSize = getEnvInt64("SOUND_FETCH_MAX_SIZE", 5<<20)
	cfg.TokenCleanupSchedule = getEnvString("TOKEN_CLEANUP_SCHEDULE", "@daily")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	// "Local"はPostgreSQLのAT TIME ZONEに渡せないためIANA名のみ受け付ける
	if cfg.TimeZone == "Local" {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: must be an IANA zone name", cfg.TimeZone)
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", cfg.TimeZone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// TokenLifetime はトークン有効期間をtime.Durationで返す。
func (c *Config) TokenLifetime() time.Duration {
	return time.Duration(c.TokenMaxAge) * time.Second
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
