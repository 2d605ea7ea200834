// Package auth はユーザー登録、ログイン、トークン認証、権限チェックを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/metrics"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

// Capability は明示的な権限チェックの種類を表す。
// リソース所有者の確認はリポジトリのuser_id条件で行うため、ここでは扱わない。
type Capability string

// CapabilityAdmin はプロフィールのroleがadminであることを要求する。
const CapabilityAdmin Capability = "admin"

// usernameMaxLength はユーザー名の最大文字数。
const usernameMaxLength = 150

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	TokenMaxAge time.Duration // トークン有効期間
	BcryptCost  int           // 0の場合はbcrypt.DefaultCost
}

// Result は登録・ログイン成功時の結果を表す。
type Result struct {
	Token   *model.AuthToken
	User    *model.User
	Profile *model.UserProfile
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	tokenRepo   repository.TokenRepository
	profileRepo repository.ProfileRepository
	metrics     metrics.MetricsCollector
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	profileRepo repository.ProfileRepository,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		profileRepo: profileRepo,
		metrics:     collector,
		config:      config,
		now:         time.Now,
	}
}

// Register はユーザー、プロフィール、トークンを同一トランザクションで作成する。
// ユーザー名の重複は一意制約違反も含めてバリデーションエラーとして返す。
func (s *Service) Register(ctx context.Context, username, password, nickname string) (*Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, model.NewValidationError("ユーザー名とパスワードは必須です。")
	}
	if len([]rune(username)) > usernameMaxLength {
		return nil, model.NewValidationError(fmt.Sprintf("ユーザー名は%d文字以内で指定してください。", usernameMaxLength))
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	key, err := generateTokenKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		DateJoined:   now,
	}
	profile := model.NewDefaultProfile(user.ID, strings.TrimSpace(nickname))
	token := &model.AuthToken{
		Key:       key,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.TokenMaxAge),
	}

	if err := s.userRepo.CreateWithProfileAndToken(ctx, user, profile, token); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, model.NewUsernameTakenError()
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.metrics.RecordRegistration()
	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &Result{Token: token, User: user, Profile: profile}, nil
}

// Login は認証情報を検証し、トークンを発行または再利用する。
// 未登録ユーザーとパスワード不一致は同一のエラーを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, model.NewValidationError("ユーザー名とパスワードは必須です。")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordLoginFailure()
		return nil, model.NewLoginFailedError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.RecordLoginFailure()
		slog.Warn("login failed", slog.String("user_id", user.ID))
		return nil, model.NewLoginFailedError()
	}

	key, err := generateTokenKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	token, err := s.tokenRepo.IssueOrReuse(ctx, user.ID, key, s.now().Add(s.config.TokenMaxAge))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	profile, err := s.profileRepo.GetOrCreate(ctx, user.ID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return &Result{Token: token, User: user, Profile: profile}, nil
}

// Logout は呼び出し元のトークンを削除する。トークンが存在しない場合も成功とする。
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.tokenRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// Authenticate はトークンキーを検証し、所有ユーザーのIDを返す。
// 未指定・未登録・期限切れの場合は認証エラーを返す。
func (s *Service) Authenticate(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", model.NewUnauthorizedError()
	}
	token, err := s.tokenRepo.FindValid(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to find token: %w", err)
	}
	if token == nil {
		return "", model.NewUnauthorizedError()
	}
	return token.UserID, nil
}

// Authorize は呼び出し元が指定の権限を持つかを検証する。
func (s *Service) Authorize(ctx context.Context, capability Capability, callerID string) error {
	switch capability {
	case CapabilityAdmin:
		profile, err := s.profileRepo.GetOrCreate(ctx, callerID, "")
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}
		if profile.Role != model.RoleAdmin {
			return model.NewPermissionDeniedError()
		}
		return nil
	default:
		return fmt.Errorf("unknown capability: %s", capability)
	}
}

// CreateAdmin は管理者ユーザーを取得または作成し、パスワードを再設定してroleをadminにする。
func (s *Service) CreateAdmin(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, model.NewValidationError("ユーザー名とパスワードは必須です。")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		user = &model.User{
			ID:           uuid.New().String(),
			Username:     username,
			PasswordHash: string(hash),
			DateJoined:   s.now(),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create admin user: %w", err)
		}
	} else {
		if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			return nil, fmt.Errorf("failed to reset admin password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.profileRepo.SetRole(ctx, user.ID, model.RoleAdmin); err != nil {
		return nil, fmt.Errorf("failed to grant admin role: %w", err)
	}

	slog.Info("admin user ensured",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// PurgeExpiredTokens は期限切れトークンを削除し、削除件数を返す。
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokenRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired tokens: %w", err)
	}
	s.metrics.RecordExpiredTokensPurged(n)
	return n, nil
}

// ParseAuthorizationHeader は "Token <key>" または "Bearer <key>" 形式のヘッダーからキーを取り出す。
// 形式が不正な場合は空文字を返す。
func ParseAuthorizationHeader(header string) string {
	scheme, key, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		return strings.TrimSpace(key)
	}
	return ""
}

// generateTokenKey は暗号的に安全な64文字の16進トークンを生成する。
func generateTokenKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
