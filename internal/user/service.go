// Package user はユーザープロフィールのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

// 入力値の制約
const (
	nicknameMaxLength = 50
	sceneMaxLength    = 50
	emailMaxLength    = 254
	minutesMin        = 1
	minutesMax        = 180
)

// Profile はユーザー情報とプロフィールを合わせた表示用データ。
type Profile struct {
	User    *model.User
	Profile *model.UserProfile
}

// ProfilePatch はプロフィールの部分更新内容。nilのフィールドは変更しない。
// role と username は本人からは変更できないため含まない。
type ProfilePatch struct {
	Nickname                 *string
	Email                    *string
	Avatar                   *string
	Bio                      *string
	DefaultFocusMinutes      *int
	DefaultShortBreakMinutes *int
	DefaultLongBreakMinutes  *int
	DefaultScene             *string
}

// Service はプロフィール管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository) *Service {
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
	}
}

// GetProfile はユーザーのプロフィールを取得する。存在しない場合はデフォルト値で作成する。
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	profile, err := s.profileRepo.GetOrCreate(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}

	return &Profile{User: user, Profile: profile}, nil
}

// UpdateProfile はプロフィールを部分更新する。PUTとPATCHのどちらも部分更新として扱う。
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	current, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := current.Profile
	if patch.Nickname != nil {
		p.Nickname = strings.TrimSpace(*patch.Nickname)
	}
	if patch.Avatar != nil {
		p.Avatar = *patch.Avatar
	}
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	if patch.DefaultFocusMinutes != nil {
		p.DefaultFocusMinutes = *patch.DefaultFocusMinutes
	}
	if patch.DefaultShortBreakMinutes != nil {
		p.DefaultShortBreakMinutes = *patch.DefaultShortBreakMinutes
	}
	if patch.DefaultLongBreakMinutes != nil {
		p.DefaultLongBreakMinutes = *patch.DefaultLongBreakMinutes
	}
	if patch.DefaultScene != nil {
		p.DefaultScene = strings.TrimSpace(*patch.DefaultScene)
	}

	if err := s.profileRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if err := s.userRepo.UpdateEmail(ctx, userID, email); err != nil {
			return nil, fmt.Errorf("メールアドレスの更新に失敗しました: %w", err)
		}
		current.User.Email = email
	}

	slog.Info("profile updated", slog.String("user_id", userID))
	return current, nil
}

func validatePatch(patch ProfilePatch) error {
	if patch.Nickname != nil && len([]rune(strings.TrimSpace(*patch.Nickname))) > nicknameMaxLength {
		return model.NewValidationError(fmt.Sprintf("ニックネームは%d文字以内で指定してください。", nicknameMaxLength))
	}
	if patch.DefaultScene != nil {
		scene := strings.TrimSpace(*patch.DefaultScene)
		if scene == "" || len([]rune(scene)) > sceneMaxLength {
			return model.NewValidationError(fmt.Sprintf("default_scene は1〜%d文字で指定してください。", sceneMaxLength))
		}
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email != "" && (!strings.Contains(email, "@") || len(email) > emailMaxLength) {
			return model.NewValidationError("メールアドレスの形式が正しくありません。")
		}
	}

	minutes := []struct {
		field string
		value *int
	}{
		{"default_focus_minutes", patch.DefaultFocusMinutes},
		{"default_short_break_minutes", patch.DefaultShortBreakMinutes},
		{"default_long_break_minutes", patch.DefaultLongBreakMinutes},
	}
	for _, m := range minutes {
		if m.value != nil && (*m.value < minutesMin || *m.value > minutesMax) {
			return model.NewValidationError(fmt.Sprintf("%s は%d〜%dの範囲で指定してください。", m.field, minutesMin, minutesMax))
		}
	}
	return nil
}
