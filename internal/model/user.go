package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Email        string
	DateJoined   time.Time
}

// AuthToken はユーザーに発行される不透明なBearerトークンを表す。
// 1ユーザーにつき有効なトークンは1つのみ。
type AuthToken struct {
	Key       string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
)

// プロフィールのデフォルト値
const (
	DefaultFocusMinutes      = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15
	DefaultScene             = "rain"
)

// UserProfile はユーザーのプロフィールと集中設定を表す。
// Userと1:1で、初回アクセス時に遅延作成される。
type UserProfile struct {
	UserID                   string
	Nickname                 string
	Role                     Role
	Avatar                   string
	Bio                      string
	DefaultFocusMinutes      int
	DefaultShortBreakMinutes int
	DefaultLongBreakMinutes  int
	DefaultScene             string
}

// NewDefaultProfile はデフォルト値を設定したプロフィールを生成する。
func NewDefaultProfile(userID, nickname string) *UserProfile {
	return &UserProfile{
		UserID:                   userID,
		Nickname:                 nickname,
		Role:                     RoleUser,
		DefaultFocusMinutes:      DefaultFocusMinutes,
		DefaultShortBreakMinutes: DefaultShortBreakMinutes,
		DefaultLongBreakMinutes:  DefaultLongBreakMinutes,
		DefaultScene:             DefaultScene,
	}
}

// DisplayName はニックネームが空の場合にユーザー名を返す。
func DisplayName(profile *UserProfile, username string) string {
	if profile != nil && profile.Nickname != "" {
		return profile.Nickname
	}
	return username
}
