// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーのみを作成する。
	Create(ctx context.Context, user *model.User) error

	// CreateWithProfileAndToken はユーザー、プロフィール、トークンを同一トランザクションで作成する。
	// ユーザー名が重複している場合は ErrUsernameTaken を返す。
	CreateWithProfileAndToken(ctx context.Context, user *model.User, profile *model.UserProfile, token *model.AuthToken) error

	// UpdatePassword はパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdateEmail はメールアドレスを更新する。
	UpdateEmail(ctx context.Context, id, email string) error
}

// TokenRepository は認証トークンの永続化インターフェース。
type TokenRepository interface {
	// IssueOrReuse はユーザーのトークンを発行する。
	// 有効なトークンが存在する場合はそれを返し、期限切れの場合はcandidateKeyで置き換える。
	IssueOrReuse(ctx context.Context, userID, candidateKey string, expiresAt time.Time) (*model.AuthToken, error)

	// FindValid は有効期限内のトークンを取得する。見つからない・期限切れの場合はnilを返す。
	FindValid(ctx context.Context, key string) (*model.AuthToken, error)

	// DeleteByUserID はユーザーのトークンを削除する。存在しない場合もエラーにしない。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpired は期限切れトークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ProfileRepository はユーザープロフィールの永続化インターフェース。
type ProfileRepository interface {
	// GetOrCreate はプロフィールを取得する。存在しない場合はデフォルト値で作成してから返す。
	GetOrCreate(ctx context.Context, userID, nickname string) (*model.UserProfile, error)

	// Update はプロフィールの編集可能フィールドを更新する。roleは更新しない。
	Update(ctx context.Context, profile *model.UserProfile) error

	// SetRole はロールを設定する。プロフィールが存在しない場合は作成する。
	SetRole(ctx context.Context, userID string, role model.Role) error
}

// TaskRepository はタスクの永続化インターフェース。
// 全操作はuser_idでスコープされる。
type TaskRepository interface {
	// List はフィルタ条件に一致するタスクを作成日時の降順で返す。
	List(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, error)

	// FindByID は指定ユーザーが所有するタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID, id string) (*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクを上書き更新する。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, task *model.Task) (bool, error)

	// Delete はタスクを削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, userID, id string) (bool, error)

	// ToggleToday はis_todayを単一のUPDATE文で反転し、反転後の値を返す。
	// 対象が存在しない場合はnilを返す。
	ToggleToday(ctx context.Context, userID, id string) (*bool, error)
}

// FocusSessionRepository は集中セッションの永続化インターフェース。
type FocusSessionRepository interface {
	// List はユーザーのセッションを作成日時の降順で返す。
	List(ctx context.Context, userID string) ([]*model.FocusSession, error)

	// FindByID は指定ユーザーが所有するセッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID, id string) (*model.FocusSession, error)

	// CreateWithGardenItem はセッションと派生ガーデンアイテムを同一トランザクションで作成する。
	// アイテムはsession_idをキーに取得または作成する。createdは今回作成したかどうか。
	CreateWithGardenItem(ctx context.Context, session *model.FocusSession, item *model.GardenItem) (stored *model.GardenItem, created bool, err error)

	// Update はセッションを上書き更新する。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, session *model.FocusSession) (bool, error)

	// Delete はセッションを削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, userID, id string) (bool, error)
}

// GardenItemRepository はガーデンアイテムの永続化インターフェース。
type GardenItemRepository interface {
	// ListByDateRange は[from, to]の日付範囲のアイテムを作成日時の降順で返す。
	ListByDateRange(ctx context.Context, userID string, from, to time.Time) ([]*model.GardenItem, error)
}

// MoodRepository は気分記録の永続化インターフェース。
type MoodRepository interface {
	// FindByDate は指定日の記録を取得する。見つからない場合はnilを返す。
	FindByDate(ctx context.Context, userID string, date time.Time) (*model.MoodRecord, error)

	// Upsert は(user_id, date)をキーに記録を作成または上書きする。
	Upsert(ctx context.Context, record *model.MoodRecord) (*model.MoodRecord, error)

	// ListSince はsince以降の記録を日付の降順で返す。
	ListSince(ctx context.Context, userID string, since time.Time) ([]*model.MoodRecord, error)
}

// AnnouncementRepository はお知らせの永続化インターフェース。
type AnnouncementRepository interface {
	// List は作成日時の降順でお知らせを返す。publishedOnlyがtrueの場合は公開済みのみ。
	List(ctx context.Context, publishedOnly bool) ([]*model.Announcement, error)
	// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Announcement, error)
	// Create はお知らせを作成する。
	Create(ctx context.Context, a *model.Announcement) error
	// Update はお知らせを上書き更新する。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, a *model.Announcement) (bool, error)
	// Delete はお知らせを削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// SoundRepository は環境音の永続化インターフェース。
type SoundRepository interface {
	// List は作成日時の降順で環境音を返す。publishedOnlyがtrueの場合は公開済みのみ。
	List(ctx context.Context, publishedOnly bool) ([]*model.AmbientSound, error)
	// FindByID は指定IDの環境音を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.AmbientSound, error)
	// KeyExists はkeyが使用済みかどうかを返す。
	KeyExists(ctx context.Context, key string) (bool, error)
	// Create は環境音を作成する。
	Create(ctx context.Context, s *model.AmbientSound) error
	// CreateIfKeyAbsent はkeyが未使用の場合のみ環境音を作成し、作成したかどうかを返す。
	CreateIfKeyAbsent(ctx context.Context, s *model.AmbientSound) (bool, error)
	// Update は環境音を上書き更新する。keyは更新しない。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, s *model.AmbientSound) (bool, error)
	// Delete は環境音を削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// SoundMixRepository はサウンドミックスの永続化インターフェース。
type SoundMixRepository interface {
	// ListByUser はユーザーのミックスを作成日時の降順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.SoundMix, error)
	// Create はミックスを作成する。
	Create(ctx context.Context, mix *model.SoundMix) error
}

// SessionStatRow は統計計算用の集中セッション1件分のデータ。
type SessionStatRow struct {
	CreatedAt       time.Time      `db:"created_at"`
	DurationMinutes int            `db:"duration_minutes"`
	IsCompleted     bool           `db:"is_completed"`
	TaskID          sql.NullString `db:"task_id"`
	Category        sql.NullString `db:"category"`
}

// SessionTotals はセッション件数の集計結果。
type SessionTotals struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
}

// TaskTotals はタスク件数の集計結果。
type TaskTotals struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
}

// StatsRepository は統計計算に必要な集計データの取得インターフェース。
type StatsRepository interface {
	// SessionsSince はsince以降に作成されたセッションを、紐付くタスクのカテゴリ付きで返す。
	SessionsSince(ctx context.Context, userID string, since time.Time) ([]SessionStatRow, error)

	// SessionDates はセッションが存在するローカル日付を降順で返す。
	SessionDates(ctx context.Context, userID string, loc *time.Location) ([]time.Time, error)

	// SessionTotals はセッションの総数と完了数を返す。
	SessionTotals(ctx context.Context, userID string) (SessionTotals, error)

	// TaskTotals はタスクの総数と完了数を返す。
	TaskTotals(ctx context.Context, userID string) (TaskTotals, error)
}

// AdminOverview は管理者向け全体集計。
type AdminOverview struct {
	TotalUsers        int            `db:"total_users"`
	TotalFocusMinutes int            `db:"total_focus_minutes"`
	TodayFocusMinutes int            `db:"today_focus_minutes"`
	TodaySessions     int            `db:"today_sessions"`
	TopScene          sql.NullString `db:"top_scene"`
	TodayPlanUsers    int            `db:"today_plan_users"`
}

// AdminUserRow は管理者向けユーザー一覧の1行。
type AdminUserRow struct {
	ID                string    `db:"id"`
	Username          string    `db:"username"`
	Nickname          string    `db:"nickname"`
	Role              string    `db:"role"`
	DateJoined        time.Time `db:"date_joined"`
	TotalFocusMinutes int       `db:"total_focus_minutes"`
	TotalSessions     int       `db:"total_sessions"`
}

// ReportRepository は管理者レポート用の集計インターフェース。
type ReportRepository interface {
	// Overview はtodayStart以降を「今日」として全体集計を返す。
	Overview(ctx context.Context, todayStart time.Time) (*AdminOverview, error)

	// ListUsers は登録日時の降順でユーザーごとの集計を返す。
	ListUsers(ctx context.Context) ([]AdminUserRow, error)
}
