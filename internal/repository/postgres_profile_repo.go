package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// GetOrCreate はプロフィールを取得する。存在しない場合はデフォルト値で作成する。
// 同時アクセスでも1件のみ作成されるよう ON CONFLICT DO NOTHING で挿入してから読み直す。
func (r *PostgresProfileRepo) GetOrCreate(ctx context.Context, userID, nickname string) (*model.UserProfile, error) {
	def := model.NewDefaultProfile(userID, nickname)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, nickname, role, default_focus_minutes,
		     default_short_break_minutes, default_long_break_minutes, default_scene)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO NOTHING`,
		def.UserID, def.Nickname, string(def.Role), def.DefaultFocusMinutes,
		def.DefaultShortBreakMinutes, def.DefaultLongBreakMinutes, def.DefaultScene,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}

	p := &model.UserProfile{}
	var role string
	err = r.db.QueryRowContext(ctx,
		`SELECT user_id, nickname, role, avatar, bio, default_focus_minutes,
		        default_short_break_minutes, default_long_break_minutes, default_scene
		 FROM user_profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Nickname, &role, &p.Avatar, &p.Bio, &p.DefaultFocusMinutes,
		&p.DefaultShortBreakMinutes, &p.DefaultLongBreakMinutes, &p.DefaultScene)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	p.Role = model.Role(role)

	return p, nil
}

// Update はプロフィールの編集可能フィールドを更新する。
func (r *PostgresProfileRepo) Update(ctx context.Context, p *model.UserProfile) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_profiles SET
		     nickname = $2, avatar = $3, bio = $4, default_focus_minutes = $5,
		     default_short_break_minutes = $6, default_long_break_minutes = $7, default_scene = $8
		 WHERE user_id = $1`,
		p.UserID, p.Nickname, p.Avatar, p.Bio, p.DefaultFocusMinutes,
		p.DefaultShortBreakMinutes, p.DefaultLongBreakMinutes, p.DefaultScene,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// SetRole はロールを設定する。プロフィールが存在しない場合はデフォルト値で作成する。
func (r *PostgresProfileRepo) SetRole(ctx context.Context, userID string, role model.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, role) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`,
		userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
