package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresReportRepo は管理者レポート用の集計クエリをsqlxで実行するリポジトリ。
type PostgresReportRepo struct {
	db *sqlx.DB
}

// NewPostgresReportRepo はPostgresReportRepoを生成する。
func NewPostgresReportRepo(db *sqlx.DB) *PostgresReportRepo {
	return &PostgresReportRepo{db: db}
}

// Overview はtodayStart以降を「今日」として全体集計を返す。
// top_sceneはプロフィールで最も多く選ばれているdefault_scene。プロフィールがない場合はNULL。
func (r *PostgresReportRepo) Overview(ctx context.Context, todayStart time.Time) (*AdminOverview, error) {
	overview := &AdminOverview{}
	err := r.db.GetContext(ctx, overview,
		`SELECT
		     (SELECT count(*) FROM users) AS total_users,
		     (SELECT COALESCE(sum(duration_minutes), 0) FROM focus_sessions) AS total_focus_minutes,
		     (SELECT COALESCE(sum(duration_minutes), 0) FROM focus_sessions WHERE created_at >= $1) AS today_focus_minutes,
		     (SELECT count(*) FROM focus_sessions WHERE created_at >= $1) AS today_sessions,
		     (SELECT default_scene FROM user_profiles
		          GROUP BY default_scene ORDER BY count(*) DESC, default_scene LIMIT 1) AS top_scene,
		     (SELECT count(DISTINCT user_id) FROM tasks WHERE is_today) AS today_plan_users`,
		todayStart,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate admin overview: %w", err)
	}
	return overview, nil
}

// ListUsers は登録日時の降順でユーザーごとの集計を返す。
func (r *PostgresReportRepo) ListUsers(ctx context.Context) ([]AdminUserRow, error) {
	var rows []AdminUserRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT u.id, u.username,
		        COALESCE(p.nickname, '') AS nickname,
		        COALESCE(p.role, 'user') AS role,
		        u.date_joined,
		        COALESCE(s.minutes, 0) AS total_focus_minutes,
		        COALESCE(s.sessions, 0) AS total_sessions
		 FROM users u
		 LEFT JOIN user_profiles p ON p.user_id = u.id
		 LEFT JOIN (
		     SELECT user_id, sum(duration_minutes) AS minutes, count(*) AS sessions
		     FROM focus_sessions GROUP BY user_id
		 ) s ON s.user_id = u.id
		 ORDER BY u.date_joined DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin users: %w", err)
	}
	return rows, nil
}

// compile-time interface check
var _ ReportRepository = (*PostgresReportRepo)(nil)
