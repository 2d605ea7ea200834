package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStatsRepo は統計用の集計クエリをsqlxで実行するリポジトリ。
type PostgresStatsRepo struct {
	db *sqlx.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sqlx.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// SessionsSince はsince以降に作成されたセッションを、紐付くタスクのカテゴリ付きで返す。
func (r *PostgresStatsRepo) SessionsSince(ctx context.Context, userID string, since time.Time) ([]SessionStatRow, error) {
	var rows []SessionStatRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT fs.created_at, fs.duration_minutes, fs.is_completed, fs.task_id, t.category
		 FROM focus_sessions fs
		 LEFT JOIN tasks t ON t.id = fs.task_id
		 WHERE fs.user_id = $1 AND fs.created_at >= $2
		 ORDER BY fs.created_at`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions for stats: %w", err)
	}
	return rows, nil
}

// SessionDates はセッションが存在するローカル日付を降順で返す。
func (r *PostgresStatsRepo) SessionDates(ctx context.Context, userID string, loc *time.Location) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.SelectContext(ctx, &dates,
		`SELECT DISTINCT (created_at AT TIME ZONE $2)::date AS day
		 FROM focus_sessions
		 WHERE user_id = $1
		 ORDER BY day DESC`,
		userID, loc.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select session dates: %w", err)
	}
	return dates, nil
}

// SessionTotals はセッションの総数と完了数を返す。
func (r *PostgresStatsRepo) SessionTotals(ctx context.Context, userID string) (SessionTotals, error) {
	var totals SessionTotals
	err := r.db.GetContext(ctx, &totals,
		`SELECT count(*) AS total, count(*) FILTER (WHERE is_completed) AS completed
		 FROM focus_sessions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return SessionTotals{}, fmt.Errorf("failed to count sessions: %w", err)
	}
	return totals, nil
}

// TaskTotals はタスクの総数と完了数を返す。
func (r *PostgresStatsRepo) TaskTotals(ctx context.Context, userID string) (TaskTotals, error) {
	var totals TaskTotals
	err := r.db.GetContext(ctx, &totals,
		`SELECT count(*) AS total, count(*) FILTER (WHERE status = 'done') AS completed
		 FROM tasks WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return TaskTotals{}, fmt.Errorf("failed to count tasks: %w", err)
	}
	return totals, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
