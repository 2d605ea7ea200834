package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

const taskColumns = `id, user_id, title, category, status, priority, deadline, is_today, estimated_pomodoros, created_at`

// scanner はsql.Rowとsql.Rowsの共通インターフェース。
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*model.Task, error) {
	t := &model.Task{}
	var status, priority string
	var deadline sql.NullTime
	var estimated sql.NullInt64
	if err := s.Scan(&t.ID, &t.UserID, &t.Title, &t.Category, &status, &priority,
		&deadline, &t.IsToday, &estimated, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	t.Priority = model.TaskPriority(priority)
	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}
	if estimated.Valid {
		n := int(estimated.Int64)
		t.EstimatedPomodoros = &n
	}
	return t, nil
}

// nullableDate は日付をDATE型パラメータとして渡せる形式に変換する。
func nullableDate(t *model.Task) any {
	if t.Deadline == nil {
		return nil
	}
	return t.Deadline.Format(model.DateLayout)
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

// List はフィルタ条件に一致するタスクを作成日時の降順で返す。
func (r *PostgresTaskRepo) List(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, error) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.Category != nil {
		add("category = $%d", *filter.Category)
	}
	if filter.IsToday != nil {
		add("is_today = $%d", *filter.IsToday)
	}
	if filter.Priority != nil {
		add("priority = $%d", string(*filter.Priority))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// FindByID は指定ユーザーが所有するタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, userID, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return t, nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, t *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, category, status, priority, deadline,
		     is_today, estimated_pomodoros, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, t.Title, t.Category, string(t.Status), string(t.Priority),
		nullableDate(t), t.IsToday, nullableInt(t.EstimatedPomodoros), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Update はタスクを上書き更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, t *model.Task) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $3, category = $4, status = $5, priority = $6,
		     deadline = $7, is_today = $8, estimated_pomodoros = $9
		 WHERE id = $1 AND user_id = $2`,
		t.ID, t.UserID, t.Title, t.Category, string(t.Status), string(t.Priority),
		nullableDate(t), t.IsToday, nullableInt(t.EstimatedPomodoros),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update task: %w", err)
	}
	return affected(result)
}

// Delete はタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	return affected(result)
}

// ToggleToday はis_todayを単一のUPDATE文で反転する。
// 他ユーザーのタスクはWHERE句で除外されるため変更されない。
func (r *PostgresTaskRepo) ToggleToday(ctx context.Context, userID, id string) (*bool, error) {
	var isToday bool
	err := r.db.QueryRowContext(ctx,
		`UPDATE tasks SET is_today = NOT is_today
		 WHERE id = $1 AND user_id = $2
		 RETURNING is_today`,
		id, userID,
	).Scan(&isToday)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update is_today: %w", err)
	}
	return &isToday, nil
}

// affected は更新系クエリが1件以上の行に作用したかを返す。
func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
