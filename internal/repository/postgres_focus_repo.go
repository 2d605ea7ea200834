package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// PostgresFocusSessionRepo はPostgreSQLを使用した集中セッションリポジトリ。
type PostgresFocusSessionRepo struct {
	db *sql.DB
}

// NewPostgresFocusSessionRepo はPostgresFocusSessionRepoを生成する。
func NewPostgresFocusSessionRepo(db *sql.DB) *PostgresFocusSessionRepo {
	return &PostgresFocusSessionRepo{db: db}
}

const sessionColumns = `id, user_id, task_id, duration_minutes, is_completed, interrupted_reason, started_at, ended_at, created_at`

func scanSession(s scanner) (*model.FocusSession, error) {
	fs := &model.FocusSession{}
	var taskID sql.NullString
	var startedAt, endedAt sql.NullTime
	if err := s.Scan(&fs.ID, &fs.UserID, &taskID, &fs.DurationMinutes, &fs.IsCompleted,
		&fs.InterruptedReason, &startedAt, &endedAt, &fs.CreatedAt); err != nil {
		return nil, err
	}
	if taskID.Valid {
		id := taskID.String
		fs.TaskID = &id
	}
	fs.StartedAt = timePtr(startedAt)
	fs.EndedAt = timePtr(endedAt)
	return fs, nil
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// List はユーザーのセッションを作成日時の降順で返す。
func (r *PostgresFocusSessionRepo) List(ctx context.Context, userID string) ([]*model.FocusSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM focus_sessions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.FocusSession
	for rows.Next() {
		fs, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// FindByID は指定ユーザーが所有するセッションを取得する。見つからない場合はnilを返す。
func (r *PostgresFocusSessionRepo) FindByID(ctx context.Context, userID, id string) (*model.FocusSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM focus_sessions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	fs, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return fs, nil
}

// CreateWithGardenItem はセッションと派生ガーデンアイテムを同一トランザクションで作成する。
// アイテムはsession_idをキーに取得または作成し、createdは今回作成したかどうかを表す。
func (r *PostgresFocusSessionRepo) CreateWithGardenItem(ctx context.Context, fs *model.FocusSession, item *model.GardenItem) (*model.GardenItem, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO focus_sessions (id, user_id, task_id, duration_minutes, is_completed,
		     interrupted_reason, started_at, ended_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		fs.ID, fs.UserID, nullableString(fs.TaskID), fs.DurationMinutes, fs.IsCompleted,
		fs.InterruptedReason, nullableTime(fs.StartedAt), nullableTime(fs.EndedAt), fs.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert session: %w", err)
	}

	stored, created, err := getOrCreateGardenItem(ctx, tx, item)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stored, created, nil
}

// Update はセッションを上書き更新する。
func (r *PostgresFocusSessionRepo) Update(ctx context.Context, fs *model.FocusSession) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE focus_sessions SET task_id = $3, duration_minutes = $4, is_completed = $5,
		     interrupted_reason = $6, started_at = $7, ended_at = $8
		 WHERE id = $1 AND user_id = $2`,
		fs.ID, fs.UserID, nullableString(fs.TaskID), fs.DurationMinutes, fs.IsCompleted,
		fs.InterruptedReason, nullableTime(fs.StartedAt), nullableTime(fs.EndedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}
	return affected(result)
}

// Delete はセッションを削除する。
func (r *PostgresFocusSessionRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM focus_sessions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return affected(result)
}

// compile-time interface check
var _ FocusSessionRepository = (*PostgresFocusSessionRepo)(nil)
