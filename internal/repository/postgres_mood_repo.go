package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// PostgresMoodRepo はPostgreSQLを使用した気分記録リポジトリ。
type PostgresMoodRepo struct {
	db *sql.DB
}

// NewPostgresMoodRepo はPostgresMoodRepoを生成する。
func NewPostgresMoodRepo(db *sql.DB) *PostgresMoodRepo {
	return &PostgresMoodRepo{db: db}
}

const moodColumns = `id, user_id, date, mood, note, updated_at`

func scanMood(s scanner) (*model.MoodRecord, error) {
	m := &model.MoodRecord{}
	if err := s.Scan(&m.ID, &m.UserID, &m.Date, &m.Mood, &m.Note, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

// FindByDate は指定日の記録を取得する。見つからない場合はnilを返す。
func (r *PostgresMoodRepo) FindByDate(ctx context.Context, userID string, date time.Time) (*model.MoodRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+moodColumns+` FROM mood_records WHERE user_id = $1 AND date = $2`,
		userID, date.Format(model.DateLayout),
	)
	m, err := scanMood(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find mood record: %w", err)
	}
	return m, nil
}

// Upsert は(user_id, date)をキーに記録を作成または上書きする。
// 同日に複数回書き込んだ場合は最後の書き込みが残る。
func (r *PostgresMoodRepo) Upsert(ctx context.Context, record *model.MoodRecord) (*model.MoodRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO mood_records (id, user_id, date, mood, note, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (user_id, date) DO UPDATE SET
		     mood = EXCLUDED.mood, note = EXCLUDED.note, updated_at = now()
		 RETURNING `+moodColumns,
		record.ID, record.UserID, record.Date.Format(model.DateLayout), record.Mood, record.Note,
	)
	m, err := scanMood(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert mood record: %w", err)
	}
	return m, nil
}

// ListSince はsince以降の記録を日付の降順で返す。
func (r *PostgresMoodRepo) ListSince(ctx context.Context, userID string, since time.Time) ([]*model.MoodRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+moodColumns+` FROM mood_records
		 WHERE user_id = $1 AND date >= $2
		 ORDER BY date DESC`,
		userID, since.Format(model.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list mood records: %w", err)
	}
	defer rows.Close()

	var records []*model.MoodRecord
	for rows.Next() {
		m, err := scanMood(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mood record: %w", err)
		}
		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mood records: %w", err)
	}
	return records, nil
}

// compile-time interface check
var _ MoodRepository = (*PostgresMoodRepo)(nil)
