package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// PostgresSoundRepo はPostgreSQLを使用した環境音リポジトリ。
type PostgresSoundRepo struct {
	db *sql.DB
}

// NewPostgresSoundRepo はPostgresSoundRepoを生成する。
func NewPostgresSoundRepo(db *sql.DB) *PostgresSoundRepo {
	return &PostgresSoundRepo{db: db}
}

const soundColumns = `id, name, key, file, file_url, is_published, created_at`

func scanSound(s scanner) (*model.AmbientSound, error) {
	a := &model.AmbientSound{}
	if err := s.Scan(&a.ID, &a.Name, &a.Key, &a.File, &a.FileURL, &a.IsPublished, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// List は作成日時の降順で環境音を返す。
func (r *PostgresSoundRepo) List(ctx context.Context, publishedOnly bool) ([]*model.AmbientSound, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+soundColumns+` FROM ambient_sounds
		 WHERE ($1 = false OR is_published = true)
		 ORDER BY created_at DESC`,
		publishedOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sounds: %w", err)
	}
	defer rows.Close()

	var list []*model.AmbientSound
	for rows.Next() {
		a, err := scanSound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sound: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sounds: %w", err)
	}
	return list, nil
}

// FindByID は指定IDの環境音を取得する。見つからない場合はnilを返す。
func (r *PostgresSoundRepo) FindByID(ctx context.Context, id string) (*model.AmbientSound, error) {
	a, err := scanSound(r.db.QueryRowContext(ctx,
		`SELECT `+soundColumns+` FROM ambient_sounds WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sound: %w", err)
	}
	return a, nil
}

// KeyExists はkeyが使用済みかどうかを返す。
func (r *PostgresSoundRepo) KeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ambient_sounds WHERE key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check sound key: %w", err)
	}
	return exists, nil
}

// Create は環境音を作成する。
func (r *PostgresSoundRepo) Create(ctx context.Context, a *model.AmbientSound) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ambient_sounds (id, name, key, file, file_url, is_published, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Name, a.Key, a.File, a.FileURL, a.IsPublished, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sound: %w", err)
	}
	return nil
}

// CreateIfKeyAbsent はkeyが未使用の場合のみ環境音を作成する。
func (r *PostgresSoundRepo) CreateIfKeyAbsent(ctx context.Context, a *model.AmbientSound) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO ambient_sounds (id, name, key, file, file_url, is_published, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (key) DO NOTHING`,
		a.ID, a.Name, a.Key, a.File, a.FileURL, a.IsPublished, a.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create sound: %w", err)
	}
	return affected(result)
}

// Update は環境音を上書き更新する。keyは変更しない。
func (r *PostgresSoundRepo) Update(ctx context.Context, a *model.AmbientSound) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE ambient_sounds SET name = $2, file = $3, file_url = $4, is_published = $5 WHERE id = $1`,
		a.ID, a.Name, a.File, a.FileURL, a.IsPublished,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update sound: %w", err)
	}
	return affected(result)
}

// Delete は環境音を削除する。
func (r *PostgresSoundRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ambient_sounds WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete sound: %w", err)
	}
	return affected(result)
}

// PostgresSoundMixRepo はPostgreSQLを使用したサウンドミックスリポジトリ。
// layersはPostgreSQLのtext[]として保存する。
type PostgresSoundMixRepo struct {
	db *sql.DB
}

// NewPostgresSoundMixRepo はPostgresSoundMixRepoを生成する。
func NewPostgresSoundMixRepo(db *sql.DB) *PostgresSoundMixRepo {
	return &PostgresSoundMixRepo{db: db}
}

// ListByUser はユーザーのミックスを作成日時の降順で返す。
func (r *PostgresSoundMixRepo) ListByUser(ctx context.Context, userID string) ([]*model.SoundMix, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, layers, created_at FROM sound_mixes
		 WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sound mixes: %w", err)
	}
	defer rows.Close()

	var mixes []*model.SoundMix
	for rows.Next() {
		m := &model.SoundMix{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, pq.Array(&m.Layers), &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sound mix: %w", err)
		}
		mixes = append(mixes, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sound mixes: %w", err)
	}
	return mixes, nil
}

// Create はミックスを作成する。
func (r *PostgresSoundMixRepo) Create(ctx context.Context, m *model.SoundMix) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sound_mixes (id, user_id, name, layers, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.UserID, m.Name, pq.Array(m.Layers), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sound mix: %w", err)
	}
	return nil
}

// compile-time interface check
var (
	_ SoundRepository    = (*PostgresSoundRepo)(nil)
	_ SoundMixRepository = (*PostgresSoundMixRepo)(nil)
)
