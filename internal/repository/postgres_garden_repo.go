package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// PostgresGardenItemRepo はPostgreSQLを使用したガーデンアイテムリポジトリ。
type PostgresGardenItemRepo struct {
	db *sql.DB
}

// NewPostgresGardenItemRepo はPostgresGardenItemRepoを生成する。
func NewPostgresGardenItemRepo(db *sql.DB) *PostgresGardenItemRepo {
	return &PostgresGardenItemRepo{db: db}
}

const gardenColumns = `id, user_id, session_id, date, category, item_type, is_dead, created_at`

func scanGardenItem(s scanner) (*model.GardenItem, error) {
	g := &model.GardenItem{}
	var sessionID sql.NullString
	var itemType string
	if err := s.Scan(&g.ID, &g.UserID, &sessionID, &g.Date, &g.Category, &itemType, &g.IsDead, &g.CreatedAt); err != nil {
		return nil, err
	}
	if sessionID.Valid {
		id := sessionID.String
		g.SessionID = &id
	}
	g.ItemType = model.ItemType(itemType)
	return g, nil
}

// execQueryer は*sql.DBと*sql.Txに共通するクエリ実行メソッド。
type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getOrCreateGardenItem はsession_idをキーにアイテムを取得または作成する。
// INSERT ... ON CONFLICT DO NOTHING の後に読み直すため、再試行や同時実行でも1件に収束する。
func getOrCreateGardenItem(ctx context.Context, q execQueryer, item *model.GardenItem) (*model.GardenItem, bool, error) {
	if item.SessionID == nil {
		return nil, false, fmt.Errorf("garden item requires a session id")
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO garden_items (id, user_id, session_id, date, category, item_type, is_dead, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (session_id) DO NOTHING`,
		item.ID, item.UserID, *item.SessionID, item.Date.Format(model.DateLayout),
		item.Category, string(item.ItemType), item.IsDead, item.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert garden item: %w", err)
	}
	created, err := affected(result)
	if err != nil {
		return nil, false, err
	}

	row := q.QueryRowContext(ctx,
		`SELECT `+gardenColumns+` FROM garden_items WHERE session_id = $1`,
		*item.SessionID,
	)
	stored, err := scanGardenItem(row)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read garden item: %w", err)
	}
	return stored, created, nil
}

// ListByDateRange は[from, to]の日付範囲のアイテムを作成日時の降順で返す。
func (r *PostgresGardenItemRepo) ListByDateRange(ctx context.Context, userID string, from, to time.Time) ([]*model.GardenItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gardenColumns+` FROM garden_items
		 WHERE user_id = $1 AND date BETWEEN $2 AND $3
		 ORDER BY created_at DESC`,
		userID, from.Format(model.DateLayout), to.Format(model.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list garden items: %w", err)
	}
	defer rows.Close()

	var items []*model.GardenItem
	for rows.Next() {
		g, err := scanGardenItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan garden item: %w", err)
		}
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate garden items: %w", err)
	}
	return items, nil
}

// compile-time interface check
var _ GardenItemRepository = (*PostgresGardenItemRepo)(nil)
