package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// PostgresAnnouncementRepo はPostgreSQLを使用したお知らせリポジトリ。
type PostgresAnnouncementRepo struct {
	db *sql.DB
}

// NewPostgresAnnouncementRepo はPostgresAnnouncementRepoを生成する。
func NewPostgresAnnouncementRepo(db *sql.DB) *PostgresAnnouncementRepo {
	return &PostgresAnnouncementRepo{db: db}
}

const announcementColumns = `id, title, content, is_published, created_at`

func scanAnnouncement(s scanner) (*model.Announcement, error) {
	a := &model.Announcement{}
	if err := s.Scan(&a.ID, &a.Title, &a.Content, &a.IsPublished, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// List は作成日時の降順でお知らせを返す。
func (r *PostgresAnnouncementRepo) List(ctx context.Context, publishedOnly bool) ([]*model.Announcement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+announcementColumns+` FROM announcements
		 WHERE ($1 = false OR is_published = true)
		 ORDER BY created_at DESC`,
		publishedOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	var list []*model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate announcements: %w", err)
	}
	return list, nil
}

// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
func (r *PostgresAnnouncementRepo) FindByID(ctx context.Context, id string) (*model.Announcement, error) {
	a, err := scanAnnouncement(r.db.QueryRowContext(ctx,
		`SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find announcement: %w", err)
	}
	return a, nil
}

// Create はお知らせを作成する。
func (r *PostgresAnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO announcements (id, title, content, is_published, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Title, a.Content, a.IsPublished, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

// Update はお知らせを上書き更新する。
func (r *PostgresAnnouncementRepo) Update(ctx context.Context, a *model.Announcement) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE announcements SET title = $2, content = $3, is_published = $4 WHERE id = $1`,
		a.ID, a.Title, a.Content, a.IsPublished,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update announcement: %w", err)
	}
	return affected(result)
}

// Delete はお知らせを削除する。
func (r *PostgresAnnouncementRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete announcement: %w", err)
	}
	return affected(result)
}

// compile-time interface check
var _ AnnouncementRepository = (*PostgresAnnouncementRepo)(nil)
