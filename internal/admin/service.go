// Package admin は管理者向けの利用状況レポートを提供する。
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

// Overview はサービス全体の集計。
type Overview struct {
	TotalUsers        int
	TotalFocusMinutes int
	TodayFocusMinutes int
	TodaySessions     int
	TopScene          *string // プロフィールが1件もない場合はnil
	TodayPlanUsers    int
}

// Service は管理者レポートのサービス層。
type Service struct {
	repo repository.ReportRepository
	loc  *time.Location
	now  func() time.Time
}

// NewService はServiceを生成する。locの0時を「今日」の開始とする。
func NewService(repo repository.ReportRepository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// Overview は全体集計を返す。
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	todayStart := model.StartOfLocalDay(s.now(), s.loc)
	row, err := s.repo.Overview(ctx, todayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to build admin overview: %w", err)
	}

	o := &Overview{
		TotalUsers:        row.TotalUsers,
		TotalFocusMinutes: row.TotalFocusMinutes,
		TodayFocusMinutes: row.TodayFocusMinutes,
		TodaySessions:     row.TodaySessions,
		TodayPlanUsers:    row.TodayPlanUsers,
	}
	if row.TopScene.Valid {
		scene := row.TopScene.String
		o.TopScene = &scene
	}
	return o, nil
}

// ListUsers は登録日時の新しい順にユーザーごとの集計を返す。
func (s *Service) ListUsers(ctx context.Context) ([]repository.AdminUserRow, error) {
	rows, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if rows == nil {
		rows = []repository.AdminUserRow{}
	}
	return rows, nil
}
