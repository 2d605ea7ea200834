// Package garden はガーデンの成長状況とアイテム一覧を提供する。
package garden

import (
	"context"
	"fmt"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/stats"
)

// TodayProvider は今日の集中状況を返すインターフェース。
type TodayProvider interface {
	Today(ctx context.Context, userID string) (*stats.TodayStats, error)
}

// Overview はガーデンの活動量と成長レベルをまとめたもの。
type Overview struct {
	TotalSessions     int
	CompletedCount    int
	AbortedCount      int
	StreakDays        int
	TodayFocusMinutes int
	TotalPomodoros    int
	stats.Level
}

// Service はガーデン表示のサービス層。
type Service struct {
	today      TodayProvider
	statsRepo  repository.StatsRepository
	gardenRepo repository.GardenItemRepository
	loc        *time.Location
	now        func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	today TodayProvider,
	statsRepo repository.StatsRepository,
	gardenRepo repository.GardenItemRepository,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		today:      today,
		statsRepo:  statsRepo,
		gardenRepo: gardenRepo,
		loc:        loc,
		now:        time.Now,
	}
}

// Overview はセッション数、連続日数、今日の集中時間とレベルを返す。
func (s *Service) Overview(ctx context.Context, userID string) (*Overview, error) {
	totals, err := s.statsRepo.SessionTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session totals: %w", err)
	}
	today, err := s.today.Today(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Overview{
		TotalSessions:     totals.Total,
		CompletedCount:    totals.Completed,
		AbortedCount:      totals.Total - totals.Completed,
		StreakDays:        today.StreakDays,
		TodayFocusMinutes: today.TodayMinutes,
		TotalPomodoros:    totals.Completed,
		Level:             stats.ComputeLevel(totals.Completed),
	}, nil
}

// Items は指定範囲のアイテムを新しい順に返す。rangeの既定はday。
func (s *Service) Items(ctx context.Context, userID, rangeParam, dateParam string) ([]*model.GardenItem, error) {
	from, to, err := stats.ParseRange(rangeParam, dateParam, stats.RangeDay, s.localToday())
	if err != nil {
		return nil, err
	}
	items, err := s.gardenRepo.ListByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list garden items: %w", err)
	}
	if items == nil {
		items = []*model.GardenItem{}
	}
	return items, nil
}

// Summary は指定範囲のアイテムを日別、カテゴリ別に集計する。rangeの既定はweek。
func (s *Service) Summary(ctx context.Context, userID, rangeParam, dateParam string) ([]stats.DaySummary, error) {
	from, to, err := stats.ParseRange(rangeParam, dateParam, stats.RangeWeek, s.localToday())
	if err != nil {
		return nil, err
	}
	items, err := s.gardenRepo.ListByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list garden items: %w", err)
	}
	return stats.SummarizeGarden(items), nil
}

func (s *Service) localToday() time.Time {
	return model.LocalDate(s.now(), s.loc)
}
