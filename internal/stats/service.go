package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

// TodayStats は今日の集中状況。
type TodayStats struct {
	TodayMinutes  int
	TodaySessions int
	StreakDays    int
}

// Overview は直近N日間の集計。
type Overview struct {
	DailyMinutes   []DailyMinutes
	CategoryStats  map[string]int
	CompletionRate float64
	TotalTasks     int
	CompletedTasks int
}

// Service は統計情報を提供する。locの暦日を「1日」として扱う。
type Service struct {
	repo repository.StatsRepository
	loc  *time.Location
	now  func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.StatsRepository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// Location は集計に使用するタイムゾーンを返す。
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now は現在時刻を返す。
func (s *Service) Now() time.Time {
	return s.now()
}

// Today はローカル日付で今日の集中時間、セッション数、連続日数を返す。
func (s *Service) Today(ctx context.Context, userID string) (*TodayStats, error) {
	now := s.now()
	rows, err := s.repo.SessionsSince(ctx, userID, model.StartOfLocalDay(now, s.loc))
	if err != nil {
		return nil, fmt.Errorf("failed to load today's sessions: %w", err)
	}
	minutes, sessions := SumMinutes(rows)

	dates, err := s.repo.SessionDates(ctx, userID, s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to load session dates: %w", err)
	}

	return &TodayStats{
		TodayMinutes:  minutes,
		TodaySessions: sessions,
		StreakDays:    Streak(dates, model.LocalDate(now, s.loc)),
	}, nil
}

// Overview は直近days日間の日別集中時間、カテゴリ別集中時間、タスク完了率を返す。
func (s *Service) Overview(ctx context.Context, userID string, days int) (*Overview, error) {
	if days < 1 || days > MaxDays {
		return nil, model.NewValidationError(fmt.Sprintf("daysは1〜%dの整数で指定してください。", MaxDays))
	}

	today := model.LocalDate(s.now(), s.loc)
	start := today.AddDate(0, 0, -(days - 1))
	since := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc)

	rows, err := s.repo.SessionsSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	tasks, err := s.repo.TaskTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task totals: %w", err)
	}

	return &Overview{
		DailyMinutes:   DailySeries(rows, s.loc, today, days),
		CategoryStats:  CategoryMinutes(rows),
		CompletionRate: CompletionRate(tasks.Completed, tasks.Total),
		TotalTasks:     tasks.Total,
		CompletedTasks: tasks.Completed,
	}, nil
}
