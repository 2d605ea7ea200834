package garden

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/stats"
)

type stubToday struct {
	stats *stats.TodayStats
	err   error
}

func (s stubToday) Today(context.Context, string) (*stats.TodayStats, error) {
	return s.stats, s.err
}

type stubStatsRepo struct {
	totals repository.SessionTotals
}

func (s stubStatsRepo) SessionsSince(context.Context, string, time.Time) ([]repository.SessionStatRow, error) {
	return nil, nil
}
func (s stubStatsRepo) SessionDates(context.Context, string, *time.Location) ([]time.Time, error) {
	return nil, nil
}
func (s stubStatsRepo) SessionTotals(context.Context, string) (repository.SessionTotals, error) {
	return s.totals, nil
}
func (s stubStatsRepo) TaskTotals(context.Context, string) (repository.TaskTotals, error) {
	return repository.TaskTotals{}, nil
}

type mockGardenRepo struct {
	listFn func(ctx context.Context, userID string, from, to time.Time) ([]*model.GardenItem, error)
}

func (m *mockGardenRepo) ListByDateRange(ctx context.Context, userID string, from, to time.Time) ([]*model.GardenItem, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, from, to)
	}
	return nil, nil
}

func newTestService(today TodayProvider, totals repository.SessionTotals, garden *mockGardenRepo) *Service {
	svc := NewService(today, stubStatsRepo{totals: totals}, garden, time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_Overview(t *testing.T) {
	today := stubToday{stats: &stats.TodayStats{TodayMinutes: 40, TodaySessions: 2, StreakDays: 3}}
	svc := newTestService(today, repository.SessionTotals{Total: 45, Completed: 40}, &mockGardenRepo{})

	got, err := svc.Overview(context.Background(), "u-1")
	require.NoError(t, err)

	assert.Equal(t, 45, got.TotalSessions)
	assert.Equal(t, 40, got.CompletedCount)
	assert.Equal(t, 5, got.AbortedCount)
	assert.Equal(t, 3, got.StreakDays)
	assert.Equal(t, 40, got.TodayFocusMinutes)
	assert.Equal(t, 40, got.TotalPomodoros)
	assert.Equal(t, 400, got.CurrentExp)
	assert.Equal(t, 3, got.Level.Level)
	assert.Equal(t, 600, got.NextLevelExp)
	assert.Equal(t, "成长期", got.Stage)
}

func TestService_Overview_TodayError(t *testing.T) {
	svc := newTestService(stubToday{err: errors.New("boom")}, repository.SessionTotals{}, &mockGardenRepo{})
	_, err := svc.Overview(context.Background(), "u-1")
	assert.Error(t, err)
}

func TestService_Items_DefaultsToToday(t *testing.T) {
	var from, to time.Time
	garden := &mockGardenRepo{
		listFn: func(_ context.Context, _ string, f, tt time.Time) ([]*model.GardenItem, error) {
			from, to = f, tt
			return nil, nil
		},
	}
	svc := newTestService(stubToday{}, repository.SessionTotals{}, garden)

	items, err := svc.Items(context.Background(), "u-1", "", "")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, "2024-03-13", from.Format(model.DateLayout))
	assert.Equal(t, "2024-03-13", to.Format(model.DateLayout))
}

func TestService_Items_InvalidParams(t *testing.T) {
	svc := newTestService(stubToday{}, repository.SessionTotals{}, &mockGardenRepo{})

	_, err := svc.Items(context.Background(), "u-1", "decade", "")
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeInvalidRange, apiErr.Code)

	_, err = svc.Items(context.Background(), "u-1", "day", "yesterday")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeInvalidDate, apiErr.Code)
}

func TestService_Summary_DefaultsToWeek(t *testing.T) {
	var from, to time.Time
	garden := &mockGardenRepo{
		listFn: func(_ context.Context, _ string, f, tt time.Time) ([]*model.GardenItem, error) {
			from, to = f, tt
			return []*model.GardenItem{
				{Date: f, Category: "study"},
				{Date: f, Category: "study", IsDead: true},
			}, nil
		},
	}
	svc := newTestService(stubToday{}, repository.SessionTotals{}, garden)

	got, err := svc.Summary(context.Background(), "u-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", from.Format(model.DateLayout))
	assert.Equal(t, "2024-03-17", to.Format(model.DateLayout))

	require.Len(t, got, 1)
	assert.Equal(t, stats.Counts{Total: 2, Completed: 1, Aborted: 1}, got[0].Counts)
}
