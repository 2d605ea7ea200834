package stats

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

var shanghai = time.FixedZone("Asia/Shanghai", 8*3600)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDays(t *testing.T) {
	d, err := ParseDays("")
	require.NoError(t, err)
	assert.Equal(t, 7, d)

	d, err = ParseDays("30")
	require.NoError(t, err)
	assert.Equal(t, 30, d)

	for _, raw := range []string{"0", "366", "-1", "abc"} {
		_, err := ParseDays(raw)
		var apiErr *model.APIError
		if assert.True(t, errors.As(err, &apiErr), "days=%s", raw) {
			assert.Equal(t, model.ErrCodeValidation, apiErr.Code)
		}
	}
}

func TestStreak(t *testing.T) {
	today := day("2024-03-10")

	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{"today and yesterday only", []time.Time{day("2024-03-10"), day("2024-03-09"), day("2024-03-07")}, 2},
		{"no session today", []time.Time{day("2024-03-09"), day("2024-03-08")}, 0},
		{"no sessions", nil, 0},
		{"today only", []time.Time{day("2024-03-10")}, 1},
		{"across month boundary", []time.Time{day("2024-03-02"), day("2024-03-01"), day("2024-02-29")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(tt.dates, today))
		})
	}

	assert.Equal(t, 3, Streak([]time.Time{day("2024-03-02"), day("2024-03-01"), day("2024-02-29")}, day("2024-03-02")))
}

func TestSumMinutes(t *testing.T) {
	rows := []repository.SessionStatRow{{DurationMinutes: 25}, {DurationMinutes: 15}}
	minutes, sessions := SumMinutes(rows)
	assert.Equal(t, 40, minutes)
	assert.Equal(t, 2, sessions)
}

func TestDailySeries_ZeroFilled(t *testing.T) {
	today := day("2024-03-10")
	rows := []repository.SessionStatRow{
		// 上海の 03-10 08:00
		{CreatedAt: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), DurationMinutes: 25},
		// UTC では 03-07 だが上海では 03-08
		{CreatedAt: time.Date(2024, 3, 7, 20, 0, 0, 0, time.UTC), DurationMinutes: 10},
		// 範囲外
		{CreatedAt: time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC), DurationMinutes: 99},
	}

	series := DailySeries(rows, shanghai, today, 7)
	require.Len(t, series, 7)
	assert.Equal(t, "2024-03-04", series[0].Date)
	assert.Equal(t, "2024-03-10", series[6].Date)

	got := map[string]int{}
	total := 0
	for _, d := range series {
		got[d.Date] = d.Minutes
		total += d.Minutes
	}
	assert.Equal(t, 25, got["2024-03-10"])
	assert.Equal(t, 10, got["2024-03-08"])
	assert.Equal(t, 35, total)
}

func TestCategoryMinutes(t *testing.T) {
	rows := []repository.SessionStatRow{
		{DurationMinutes: 25, TaskID: sql.NullString{String: "t1", Valid: true}, Category: sql.NullString{String: "study", Valid: true}},
		{DurationMinutes: 5, TaskID: sql.NullString{String: "t2", Valid: true}, Category: sql.NullString{String: "", Valid: true}},
		{DurationMinutes: 50},
	}
	assert.Equal(t, map[string]int{"study": 25, UncategorizedLabel: 5}, CategoryMinutes(rows))
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, CompletionRate(0, 0))
	assert.InDelta(t, 0.25, CompletionRate(1, 4), 1e-9)
}

func TestComputeLevel(t *testing.T) {
	tests := []struct {
		completed int
		want      Level
	}{
		{0, Level{CurrentExp: 0, Level: 1, NextLevelExp: 200, Stage: "幼苗期"}},
		{19, Level{CurrentExp: 190, Level: 1, NextLevelExp: 200, Stage: "幼苗期"}},
		{40, Level{CurrentExp: 400, Level: 3, NextLevelExp: 600, Stage: "成长期"}},
		{100, Level{CurrentExp: 1000, Level: 6, NextLevelExp: 1200, Stage: "茂盛期"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeLevel(tt.completed), "completed=%d", tt.completed)
	}
}

func TestParseRange(t *testing.T) {
	today := day("2024-03-13") // 水曜日

	tests := []struct {
		name     string
		rng      string
		date     string
		from, to string
	}{
		{"default day", "", "", "2024-03-13", "2024-03-13"},
		{"week from wednesday", "week", "", "2024-03-11", "2024-03-17"},
		{"week from sunday", "week", "2024-03-17", "2024-03-11", "2024-03-17"},
		{"week from monday", "week", "2024-03-11", "2024-03-11", "2024-03-17"},
		{"leap february", "month", "2024-02-10", "2024-02-01", "2024-02-29"},
		{"december", "month", "2023-12-31", "2023-12-01", "2023-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := ParseRange(tt.rng, tt.date, RangeDay, today)
			require.NoError(t, err)
			assert.Equal(t, tt.from, from.Format(model.DateLayout))
			assert.Equal(t, tt.to, to.Format(model.DateLayout))
		})
	}
}

func TestParseRange_Errors(t *testing.T) {
	today := day("2024-03-13")

	_, _, err := ParseRange("year", "", RangeDay, today)
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeInvalidRange, apiErr.Code)

	_, _, err = ParseRange("day", "2024-13-01", RangeDay, today)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeInvalidDate, apiErr.Code)
}

func TestSummarizeGarden(t *testing.T) {
	items := []*model.GardenItem{
		{Date: day("2024-03-12"), Category: "study", IsDead: false},
		{Date: day("2024-03-11"), Category: "", IsDead: true},
		{Date: day("2024-03-12"), Category: "study", IsDead: true},
		{Date: day("2024-03-12"), Category: "work", IsDead: false},
	}

	got := SummarizeGarden(items)
	require.Len(t, got, 2)

	assert.Equal(t, "2024-03-11", got[0].Date)
	assert.Equal(t, Counts{Total: 1, Aborted: 1}, got[0].Counts)
	assert.Equal(t, Counts{Total: 1, Aborted: 1}, got[0].ByCategory[UncategorizedLabel])

	assert.Equal(t, "2024-03-12", got[1].Date)
	assert.Equal(t, Counts{Total: 3, Completed: 2, Aborted: 1}, got[1].Counts)
	assert.Equal(t, Counts{Total: 2, Completed: 1, Aborted: 1}, got[1].ByCategory["study"])
	assert.Equal(t, Counts{Total: 1, Completed: 1}, got[1].ByCategory["work"])
}

func TestSummarizeGarden_Empty(t *testing.T) {
	got := SummarizeGarden(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
