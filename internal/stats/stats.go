// Package stats は集中セッションとガーデンアイテムから派生する統計値を計算する。
// 集計関数は副作用を持たず、データ取得はリポジトリに任せる。
package stats

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

// UncategorizedLabel はカテゴリが空の場合の集計キー。
const UncategorizedLabel = "未分类"

// 集計日数の制約
const (
	DefaultDays = 7
	MaxDays     = 365
)

// レベル計算の定数
const (
	ExpPerSession = 10
	ExpPerLevel   = 200
)

// stageThresholds はレベルの高い順に並んだ成長段階の表。
var stageThresholds = []struct {
	minLevel int
	stage    string
}{
	{6, "茂盛期"},
	{3, "成长期"},
	{1, "幼苗期"},
}

// DailyMinutes は1日分の集中時間。
type DailyMinutes struct {
	Date    string
	Minutes int
}

// Level はガーデンの成長レベル。
type Level struct {
	CurrentExp   int
	Level        int
	NextLevelExp int
	Stage        string
}

// Counts は件数の内訳。
type Counts struct {
	Total     int
	Completed int
	Aborted   int
}

// DaySummary はガーデンアイテムの1日分の集計。
type DaySummary struct {
	Date       string
	Counts     Counts
	ByCategory map[string]Counts
}

// Range は集計範囲の種類。
type Range string

const (
	RangeDay   Range = "day"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
)

// ParseDays は日数パラメータを解析する。未指定の場合は DefaultDays を返す。
func ParseDays(raw string) (int, error) {
	if raw == "" {
		return DefaultDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > MaxDays {
		return 0, model.NewValidationError(fmt.Sprintf("daysは1〜%dの整数で指定してください。", MaxDays))
	}
	return days, nil
}

// Streak は今日から遡って連続してセッションが存在する日数を返す。
// datesはローカル日付（UTCの0時）で、今日にセッションがなければ0を返す。
func Streak(dates []time.Time, today time.Time) int {
	seen := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		seen[d.Format(model.DateLayout)] = struct{}{}
	}

	streak := 0
	for day := today; ; day = day.AddDate(0, 0, -1) {
		if _, ok := seen[day.Format(model.DateLayout)]; !ok {
			break
		}
		streak++
	}
	return streak
}

// SumMinutes はセッションの合計分数と件数を返す。
func SumMinutes(rows []repository.SessionStatRow) (minutes, sessions int) {
	for _, r := range rows {
		minutes += r.DurationMinutes
	}
	return minutes, len(rows)
}

// DailySeries は[today-days+1, today]の各日の集中時間を昇順で返す。セッションのない日は0。
func DailySeries(rows []repository.SessionStatRow, loc *time.Location, today time.Time, days int) []DailyMinutes {
	start := today.AddDate(0, 0, -(days - 1))
	series := make([]DailyMinutes, days)
	index := make(map[string]int, days)
	for i := range series {
		key := start.AddDate(0, 0, i).Format(model.DateLayout)
		series[i] = DailyMinutes{Date: key}
		index[key] = i
	}

	for _, r := range rows {
		key := model.LocalDate(r.CreatedAt, loc).Format(model.DateLayout)
		if i, ok := index[key]; ok {
			series[i].Minutes += r.DurationMinutes
		}
	}
	return series
}

// CategoryMinutes はタスクに紐付くセッションのカテゴリ別集中時間を返す。
func CategoryMinutes(rows []repository.SessionStatRow) map[string]int {
	result := make(map[string]int)
	for _, r := range rows {
		if !r.TaskID.Valid {
			continue
		}
		result[categoryKey(r.Category.String)] += r.DurationMinutes
	}
	return result
}

// CompletionRate は完了率を返す。タスクがない場合は0。
func CompletionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total)
}

// ComputeLevel は完了セッション数からレベルを計算する。
func ComputeLevel(completedSessions int) Level {
	exp := completedSessions * ExpPerSession
	level := exp/ExpPerLevel + 1
	return Level{
		CurrentExp:   exp,
		Level:        level,
		NextLevelExp: level * ExpPerLevel,
		Stage:        StageForLevel(level),
	}
}

// StageForLevel はレベルに対応する成長段階を返す。
func StageForLevel(level int) string {
	for _, s := range stageThresholds {
		if level >= s.minLevel {
			return s.stage
		}
	}
	return stageThresholds[len(stageThresholds)-1].stage
}

// ParseRange は範囲と基準日のパラメータを解析し、対象期間[from, to]を返す。
// rangeParamが空の場合はdefに、dateParamが空の場合はtodayになる。
func ParseRange(rangeParam, dateParam string, def Range, today time.Time) (from, to time.Time, err error) {
	r := Range(rangeParam)
	if r == "" {
		r = def
	}

	anchor := today
	if dateParam != "" {
		anchor, err = time.Parse(model.DateLayout, dateParam)
		if err != nil {
			return time.Time{}, time.Time{}, model.NewInvalidDateError(dateParam)
		}
	}

	switch r {
	case RangeDay:
		return anchor, anchor, nil
	case RangeWeek:
		offset := (int(anchor.Weekday()) + 6) % 7
		from = anchor.AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 6), nil
	case RangeMonth:
		from = time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, -1), nil
	default:
		return time.Time{}, time.Time{}, model.NewInvalidRangeError(rangeParam, "day, week, month")
	}
}

// SummarizeGarden はアイテムを日付ごとに集計し、日付の昇順で返す。アイテムのない日は含まない。
func SummarizeGarden(items []*model.GardenItem) []DaySummary {
	byDate := make(map[string]*DaySummary)
	for _, item := range items {
		key := item.Date.Format(model.DateLayout)
		day, ok := byDate[key]
		if !ok {
			day = &DaySummary{Date: key, ByCategory: make(map[string]Counts)}
			byDate[key] = day
		}

		cat := categoryKey(item.Category)
		c := day.ByCategory[cat]
		add(&day.Counts, item.IsDead)
		add(&c, item.IsDead)
		day.ByCategory[cat] = c
	}

	result := make([]DaySummary, 0, len(byDate))
	for _, day := range byDate {
		result = append(result, *day)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}

func add(c *Counts, dead bool) {
	c.Total++
	if dead {
		c.Aborted++
	} else {
		c.Completed++
	}
}

func categoryKey(category string) string {
	if category == "" {
		return UncategorizedLabel
	}
	return category
}
