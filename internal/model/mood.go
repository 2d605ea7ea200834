package model

import "time"

// 気分スコアの範囲
const (
	MoodMin     = 1
	MoodMax     = 5
	MoodDefault = 3
)

// MoodRecord は1ユーザー1日1件の気分記録を表す。
type MoodRecord struct {
	ID        string
	UserID    string
	Date      time.Time
	Mood      int
	Note      string
	UpdatedAt time.Time
}
