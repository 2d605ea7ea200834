package model

import "time"

// FocusSession は完了または中断された1回の集中セッション（ポモドーロ）を表す。
type FocusSession struct {
	ID                string
	UserID            string
	TaskID            *string // タスク削除時はNULLになる
	DurationMinutes   int
	IsCompleted       bool
	InterruptedReason string
	StartedAt         *time.Time
	EndedAt           *time.Time
	CreatedAt         time.Time
}

// ItemType はガーデンアイテムの見た目の種類を表す。
type ItemType string

const (
	ItemTypeTree   ItemType = "tree"
	ItemTypeFlower ItemType = "flower"
	ItemTypeStone  ItemType = "stone"
)

// deadPrefix は中断されたセッション由来のアイテムに付与される接頭辞。
const deadPrefix = "dead_"

// Dead は枯れた状態のアイテム種別を返す。
func (t ItemType) Dead() ItemType {
	return ItemType(deadPrefix + string(t))
}

// GardenItem は集中セッションから派生するガーデンの装飾アイテムを表す。
// 1セッションにつき最大1件。
type GardenItem struct {
	ID        string
	UserID    string
	SessionID *string // セッション削除時はNULLになる
	Date      time.Time
	Category  string
	ItemType  ItemType
	IsDead    bool
	CreatedAt time.Time
}
