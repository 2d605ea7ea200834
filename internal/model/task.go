package model

import "time"

// TaskStatus はタスクの進捗状態を表す。
type TaskStatus string

const (
	TaskStatusTodo  TaskStatus = "todo"
	TaskStatusDoing TaskStatus = "doing"
	TaskStatusDone  TaskStatus = "done"
)

// Valid は定義済みの状態かどうかを返す。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusDoing, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority はタスクの優先度を表す。
type TaskPriority string

const (
	TaskPriorityNormal    TaskPriority = "normal"
	TaskPriorityImportant TaskPriority = "important"
)

// Valid は定義済みの優先度かどうかを返す。
func (p TaskPriority) Valid() bool {
	return p == TaskPriorityNormal || p == TaskPriorityImportant
}

// Task はユーザーが所有するToDo項目を表す。
type Task struct {
	ID                 string
	UserID             string
	Title              string
	Category           string
	Status             TaskStatus
	Priority           TaskPriority
	Deadline           *time.Time // 日付のみ意味を持つ
	IsToday            bool
	EstimatedPomodoros *int
	CreatedAt          time.Time
}

// TaskNamedFilter はタスク一覧の名前付きフィルタを表す。
type TaskNamedFilter string

const (
	// TaskFilterToday は is_today=true と同等。
	TaskFilterToday TaskNamedFilter = "today"
	// TaskFilterImportant は priority=important と同等。
	TaskFilterImportant TaskNamedFilter = "important"
)

// TaskFilter はタスク一覧の絞り込み条件。全条件はANDで結合される。
type TaskFilter struct {
	Status   *TaskStatus
	Category *string
	IsToday  *bool
	Priority *TaskPriority
}

// DateLayout は日付のみを表す文字列の書式（YYYY-MM-DD）。
const DateLayout = "2006-01-02"
