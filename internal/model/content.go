package model

import "time"

// Announcement は管理者が管理するお知らせを表す。
type Announcement struct {
	ID          string
	Title       string
	Content     string // サニタイズ済みHTML
	IsPublished bool
	CreatedAt   time.Time
}

// AmbientSound は環境音カタログの1件を表す。
// 再生URLはアップロードファイルが外部URLより優先される。
type AmbientSound struct {
	ID          string
	Name        string
	Key         string
	File        string // MEDIA_ROOTからの相対パス。未アップロードの場合は空
	FileURL     string
	IsPublished bool
	CreatedAt   time.Time
}

// HasSource はファイルまたは外部URLのいずれかが設定されているかを返す。
func (s *AmbientSound) HasSource() bool {
	return s.File != "" || s.FileURL != ""
}

// SoundMix はユーザーが保存した環境音シーンの組み合わせを表す。
type SoundMix struct {
	ID        string
	UserID    string
	Name      string
	Layers    []string
	CreatedAt time.Time
}
