// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, permission, not_found, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryPermission = "permission"
	CategoryNotFound   = "not_found"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInvalidDate          = "INVALID_DATE"
	ErrCodeInvalidRange         = "INVALID_RANGE"
	ErrCodeUsernameTaken        = "USERNAME_TAKEN"
	ErrCodeLoginFailed          = "LOGIN_FAILED"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodePermissionDenied     = "PERMISSION_DENIED"
	ErrCodeTaskNotFound         = "TASK_NOT_FOUND"
	ErrCodeSessionNotFound      = "SESSION_NOT_FOUND"
	ErrCodeAnnouncementNotFound = "ANNOUNCEMENT_NOT_FOUND"
	ErrCodeSoundNotFound        = "SOUND_NOT_FOUND"
	ErrCodeStoryNotFound        = "STORY_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeSoundSourceMissing   = "SOUND_SOURCE_MISSING"
	ErrCodeSoundURLBlocked      = "SOUND_URL_BLOCKED"
	ErrCodeFeedImportFailed     = "FEED_IMPORT_FAILED"
)

// NewValidationError は入力値エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidDateError は日付のパース失敗エラーを生成する。
func NewInvalidDateError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", value),
		Category: CategoryValidation,
		Action:   "日付は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewInvalidRangeError はサポート外の集計範囲エラーを生成する。
func NewInvalidRangeError(value string, allowed string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRange,
		Message:  fmt.Sprintf("無効な範囲です: %s", value),
		Category: CategoryValidation,
		Action:   fmt.Sprintf("range には %s のいずれかを指定してください。", allowed),
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使用されています。",
		Category: CategoryValidation,
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewLoginFailedError は認証情報不一致エラーを生成する。
// ユーザーの存在有無を推測されないよう、常に同一のメッセージを返す。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: CategoryAuth,
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewUnauthorizedError はトークン未指定・失効エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewPermissionDeniedError は権限不足エラーを生成する。
func NewPermissionDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  "管理者のみアクセスできます。",
		Category: CategoryPermission,
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewNotFoundError は指定コードのリソース未検出エラーを生成する。
func NewNotFoundError(code, resource, id string) *APIError {
	return &APIError{
		Code:     code,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %s", resource, id),
		Category: CategoryNotFound,
		Action:   "IDを確認してください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return NewNotFoundError(ErrCodeTaskNotFound, "タスク", taskID)
}

// NewSessionNotFoundError は集中セッション未検出エラーを生成する。
func NewSessionNotFoundError(sessionID string) *APIError {
	return NewNotFoundError(ErrCodeSessionNotFound, "集中セッション", sessionID)
}

// NewAnnouncementNotFoundError はお知らせ未検出エラーを生成する。
func NewAnnouncementNotFoundError(id string) *APIError {
	return NewNotFoundError(ErrCodeAnnouncementNotFound, "お知らせ", id)
}

// NewSoundNotFoundError は環境音未検出エラーを生成する。
func NewSoundNotFoundError(id string) *APIError {
	return NewNotFoundError(ErrCodeSoundNotFound, "環境音", id)
}

// NewStoryNotFoundError は睡眠ストーリー未検出エラーを生成する。
func NewStoryNotFoundError(id string) *APIError {
	return NewNotFoundError(ErrCodeStoryNotFound, "ストーリー", id)
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: CategoryAuth,
		Action:   "ログインし直してください。",
	}
}

// NewSoundSourceMissingError は音源ファイルと外部URLの両方が未指定の場合のエラーを生成する。
func NewSoundSourceMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeSoundSourceMissing,
		Message:  "音声ファイルをアップロードするか、外部URLを指定してください。",
		Category: CategoryValidation,
		Action:   "file または file_url のいずれかを指定してください。",
	}
}

// NewSoundURLBlockedError は外部URLが安全性検証を通過しなかった場合のエラーを生成する。
func NewSoundURLBlockedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSoundURLBlocked,
		Message:  fmt.Sprintf("指定された外部URLは使用できません: %s", reason),
		Category: CategoryValidation,
		Action:   "公開されている http:// または https:// のURLを指定してください。",
	}
}

// NewFeedImportFailedError はフィード取り込み失敗エラーを生成する。
func NewFeedImportFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedImportFailed,
		Message:  fmt.Sprintf("フィードの取り込みに失敗しました: %s", reason),
		Category: CategoryValidation,
		Action:   "RSS/AtomフィードのURLを確認してください。",
	}
}
