package model

import "github.com/google/uuid"

// IsValidID はidが正規形（ハイフン区切り36文字）のUUIDかどうかを返す。
// 主キーはすべてuuid型のため、それ以外の値はどの行にも一致しない。
func IsValidID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}
