package content

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

const (
	slugMaxLength  = 80
	keyMaxAttempts = 5
	fallbackSlug   = "sound"
)

// Slugify はASCII英数字を小文字化し、それ以外の連続をハイフン1つにまとめる。
// 英数字を含まない場合は空文字を返す。
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	slug := b.String()
	if len(slug) > slugMaxLength {
		slug = strings.TrimRight(slug[:slugMaxLength], "-")
	}
	return slug
}

// keyChecker はkeyの使用状況を確認する。
type keyChecker interface {
	KeyExists(ctx context.Context, key string) (bool, error)
}

// uniqueKey は名前から未使用のkeyを生成する。
// スラッグが空、または使用済みの場合はランダムな接尾辞を付与する。
func uniqueKey(ctx context.Context, repo keyChecker, name string) (string, error) {
	base := Slugify(name)
	if base != "" {
		exists, err := repo.KeyExists(ctx, base)
		if err != nil {
			return "", err
		}
		if !exists {
			return base, nil
		}
	} else {
		base = fallbackSlug
	}

	for i := 0; i < keyMaxAttempts; i++ {
		suffix, err := randomSuffix()
		if err != nil {
			return "", err
		}
		candidate := base + "-" + suffix
		exists, err := repo.KeyExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("failed to allocate unique key for %q", name)
}

func randomSuffix() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate key suffix: %w", err)
	}
	return hex.EncodeToString(b), nil
}
