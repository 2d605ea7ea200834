// Package security はアプリケーションのセキュリティ機能を提供する。
//
// HTMLSanitizer は管理者が入力したお知らせ本文をサニタイズし、
// 公開一覧を閲覧するユーザーをXSSから保護する。
// bluemondayの許可リストポリシーで安全なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer はHTMLサニタイズ機能のインターフェースを定義する。
type HTMLSanitizer interface {
	// Sanitize はHTMLをサニタイズして安全なHTMLを返す。
	// 空文字列の入力には空文字列を返す。同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
}

// announcementSanitizer はお知らせ本文用のHTMLSanitizer実装。
// bluemondayのポリシーはスレッドセーフで、複数リクエストから共有できる。
type announcementSanitizer struct {
	policy *bluemonday.Policy
}

// NewAnnouncementSanitizer はお知らせ本文用のサニタイザーを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, h2, h3, h4, ul, ol, li, blockquote, strong, em, a, img
//   - aタグ: href属性のみ。相対URL（アプリ内リンク）も許可し、外部リンクにはtarget="_blank"を付与
//   - imgタグ: src/alt属性
//   - URLスキームは http, https, mailto のみ
//   - script, iframe, style およびon*イベント属性は除去
func NewAnnouncementSanitizer() *announcementSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "h2", "h3", "h4",
		"ul", "ol", "li",
		"blockquote", "strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &announcementSanitizer{policy: p}
}

// Sanitize はHTMLをサニタイズして安全なHTMLを返す。
func (s *announcementSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.policy.Sanitize(rawHTML)
}
