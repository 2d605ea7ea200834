package content

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ExcerptLength はお知らせ抜粋の最大文字数（rune単位）。
const ExcerptLength = 120

// Excerpt はHTMLのテキストノードを連結し、空白を正規化した先頭limit文字を返す。
// script/style要素の中身は含めない。
func Excerpt(rawHTML string, limit int) string {
	if rawHTML == "" || limit <= 0 {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	var b strings.Builder
	skip := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return truncateRunes(collapseSpaces(b.String()), limit)
		case html.StartTagToken:
			if isRawTextTag(tokenizer) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(tokenizer) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
