package format

import (
	"fmt"
	"regexp"
)

// Telegram markdown dialects.
const (
	MarkdownV1 = 1
	MarkdownV2 = 2
)

const mdV2Specials = "_*[]()~`>#+=|{}.!\\-"

var (
	mdV1Re = regexp.MustCompile("[_*`\\[]")
	mdV2Re = regexp.MustCompile("[" + regexp.QuoteMeta(mdV2Specials) + "]")
)

// EscapeMarkdown backslash-escapes the characters the given dialect treats as markup.
func EscapeMarkdown(text string, version int) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\$0`), nil
	case MarkdownV2:
		return mdV2Re.ReplaceAllString(text, `\$0`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// V2 escapes text for MarkdownV2.
func V2(text string) string {
	return mdV2Re.ReplaceAllString(text, `\$0`)
}
