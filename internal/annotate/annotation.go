// Package annotate turns an article title into a Korean annotation (translated
// title, short and long summary, category) by calling a text-generation API,
// parsing its free-text reply and caching the result. Every path, including
// total API failure, yields a fully populated Annotation.
package annotate

import (
	"fmt"
	"strings"
)

// Annotation holds the four AI-derived fields for one article. A returned
// Annotation is always fully populated: the title is at least 5 runes (or
// the truncated original), the short summary at least 10 and the long
// summary at least 20 runes, the category non-empty.
type Annotation struct {
	TranslatedTitle string `json:"translated_title"`
	ShortSummary    string `json:"short_summary"`
	LongSummary     string `json:"long_summary"`
	Category        string `json:"category"`
}

const (
	minTitleRunes = 5
	maxTitleRunes = 50
	minShortRunes = 10
	minLongRunes  = 20
)

// FallbackAnnotation synthesizes an annotation purely from the title, used
// when the generation API is unusable. Same shape as the parser fallbacks.
func FallbackAnnotation(title string, categories []string) Annotation {
	t := truncateRunes(strings.TrimSpace(title), maxTitleRunes)
	if t == "" {
		t = "제목 없음"
	}

	return Annotation{
		TranslatedTitle: t,
		ShortSummary:    fallbackShortSummary(t),
		LongSummary:     fallbackLongSummary(t),
		Category:        defaultCategory(categories),
	}
}

func fallbackShortSummary(title string) string {
	return fmt.Sprintf("%s 관련 뉴스입니다.", title)
}

func fallbackLongSummary(title string) string {
	return fmt.Sprintf("%s에 관한 새로운 소식이 보도되었습니다. 자세한 내용은 원문 기사에서 확인하실 수 있습니다.", title)
}

func defaultCategory(categories []string) string {
	if len(categories) > 0 {
		return categories[0]
	}
	return "연구/임상"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func runeLen(s string) int {
	return len([]rune(s))
}
