package annotate

import (
	"regexp"
	"strings"
)

// Label patterns are tried in order against each line. They tolerate bold or
// code markup around the label, a full-width colon, and English label
// variants the model sometimes falls back to.
var (
	titlePatterns    = compileLabelPatterns(`제\s*목`, `한국어\s*제목`, `title`)
	categoryPatterns = compileLabelPatterns(`카테고리`, `분류`, `category`)
	shortPatterns    = compileLabelPatterns(`짧은\s*요약`, `short(?:\s*summary)?`)
	longPatterns     = compileLabelPatterns(`긴\s*요약`, `long(?:\s*summary)?`)

	allLabelPatterns = joinPatterns(titlePatterns, categoryPatterns, shortPatterns, longPatterns)
)

func compileLabelPatterns(labels ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(labels))
	for _, label := range labels {
		patterns = append(patterns, regexp.MustCompile(
			`(?i)^[\s>#*`+"`"+`-]*(?:`+label+`)[\s*`+"`"+`]*[:：]\s*(.*)$`))
	}
	return patterns
}

func joinPatterns(groups ...[]*regexp.Regexp) []*regexp.Regexp {
	var all []*regexp.Regexp
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

// Parse extracts the four annotation fields from the raw model reply. It
// never fails on malformed input: missing or too-short fields are replaced
// by synthesized text derived from the original title. The second return is
// false only when the reply contains nothing usable at all, in which case
// the caller must fall back to a title-only annotation.
func Parse(raw, originalTitle string, categories []string) (Annotation, bool) {
	raw = strings.ReplaceAll(raw, "\r", "")
	if strings.TrimSpace(raw) == "" {
		return Annotation{}, false
	}

	lines := strings.Split(raw, "\n")

	title, _, titleOK := matchFirstLine(lines, titlePatterns)
	category, _, categoryOK := matchFirstLine(lines, categoryPatterns)
	short, shortIdx, shortOK := matchFirstLine(lines, shortPatterns)
	long, longIdx, longOK := matchFirstLine(lines, longPatterns)

	if !titleOK && !categoryOK && !shortOK && !longOK {
		return Annotation{}, false
	}

	// Short summary may continue onto the next line.
	if shortOK && shortIdx+1 < len(lines) {
		next := strings.TrimSpace(lines[shortIdx+1])
		if next != "" && !isLabelLine(next) {
			short = joinWithSpace(short, stripMarkup(next))
		}
	}

	// Long summary is reconstructed from all lines after its label, skipping
	// any line that starts a different labeled field.
	if longOK {
		for i := longIdx + 1; i < len(lines); i++ {
			line := strings.TrimSpace(lines[i])
			if line == "" || isLabelLine(line) {
				continue
			}
			long = joinWithSpace(long, stripMarkup(line))
		}
	}

	a := Annotation{
		TranslatedTitle: title,
		ShortSummary:    short,
		LongSummary:     long,
		Category:        category,
	}
	applyFallbacks(&a, originalTitle, categories)
	return a, true
}

// applyFallbacks enforces the minimum-length invariants, in field order:
// the synthesized summaries reference the (possibly replaced) title.
func applyFallbacks(a *Annotation, originalTitle string, categories []string) {
	if runeLen(a.TranslatedTitle) < minTitleRunes {
		a.TranslatedTitle = truncateRunes(strings.TrimSpace(originalTitle), maxTitleRunes)
	}
	if runeLen(a.ShortSummary) < minShortRunes {
		a.ShortSummary = fallbackShortSummary(a.TranslatedTitle)
	}
	if runeLen(a.LongSummary) < minLongRunes {
		a.LongSummary = fallbackLongSummary(a.TranslatedTitle)
	}
	// Category is accepted as-is, even outside the configured set; only a
	// completely missing category falls back to the first configured one.
	if a.Category == "" {
		a.Category = defaultCategory(categories)
	}
}

// matchFirstLine returns the captured remainder of the first line matching
// any of the given patterns, markup stripped.
func matchFirstLine(lines []string, patterns []*regexp.Regexp) (value string, index int, ok bool) {
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, p := range patterns {
			if m := p.FindStringSubmatch(line); m != nil {
				return stripMarkup(m[1]), i, true
			}
		}
	}
	return "", -1, false
}

func isLabelLine(line string) bool {
	for _, p := range allLabelPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

var markupReplacer = strings.NewReplacer("*", "", "`", "", "#", "")

func stripMarkup(s string) string {
	s = markupReplacer.Replace(s)
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	return strings.TrimSpace(s)
}

func joinWithSpace(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
