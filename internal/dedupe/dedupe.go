// Package dedupe collapses near-duplicate articles by title similarity.
package dedupe

import (
	"log/slog"
	"strings"

	"github.com/lumenmedi/lumen/internal/feed"
	"github.com/lumenmedi/lumen/internal/metrics"
)

// Filter walks the input in order and drops any article whose title is
// similar to an already kept title at or above the threshold. The first
// occurrence of a cluster always wins, regardless of source priority.
// Pairwise comparison is quadratic; fine at tens of articles per run.
func Filter(articles []feed.Article, threshold float64) []feed.Article {
	var kept []feed.Article
	var seen []string

	for _, a := range articles {
		title := normalize(a.OriginalTitle)

		dup := false
		for _, s := range seen {
			if Similarity(title, s) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			slog.Debug("duplicate dropped", "title", a.OriginalTitle)
			metrics.Global.IncrementDuplicatesFiltered()
			continue
		}

		kept = append(kept, a)
		seen = append(seen, title)
	}

	slog.Info("deduplication done", "in", len(articles), "out", len(kept))
	return kept
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Similarity returns a normalized edit similarity in [0,1]: identical
// strings score 1, completely different strings score 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	dist := levenshtein(ra, rb)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(dist)/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			min := prev[j] + 1 // deletion
			if v := curr[j-1] + 1; v < min { // insertion
				min = v
			}
			if v := prev[j-1] + cost; v < min { // substitution
				min = v
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
