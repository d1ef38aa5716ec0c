package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
)

// Budget caps the number of live generation calls per run. Zero limits mean
// unlimited. It also tracks cache hit/miss counts for the run summary.
type Budget struct {
	mu          sync.Mutex
	geminiCount int
	openaiCount int
	totalCount  int
	maxGemini   int
	maxTotal    int
	cacheHits   int
	cacheMisses int
}

// NewBudget creates a request budget with configurable limits.
func NewBudget(maxGemini, maxTotal int) *Budget {
	return &Budget{
		maxGemini: maxGemini,
		maxTotal:  maxTotal,
	}
}

// CanUseGemini checks if we can make a Gemini request.
func (b *Budget) CanUseGemini() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxGemini > 0 && b.geminiCount >= b.maxGemini {
		slog.Warn("gemini request budget reached", "used", b.geminiCount, "limit", b.maxGemini)
		return false
	}
	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		slog.Warn("total request budget reached", "used", b.totalCount, "limit", b.maxTotal)
		return false
	}
	return true
}

// UseGemini consumes one Gemini request from the budget.
func (b *Budget) UseGemini() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxGemini > 0 && b.geminiCount >= b.maxGemini {
		return fmt.Errorf("gemini request budget exceeded")
	}
	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		return fmt.Errorf("total request budget exceeded")
	}

	b.geminiCount++
	b.totalCount++
	return nil
}

// UseOpenAI consumes one OpenAI request from the budget.
func (b *Budget) UseOpenAI() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		return fmt.Errorf("total request budget exceeded")
	}

	b.openaiCount++
	b.totalCount++
	return nil
}

// RecordCacheHit records an annotation served from cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// RecordCacheMiss records a title that had to go to a live backend. Recorded
// once per title, regardless of how many attempts the title consumes.
func (b *Budget) RecordCacheMiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheMisses++
}

// CacheHitRate returns the cache hit rate percentage for this run.
func (b *Budget) CacheHitRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := b.cacheHits + b.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(b.cacheHits) / float64(total) * 100
}

// Stats returns current budget statistics.
func (b *Budget) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"gemini_used":  b.geminiCount,
		"gemini_limit": b.maxGemini,
		"openai_used":  b.openaiCount,
		"total_used":   b.totalCount,
		"total_limit":  b.maxTotal,
		"cache_hits":   b.cacheHits,
		"cache_misses": b.cacheMisses,
	}
}
