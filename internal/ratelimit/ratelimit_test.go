package ratelimit

import "testing"

func TestBudget_GeminiLimit(t *testing.T) {
	b := NewBudget(2, 0)

	for i := 0; i < 2; i++ {
		if err := b.UseGemini(); err != nil {
			t.Fatalf("use %d: %v", i+1, err)
		}
	}
	if b.CanUseGemini() {
		t.Errorf("budget should be exhausted after 2 uses")
	}
	if err := b.UseGemini(); err == nil {
		t.Errorf("third use must fail")
	}
}

func TestBudget_TotalLimitCoversBothBackends(t *testing.T) {
	b := NewBudget(0, 2)

	if err := b.UseGemini(); err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if err := b.UseOpenAI(); err != nil {
		t.Fatalf("openai: %v", err)
	}
	if err := b.UseOpenAI(); err == nil {
		t.Errorf("total budget must cap openai too")
	}
}

func TestBudget_ZeroMeansUnlimited(t *testing.T) {
	b := NewBudget(0, 0)
	for i := 0; i < 100; i++ {
		if err := b.UseGemini(); err != nil {
			t.Fatalf("unlimited budget refused use %d: %v", i+1, err)
		}
	}
}

func TestBudget_CacheHitRate(t *testing.T) {
	b := NewBudget(0, 0)
	if got := b.CacheHitRate(); got != 0 {
		t.Errorf("empty budget hit rate = %v", got)
	}

	b.RecordCacheHit()
	b.RecordCacheHit()
	b.RecordCacheHit()
	b.RecordCacheMiss()

	if got := b.CacheHitRate(); got != 75 {
		t.Errorf("hit rate = %v, want 75", got)
	}
}

func TestBudget_RequestsDoNotCountAsMisses(t *testing.T) {
	b := NewBudget(0, 0)

	// One title missing the cache and burning several attempts is still a
	// single miss.
	b.RecordCacheMiss()
	b.UseGemini()
	b.UseGemini()
	b.UseGemini()
	b.RecordCacheHit()

	if got := b.CacheHitRate(); got != 50 {
		t.Errorf("hit rate = %v, want 50", got)
	}
	if got := b.Stats()["cache_misses"]; got != 1 {
		t.Errorf("cache_misses = %v, want 1", got)
	}
}
