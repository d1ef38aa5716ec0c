package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesFetched     int64
	DuplicatesFiltered  int64
	CacheHits           int64
	LiveAnnotations     int64
	FallbackAnnotations int64
	ArticlesPersisted   int64
	NotificationsSent   int64

	// Timings
	LastRunDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddArticlesFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFetched += int64(n)
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementLiveAnnotations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LiveAnnotations++
}

func (m *Metrics) IncrementFallbackAnnotations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FallbackAnnotations++
}

func (m *Metrics) AddArticlesPersisted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesPersisted += int64(n)
}

func (m *Metrics) IncrementNotificationsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationsSent++
}

func (m *Metrics) RecordRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunDuration = duration
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

// Healthy reads the health flag under the lock; RecordRun and SetError write
// it concurrently with the monitoring endpoints.
func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_fetched":     m.ArticlesFetched,
		"duplicates_filtered":  m.DuplicatesFiltered,
		"cache_hits":           m.CacheHits,
		"live_annotations":     m.LiveAnnotations,
		"fallback_annotations": m.FallbackAnnotations,
		"articles_persisted":   m.ArticlesPersisted,
		"notifications_sent":   m.NotificationsSent,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_error_time":      m.LastErrorTime.Format(time.RFC3339),
		"last_error":           m.LastError,
		"is_healthy":           m.IsHealthy,
	}
}
