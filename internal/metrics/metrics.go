package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	SourcesProcessed int64
	FetchErrors      int64
	ItemsCollected   int64
	StaleDropped     int64
	DuplicatesMerged int64
	LinksSuppressed  int64 // dropped by the cross-run seen store

	// Timings
	LastCollectionTime    time.Duration
	TotalCollectionTime   time.Duration
	AverageCollectionTime time.Duration
	CollectionCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementSourcesProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesProcessed++
}

func (m *Metrics) IncrementFetchErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchErrors++
}

func (m *Metrics) AddItemsCollected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsCollected += int64(n)
}

func (m *Metrics) AddStaleDropped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StaleDropped += int64(n)
}

func (m *Metrics) IncrementDuplicatesMerged() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesMerged++
}

func (m *Metrics) IncrementLinksSuppressed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LinksSuppressed++
}

func (m *Metrics) RecordCollectionTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastCollectionTime = duration
	m.TotalCollectionTime += duration
	m.CollectionCount++

	if m.CollectionCount > 0 {
		m.AverageCollectionTime = m.TotalCollectionTime / time.Duration(m.CollectionCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"sources_processed":          m.SourcesProcessed,
		"fetch_errors":               m.FetchErrors,
		"items_collected":            m.ItemsCollected,
		"stale_dropped":              m.StaleDropped,
		"duplicates_merged":          m.DuplicatesMerged,
		"links_suppressed":           m.LinksSuppressed,
		"last_collection_time_ms":    m.LastCollectionTime.Milliseconds(),
		"average_collection_time_ms": m.AverageCollectionTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
