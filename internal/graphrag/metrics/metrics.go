// Package metrics collects business metrics for the GraphRAG service.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds counters for the query and ingestion pipelines. All counters
// are updated atomically and safe for concurrent use.
type Metrics struct {
	queriesTotal      uint64
	queriesRejected   uint64
	queriesErrors     uint64
	queriesFactual    uint64
	queriesRelational uint64
	queriesReasoning  uint64
	queryDuration     float64 // seconds

	documentsIngested uint64
	chunksIndexed     uint64
	ingestErrors      uint64
	documentsDeleted  uint64

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	global *Metrics
	once   sync.Once
)

// Get returns the global metrics instance.
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{startTime: time.Now()}
	})
	return global
}

// RecordQuery records one completed query.
func (m *Metrics) RecordQuery(queryType string, rejected bool, duration time.Duration, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	switch queryType {
	case "factual":
		atomic.AddUint64(&m.queriesFactual, 1)
	case "relational":
		atomic.AddUint64(&m.queriesRelational, 1)
	case "reasoning":
		atomic.AddUint64(&m.queriesReasoning, 1)
	}
	if rejected {
		atomic.AddUint64(&m.queriesRejected, 1)
	}

	m.durationMu.Lock()
	m.queryDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordIngest records one document ingestion.
func (m *Metrics) RecordIngest(chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIngested, 1)
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
}

// RecordDelete records one document deletion.
func (m *Metrics) RecordDelete() {
	atomic.AddUint64(&m.documentsDeleted, 1)
}

// Snapshot returns the current counter values for the stats endpoint.
func (m *Metrics) Snapshot() map[string]any {
	m.durationMu.Lock()
	queryDuration := m.queryDuration
	m.durationMu.Unlock()

	return map[string]any{
		"queries_total":          atomic.LoadUint64(&m.queriesTotal),
		"queries_rejected":       atomic.LoadUint64(&m.queriesRejected),
		"queries_errors":         atomic.LoadUint64(&m.queriesErrors),
		"queries_factual":        atomic.LoadUint64(&m.queriesFactual),
		"queries_relational":     atomic.LoadUint64(&m.queriesRelational),
		"queries_reasoning":      atomic.LoadUint64(&m.queriesReasoning),
		"query_duration_seconds": queryDuration,
		"documents_ingested":     atomic.LoadUint64(&m.documentsIngested),
		"chunks_indexed":         atomic.LoadUint64(&m.chunksIndexed),
		"ingest_errors":          atomic.LoadUint64(&m.ingestErrors),
		"documents_deleted":      atomic.LoadUint64(&m.documentsDeleted),
		"uptime_seconds":         time.Since(m.startTime).Seconds(),
	}
}

// Export renders the counters in Prometheus text format.
func (m *Metrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	counter := func(name, help string, value uint64) {
		fmt.Fprintf(&sb, "# HELP %s_%s %s\n", prefix, name, help)
		fmt.Fprintf(&sb, "# TYPE %s_%s counter\n", prefix, name)
		fmt.Fprintf(&sb, "%s_%s %d\n\n", prefix, name, value)
	}

	counter("queries_total", "Total number of queries.", atomic.LoadUint64(&m.queriesTotal))
	counter("queries_rejected_total", "Number of rejected answers.", atomic.LoadUint64(&m.queriesRejected))
	counter("queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))
	counter("queries_factual_total", "Number of factual queries.", atomic.LoadUint64(&m.queriesFactual))
	counter("queries_relational_total", "Number of relational queries.", atomic.LoadUint64(&m.queriesRelational))
	counter("queries_reasoning_total", "Number of reasoning queries.", atomic.LoadUint64(&m.queriesReasoning))
	counter("documents_ingested_total", "Number of ingested documents.", atomic.LoadUint64(&m.documentsIngested))
	counter("chunks_indexed_total", "Number of indexed chunks.", atomic.LoadUint64(&m.chunksIndexed))
	counter("ingest_errors_total", "Number of ingestion errors.", atomic.LoadUint64(&m.ingestErrors))
	counter("documents_deleted_total", "Number of deleted documents.", atomic.LoadUint64(&m.documentsDeleted))

	m.durationMu.Lock()
	queryDuration := m.queryDuration
	m.durationMu.Unlock()
	fmt.Fprintf(&sb, "# HELP %s_query_duration_seconds_total Total query duration.\n", prefix)
	fmt.Fprintf(&sb, "# TYPE %s_query_duration_seconds_total counter\n", prefix)
	fmt.Fprintf(&sb, "%s_query_duration_seconds_total %.6f\n\n", prefix, queryDuration)

	fmt.Fprintf(&sb, "# HELP %s_uptime_seconds Service uptime.\n", prefix)
	fmt.Fprintf(&sb, "# TYPE %s_uptime_seconds gauge\n", prefix)
	fmt.Fprintf(&sb, "%s_uptime_seconds %.0f\n", prefix, time.Since(m.startTime).Seconds())

	return sb.String()
}

// Reset zeroes all counters. Intended for tests.
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesRejected, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.queriesFactual, 0)
	atomic.StoreUint64(&m.queriesRelational, 0)
	atomic.StoreUint64(&m.queriesReasoning, 0)
	atomic.StoreUint64(&m.documentsIngested, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)
	atomic.StoreUint64(&m.ingestErrors, 0)
	atomic.StoreUint64(&m.documentsDeleted, 0)
	m.durationMu.Lock()
	m.queryDuration = 0
	m.durationMu.Unlock()
}
