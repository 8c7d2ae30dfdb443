package metrics

import (
	goerrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestRecordQuery(t *testing.T) {
	m := &Metrics{startTime: time.Now()}

	m.RecordQuery("factual", false, 10*time.Millisecond, nil)
	m.RecordQuery("relational", true, 20*time.Millisecond, nil)
	m.RecordQuery("reasoning", false, 0, goerrors.New("boom"))

	snap := m.Snapshot()
	assert.Equal(t, uint64(3), snap["queries_total"])
	assert.Equal(t, uint64(1), snap["queries_rejected"])
	assert.Equal(t, uint64(1), snap["queries_errors"])
	assert.Equal(t, uint64(1), snap["queries_factual"])
	assert.Equal(t, uint64(1), snap["queries_relational"])
	// The errored query does not count toward its type.
	assert.Equal(t, uint64(0), snap["queries_reasoning"])
	assert.InDelta(t, 0.03, snap["query_duration_seconds"].(float64), 1e-9)
}

func TestRecordIngestAndDelete(t *testing.T) {
	m := &Metrics{startTime: time.Now()}

	m.RecordIngest(5, nil)
	m.RecordIngest(0, goerrors.New("boom"))
	m.RecordDelete()

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap["documents_ingested"])
	assert.Equal(t, uint64(5), snap["chunks_indexed"])
	assert.Equal(t, uint64(1), snap["ingest_errors"])
	assert.Equal(t, uint64(1), snap["documents_deleted"])
}

func TestConcurrentRecording(t *testing.T) {
	m := &Metrics{startTime: time.Now()}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordQuery("factual", false, time.Millisecond, nil)
			m.RecordIngest(1, nil)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, uint64(50), snap["queries_total"])
	assert.Equal(t, uint64(50), snap["chunks_indexed"])
}

func TestExportPrometheusFormat(t *testing.T) {
	m := &Metrics{startTime: time.Now()}
	m.RecordQuery("factual", false, time.Millisecond, nil)

	out := m.Export("graphrag", "api")

	assert.Contains(t, out, "# TYPE graphrag_api_queries_total counter")
	assert.Contains(t, out, "graphrag_api_queries_total 1")
	assert.Contains(t, out, "graphrag_api_uptime_seconds")
	assert.True(t, strings.HasPrefix(out, "# HELP graphrag_api_queries_total"))
}

func TestReset(t *testing.T) {
	m := &Metrics{startTime: time.Now()}
	m.RecordQuery("factual", true, time.Millisecond, nil)
	m.RecordIngest(3, nil)

	m.Reset()

	snap := m.Snapshot()
	assert.Equal(t, uint64(0), snap["queries_total"])
	assert.Equal(t, uint64(0), snap["chunks_indexed"])
	assert.Equal(t, 0.0, snap["query_duration_seconds"])
}
