package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/aerolex/aerolex/pkg/planner"
)

// QueryTrace is one executed query for Parquet storage.
type QueryTrace struct {
	ID          string    `parquet:"id"`
	Timestamp   time.Time `parquet:"timestamp"`
	AsOf        string    `parquet:"as_of_date"` // RFC3339, empty for present tense
	K           int       `parquet:"k"`
	Strategy    string    `parquet:"strategy"`
	Selectivity float64   `parquet:"selectivity"`
	Hits        int       `parquet:"hits"`
	DurationUs  int64     `parquet:"duration_us"`
}

// QueryLog buffers query traces and flushes them to Parquet files. It
// implements planner.QueryLogger.
type QueryLog struct {
	outputDir string
	mu        sync.Mutex
	buffer    []QueryTrace
	batchSize int
}

// NewQueryLog creates a query trace writer.
func NewQueryLog(outputDir string) (*QueryLog, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	return &QueryLog{
		outputDir: outputDir,
		batchSize: 500,
		buffer:    make([]QueryTrace, 0, 500),
	}, nil
}

// LogQuery implements planner.QueryLogger.
func (q *QueryLog) LogQuery(e planner.QueryLogEntry) {
	trace := QueryTrace{
		ID:          uuid.New().String(),
		Timestamp:   e.At.UTC(),
		K:           e.K,
		Strategy:    string(e.Strategy),
		Selectivity: e.Selectivity,
		Hits:        e.Hits,
		DurationUs:  e.Duration.Microseconds(),
	}
	if e.AsOf != nil {
		trace.AsOf = e.AsOf.UTC().Format(time.RFC3339)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.buffer = append(q.buffer, trace)
	if len(q.buffer) >= q.batchSize {
		_ = q.flush()
	}
}

// Flush writes buffered traces out immediately.
func (q *QueryLog) Flush() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flush()
}

// Caller must hold the lock.
func (q *QueryLog) flush() error {
	if len(q.buffer) == 0 {
		return nil
	}

	filename := fmt.Sprintf("query_traces_%s_%d.parquet", time.Now().Format("20060102_150405"), time.Now().UnixNano())
	path := filepath.Join(q.outputDir, filename)

	if err := parquet.WriteFile(path, q.buffer); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write query trace parquet file: %v\n", err)
		return err
	}

	q.buffer = q.buffer[:0]
	return nil
}
