package duckdb

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinytelemetry/logsift/internal/model"
)

// DefaultFlushQueueSize is the number of batches that can be queued for async flushing.
const DefaultFlushQueueSize = 16

var analysisIDCounter atomic.Uint64

// InsertBuffer batches finished analyses and writes them to the history
// store from a background goroutine. Add never blocks on DuckDB writes.
type InsertBuffer struct {
	writer        model.HistoryWriter
	mu            sync.Mutex
	pending       []*model.AnalysisRecord
	flushChan     chan []*model.AnalysisRecord
	maxBatch      int
	flushInterval time.Duration
	done          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	tickWg        sync.WaitGroup

	backpressureCount atomic.Int64
	lastBPLog         atomic.Int64
}

// InsertBufferConfig holds tunable parameters for the insert buffer.
type InsertBufferConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
}

// NewInsertBuffer creates a buffer that flushes to writer.
func NewInsertBuffer(writer model.HistoryWriter, conf ...InsertBufferConfig) *InsertBuffer {
	batchSize := 256
	flushInterval := 500 * time.Millisecond
	flushQueueSize := DefaultFlushQueueSize
	if len(conf) > 0 {
		if conf[0].BatchSize > 0 {
			batchSize = conf[0].BatchSize
		}
		if conf[0].FlushInterval > 0 {
			flushInterval = conf[0].FlushInterval
		}
		if conf[0].FlushQueueSize > 0 {
			flushQueueSize = conf[0].FlushQueueSize
		}
	}

	b := &InsertBuffer{
		writer:        writer,
		pending:       make([]*model.AnalysisRecord, 0, batchSize),
		flushChan:     make(chan []*model.AnalysisRecord, flushQueueSize),
		maxBatch:      batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}

	b.wg.Add(1)
	go b.flushWorker()

	b.wg.Add(1)
	b.tickWg.Add(1)
	go b.tickLoop()

	return b
}

func (b *InsertBuffer) tickLoop() {
	defer b.wg.Done()
	defer b.tickWg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.drainPending()
		case <-b.done:
			b.drainPending()
			return
		}
	}
}

// logBackpressure logs at most once per 10 seconds when the flush queue is
// full and a batch is written inline.
func (b *InsertBuffer) logBackpressure() {
	count := b.backpressureCount.Add(1)
	now := time.Now().Unix()
	last := b.lastBPLog.Load()
	if now-last >= 10 && b.lastBPLog.CompareAndSwap(last, now) {
		log.Printf("duckdb: backpressure, %d inline flushes (flush queue full)", count)
	}
}

func (b *InsertBuffer) drainPending() {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.pending
	b.pending = make([]*model.AnalysisRecord, 0, b.maxBatch)
	b.mu.Unlock()

	b.enqueue(batch)
}

func (b *InsertBuffer) enqueue(batch []*model.AnalysisRecord) {
	select {
	case b.flushChan <- batch:
	default:
		b.logBackpressure()
		if err := b.writer.InsertAnalysisBatch(batch); err != nil {
			log.Printf("duckdb: flush error (inline): %v", err)
		}
	}
}

func (b *InsertBuffer) flushWorker() {
	defer b.wg.Done()
	for batch := range b.flushChan {
		if err := b.writer.InsertAnalysisBatch(batch); err != nil {
			log.Printf("duckdb: flush error: %v", err)
		}
	}
}

// Add queues a record for batch insertion, assigning an ID and receive time
// when they are unset. Records added after Stop are dropped.
func (b *InsertBuffer) Add(record *model.AnalysisRecord) {
	if record == nil {
		return
	}
	select {
	case <-b.done:
		return
	default:
	}

	if record.ID == "" {
		record.ID = nextAnalysisID()
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now()
	}

	b.mu.Lock()
	b.pending = append(b.pending, record)
	var batch []*model.AnalysisRecord
	if len(b.pending) >= b.maxBatch {
		batch = b.pending
		b.pending = make([]*model.AnalysisRecord, 0, b.maxBatch)
	}
	b.mu.Unlock()

	if batch != nil {
		b.enqueue(batch)
	}
}

// Observe implements the session observer contract by queueing rec.
func (b *InsertBuffer) Observe(rec *model.AnalysisRecord) {
	b.Add(rec)
}

// Stop flushes remaining records and waits for all writes to complete.
func (b *InsertBuffer) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		// The final drain in tickLoop must land before flushChan closes.
		b.tickWg.Wait()
		close(b.flushChan)
		b.wg.Wait()
	})
}

// InsertAnalysisBatch writes records and their count tables in a single
// transaction. If the batch fails, each record is retried on its own so one
// bad row does not lose the rest.
func (s *Store) InsertAnalysisBatch(records []*model.AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertBatchTx(ctx, records); err == nil {
		return nil
	}

	var failed int
	for _, r := range records {
		if rerr := s.insertBatchTx(ctx, []*model.AnalysisRecord{r}); rerr != nil {
			failed++
			log.Printf("duckdb: dropping analysis %s (transport=%s outcome=%s): %v", r.ID, r.Transport, r.Outcome, rerr)
		}
	}
	if failed > 0 {
		log.Printf("duckdb: batch partially failed, %d/%d analyses dropped", failed, len(records))
	}
	return nil
}

func (s *Store) insertBatchTx(ctx context.Context, records []*model.AnalysisRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	analysisStmt, err := tx.PrepareContext(ctx, `INSERT INTO analyses (analysis_id, received_at, transport, remote_addr, analysis_type, from_date, to_date, format, body_bytes, outcome, duration_ms, group_count, total_count) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer analysisStmt.Close()

	groupStmt, err := tx.PrepareContext(ctx, `INSERT INTO analysis_groups (analysis_id, received_at, analysis_type, group_key, count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer groupStmt.Close()

	for _, r := range records {
		id := r.ID
		if id == "" {
			id = nextAnalysisID()
		}
		receivedAt := r.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = time.Now()
		}

		if _, err := analysisStmt.ExecContext(
			ctx,
			id, receivedAt, r.Transport, r.RemoteAddr, r.Type,
			r.From, r.To, r.Format, int64(r.BodyBytes), r.Outcome,
			float64(r.Duration)/float64(time.Millisecond),
			r.Counts.Len(), int64(r.Counts.Total()),
		); err != nil {
			return fmt.Errorf("analysis insert: %w", err)
		}

		for key, count := range r.Counts {
			if _, err := groupStmt.ExecContext(ctx, id, receivedAt, r.Type, key, int64(count)); err != nil {
				return fmt.Errorf("group insert: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func nextAnalysisID() string {
	n := analysisIDCounter.Add(1)
	return fmt.Sprintf("%x-%x", time.Now().UTC().UnixNano(), n)
}
