package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/peg-stabilizer/internal/model"
)

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// WriterMetrics contains cumulative writer counters.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// Writer drains rebase records from a queue and batch-inserts them into
// the rebase_history table. Inserts are idempotent on epoch, so replays
// after a restart are harmless.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *Queue
	db    *pgxpool.Pool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewWriter creates a history writer.
func NewWriter(cfg WriterConfig, input *Queue, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultWriterConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultWriterConfig().FlushInterval
	}
	return &Writer{
		cfg:    cfg,
		logger: logger,
		input:  input,
		db:     db,
	}
}

// Start begins draining the queue on the flush interval.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("history writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer, flushing remaining records.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping history writer")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("history writer stop timed out")
	}

	// Final flush of whatever is left; w.ctx is cancelled by now.
	w.flush(ctx)

	w.logger.Info("history writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

// flush drains the queue in batches and inserts each batch.
func (w *Writer) flush(ctx context.Context) {
	for {
		batch := w.input.Drain(w.cfg.BatchSize)
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		conflicts, err := w.batchInsert(ctx, batch)
		if err != nil {
			w.logger.Error("history batch insert failed", "error", err, "count", len(batch))
			w.mu.Lock()
			w.metrics.Errors++
			w.mu.Unlock()
			return
		}

		w.mu.Lock()
		w.metrics.Inserts += int64(len(batch) - conflicts)
		w.metrics.Conflicts += int64(conflicts)
		w.metrics.Flushes++
		w.mu.Unlock()

		w.logger.Debug("flushed history records",
			"count", len(batch),
			"conflicts", conflicts,
			"duration", time.Since(start),
		)
	}
}

// batchInsert inserts records using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, records []model.RebaseRecord) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO rebase_history
				(id, epoch, ts, price, deviation_ppm, band, supply_delta, new_supply, halted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (epoch) DO NOTHING
		`, r.ID, r.Epoch, r.Timestamp, r.Price, r.DeviationPpm, int(r.Band), r.SupplyDelta, r.NewSupply, r.Halted)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
