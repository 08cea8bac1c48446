// Package batch drives bulk loads: it streams lines through the decoder,
// groups records into bounded batches and commits each batch in its own
// transaction.
package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/suteetoe/cnpjsync/internal/decoder"
	"github.com/suteetoe/cnpjsync/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultBatchSize     = 1000
	DefaultProgressEvery = 100000

	maxLineSize = 4 * 1024 * 1024
)

// Applier writes one decoded record inside the batch transaction
type Applier interface {
	Apply(tx *gorm.DB, rec *decoder.Record) error
}

// ApplierFunc adapts a function to Applier
type ApplierFunc func(tx *gorm.DB, rec *decoder.Record) error

func (f ApplierFunc) Apply(tx *gorm.DB, rec *decoder.Record) error {
	return f(tx, rec)
}

// BatchObserver is implemented by appliers that keep state which must follow
// the outcome of the batch transaction.
type BatchObserver interface {
	Committed()
	RolledBack()
}

// Coordinator runs one file at a time, one transaction at a time
type Coordinator struct {
	db      *gorm.DB
	log     *zap.Logger
	metrics *metrics.IngestMetrics

	BatchSize           int
	ProgressEvery       int
	MaxReportedFailures int
}

// NewCoordinator returns a coordinator with default tuning. m may be nil.
func NewCoordinator(db *gorm.DB, log *zap.Logger, m *metrics.IngestMetrics) *Coordinator {
	return &Coordinator{
		db:                  db,
		log:                 log,
		metrics:             m,
		BatchSize:           DefaultBatchSize,
		ProgressEvery:       DefaultProgressEvery,
		MaxReportedFailures: 1000,
	}
}

type run struct {
	c       *Coordinator
	kind    string
	applier Applier
	summary *Summary
	pending []decoder.Record
	start   time.Time
}

// Run streams src through schema and applier. Row and batch failures are
// recorded in the summary and do not stop the run; the returned error is set
// only for read failures and cancellation, and comes with the partial summary.
func (c *Coordinator) Run(ctx context.Context, src io.Reader, schema *decoder.Schema, applier Applier) (*Summary, error) {
	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	r := &run{
		c:       c,
		kind:    schema.Name,
		applier: applier,
		summary: &Summary{Kind: schema.Name, Report: Report{Limit: c.MaxReportedFailures}},
		pending: make([]decoder.Record, 0, batchSize),
		start:   time.Now(),
	}

	c.log.Info("Import started", zap.String("kind", r.kind), zap.Int("batch_size", batchSize))

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var runErr error
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		r.summary.Lines++
		lineNo := r.summary.Lines
		if c.metrics != nil {
			c.metrics.Lines.WithLabelValues(r.kind).Inc()
		}

		// blank lines carry no record but still count toward progress
		if raw := scanner.Text(); raw != "" {
			r.line(ctx, schema, lineNo, raw, batchSize)
		}

		if c.ProgressEvery > 0 && lineNo%c.ProgressEvery == 0 {
			r.progress()
		}
	}
	if runErr == nil {
		if err := scanner.Err(); err != nil {
			runErr = fmt.Errorf("read %s input: %w", r.kind, err)
		}
	}

	// A cancelled run does not commit its partial batch.
	if runErr == nil {
		r.flush(ctx)
	}

	r.summary.Elapsed = time.Since(r.start)
	if c.metrics != nil {
		c.metrics.RowsPerSecond.WithLabelValues(r.kind).Set(r.summary.RowsPerSecond())
	}

	fields := []zap.Field{
		zap.String("kind", r.kind),
		zap.Int("lines", r.summary.Lines),
		zap.Int("committed", r.summary.Committed),
		zap.Int("errors", r.summary.Errors()),
		zap.Int("validation_errors", r.summary.ValidationErrors),
		zap.Int("store_errors", r.summary.StoreErrors),
		zap.Int("field_issues", r.summary.Report.FieldIssues),
		zap.Duration("elapsed", r.summary.Elapsed),
		zap.Float64("rows_per_second", r.summary.RowsPerSecond()),
	}
	if runErr != nil {
		c.log.Error("Import stopped", append(fields, zap.Error(runErr))...)
	} else {
		c.log.Info("Import finished", fields...)
	}
	return r.summary, runErr
}

func (r *run) line(ctx context.Context, schema *decoder.Schema, lineNo int, raw string, batchSize int) {
	rec := decoder.Decode(schema, lineNo, raw)
	r.summary.Report.FieldIssues += len(rec.Issues)
	if !rec.Valid() {
		r.rowFailed(rec.Err)
		return
	}
	r.pending = append(r.pending, rec)
	if len(r.pending) >= batchSize {
		r.flush(ctx)
	}
}

func (r *run) rowFailed(err *decoder.RowValidationError) {
	r.summary.ValidationErrors++
	r.summary.Report.addRow(err)
	if r.c.metrics != nil {
		r.c.metrics.ValidationErrors.WithLabelValues(r.kind).Inc()
	}
	r.c.log.Debug("Row skipped", zap.String("kind", r.kind), zap.Int("line", err.Line), zap.String("reason", err.Reason))
}

// flush commits the pending records as one unit of work. Any store error rolls
// the whole batch back and charges every record in it as an error.
func (r *run) flush(ctx context.Context) {
	if len(r.pending) == 0 {
		return
	}
	batch := r.pending
	r.pending = r.pending[:0]
	started := time.Now()

	err := r.c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range batch {
			if err := r.applier.Apply(tx, &batch[i]); err != nil {
				return fmt.Errorf("line %d: %w", batch[i].Line, err)
			}
		}
		return nil
	})

	r.summary.Batches++
	observer, _ := r.applier.(BatchObserver)
	if r.c.metrics != nil {
		r.c.metrics.ObserveBatch(r.kind, started, err == nil)
	}

	if err != nil {
		if observer != nil {
			observer.RolledBack()
		}
		batchErr := &BatchStoreError{
			FirstLine: batch[0].Line,
			LastLine:  batch[len(batch)-1].Line,
			Size:      len(batch),
			Err:       err,
		}
		r.summary.FailedBatches++
		r.summary.StoreErrors += len(batch)
		r.summary.Report.addBatch(batchErr)
		if r.c.metrics != nil {
			r.c.metrics.StoreErrors.WithLabelValues(r.kind).Add(float64(len(batch)))
		}
		r.c.log.Error("Batch rolled back",
			zap.String("kind", r.kind),
			zap.Int("first_line", batchErr.FirstLine),
			zap.Int("last_line", batchErr.LastLine),
			zap.Int("size", batchErr.Size),
			zap.Error(err))
		return
	}

	if observer != nil {
		observer.Committed()
	}
	r.summary.Committed += len(batch)
	if r.c.metrics != nil {
		r.c.metrics.Committed.WithLabelValues(r.kind).Add(float64(len(batch)))
	}
}

func (r *run) progress() {
	elapsed := time.Since(r.start)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(r.summary.Committed) / elapsed.Seconds()
	}
	r.c.log.Info("Import progress",
		zap.String("kind", r.kind),
		zap.Int("lines", r.summary.Lines),
		zap.Int("committed", r.summary.Committed),
		zap.Int("errors", r.summary.Errors()),
		zap.Float64("rows_per_second", rate))
}
