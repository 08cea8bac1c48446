// Package reference loads the code lookup tables of the dump.
package reference

import (
	"context"
	"fmt"
	"io"

	"github.com/suteetoe/cnpjsync/internal/batch"
	"github.com/suteetoe/cnpjsync/internal/decoder"
	"github.com/suteetoe/cnpjsync/internal/model"
	"github.com/suteetoe/cnpjsync/internal/upsert"
	"github.com/suteetoe/cnpjsync/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result tallies one synchronized file
type Result struct {
	Table        model.ReferenceTable
	Lines        int
	Inserted     int
	Updated      int
	Skipped      int
	SkippedLines []int
	// Failed counts rows lost to rolled back transactions.
	Failed  int
	Summary *batch.Summary
}

func (r *Result) String() string {
	return fmt.Sprintf("%s: %d lines, %d inserted, %d updated, %d skipped, %d failed",
		r.Table, r.Lines, r.Inserted, r.Updated, r.Skipped, r.Failed)
}

// Synchronizer applies reference files through the batch coordinator
type Synchronizer struct {
	coordinator *batch.Coordinator
	engine      *upsert.Engine
	log         *zap.Logger
	metrics     *metrics.IngestMetrics
}

// NewSynchronizer wires a synchronizer. m may be nil.
func NewSynchronizer(coordinator *batch.Coordinator, engine *upsert.Engine, log *zap.Logger, m *metrics.IngestMetrics) *Synchronizer {
	return &Synchronizer{coordinator: coordinator, engine: engine, log: log, metrics: m}
}

// tally counts inserts and updates, keeping only what committed
type tally struct {
	engine  *upsert.Engine
	table   model.ReferenceTable
	pending [2]int
	done    [2]int
}

const (
	inserted = iota
	updated
)

func (t *tally) Apply(tx *gorm.DB, rec *decoder.Record) error {
	code, _ := rec.String("code")
	description, _ := rec.String("description")

	isNew, err := t.engine.UpsertReference(tx, t.table, code, description)
	if err != nil {
		return err
	}
	if isNew {
		t.pending[inserted]++
	} else {
		t.pending[updated]++
	}
	return nil
}

func (t *tally) Committed() {
	t.done[inserted] += t.pending[inserted]
	t.done[updated] += t.pending[updated]
	t.pending = [2]int{}
}

func (t *tally) RolledBack() {
	t.pending = [2]int{}
}

// Sync loads src into table. Lines missing a code or description are skipped
// and reported; re-running the same file only refreshes descriptions.
func (s *Synchronizer) Sync(ctx context.Context, table model.ReferenceTable, src io.Reader) (*Result, error) {
	t := &tally{engine: s.engine, table: table}
	summary, err := s.coordinator.Run(ctx, src, decoder.Reference, t)

	res := &Result{Table: table, Summary: summary}
	if summary != nil {
		res.Lines = summary.Lines
		res.Skipped = summary.ValidationErrors
		res.Failed = summary.StoreErrors
		for _, row := range summary.Report.RowFailures {
			res.SkippedLines = append(res.SkippedLines, row.Line)
			s.log.Warn("Reference line skipped",
				zap.String("table", string(table)),
				zap.Int("line", row.Line),
				zap.String("reason", row.Reason))
		}
	}
	res.Inserted = t.done[inserted]
	res.Updated = t.done[updated]

	if s.metrics != nil {
		s.metrics.ReferenceRows.WithLabelValues(string(table), "inserted").Add(float64(res.Inserted))
		s.metrics.ReferenceRows.WithLabelValues(string(table), "updated").Add(float64(res.Updated))
		s.metrics.ReferenceRows.WithLabelValues(string(table), "skipped").Add(float64(res.Skipped))
	}

	if err != nil {
		return res, fmt.Errorf("sync %s: %w", table, err)
	}
	s.log.Info("Reference table synchronized",
		zap.String("table", string(table)),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))
	return res, nil
}
