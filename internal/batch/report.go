package batch

import (
	"fmt"
	"time"

	"github.com/suteetoe/cnpjsync/internal/decoder"
)

// BatchStoreError is a store failure that rolled back a whole batch
type BatchStoreError struct {
	FirstLine int
	LastLine  int
	Size      int
	Err       error
}

func (e *BatchStoreError) Error() string {
	return fmt.Sprintf("batch of %d rows (lines %d-%d) rolled back: %v", e.Size, e.FirstLine, e.LastLine, e.Err)
}

func (e *BatchStoreError) Unwrap() error {
	return e.Err
}

// Report keeps the per-row and per-batch failures of a run. Counts are exact;
// details are kept up to Limit entries each.
type Report struct {
	Limit         int
	RowFailures   []*decoder.RowValidationError
	BatchFailures []*BatchStoreError
	FieldIssues   int
	truncatedRows int
	truncatedBats int
}

func (r *Report) addRow(err *decoder.RowValidationError) {
	if r.Limit > 0 && len(r.RowFailures) >= r.Limit {
		r.truncatedRows++
		return
	}
	r.RowFailures = append(r.RowFailures, err)
}

func (r *Report) addBatch(err *BatchStoreError) {
	if r.Limit > 0 && len(r.BatchFailures) >= r.Limit {
		r.truncatedBats++
		return
	}
	r.BatchFailures = append(r.BatchFailures, err)
}

// Truncated reports how many failures were counted but not kept
func (r *Report) Truncated() (rows, batches int) {
	return r.truncatedRows, r.truncatedBats
}

// Summary is the end-of-run statistics of one file
type Summary struct {
	Kind             string
	Lines            int
	Committed        int
	ValidationErrors int
	StoreErrors      int
	Batches          int
	FailedBatches    int
	Elapsed          time.Duration
	Report           Report
}

// Errors is the number of rows that did not make it to the store
func (s *Summary) Errors() int {
	return s.ValidationErrors + s.StoreErrors
}

// RowsPerSecond is committed throughput over the whole run
func (s *Summary) RowsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Committed) / s.Elapsed.Seconds()
}

func (s *Summary) String() string {
	return fmt.Sprintf("%s: %d lines, %d committed, %d errors (%d invalid, %d in failed batches), %s, %.0f rows/s",
		s.Kind, s.Lines, s.Committed, s.Errors(), s.ValidationErrors, s.StoreErrors,
		s.Elapsed.Round(time.Millisecond), s.RowsPerSecond())
}
