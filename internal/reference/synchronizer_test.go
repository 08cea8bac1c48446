package reference

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/cnpjsync/internal/batch"
	"github.com/suteetoe/cnpjsync/internal/model"
	"github.com/suteetoe/cnpjsync/internal/testutil"
	"github.com/suteetoe/cnpjsync/internal/upsert"
	"github.com/suteetoe/cnpjsync/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const motiFile = `"00";"SEM MOTIVO"
"01";"EXTINCAO POR ENCERRAMENTO LIQUIDACAO VOLUNTARIA"
"02";"INCORPORACAO"
"03";""
;"SEM CODIGO"
"04";"FUSAO"
`

func newSynchronizer(t *testing.T, db *gorm.DB, batchSize int) (*Synchronizer, *metrics.IngestMetrics) {
	t.Helper()
	m := metrics.NewIngestMetrics(prometheus.NewRegistry(), "test")
	c := batch.NewCoordinator(db, zap.NewNop(), m)
	c.BatchSize = batchSize
	return NewSynchronizer(c, upsert.NewEngine(), zap.NewNop(), m), m
}

func TestSync_TalliesAndSkips(t *testing.T) {
	db := testutil.NewDB(t)
	s, m := newSynchronizer(t, db, 2)

	res, err := s.Sync(context.Background(), model.StatusReasons, strings.NewReader(motiFile))
	require.NoError(t, err)

	assert.Equal(t, 6, res.Lines)
	assert.Equal(t, 4, res.Inserted)
	assert.Zero(t, res.Updated)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []int{4, 5}, res.SkippedLines)
	assert.Equal(t, int64(4), testutil.Count(t, db, string(model.StatusReasons)))
	assert.Equal(t, float64(4), promtest.ToFloat64(m.ReferenceRows.WithLabelValues("status_reasons", "inserted")))
	assert.Contains(t, res.String(), "4 inserted")
}

func TestSync_SecondRunOnlyUpdates(t *testing.T) {
	db := testutil.NewDB(t)
	s, _ := newSynchronizer(t, db, 3)

	_, err := s.Sync(context.Background(), model.StatusReasons, strings.NewReader(motiFile))
	require.NoError(t, err)

	res, err := s.Sync(context.Background(), model.StatusReasons, strings.NewReader(motiFile))
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	assert.Equal(t, 4, res.Updated)
	assert.Equal(t, int64(4), testutil.Count(t, db, string(model.StatusReasons)))
}

func TestSync_RefreshesDescription(t *testing.T) {
	db := testutil.NewDB(t)
	s, _ := newSynchronizer(t, db, 10)

	_, err := s.Sync(context.Background(), model.ActivityCodes, strings.NewReader("\"6201501\";\"DESENVOLVIMENTO\"\n"))
	require.NoError(t, err)
	res, err := s.Sync(context.Background(), model.ActivityCodes, strings.NewReader("\"6201501\";\"Desenvolvimento de programas\"\n\"6202300\";\"Customizaveis\"\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Updated)

	var row model.ReferenceRow
	require.NoError(t, db.Table(string(model.ActivityCodes)).Where("code = ?", "6201501").Take(&row).Error)
	assert.Equal(t, "Desenvolvimento de programas", row.Description)
}
