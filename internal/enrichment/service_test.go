package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/cnpjsync/internal/events"
	"github.com/suteetoe/cnpjsync/internal/model"
	"github.com/suteetoe/cnpjsync/internal/testutil"
	"github.com/suteetoe/cnpjsync/internal/upsert"
	"github.com/suteetoe/cnpjsync/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const acmeCNPJ = "11222333000181"

type fakeProvider struct {
	calls atomic.Int32
	delay time.Duration

	mu  sync.Mutex
	err error
	doc *ProviderCompany
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	var doc ProviderCompany
	require.NoError(t, json.Unmarshal([]byte(acmeJSON), &doc))
	return &fakeProvider{doc: &doc}
}

func (p *fakeProvider) Fetch(ctx context.Context, cnpj string) (*ProviderCompany, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	doc := *p.doc
	return &doc, nil
}

func (p *fakeProvider) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.CompanyEnriched
}

func (p *recordingPublisher) PublishCompanyEnriched(_ context.Context, ev events.CompanyEnriched) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	db        *gorm.DB
	provider  *fakeProvider
	clock     *clock
	publisher *recordingPublisher
	metrics   *metrics.EnrichmentMetrics
	svc       *Service
}

const freshness = 24 * time.Hour

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:        testutil.NewDB(t),
		provider:  newFakeProvider(t),
		clock:     &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
		metrics:   metrics.NewEnrichmentMetrics(prometheus.NewRegistry(), "test"),
	}
	f.svc = f.service(NewLocalLocker(5 * time.Second))
	return f
}

func (f *fixture) service(locker Locker) *Service {
	return NewService(f.db, upsert.NewEngine(), f.provider, locker, zap.NewNop(),
		WithClock(f.clock.now),
		WithFreshness(freshness),
		WithMetrics(f.metrics),
		WithPublisher(f.publisher),
	)
}

func TestLookup_MissFetchesAndStores(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Lookup(context.Background(), "11.222.333/0001-81")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefreshed, res.Outcome)
	assert.Equal(t, int32(1), f.provider.calls.Load())

	agg := res.Company
	require.NotNil(t, agg)
	assert.NotZero(t, agg.ID)
	assert.Equal(t, acmeCNPJ, agg.CNPJ)
	assert.Equal(t, "ACME COMERCIO LTDA", agg.LegalName)
	assert.Equal(t, "1133334444", agg.Phone)
	assert.Equal(t, "contato@acme.com.br", agg.Email)
	assert.True(t, f.clock.now().Equal(agg.SyncedAt))

	stored, err := f.svc.load(context.Background(), acmeCNPJ)
	require.NoError(t, err)
	require.Len(t, stored.Partners, 2)
	assert.Equal(t, "MARIA SILVA", stored.Partners[0].Name)
	require.Len(t, stored.Activities, 2)
	assert.Equal(t, "6201501", stored.Activities[0].Code)

	var company model.Company
	require.NoError(t, f.db.Take(&company, "base_id = ?", "11222333").Error)
	require.NotNil(t, company.LegalName)
	assert.Equal(t, "ACME COMERCIO LTDA", *company.LegalName)
	assert.Equal(t, "150000.5", company.Capital.Decimal.String())

	var est model.Establishment
	require.NoError(t, f.db.Take(&est).Error)
	assert.Equal(t, acmeCNPJ, est.CNPJ())
	require.NotNil(t, est.PrimaryActivity)
	assert.Equal(t, "4751201", *est.PrimaryActivity)
	require.NotNil(t, est.ZipCode)
	assert.Equal(t, "01001000", *est.ZipCode)

	assert.Equal(t, int64(2), testutil.Count(t, f.db, "partners"))
	assert.Equal(t, int64(1), testutil.Count(t, f.db, "simples_options"))

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, agg.ID, f.publisher.events[0].ID)
	assert.Equal(t, float64(1), promtest.ToFloat64(f.metrics.Outcomes.WithLabelValues("refreshed")))
}

func TestLookup_FreshnessWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Lookup(ctx, acmeCNPJ)
	require.NoError(t, err)

	f.clock.advance(freshness - time.Second)
	res, err := f.svc.Lookup(ctx, acmeCNPJ)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFreshHit, res.Outcome)
	assert.Equal(t, int32(1), f.provider.calls.Load())

	f.clock.advance(time.Second)
	res, err = f.svc.Lookup(ctx, acmeCNPJ)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefreshed, res.Outcome)
	assert.Equal(t, int32(2), f.provider.calls.Load())

	// children and bulk partners are replaced, not appended
	assert.Equal(t, int64(2), testutil.Count(t, f.db, "enriched_partners"))
	assert.Equal(t, int64(2), testutil.Count(t, f.db, "enriched_activities"))
	assert.Equal(t, int64(2), testutil.Count(t, f.db, "partners"))
	assert.Equal(t, int64(1), testutil.Count(t, f.db, "enriched_companies"))
}

func TestLookup_StaleFallbackOnProviderFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Lookup(ctx, acmeCNPJ)
	require.NoError(t, err)

	f.clock.advance(2 * freshness)
	f.provider.fail(ErrExternalNotFound)

	res, err := f.svc.Lookup(ctx, acmeCNPJ)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStaleFallback, res.Outcome)
	assert.ErrorIs(t, res.Cause, ErrExternalNotFound)
	require.NotNil(t, res.Company)
	assert.Equal(t, first.Company.ID, res.Company.ID)
	assert.True(t, first.Company.SyncedAt.Equal(res.Company.SyncedAt))
}

func TestLookup_FailuresWithoutLocalCopy(t *testing.T) {
	tests := []struct {
		err     error
		outcome Outcome
	}{
		{ErrExternalNotFound, OutcomeNotFound},
		{ErrExternalRateLimited, OutcomeRateLimited},
		{&ExternalTransportError{StatusCode: 500, Err: errors.New("boom")}, OutcomeUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			f := newFixture(t)
			f.provider.fail(tt.err)

			res, err := f.svc.Lookup(context.Background(), acmeCNPJ)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			require.NotNil(t, res)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Nil(t, res.Company)
			assert.Zero(t, testutil.Count(t, f.db, "enriched_companies"))
		})
	}
}

func TestLookup_InvalidIdentifierSkipsProvider(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Lookup(context.Background(), "11222333000182")
	assert.ErrorIs(t, err, ErrInvalidCNPJ)
	assert.Nil(t, res)
	assert.Zero(t, f.provider.calls.Load())
}

func TestLookup_RejectsDocumentForAnotherCompany(t *testing.T) {
	f := newFixture(t)
	f.provider.doc.CNPJ = "12345678000195"

	res, err := f.svc.Lookup(context.Background(), acmeCNPJ)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeUnavailable, res.Outcome)
}

func TestLookup_ConcurrentCallersShareOneFetch(t *testing.T) {
	f := newFixture(t)
	f.provider.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 10)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Lookup(context.Background(), acmeCNPJ)
			if assert.NoError(t, err) {
				outcomes[i] = res.Outcome
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.provider.calls.Load())
	for _, o := range outcomes {
		assert.Contains(t, []Outcome{OutcomeRefreshed, OutcomeFreshHit}, o)
	}
	assert.Equal(t, int64(1), testutil.Count(t, f.db, "enriched_companies"))
}

func TestLookup_CancelledCallerDoesNotAbortSharedRefresh(t *testing.T) {
	f := newFixture(t)
	f.provider.delay = 200 * time.Millisecond

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := f.svc.Lookup(ctxA, acmeCNPJ)
		errA <- err
	}()
	require.Eventually(t, func() bool { return f.provider.calls.Load() == 1 }, time.Second, time.Millisecond)

	type answer struct {
		res *Result
		err error
	}
	doneB := make(chan answer, 1)
	go func() {
		res, err := f.svc.Lookup(context.Background(), acmeCNPJ)
		doneB <- answer{res, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancelA()

	assert.ErrorIs(t, <-errA, context.Canceled)

	b := <-doneB
	require.NoError(t, b.err)
	require.NotNil(t, b.res)
	assert.Equal(t, OutcomeRefreshed, b.res.Outcome)
	assert.Equal(t, int32(1), f.provider.calls.Load())
	assert.Equal(t, int64(1), testutil.Count(t, f.db, "enriched_companies"))
}

func TestLookup_RedisLeaseSerializesInstances(t *testing.T) {
	f := newFixture(t)
	f.provider.delay = 50 * time.Millisecond

	srv := miniredis.RunT(t)
	newLocker := func() Locker {
		client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisLocker(client, 10*time.Second, 5*time.Second, zap.NewNop())
	}
	// two instances: separate singleflight groups, shared lease store
	a := f.service(newLocker())
	b := f.service(newLocker())

	var wg sync.WaitGroup
	for _, svc := range []*Service{a, b, a, b} {
		wg.Add(1)
		go func(svc *Service) {
			defer wg.Done()
			_, err := svc.Lookup(context.Background(), acmeCNPJ)
			assert.NoError(t, err)
		}(svc)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.provider.calls.Load())
	assert.Empty(t, srv.Keys())
}

func TestLookup_LeaseTimeoutFallsBack(t *testing.T) {
	f := newFixture(t)
	locker := NewLocalLocker(10 * time.Millisecond)
	svc := f.service(locker)

	hold, err := locker.Acquire(context.Background(), "cnpj:"+acmeCNPJ)
	require.NoError(t, err)
	defer hold()

	res, err := svc.Lookup(context.Background(), acmeCNPJ)
	assert.ErrorIs(t, err, ErrLeaseTimeout)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeUnavailable, res.Outcome)
	assert.Zero(t, f.provider.calls.Load())
}
