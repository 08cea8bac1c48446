package enrichment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suteetoe/cnpjsync/internal/events"
	"github.com/suteetoe/cnpjsync/internal/model"
	"github.com/suteetoe/cnpjsync/internal/upsert"
	"github.com/suteetoe/cnpjsync/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Outcome classifies how a lookup was answered
type Outcome string

const (
	OutcomeFreshHit      Outcome = "fresh_hit"
	OutcomeRefreshed     Outcome = "refreshed"
	OutcomeStaleFallback Outcome = "stale_fallback"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeUnavailable   Outcome = "unavailable"
)

// DefaultFreshness is how long a cached company is served without a refresh
const DefaultFreshness = 7 * 24 * time.Hour

// DefaultRefreshTimeout bounds one shared refresh, lease wait included
const DefaultRefreshTimeout = time.Minute

// Result is the answer to one lookup. Company is set for FreshHit, Refreshed
// and StaleFallback. Cause carries the provider error behind a StaleFallback.
type Result struct {
	Outcome Outcome
	Company *model.EnrichedCompany
	Cause   error
}

// Service answers lookups from the local cache, refreshing stale or missing
// entries from the provider under a per-company lease.
type Service struct {
	db        *gorm.DB
	engine    *upsert.Engine
	provider  Provider
	locker    Locker
	publisher events.Publisher
	log       *zap.Logger
	metrics   *metrics.EnrichmentMetrics
	freshness time.Duration
	timeout   time.Duration
	now       func() time.Time
	group     singleflight.Group
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithFreshness sets the freshness window
func WithFreshness(d time.Duration) Option {
	return func(s *Service) { s.freshness = d }
}

// WithRefreshTimeout bounds a shared refresh. It does not follow the
// cancellation of the caller that started it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithMetrics records lookup outcomes on m
func WithMetrics(m *metrics.EnrichmentMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher sets the event publisher
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService wires the lookup path
func NewService(db *gorm.DB, engine *upsert.Engine, provider Provider, locker Locker, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:        db,
		engine:    engine,
		provider:  provider,
		locker:    locker,
		publisher: events.NopPublisher{},
		log:       log,
		freshness: DefaultFreshness,
		timeout:   DefaultRefreshTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the company identified by rawCNPJ. Invalid identifiers fail
// with ErrInvalidCNPJ. NotFound, RateLimited and Unavailable come back with
// both a Result and the provider error; store failures return only an error.
func (s *Service) Lookup(ctx context.Context, rawCNPJ string) (*Result, error) {
	cnpj, err := NormalizeCNPJ(rawCNPJ)
	if err != nil {
		return nil, err
	}

	res, err := s.lookup(ctx, cnpj)
	if res != nil {
		if s.metrics != nil {
			s.metrics.Outcomes.WithLabelValues(string(res.Outcome)).Inc()
		}
		s.log.Debug("Lookup answered", zap.String("cnpj", cnpj), zap.String("outcome", string(res.Outcome)))
	}
	return res, err
}

func (s *Service) lookup(ctx context.Context, cnpj string) (*Result, error) {
	cached, err := s.load(ctx, cnpj)
	if err != nil {
		return nil, err
	}
	if cached != nil && s.fresh(cached) {
		return &Result{Outcome: OutcomeFreshHit, Company: cached}, nil
	}

	type answer struct {
		res *Result
		err error
	}
	// callers joining this key share the refresh, so it runs detached from
	// whichever request happened to start it
	ch := s.group.DoChan(cnpj, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		res, err := s.refresh(rctx, cnpj)
		return answer{res, err}, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		a := r.Val.(answer)
		return a.res, a.err
	}
}

func (s *Service) fresh(c *model.EnrichedCompany) bool {
	return s.now().Sub(c.SyncedAt) < s.freshness
}

// load reads the cached aggregate with its children, or nil
func (s *Service) load(ctx context.Context, cnpj string) (*model.EnrichedCompany, error) {
	var c model.EnrichedCompany
	err := s.db.WithContext(ctx).
		Preload("Partners", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("cnpj = ?", cnpj).
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load enriched company %s: %w", cnpj, err)
	}
	return &c, nil
}

func (s *Service) refresh(ctx context.Context, cnpj string) (*Result, error) {
	log := s.log.With(zap.String("cnpj", cnpj))

	waitStart := time.Now()
	release, err := s.locker.Acquire(ctx, "cnpj:"+cnpj)
	if s.metrics != nil {
		s.metrics.LeaseWait.Observe(time.Since(waitStart).Seconds())
	}
	if err != nil {
		log.Warn("Lease not acquired", zap.Error(err))
		cached, lerr := s.load(ctx, cnpj)
		if lerr != nil {
			return nil, lerr
		}
		if cached != nil {
			return &Result{Outcome: OutcomeStaleFallback, Company: cached, Cause: err}, nil
		}
		return &Result{Outcome: OutcomeUnavailable}, err
	}
	defer release()

	// another holder may have refreshed while we waited
	cached, err := s.load(ctx, cnpj)
	if err != nil {
		return nil, err
	}
	if cached != nil && s.fresh(cached) {
		return &Result{Outcome: OutcomeFreshHit, Company: cached}, nil
	}

	data, err := s.fetch(ctx, cnpj)
	if err != nil {
		if cached != nil {
			log.Warn("Provider failed, serving stale copy", zap.Error(err), zap.Time("synced_at", cached.SyncedAt))
			return &Result{Outcome: OutcomeStaleFallback, Company: cached, Cause: err}, nil
		}
		outcome := classify(err)
		log.Info("Provider failed", zap.String("outcome", string(outcome)), zap.Error(err))
		return &Result{Outcome: outcome}, err
	}

	agg, err := s.persist(ctx, cnpj, data)
	if err != nil {
		return nil, err
	}
	log.Info("Company refreshed", zap.Uint("id", agg.ID))

	if err := s.publisher.PublishCompanyEnriched(ctx, events.CompanyEnriched{
		ID:        agg.ID,
		CNPJ:      agg.CNPJ,
		LegalName: agg.LegalName,
		Status:    agg.Status,
		SyncedAt:  agg.SyncedAt,
	}); err != nil {
		log.Warn("Failed to publish company enriched event", zap.Error(err))
	}
	return &Result{Outcome: OutcomeRefreshed, Company: agg}, nil
}

func (s *Service) fetch(ctx context.Context, cnpj string) (*ProviderCompany, error) {
	start := time.Now()
	data, err := s.provider.Fetch(ctx, cnpj)
	if err == nil {
		var got string
		got, err = NormalizeCNPJ(data.CNPJ)
		if err == nil && got != cnpj {
			err = fmt.Errorf("%w: asked for %s, got %s", ErrInvalidResponse, cnpj, got)
		} else if err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}
	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = string(classify(err))
		}
		s.metrics.ProviderDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}
	return data, err
}

// persist writes the bulk-shaped rows and the cache aggregate in one transaction
func (s *Service) persist(ctx context.Context, cnpj string, data *ProviderCompany) (*model.EnrichedCompany, error) {
	baseID, _, _ := SplitCNPJ(cnpj)
	agg := aggregateFrom(cnpj, data, s.now().UTC())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.engine.UpsertCompany(tx, companyFrom(baseID, data)); err != nil {
			return err
		}
		if err := s.engine.UpsertEstablishment(tx, establishmentFrom(cnpj, data)); err != nil {
			return err
		}
		if err := s.engine.ReplacePartners(tx, baseID, partnersFrom(baseID, data)); err != nil {
			return err
		}
		if simples := simplesFrom(baseID, data); simples != nil {
			if err := s.engine.UpsertSimples(tx, simples); err != nil {
				return err
			}
		}
		return s.engine.SaveEnrichedAggregate(tx, agg)
	})
	if err != nil {
		return nil, fmt.Errorf("store enriched company %s: %w", cnpj, err)
	}
	return agg, nil
}

// classify maps a provider error to the outcome reported without a local copy
func classify(err error) Outcome {
	switch {
	case errors.Is(err, ErrExternalNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrExternalRateLimited):
		return OutcomeRateLimited
	default:
		return OutcomeUnavailable
	}
}
