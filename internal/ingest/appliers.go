package ingest

import (
	"github.com/suteetoe/cnpjsync/config"
	"github.com/suteetoe/cnpjsync/internal/batch"
	"github.com/suteetoe/cnpjsync/internal/decoder"
	"github.com/suteetoe/cnpjsync/internal/upsert"
	"gorm.io/gorm"
)

// CompanyApplier merges company lines into companies
func CompanyApplier(engine *upsert.Engine) batch.Applier {
	return batch.ApplierFunc(func(tx *gorm.DB, rec *decoder.Record) error {
		return engine.UpsertCompany(tx, CompanyFromRecord(rec))
	})
}

// EstablishmentApplier writes establishments, creating the owning company first
func EstablishmentApplier(engine *upsert.Engine) batch.Applier {
	return batch.ApplierFunc(func(tx *gorm.DB, rec *decoder.Record) error {
		return engine.UpsertEstablishment(tx, EstablishmentFromRecord(rec))
	})
}

// SimplesApplier replaces the tax regime row of each company
func SimplesApplier(engine *upsert.Engine) batch.Applier {
	return batch.ApplierFunc(func(tx *gorm.DB, rec *decoder.Record) error {
		return engine.UpsertSimples(tx, SimplesFromRecord(rec))
	})
}

// PartnerApplier appends partner lines. Under the replace policy the first
// line of each company within a run clears that company's stored partners in
// the same transaction, so re-running a file converges instead of duplicating.
type PartnerApplier struct {
	engine  *upsert.Engine
	replace bool
	cleared map[string]struct{}
	pending map[string]struct{}
}

// NewPartnerApplier builds a partner applier for policy
func NewPartnerApplier(engine *upsert.Engine, policy string) *PartnerApplier {
	return &PartnerApplier{
		engine:  engine,
		replace: policy == config.PartnerPolicyReplace,
		cleared: make(map[string]struct{}),
		pending: make(map[string]struct{}),
	}
}

func (a *PartnerApplier) Apply(tx *gorm.DB, rec *decoder.Record) error {
	p := PartnerFromRecord(rec)
	if a.replace {
		_, done := a.cleared[p.BaseID]
		_, inBatch := a.pending[p.BaseID]
		if !done && !inBatch {
			if err := a.engine.DeletePartners(tx, p.BaseID); err != nil {
				return err
			}
			a.pending[p.BaseID] = struct{}{}
		}
	}
	return a.engine.InsertPartners(tx, p)
}

// Committed makes this batch's clears permanent for the rest of the run
func (a *PartnerApplier) Committed() {
	for id := range a.pending {
		a.cleared[id] = struct{}{}
	}
	clear(a.pending)
}

// RolledBack forgets clears undone by the rollback
func (a *PartnerApplier) RolledBack() {
	clear(a.pending)
}
