package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/suteetoe/cnpjsync/internal/batch"
	"github.com/suteetoe/cnpjsync/internal/decoder"
	"github.com/suteetoe/cnpjsync/internal/upsert"
	"go.uber.org/zap"
)

// Kind names an entity file of the dump
type Kind string

const (
	KindCompanies      Kind = "companies"
	KindEstablishments Kind = "establishments"
	KindPartners       Kind = "partners"
	KindSimples        Kind = "simples"
)

// Kinds returns the accepted entity kinds
func Kinds() []string {
	out := []string{string(KindCompanies), string(KindEstablishments), string(KindPartners), string(KindSimples)}
	sort.Strings(out)
	return out
}

// ParseKind validates an entity kind name
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCompanies, KindEstablishments, KindPartners, KindSimples:
		return k, nil
	}
	return "", fmt.Errorf("unknown import kind %q, want one of %v", s, Kinds())
}

// Importer loads entity files through the batch coordinator
type Importer struct {
	coordinator   *batch.Coordinator
	engine        *upsert.Engine
	log           *zap.Logger
	charset       string
	partnerPolicy string
}

// NewImporter wires an importer
func NewImporter(coordinator *batch.Coordinator, engine *upsert.Engine, log *zap.Logger, charset, partnerPolicy string) *Importer {
	return &Importer{
		coordinator:   coordinator,
		engine:        engine,
		log:           log,
		charset:       charset,
		partnerPolicy: partnerPolicy,
	}
}

// Plan returns the schema and applier for kind
func (i *Importer) Plan(kind Kind) (*decoder.Schema, batch.Applier, error) {
	switch kind {
	case KindCompanies:
		return decoder.Companies, CompanyApplier(i.engine), nil
	case KindEstablishments:
		return decoder.Establishments, EstablishmentApplier(i.engine), nil
	case KindPartners:
		return decoder.Partners, NewPartnerApplier(i.engine, i.partnerPolicy), nil
	case KindSimples:
		return decoder.Simples, SimplesApplier(i.engine), nil
	}
	return nil, nil, fmt.Errorf("unknown import kind %q", kind)
}

// ImportFile loads one file of kind
func (i *Importer) ImportFile(ctx context.Context, kind Kind, path string) (*batch.Summary, error) {
	schema, applier, err := i.Plan(kind)
	if err != nil {
		return nil, err
	}

	src, err := Open(path, i.charset)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	i.log.Info("Loading file", zap.String("kind", string(kind)), zap.String("source", src.Name))
	return i.coordinator.Run(ctx, src, schema, applier)
}
