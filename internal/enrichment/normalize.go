package enrichment

import (
	"fmt"
	"strings"
	"time"

	"github.com/suteetoe/cnpjsync/internal/model"
)

const providerDateLayout = "2006-01-02"

// providerDate parses an ISO date, treating blanks as absent
func providerDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(providerDateLayout, s, time.UTC)
	if err != nil || t.Year() < 1000 {
		return nil
	}
	return &t
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitPhone separates "1133334444" into area code and number
func splitPhone(s string) (ddd, number *string) {
	d := onlyDigits(s)
	if len(d) <= 2 {
		return nil, optional(d)
	}
	return optional(d[:2]), optional(d[2:])
}

func activityCode(code *int64) *string {
	if code == nil || *code == 0 {
		return nil
	}
	s := fmt.Sprintf("%07d", *code)
	return &s
}

// companyFrom builds the bulk-shaped company row of p
func companyFrom(baseID string, p *ProviderCompany) *model.Company {
	return &model.Company{
		BaseID:                   baseID,
		LegalName:                optional(p.RazaoSocial),
		LegalNatureCode:          p.CodigoNaturezaJuridica,
		ResponsibleQualification: p.QualificacaoResponsavel,
		Capital:                  p.CapitalSocial,
		SizeCode:                 p.CodigoPorte,
		FederativeEntity:         optional(p.EnteFederativo),
	}
}

// establishmentFrom builds the bulk-shaped establishment row of p
func establishmentFrom(cnpj string, p *ProviderCompany) *model.Establishment {
	base, order, dv := SplitCNPJ(cnpj)
	ddd1, phone1 := splitPhone(p.DDDTelefone1)
	ddd2, phone2 := splitPhone(p.DDDTelefone2)
	faxDDD, fax := splitPhone(p.DDDFax)

	secondary := make([]string, 0, len(p.CNAEsSecundarios))
	for _, a := range p.CNAEsSecundarios {
		if code := activityCode(&a.Codigo); code != nil {
			secondary = append(secondary, *code)
		}
	}

	return &model.Establishment{
		BaseID:               base,
		BranchOrder:          order,
		CheckDigits:          dv,
		HeadOffice:           p.IdentificadorMatrizFilial,
		TradeName:            optional(p.NomeFantasia),
		StatusCode:           p.SituacaoCadastral,
		StatusDate:           providerDate(p.DataSituacaoCadastral),
		StatusReasonCode:     p.MotivoSituacaoCadastral,
		ForeignCity:          optional(p.NomeCidadeExterior),
		CountryCode:          p.CodigoPais,
		ActivityStartDate:    providerDate(p.DataInicioAtividade),
		PrimaryActivity:      activityCode(p.CNAEFiscal),
		SecondaryActivities:  secondary,
		StreetType:           optional(p.DescricaoTipoLogradouro),
		Street:               optional(p.Logradouro),
		Number:               optional(p.Numero),
		Complement:           optional(p.Complemento),
		District:             optional(p.Bairro),
		ZipCode:              optional(onlyDigits(p.CEP)),
		State:                optional(p.UF),
		MunicipalityCode:     p.CodigoMunicipio,
		DDD1:                 ddd1,
		Phone1:               phone1,
		DDD2:                 ddd2,
		Phone2:               phone2,
		FaxDDD:               faxDDD,
		Fax:                  fax,
		Email:                optional(strings.ToLower(p.Email)),
		SpecialSituation:     optional(p.SituacaoEspecial),
		SpecialSituationDate: providerDate(p.DataSituacaoEspecial),
	}
}

// partnersFrom builds the bulk-shaped partner set of p
func partnersFrom(baseID string, p *ProviderCompany) []model.Partner {
	partners := make([]model.Partner, 0, len(p.QSA))
	for _, s := range p.QSA {
		partners = append(partners, model.Partner{
			BaseID:                baseID,
			Kind:                  s.IdentificadorSocio,
			Name:                  optional(s.NomeSocio),
			TaxID:                 optional(s.CNPJCPFSocio),
			QualificationCode:     s.CodigoQualificacaoSocio,
			EntryDate:             providerDate(s.DataEntradaSociedade),
			CountryCode:           s.CodigoPais,
			LegalRepTaxID:         optional(s.CPFRepresentanteLegal),
			LegalRepName:          optional(s.NomeRepresentanteLegal),
			LegalRepQualification: s.CodigoQualificacaoRepresent,
			AgeBracket:            s.CodigoFaixaEtaria,
		})
	}
	return partners
}

// simplesFrom returns nil when the provider says nothing about the tax regime
func simplesFrom(baseID string, p *ProviderCompany) *model.SimplesOption {
	if p.OpcaoPeloSimples == nil && p.OpcaoPeloMEI == nil {
		return nil
	}
	return &model.SimplesOption{
		BaseID:            baseID,
		SimplesOpted:      p.OpcaoPeloSimples,
		SimplesOptedAt:    providerDate(p.DataOpcaoPeloSimples),
		SimplesExcludedAt: providerDate(p.DataExclusaoDoSimples),
		MEIOpted:          p.OpcaoPeloMEI,
		MEIOptedAt:        providerDate(p.DataOpcaoPeloMEI),
		MEIExcludedAt:     providerDate(p.DataExclusaoDoMEI),
	}
}

// aggregateFrom builds the cache row of p, stamped with syncedAt
func aggregateFrom(cnpj string, p *ProviderCompany, syncedAt time.Time) *model.EnrichedCompany {
	est := establishmentFrom(cnpj, p)
	base, order, dv := SplitCNPJ(cnpj)

	phone := ""
	if est.DDD1 != nil && est.Phone1 != nil {
		phone = *est.DDD1 + *est.Phone1
	}
	email := ""
	if est.Email != nil {
		email = *est.Email
	}
	zip := ""
	if est.ZipCode != nil {
		zip = *est.ZipCode
	}

	agg := &model.EnrichedCompany{
		CNPJ:                cnpj,
		BaseID:              base,
		BranchOrder:         order,
		CheckDigits:         dv,
		LegalName:           strings.TrimSpace(p.RazaoSocial),
		TradeName:           strings.TrimSpace(p.NomeFantasia),
		LegalNatureCode:     p.CodigoNaturezaJuridica,
		LegalNature:         p.NaturezaJuridica,
		Capital:             p.CapitalSocial,
		SizeCode:            p.CodigoPorte,
		Size:                p.Porte,
		HeadOffice:          p.IdentificadorMatrizFilial,
		StatusCode:          p.SituacaoCadastral,
		Status:              p.DescricaoSituacao,
		StatusDate:          est.StatusDate,
		StatusReasonCode:    p.MotivoSituacaoCadastral,
		ActivityStartDate:   est.ActivityStartDate,
		PrimaryActivity:     est.PrimaryActivity,
		PrimaryActivityDesc: p.CNAEFiscalDescricao,
		StreetType:          p.DescricaoTipoLogradouro,
		Street:              p.Logradouro,
		Number:              p.Numero,
		Complement:          p.Complemento,
		District:            p.Bairro,
		ZipCode:             zip,
		State:               p.UF,
		Municipality:        p.Municipio,
		MunicipalityCode:    p.CodigoMunicipio,
		Phone:               phone,
		Email:               email,
		SimplesOpted:        p.OpcaoPeloSimples,
		MEIOpted:            p.OpcaoPeloMEI,
		SyncedAt:            syncedAt,
	}

	for _, s := range p.QSA {
		agg.Partners = append(agg.Partners, model.EnrichedPartner{
			Kind:                  s.IdentificadorSocio,
			Name:                  s.NomeSocio,
			TaxID:                 s.CNPJCPFSocio,
			QualificationCode:     s.CodigoQualificacaoSocio,
			Qualification:         s.QualificacaoSocio,
			EntryDate:             providerDate(s.DataEntradaSociedade),
			CountryCode:           s.CodigoPais,
			LegalRepTaxID:         s.CPFRepresentanteLegal,
			LegalRepName:          s.NomeRepresentanteLegal,
			LegalRepQualification: s.CodigoQualificacaoRepresent,
			AgeBracket:            s.CodigoFaixaEtaria,
		})
	}
	for _, a := range p.CNAEsSecundarios {
		code := activityCode(&a.Codigo)
		if code == nil {
			continue
		}
		agg.Activities = append(agg.Activities, model.EnrichedActivity{
			Code:        *code,
			Description: a.Descricao,
		})
	}
	return agg
}
