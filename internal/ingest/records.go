package ingest

import (
	"github.com/suteetoe/cnpjsync/internal/decoder"
	"github.com/suteetoe/cnpjsync/internal/model"
)

func baseID(rec *decoder.Record) string {
	s, _ := rec.String(decoder.ColBaseID)
	return s
}

// CompanyFromRecord maps a decoded companies line
func CompanyFromRecord(rec *decoder.Record) *model.Company {
	return &model.Company{
		BaseID:                   baseID(rec),
		LegalName:                rec.StringPtr("legal_name"),
		LegalNatureCode:          rec.IntPtr("legal_nature_code"),
		ResponsibleQualification: rec.IntPtr("responsible_qualification"),
		Capital:                  rec.NullDecimal("capital"),
		SizeCode:                 rec.IntPtr("size_code"),
		FederativeEntity:         rec.StringPtr("federative_entity"),
	}
}

// EstablishmentFromRecord maps a decoded establishments line
func EstablishmentFromRecord(rec *decoder.Record) *model.Establishment {
	order, _ := rec.String("branch_order")
	dv, _ := rec.String("check_digits")
	secondary, _ := rec.List("secondary_activities")
	if secondary == nil {
		secondary = []string{}
	}

	return &model.Establishment{
		BaseID:               baseID(rec),
		BranchOrder:          order,
		CheckDigits:          dv,
		HeadOffice:           rec.IntPtr("head_office"),
		TradeName:            rec.StringPtr("trade_name"),
		StatusCode:           rec.IntPtr("status_code"),
		StatusDate:           rec.DatePtr("status_date"),
		StatusReasonCode:     rec.IntPtr("status_reason_code"),
		ForeignCity:          rec.StringPtr("foreign_city"),
		CountryCode:          rec.IntPtr("country_code"),
		ActivityStartDate:    rec.DatePtr("activity_start_date"),
		PrimaryActivity:      rec.StringPtr("primary_activity"),
		SecondaryActivities:  secondary,
		StreetType:           rec.StringPtr("street_type"),
		Street:               rec.StringPtr("street"),
		Number:               rec.StringPtr("number"),
		Complement:           rec.StringPtr("complement"),
		District:             rec.StringPtr("district"),
		ZipCode:              rec.StringPtr("zip_code"),
		State:                rec.StringPtr("state"),
		MunicipalityCode:     rec.IntPtr("municipality_code"),
		DDD1:                 rec.StringPtr("ddd1"),
		Phone1:               rec.StringPtr("phone1"),
		DDD2:                 rec.StringPtr("ddd2"),
		Phone2:               rec.StringPtr("phone2"),
		FaxDDD:               rec.StringPtr("fax_ddd"),
		Fax:                  rec.StringPtr("fax"),
		Email:                rec.StringPtr("email"),
		SpecialSituation:     rec.StringPtr("special_situation"),
		SpecialSituationDate: rec.DatePtr("special_situation_date"),
	}
}

// PartnerFromRecord maps a decoded partners line
func PartnerFromRecord(rec *decoder.Record) model.Partner {
	return model.Partner{
		BaseID:                baseID(rec),
		Kind:                  rec.IntPtr("kind"),
		Name:                  rec.StringPtr("name"),
		TaxID:                 rec.StringPtr("tax_id"),
		QualificationCode:     rec.IntPtr("qualification_code"),
		EntryDate:             rec.DatePtr("entry_date"),
		CountryCode:           rec.IntPtr("country_code"),
		LegalRepTaxID:         rec.StringPtr("legal_rep_tax_id"),
		LegalRepName:          rec.StringPtr("legal_rep_name"),
		LegalRepQualification: rec.IntPtr("legal_rep_qualification"),
		AgeBracket:            rec.IntPtr("age_bracket"),
	}
}

// SimplesFromRecord maps a decoded simples line
func SimplesFromRecord(rec *decoder.Record) *model.SimplesOption {
	return &model.SimplesOption{
		BaseID:            baseID(rec),
		SimplesOpted:      rec.FlagPtr("simples_opted"),
		SimplesOptedAt:    rec.DatePtr("simples_opted_at"),
		SimplesExcludedAt: rec.DatePtr("simples_excluded_at"),
		MEIOpted:          rec.FlagPtr("mei_opted"),
		MEIOptedAt:        rec.DatePtr("mei_opted_at"),
		MEIExcludedAt:     rec.DatePtr("mei_excluded_at"),
	}
}
