package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EnrichedCompany is the cache row kept by the on-demand lookup path. Its
// Partners and Activities always mirror the last successful provider fetch.
type EnrichedCompany struct {
	ID                  uint                `json:"id" gorm:"primarykey"`
	CNPJ                string              `json:"cnpj" gorm:"type:char(14);uniqueIndex;not null"`
	BaseID              string              `json:"base_id" gorm:"type:char(8);index;not null"`
	BranchOrder         string              `json:"branch_order" gorm:"type:char(4);not null"`
	CheckDigits         string              `json:"check_digits" gorm:"type:char(2);not null"`
	LegalName           string              `json:"legal_name" gorm:"type:text"`
	TradeName           string              `json:"trade_name" gorm:"type:text"`
	LegalNatureCode     *int64              `json:"legal_nature_code"`
	LegalNature         string              `json:"legal_nature" gorm:"type:text"`
	Capital             decimal.NullDecimal `json:"capital" gorm:"type:numeric(20,2)"`
	SizeCode            *int64              `json:"size_code"`
	Size                string              `json:"size" gorm:"type:text"`
	HeadOffice          *int64              `json:"head_office"`
	StatusCode          *int64              `json:"status_code"`
	Status              string              `json:"status" gorm:"type:text"`
	StatusDate          *time.Time          `json:"status_date" gorm:"type:date"`
	StatusReasonCode    *int64              `json:"status_reason_code"`
	ActivityStartDate   *time.Time          `json:"activity_start_date" gorm:"type:date"`
	PrimaryActivity     *string             `json:"primary_activity" gorm:"type:varchar(7)"`
	PrimaryActivityDesc string              `json:"primary_activity_description" gorm:"type:text"`
	StreetType          string              `json:"street_type" gorm:"type:text"`
	Street              string              `json:"street" gorm:"type:text"`
	Number              string              `json:"number" gorm:"type:text"`
	Complement          string              `json:"complement" gorm:"type:text"`
	District            string              `json:"district" gorm:"type:text"`
	ZipCode             string              `json:"zip_code" gorm:"type:varchar(8)"`
	State               string              `json:"state" gorm:"type:varchar(2)"`
	Municipality        string              `json:"municipality" gorm:"type:text"`
	MunicipalityCode    *int64              `json:"municipality_code"`
	Phone               string              `json:"phone" gorm:"type:text"`
	Email               string              `json:"email" gorm:"type:text"`
	SimplesOpted        *bool               `json:"simples_opted"`
	MEIOpted            *bool               `json:"mei_opted"`
	SyncedAt            time.Time           `json:"synced_at" gorm:"not null;index"`
	Partners            []EnrichedPartner   `json:"partners" gorm:"foreignKey:CompanyID"`
	Activities          []EnrichedActivity  `json:"secondary_activities" gorm:"foreignKey:CompanyID"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// EnrichedPartner is one partner from the provider's partner list
type EnrichedPartner struct {
	ID                    uint       `json:"id" gorm:"primarykey"`
	CompanyID             uint       `json:"company_id" gorm:"index;not null"`
	Position              int        `json:"position"`
	Kind                  *int64     `json:"kind"`
	Name                  string     `json:"name" gorm:"type:text"`
	TaxID                 string     `json:"tax_id" gorm:"type:varchar(14)"`
	QualificationCode     *int64     `json:"qualification_code"`
	Qualification         string     `json:"qualification" gorm:"type:text"`
	EntryDate             *time.Time `json:"entry_date" gorm:"type:date"`
	CountryCode           *int64     `json:"country_code"`
	LegalRepTaxID         string     `json:"legal_rep_tax_id" gorm:"type:varchar(14)"`
	LegalRepName          string     `json:"legal_rep_name" gorm:"type:text"`
	LegalRepQualification *int64     `json:"legal_rep_qualification"`
	AgeBracket            *int64     `json:"age_bracket"`
}

// EnrichedActivity is one secondary activity, in provider order
type EnrichedActivity struct {
	ID          uint   `json:"id" gorm:"primarykey"`
	CompanyID   uint   `json:"company_id" gorm:"index;not null"`
	Position    int    `json:"position"`
	Code        string `json:"code" gorm:"type:varchar(7)"`
	Description string `json:"description" gorm:"type:text"`
}
