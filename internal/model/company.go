package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is the registry entry shared by all establishments with the same
// 8-digit base identifier. Every attribute is nullable: a company row can be
// created from an establishment line before its own file is loaded.
type Company struct {
	BaseID                   string              `json:"base_id" gorm:"primaryKey;type:char(8)"`
	LegalName                *string             `json:"legal_name" gorm:"type:text"`
	LegalNatureCode          *int64              `json:"legal_nature_code"`
	ResponsibleQualification *int64              `json:"responsible_qualification"`
	Capital                  decimal.NullDecimal `json:"capital" gorm:"type:numeric(20,2)"`
	SizeCode                 *int64              `json:"size_code"`
	FederativeEntity         *string             `json:"federative_entity" gorm:"type:text"`
	CreatedAt                time.Time           `json:"created_at"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

// SimplesOption describes enrollment in the simplified tax regime, one row per company
type SimplesOption struct {
	BaseID            string     `json:"base_id" gorm:"primaryKey;type:char(8)"`
	SimplesOpted      *bool      `json:"simples_opted"`
	SimplesOptedAt    *time.Time `json:"simples_opted_at" gorm:"type:date"`
	SimplesExcludedAt *time.Time `json:"simples_excluded_at" gorm:"type:date"`
	MEIOpted          *bool      `json:"mei_opted"`
	MEIOptedAt        *time.Time `json:"mei_opted_at" gorm:"type:date"`
	MEIExcludedAt     *time.Time `json:"mei_excluded_at" gorm:"type:date"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Partner is one entry of a company's partner list. Source data may repeat
// partners, so there is no natural unique key.
type Partner struct {
	ID                    uint       `json:"id" gorm:"primarykey"`
	BaseID                string     `json:"base_id" gorm:"type:char(8);index;not null"`
	Kind                  *int64     `json:"kind"`
	Name                  *string    `json:"name" gorm:"type:text"`
	TaxID                 *string    `json:"tax_id" gorm:"type:varchar(14)"`
	QualificationCode     *int64     `json:"qualification_code"`
	EntryDate             *time.Time `json:"entry_date" gorm:"type:date"`
	CountryCode           *int64     `json:"country_code"`
	LegalRepTaxID         *string    `json:"legal_rep_tax_id" gorm:"type:varchar(14)"`
	LegalRepName          *string    `json:"legal_rep_name" gorm:"type:text"`
	LegalRepQualification *int64     `json:"legal_rep_qualification"`
	AgeBracket            *int64     `json:"age_bracket"`
	CreatedAt             time.Time  `json:"created_at"`
}
