package model

import (
	"time"

	"gorm.io/datatypes"
)

// Establishment is one branch of a company, identified by the composite
// (base id, branch order, check digits) key.
type Establishment struct {
	BaseID               string                      `json:"base_id" gorm:"primaryKey;type:char(8)"`
	BranchOrder          string                      `json:"branch_order" gorm:"primaryKey;type:char(4)"`
	CheckDigits          string                      `json:"check_digits" gorm:"primaryKey;type:char(2)"`
	HeadOffice           *int64                      `json:"head_office"`
	TradeName            *string                     `json:"trade_name" gorm:"type:text"`
	StatusCode           *int64                      `json:"status_code"`
	StatusDate           *time.Time                  `json:"status_date" gorm:"type:date"`
	StatusReasonCode     *int64                      `json:"status_reason_code"`
	ForeignCity          *string                     `json:"foreign_city" gorm:"type:text"`
	CountryCode          *int64                      `json:"country_code"`
	ActivityStartDate    *time.Time                  `json:"activity_start_date" gorm:"type:date"`
	PrimaryActivity      *string                     `json:"primary_activity" gorm:"type:varchar(7)"`
	SecondaryActivities  datatypes.JSONSlice[string] `json:"secondary_activities"`
	StreetType           *string                     `json:"street_type" gorm:"type:text"`
	Street               *string                     `json:"street" gorm:"type:text"`
	Number               *string                     `json:"number" gorm:"type:text"`
	Complement           *string                     `json:"complement" gorm:"type:text"`
	District             *string                     `json:"district" gorm:"type:text"`
	ZipCode              *string                     `json:"zip_code" gorm:"type:varchar(8)"`
	State                *string                     `json:"state" gorm:"type:varchar(2)"`
	MunicipalityCode     *int64                      `json:"municipality_code" gorm:"index"`
	DDD1                 *string                     `json:"ddd1" gorm:"type:varchar(4)"`
	Phone1               *string                     `json:"phone1" gorm:"type:varchar(9)"`
	DDD2                 *string                     `json:"ddd2" gorm:"type:varchar(4)"`
	Phone2               *string                     `json:"phone2" gorm:"type:varchar(9)"`
	FaxDDD               *string                     `json:"fax_ddd" gorm:"type:varchar(4)"`
	Fax                  *string                     `json:"fax" gorm:"type:varchar(9)"`
	Email                *string                     `json:"email" gorm:"type:text"`
	SpecialSituation     *string                     `json:"special_situation" gorm:"type:text"`
	SpecialSituationDate *time.Time                  `json:"special_situation_date" gorm:"type:date"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// CNPJ returns the full 14-digit identifier
func (e *Establishment) CNPJ() string {
	return e.BaseID + e.BranchOrder + e.CheckDigits
}
