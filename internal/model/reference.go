package model

import "time"

// ReferenceRow is the shape shared by every code lookup table
type ReferenceRow struct {
	Code        string    `json:"code" gorm:"primaryKey;type:varchar(16)"`
	Description string    `json:"description" gorm:"type:text;not null"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReferenceTable names one code lookup table
type ReferenceTable string

const (
	ActivityCodes         ReferenceTable = "activity_codes"
	Municipalities        ReferenceTable = "municipalities"
	LegalNatures          ReferenceTable = "legal_natures"
	StatusReasons         ReferenceTable = "status_reasons"
	Countries             ReferenceTable = "countries"
	PartnerQualifications ReferenceTable = "partner_qualifications"
)

// ReferenceTables lists every lookup table in load order
var ReferenceTables = []ReferenceTable{
	ActivityCodes,
	Municipalities,
	LegalNatures,
	StatusReasons,
	Countries,
	PartnerQualifications,
}

// referenceFiles maps the dump's file tags to their tables
var referenceFiles = map[string]ReferenceTable{
	"cnae":  ActivityCodes,
	"munic": Municipalities,
	"natju": LegalNatures,
	"moti":  StatusReasons,
	"pais":  Countries,
	"quals": PartnerQualifications,
}

// ReferenceTableFor resolves a dump file tag such as "cnae" to its table
func ReferenceTableFor(tag string) (ReferenceTable, bool) {
	t, ok := referenceFiles[tag]
	return t, ok
}

// ReferenceTags returns the accepted dump file tags
func ReferenceTags() []string {
	return []string{"cnae", "munic", "natju", "moti", "pais", "quals"}
}
