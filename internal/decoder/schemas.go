package decoder

// Column names shared by several schemas
const (
	ColBaseID = "base_id"
)

// Establishments is the layout of the ESTABELE files
var Establishments = NewSchema("establishments",
	Column{Name: ColBaseID, Type: String, Required: true, Digits: 8},
	Column{Name: "branch_order", Type: String, Required: true, Digits: 4},
	Column{Name: "check_digits", Type: String, Required: true, Digits: 2},
	Column{Name: "head_office", Type: Int},
	Column{Name: "trade_name", Type: String},
	Column{Name: "status_code", Type: Int},
	Column{Name: "status_date", Type: Date},
	Column{Name: "status_reason_code", Type: Int},
	Column{Name: "foreign_city", Type: String},
	Column{Name: "country_code", Type: Int},
	Column{Name: "activity_start_date", Type: Date},
	Column{Name: "primary_activity", Type: String},
	Column{Name: "secondary_activities", Type: List, ListSep: ","},
	Column{Name: "street_type", Type: String},
	Column{Name: "street", Type: String},
	Column{Name: "number", Type: String},
	Column{Name: "complement", Type: String},
	Column{Name: "district", Type: String},
	Column{Name: "zip_code", Type: String},
	Column{Name: "state", Type: String},
	Column{Name: "municipality_code", Type: Int},
	Column{Name: "ddd1", Type: String},
	Column{Name: "phone1", Type: String},
	Column{Name: "ddd2", Type: String},
	Column{Name: "phone2", Type: String},
	Column{Name: "fax_ddd", Type: String},
	Column{Name: "fax", Type: String},
	Column{Name: "email", Type: String},
	Column{Name: "special_situation", Type: String},
	Column{Name: "special_situation_date", Type: Date},
)

// Companies is the layout of the EMPRECSV files
var Companies = NewSchema("companies",
	Column{Name: ColBaseID, Type: String, Required: true, Digits: 8},
	Column{Name: "legal_name", Type: String},
	Column{Name: "legal_nature_code", Type: Int},
	Column{Name: "responsible_qualification", Type: Int},
	Column{Name: "capital", Type: Decimal},
	Column{Name: "size_code", Type: Int},
	Column{Name: "federative_entity", Type: String},
)

// Partners is the layout of the SOCIOCSV files
var Partners = NewSchema("partners",
	Column{Name: ColBaseID, Type: String, Required: true, Digits: 8},
	Column{Name: "kind", Type: Int},
	Column{Name: "name", Type: String},
	Column{Name: "tax_id", Type: String},
	Column{Name: "qualification_code", Type: Int},
	Column{Name: "entry_date", Type: Date},
	Column{Name: "country_code", Type: Int},
	Column{Name: "legal_rep_tax_id", Type: String},
	Column{Name: "legal_rep_name", Type: String},
	Column{Name: "legal_rep_qualification", Type: Int},
	Column{Name: "age_bracket", Type: Int},
)

// Simples is the layout of the SIMPLES file
var Simples = NewSchema("simples",
	Column{Name: ColBaseID, Type: String, Required: true, Digits: 8},
	Column{Name: "simples_opted", Type: Flag},
	Column{Name: "simples_opted_at", Type: Date},
	Column{Name: "simples_excluded_at", Type: Date},
	Column{Name: "mei_opted", Type: Flag},
	Column{Name: "mei_opted_at", Type: Date},
	Column{Name: "mei_excluded_at", Type: Date},
)

// Reference is the layout shared by every code lookup file
var Reference = NewSchema("reference",
	Column{Name: "code", Type: String, Required: true},
	Column{Name: "description", Type: String, Required: true},
)
