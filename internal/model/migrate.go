package model

import (
	"github.com/suteetoe/cnpjsync/database"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the loader writes
func Migrate(db *gorm.DB) error {
	if err := database.MigrateModels(db,
		&Company{},
		&Establishment{},
		&Partner{},
		&SimplesOption{},
		&EnrichedCompany{},
		&EnrichedPartner{},
		&EnrichedActivity{},
	); err != nil {
		return err
	}

	for _, table := range ReferenceTables {
		if err := database.MigrateTable(db, string(table), &ReferenceRow{}); err != nil {
			return err
		}
	}
	return nil
}
