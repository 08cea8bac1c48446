// Package upsert applies registry entities to the store with the conflict rule
// of each entity kind. Every method writes through the transaction it is
// given; committing is the caller's job.
package upsert

import (
	"errors"
	"fmt"

	"github.com/suteetoe/cnpjsync/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// companyColumns are the attributes merged on a company conflict
var companyColumns = []string{
	"legal_name",
	"legal_nature_code",
	"responsible_qualification",
	"capital",
	"size_code",
	"federative_entity",
}

// Engine holds no state; it exists so callers can depend on it explicitly.
type Engine struct{}

// NewEngine returns an Engine
func NewEngine() *Engine {
	return &Engine{}
}

// UpsertReference inserts a code lookup row or refreshes its description. It
// reports whether the row was newly inserted. The existence check runs in tx,
// so the answer is consistent with the write.
func (e *Engine) UpsertReference(tx *gorm.DB, table model.ReferenceTable, code, description string) (bool, error) {
	var existing model.ReferenceRow
	err := tx.Table(string(table)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		Take(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := model.ReferenceRow{Code: code, Description: description}
		if err := tx.Table(string(table)).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
			}).
			Create(&row).Error; err != nil {
			return false, fmt.Errorf("insert %s %s: %w", table, code, err)
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("lookup %s %s: %w", table, code, err)
	}

	if err := tx.Table(string(table)).
		Where("code = ?", code).
		Updates(map[string]interface{}{"description": description, "updated_at": tx.NowFunc()}).Error; err != nil {
		return false, fmt.Errorf("update %s %s: %w", table, code, err)
	}
	return false, nil
}

// EnsureCompany creates an all-null company row for baseID unless one exists
func (e *Engine) EnsureCompany(tx *gorm.DB, baseID string) error {
	c := model.Company{BaseID: baseID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
		return fmt.Errorf("ensure company %s: %w", baseID, err)
	}
	return nil
}

// UpsertCompany inserts c, or merges it into the existing row: every non-null
// attribute of c replaces the stored one, null attributes keep it.
func (e *Engine) UpsertCompany(tx *gorm.DB, c *model.Company) error {
	assignments := make([]clause.Assignment, 0, len(companyColumns)+1)
	for _, col := range companyColumns {
		assignments = append(assignments, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr(fmt.Sprintf("COALESCE(excluded.%s, companies.%s)", col, col)),
		})
	}
	assignments = append(assignments, clause.Assignment{
		Column: clause.Column{Name: "updated_at"},
		Value:  gorm.Expr("excluded.updated_at"),
	})

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "base_id"}},
		DoUpdates: clause.Set(assignments),
	}).Create(c).Error; err != nil {
		return fmt.Errorf("upsert company %s: %w", c.BaseID, err)
	}
	return nil
}

// UpsertEstablishment writes est, replacing every field on a conflicting
// composite key. The owning company row is created first when missing.
func (e *Engine) UpsertEstablishment(tx *gorm.DB, est *model.Establishment) error {
	if err := e.EnsureCompany(tx, est.BaseID); err != nil {
		return err
	}
	if est.SecondaryActivities == nil {
		est.SecondaryActivities = []string{}
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "base_id"}, {Name: "branch_order"}, {Name: "check_digits"}},
		UpdateAll: true,
	}).Create(est).Error; err != nil {
		return fmt.Errorf("upsert establishment %s: %w", est.CNPJ(), err)
	}
	return nil
}

// InsertPartners appends partners without any conflict resolution
func (e *Engine) InsertPartners(tx *gorm.DB, partners ...model.Partner) error {
	if len(partners) == 0 {
		return nil
	}
	if err := tx.Create(&partners).Error; err != nil {
		return fmt.Errorf("insert partners of %s: %w", partners[0].BaseID, err)
	}
	return nil
}

// DeletePartners removes the partner set of baseID
func (e *Engine) DeletePartners(tx *gorm.DB, baseID string) error {
	if err := tx.Where("base_id = ?", baseID).Delete(&model.Partner{}).Error; err != nil {
		return fmt.Errorf("delete partners of %s: %w", baseID, err)
	}
	return nil
}

// ReplacePartners swaps the whole partner set of baseID. Both steps run in tx,
// so readers never observe a half-replaced set.
func (e *Engine) ReplacePartners(tx *gorm.DB, baseID string, partners []model.Partner) error {
	if err := e.DeletePartners(tx, baseID); err != nil {
		return err
	}
	for i := range partners {
		partners[i].ID = 0
		partners[i].BaseID = baseID
	}
	return e.InsertPartners(tx, partners...)
}

// UpsertSimples writes the tax regime row of a company, replacing it on conflict
func (e *Engine) UpsertSimples(tx *gorm.DB, s *model.SimplesOption) error {
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "base_id"}},
		UpdateAll: true,
	}).Create(s).Error; err != nil {
		return fmt.Errorf("upsert simples %s: %w", s.BaseID, err)
	}
	return nil
}

// SaveEnrichedAggregate upserts the cache row by cnpj and replaces its partner
// and activity children. agg.ID is set to the stored row id.
func (e *Engine) SaveEnrichedAggregate(tx *gorm.DB, agg *model.EnrichedCompany) error {
	partners := agg.Partners
	activities := agg.Activities

	var existing model.EnrichedCompany
	err := tx.Select("id", "created_at").Where("cnpj = ?", agg.CNPJ).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		agg.ID = 0
		if err := tx.Omit(clause.Associations).Create(agg).Error; err != nil {
			return fmt.Errorf("insert enriched company %s: %w", agg.CNPJ, err)
		}
	case err != nil:
		return fmt.Errorf("lookup enriched company %s: %w", agg.CNPJ, err)
	default:
		agg.ID = existing.ID
		agg.CreatedAt = existing.CreatedAt
		if err := tx.Omit(clause.Associations).Save(agg).Error; err != nil {
			return fmt.Errorf("update enriched company %s: %w", agg.CNPJ, err)
		}
	}

	if err := tx.Where("company_id = ?", agg.ID).Delete(&model.EnrichedPartner{}).Error; err != nil {
		return fmt.Errorf("delete enriched partners of %s: %w", agg.CNPJ, err)
	}
	if err := tx.Where("company_id = ?", agg.ID).Delete(&model.EnrichedActivity{}).Error; err != nil {
		return fmt.Errorf("delete enriched activities of %s: %w", agg.CNPJ, err)
	}

	for i := range partners {
		partners[i].ID = 0
		partners[i].CompanyID = agg.ID
		partners[i].Position = i
	}
	for i := range activities {
		activities[i].ID = 0
		activities[i].CompanyID = agg.ID
		activities[i].Position = i
	}
	if len(partners) > 0 {
		if err := tx.Create(&partners).Error; err != nil {
			return fmt.Errorf("insert enriched partners of %s: %w", agg.CNPJ, err)
		}
	}
	if len(activities) > 0 {
		if err := tx.Create(&activities).Error; err != nil {
			return fmt.Errorf("insert enriched activities of %s: %w", agg.CNPJ, err)
		}
	}

	agg.Partners = partners
	agg.Activities = activities
	return nil
}
