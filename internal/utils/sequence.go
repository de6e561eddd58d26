package utils

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hms/internal/models"
)

// Sequence kinds map to the short code embedded in generated identifiers.
const (
	SequencePatient       = "P"
	SequencePrescription  = "RX"
	SequenceVital         = "V"
	SequenceMedicalRecord = "MR"
)

// NextSequenceID allocates the next identifier of the given kind for a
// tenant, formatted as {tenantID}-{kind}-{counter}. The counter advances
// in a single upsert so concurrent allocations on the same row serialize
// inside the database and never hand out duplicates.
func NextSequenceID(ctx context.Context, store *gorm.DB, tenantID, kind string) (string, error) {
	var value int64
	err := store.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := models.TenantSequence{TenantID: tenantID, Kind: kind, Value: 1}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "kind"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"value": gorm.Expr("tenant_sequences.value + 1")}),
		}).Create(&seq).Error
		if err != nil {
			return err
		}
		return tx.
			Where("tenant_id = ? AND kind = ?", tenantID, kind).
			Model(&models.TenantSequence{}).
			Pluck("value", &value).Error
	})
	if err != nil {
		return "", fmt.Errorf("allocating %s sequence for %s: %w", kind, tenantID, err)
	}
	return fmt.Sprintf("%s-%s-%06d", tenantID, kind, value), nil
}
