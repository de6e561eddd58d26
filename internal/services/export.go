package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"gorm.io/gorm"

	"hms/internal/models"
)

// ExportPatientsCSV streams the patients visible under the given row scope
// as CSV. The scope comes from the attribute gate, so exports never leak
// rows the caller could not list.
func ExportPatientsCSV(ctx context.Context, store *gorm.DB, scope func(*gorm.DB) *gorm.DB, w io.Writer) error {
	var patients []models.Patient
	err := store.WithContext(ctx).Scopes(scope).Order("patient_id").Find(&patients).Error
	if err != nil {
		return fmt.Errorf("loading patients for export: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"Patient ID", "Name", "Date of Birth", "Gender", "Phone", "Email", "Blood Group", "Type", "Department"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range patients {
		row := []string{
			p.PatientID,
			p.Name,
			p.DOB.Format("2006-01-02"),
			p.Gender,
			p.Phone,
			p.Email,
			p.BloodGroup,
			string(p.Type),
			p.Department,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
