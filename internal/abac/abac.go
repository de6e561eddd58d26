// Package abac computes attribute-based row filters that narrow what an
// already-authorized caller may read. RBAC decides whether the caller may
// touch a resource class at all; this package decides which rows.
package abac

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hms/internal/models"
)

// DecisionKind tags the outcome of an attribute evaluation.
type DecisionKind int

const (
	// Unrestricted means no row filter applies. Admins and any caller
	// whose role carries no scoping rule fall through here.
	Unrestricted DecisionKind = iota
	// Filtered carries a scope that must be ANDed into the query.
	Filtered
	// Denied means the caller can never see matching rows. Consumers
	// render it as a filter that matches nothing.
	Denied
	// Error means evaluation itself failed. Only the HTTP middleware may
	// map this to Unrestricted; everything else treats it as a failure.
	Error
)

// Decision is the result of Compute. Scope is non-nil only when Kind is
// Filtered. Err is non-nil only when Kind is Error.
type Decision struct {
	Kind  DecisionKind
	Scope func(*gorm.DB) *gorm.DB
	Err   error
}

func unrestricted() Decision { return Decision{Kind: Unrestricted} }

func denied() Decision { return Decision{Kind: Denied} }

func filtered(scope func(*gorm.DB) *gorm.DB) Decision {
	return Decision{Kind: Filtered, Scope: scope}
}

func failed(err error) Decision { return Decision{Kind: Error, Err: err} }

// Caller carries the identity attributes the rules consult.
type Caller struct {
	UserID     string
	HospitalID string
	Department string
	Roles      []models.RoleRef
}

func (c Caller) hasRole(name string) bool {
	for _, r := range c.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Evaluator computes row scopes against the store the eventual query will
// run against, so reachable-set lookups see the same data.
type Evaluator struct {
	store *gorm.DB
}

func NewEvaluator(store *gorm.DB) *Evaluator {
	return &Evaluator{store: store}
}

// Compute returns the row scope for one resource and action. Resources
// and actions without a rule are unrestricted; RBAC has already gated
// class-level access.
func (e *Evaluator) Compute(ctx context.Context, resource, action string, caller Caller) Decision {
	if action != "READ" {
		return unrestricted()
	}
	switch resource {
	case "PATIENT":
		return e.patientScope(caller)
	case "PRESCRIPTION":
		return e.prescriptionScope(caller)
	case "VITALS":
		return e.vitalScope(ctx, caller)
	}
	return unrestricted()
}

// patientScope restricts doctors and nurses to patients assigned to them
// or admitted in their department, and other staff with a department to
// that department. Super admins and department-less staff outside the
// clinical roles are unrestricted.
func (e *Evaluator) patientScope(caller Caller) Decision {
	if caller.hasRole(models.RoleSuperAdmin) {
		return unrestricted()
	}

	var column string
	switch {
	case caller.hasRole(models.RoleDoctor):
		column = "assigned_doctor_id"
	case caller.hasRole(models.RoleNurse):
		column = "assigned_nurse_id"
	}

	userID, hospitalID, department := caller.UserID, caller.HospitalID, caller.Department
	if column == "" {
		if department == "" {
			return unrestricted()
		}
		return filtered(func(tx *gorm.DB) *gorm.DB {
			return tx.Where("hospital_id = ?", hospitalID).
				Where("department = ?", department)
		})
	}
	if department == "" {
		return filtered(func(tx *gorm.DB) *gorm.DB {
			return tx.Where("hospital_id = ?", hospitalID).
				Where(fmt.Sprintf("%s = ?", column), userID)
		})
	}
	return filtered(func(tx *gorm.DB) *gorm.DB {
		return tx.
			Where("hospital_id = ?", hospitalID).
			Where(tx.Session(&gorm.Session{NewDB: true}).
				Where(fmt.Sprintf("%s = ?", column), userID).
				Or("department = ?", department))
	})
}

// prescriptionScope restricts every staff caller to prescriptions they
// authored. Strict ownership, no department fallback; only super admins
// see the full table.
func (e *Evaluator) prescriptionScope(caller Caller) Decision {
	if caller.hasRole(models.RoleSuperAdmin) {
		return unrestricted()
	}
	userID := caller.UserID
	return filtered(func(tx *gorm.DB) *gorm.DB {
		return tx.Where("doctor_id = ?", userID)
	})
}

// vitalScope restricts doctors and nurses to vitals of patients they can
// reach under the patient rule. The reachable set is materialized first so
// an empty set yields an explicit denial rather than an unbounded IN ().
func (e *Evaluator) vitalScope(ctx context.Context, caller Caller) Decision {
	patients := e.patientScope(caller)
	switch patients.Kind {
	case Unrestricted:
		return unrestricted()
	case Denied:
		return denied()
	}

	var ids []string
	err := e.store.WithContext(ctx).
		Model(&models.Patient{}).
		Scopes(patients.Scope).
		Pluck("id", &ids).Error
	if err != nil {
		return failed(fmt.Errorf("resolving reachable patients: %w", err))
	}
	if len(ids) == 0 {
		return denied()
	}
	return filtered(func(tx *gorm.DB) *gorm.DB {
		return tx.Where("patient_id IN ?", ids)
	})
}
