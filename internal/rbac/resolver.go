package rbac

import (
	"context"
	"fmt"

	"hms/internal/models"
	console "hms/internal/utils/logger"
)

var log = console.New("RBAC")

// PermissionSet is the resolved effective permission names of a caller.
type PermissionSet map[string]struct{}

func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// HasAll reports whether the set carries the super-admin sentinel.
func (s PermissionSet) HasAll() bool {
	return s.Has(models.PermissionAll)
}

// HasAny reports whether the set grants at least one of the required
// permissions, with ALL:ALL passing unconditionally.
func (s PermissionSet) HasAny(required ...string) bool {
	if s.HasAll() {
		return true
	}
	for _, name := range required {
		if s.Has(name) {
			return true
		}
	}
	return false
}

func (s PermissionSet) add(name string) {
	s[name] = struct{}{}
}

// Resolver walks role inheritance chains to effective permission sets.
//
// The default resolver loads every role fresh on each call, so gate
// evaluations always see current catalog state. NewMemoResolver returns a
// resolver that additionally caches per-role results for its own lifetime; use
// one per request when a handler evaluates several gates, never longer.
type Resolver struct {
	catalog Catalog
	memo    map[string]PermissionSet
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

func NewMemoResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog, memo: make(map[string]PermissionSet)}
}

// ResolveRoles resolves every role reference and unions the results. A role
// that cannot be loaded contributes nothing; it is logged and skipped, never
// silently granted and never fatal. Empty input yields an empty set.
func (r *Resolver) ResolveRoles(ctx context.Context, roleIDs []string) PermissionSet {
	all := make(PermissionSet)
	for _, id := range roleIDs {
		for name := range r.resolveRole(ctx, id) {
			all.add(name)
		}
	}
	return all
}

// resolveRole unions the role's direct permissions, then recurses into its
// parent. If the accumulated set already carries ALL:ALL the parent walk is
// skipped, a per-role short-circuit; sibling roles in the same request are
// still walked independently.
func (r *Resolver) resolveRole(ctx context.Context, roleID string) PermissionSet {
	if r.memo != nil {
		if cached, ok := r.memo[roleID]; ok {
			return cached
		}
	}

	set := make(PermissionSet)
	visited := make(map[string]bool)
	id := roleID
	for id != "" && !visited[id] {
		visited[id] = true

		role, err := r.catalog.RoleByID(ctx, id)
		if err != nil {
			if err != ErrRoleNotFound {
				log.Warn("Failed to load role %s: %v", id, err)
			}
			break
		}
		for _, perm := range role.Permissions {
			set.add(perm.Name)
		}
		if set.HasAll() {
			break
		}
		if role.ParentRoleID == nil {
			break
		}
		id = *role.ParentRoleID
	}

	if r.memo != nil {
		r.memo[roleID] = set
	}
	return set
}

// ValidateParent checks that assigning parentID as roleID's parent keeps the
// inheritance graph acyclic. The full ancestor chain is walked with a visited
// set, so deep cycles (A→B→A) are rejected along with direct self-reference.
func ValidateParent(ctx context.Context, catalog Catalog, roleID, parentID string) error {
	if parentID == "" {
		return nil
	}
	if roleID == parentID {
		return fmt.Errorf("role cannot be its own parent")
	}

	visited := map[string]bool{roleID: true}
	id := parentID
	for id != "" {
		if visited[id] {
			return fmt.Errorf("parent assignment would create a role cycle")
		}
		visited[id] = true

		role, err := catalog.RoleByID(ctx, id)
		if err != nil {
			if err == ErrRoleNotFound {
				return fmt.Errorf("parent role %s not found", id)
			}
			return err
		}
		if role.ParentRoleID == nil {
			return nil
		}
		id = *role.ParentRoleID
	}
	return nil
}
