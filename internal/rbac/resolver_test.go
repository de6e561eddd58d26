package rbac

import (
	"context"
	"testing"

	"hms/internal/models"
)

type fakeCatalog struct {
	roles map[string]*models.Role
}

func (f *fakeCatalog) RoleByID(ctx context.Context, id string) (*models.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

func (f *fakeCatalog) RolesByIDs(ctx context.Context, ids []string) ([]models.Role, error) {
	var out []models.Role
	for _, id := range ids {
		if role, ok := f.roles[id]; ok {
			out = append(out, *role)
		}
	}
	return out, nil
}

func role(id, name string, parent string, perms ...string) *models.Role {
	r := &models.Role{Name: name}
	r.ID = id
	for _, p := range perms {
		r.Permissions = append(r.Permissions, models.Permission{Name: p})
	}
	if parent != "" {
		r.ParentRoleID = &parent
	}
	return r
}

func TestResolveRoles_InheritsAncestorPermissions(t *testing.T) {
	catalog := &fakeCatalog{roles: map[string]*models.Role{
		"admin":  role("admin", "HOSPITAL_ADMIN", "", "USER:CREATE", "USER:READ"),
		"doctor": role("doctor", "DOCTOR", "admin", "PATIENT:READ", "PRESCRIPTION:CREATE"),
	}}

	set := NewResolver(catalog).ResolveRoles(context.Background(), []string{"doctor"})

	for _, want := range []string{"PATIENT:READ", "PRESCRIPTION:CREATE", "USER:CREATE", "USER:READ"} {
		if !set.Has(want) {
			t.Errorf("expected %s in resolved set", want)
		}
	}
	if len(set) != 4 {
		t.Errorf("resolved set size = %d, want 4", len(set))
	}
}

func TestResolveRoles_AllAllShortCircuitsParentWalk(t *testing.T) {
	catalog := &fakeCatalog{roles: map[string]*models.Role{
		"root":  role("root", "ROOT", "", "SHOULD:NOT_APPEAR"),
		"super": role("super", "SUPER_ADMIN", "root", models.PermissionAll),
	}}

	set := NewResolver(catalog).ResolveRoles(context.Background(), []string{"super"})

	if !set.HasAll() {
		t.Fatalf("expected ALL:ALL in set")
	}
	if set.Has("SHOULD:NOT_APPEAR") {
		t.Errorf("parent permissions must not be walked past ALL:ALL")
	}
	if len(set) != 1 {
		t.Errorf("resolved set = %v, want exactly {ALL:ALL}", set)
	}
}

func TestResolveRoles_ShortCircuitIsPerRole(t *testing.T) {
	catalog := &fakeCatalog{roles: map[string]*models.Role{
		"super":  role("super", "SUPER_ADMIN", "", models.PermissionAll),
		"admin":  role("admin", "HOSPITAL_ADMIN", "", "USER:READ"),
		"doctor": role("doctor", "DOCTOR", "admin", "PATIENT:READ"),
	}}

	set := NewResolver(catalog).ResolveRoles(context.Background(), []string{"super", "doctor"})

	// the second role is still independently walked
	if !set.Has("USER:READ") || !set.Has("PATIENT:READ") {
		t.Errorf("sibling role chain not resolved: %v", set)
	}
}

func TestResolveRoles_UnknownRoleContributesNothing(t *testing.T) {
	catalog := &fakeCatalog{roles: map[string]*models.Role{
		"doctor": role("doctor", "DOCTOR", "", "PATIENT:READ"),
	}}

	set := NewResolver(catalog).ResolveRoles(context.Background(), []string{"ghost", "doctor"})

	if len(set) != 1 || !set.Has("PATIENT:READ") {
		t.Errorf("resolved set = %v, want only PATIENT:READ", set)
	}
}

func TestResolveRoles_EmptyInput(t *testing.T) {
	set := NewResolver(&fakeCatalog{}).ResolveRoles(context.Background(), nil)
	if len(set) != 0 {
		t.Errorf("expected empty set, got %v", set)
	}
}

func TestResolveRoles_CyclicChainTerminates(t *testing.T) {
	catalog := &fakeCatalog{roles: map[string]*models.Role{
		"a": role("a", "A", "b", "PERM:A"),
		"b": role("b", "B", "a", "PERM:B"),
	}}

	set := NewResolver(catalog).ResolveRoles(context.Background(), []string{"a"})

	if !set.Has("PERM:A") || !set.Has("PERM:B") {
		t.Errorf("cycle walk should union both roles once: %v", set)
	}
}

func TestMemoResolver_CachesWithinLifetime(t *testing.T) {
	catalog := &countingCatalog{fakeCatalog: fakeCatalog{roles: map[string]*models.Role{
		"doctor": role("doctor", "DOCTOR", "", "PATIENT:READ"),
	}}}

	resolver := NewMemoResolver(catalog)
	resolver.ResolveRoles(context.Background(), []string{"doctor"})
	resolver.ResolveRoles(context.Background(), []string{"doctor"})

	if catalog.loads != 1 {
		t.Errorf("memo resolver loaded role %d times, want 1", catalog.loads)
	}

	// a fresh default resolver always reloads
	fresh := NewResolver(catalog)
	fresh.ResolveRoles(context.Background(), []string{"doctor"})
	fresh.ResolveRoles(context.Background(), []string{"doctor"})
	if catalog.loads != 3 {
		t.Errorf("default resolver should reload per call, loads = %d", catalog.loads)
	}
}

type countingCatalog struct {
	fakeCatalog
	loads int
}

func (c *countingCatalog) RoleByID(ctx context.Context, id string) (*models.Role, error) {
	c.loads++
	return c.fakeCatalog.RoleByID(ctx, id)
}

func TestValidateParent(t *testing.T) {
	catalog := &fakeCatalog{roles: map[string]*models.Role{
		"a": role("a", "A", ""),
		"b": role("b", "B", "a"),
		"c": role("c", "C", "b"),
	}}
	ctx := context.Background()

	if err := ValidateParent(ctx, catalog, "x", "c"); err != nil {
		t.Errorf("valid chain rejected: %v", err)
	}
	if err := ValidateParent(ctx, catalog, "a", "a"); err == nil {
		t.Errorf("self-parent must be rejected")
	}
	// deep cycle: making c's ancestor chain point back at c
	if err := ValidateParent(ctx, catalog, "a", "c"); err == nil {
		t.Errorf("deep cycle (a→c→b→a) must be rejected")
	}
	if err := ValidateParent(ctx, catalog, "x", "ghost"); err == nil {
		t.Errorf("unknown parent must be rejected")
	}
	if err := ValidateParent(ctx, catalog, "x", ""); err != nil {
		t.Errorf("clearing parent must always succeed: %v", err)
	}
}

func TestPermissionSet_HasAny(t *testing.T) {
	set := PermissionSet{"PATIENT:READ": {}}
	if !set.HasAny("PATIENT:READ", "PATIENT:UPDATE") {
		t.Errorf("expected match on PATIENT:READ")
	}
	if set.HasAny("PATIENT:DELETE") {
		t.Errorf("unexpected match")
	}

	super := PermissionSet{models.PermissionAll: {}}
	if !super.HasAny("ANY:THING") {
		t.Errorf("ALL:ALL must pass every permission gate")
	}
}
