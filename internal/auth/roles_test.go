package auth

import "testing"

func TestRoleByID(t *testing.T) {
	r, ok := RoleByID(RolePastor.ID)
	if !ok {
		t.Fatal("expected pastor role")
	}
	if r.Name != "pastor" {
		t.Errorf("name = %q, want %q", r.Name, "pastor")
	}
	if r.CrossTenant {
		t.Error("pastor must not be cross-tenant")
	}

	if _, ok := RoleByID(99); ok {
		t.Error("expected false for unknown role id")
	}
}

func TestRoleByName(t *testing.T) {
	r, ok := RoleByName("superadmin")
	if !ok {
		t.Fatal("expected superadmin role")
	}
	if !r.CrossTenant {
		t.Error("superadmin must be cross-tenant")
	}

	if _, ok := RoleByName("bishop"); ok {
		t.Error("expected false for unknown role name")
	}
}

func TestExactlyOneCrossTenantRole(t *testing.T) {
	var crossTenant int
	for _, r := range Roles() {
		if r.CrossTenant {
			crossTenant++
		}
	}
	if crossTenant != 1 {
		t.Errorf("cross-tenant roles = %d, want 1", crossTenant)
	}
}

func TestRoleIDsUnique(t *testing.T) {
	seen := make(map[int64]string)
	for _, r := range Roles() {
		if prev, ok := seen[r.ID]; ok {
			t.Errorf("role id %d shared by %q and %q", r.ID, prev, r.Name)
		}
		seen[r.ID] = r.Name
	}
}
