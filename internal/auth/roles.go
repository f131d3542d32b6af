package auth

// Role is a closed enumeration of account roles. The ID is persisted on
// users and encoded in tokens; CrossTenant marks the role that bypasses
// church scoping everywhere.
type Role struct {
	ID          int64
	Name        string
	CrossTenant bool
}

var (
	RoleSuperAdmin = Role{ID: 1, Name: "superadmin", CrossTenant: true}
	RolePastor     = Role{ID: 2, Name: "pastor"}
	RoleSecretary  = Role{ID: 3, Name: "secretary"}
	RoleTreasurer  = Role{ID: 4, Name: "treasurer"}
)

var roles = []Role{RoleSuperAdmin, RolePastor, RoleSecretary, RoleTreasurer}

// Roles returns every defined role.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// RoleByID looks up a role by its persisted id.
func RoleByID(id int64) (Role, bool) {
	for _, r := range roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

// RoleByName looks up a role by its stable name.
func RoleByName(name string) (Role, bool) {
	for _, r := range roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}
