package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorytrack/factory-backend/internal/model"
)

func catalogWithIDs() []model.Permission {
	perms := Catalog()
	for i := range perms {
		perms[i].ID = i + 1
	}
	return perms
}

func keysOf(perms []model.Permission) []string {
	keys := make([]string, 0, len(perms))
	for _, p := range perms {
		keys = append(keys, p.Key())
	}
	return keys
}

func compliantSnapshot() Snapshot {
	s := Snapshot{Roles: map[string]RoleState{}}
	for i, f := range SystemRoles() {
		keys := f.Permissions
		if f.AllPermissions {
			keys = keysOf(Catalog())
		}
		s.Roles[f.Name] = RoleState{ID: i + 1, IsSystem: true, Permissions: keys}
	}
	return s
}

func TestCatalog_UniqueTriples(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Catalog() {
		require.False(t, seen[p.Key()], "duplicate catalog entry %s", p.Key())
		seen[p.Key()] = true
		assert.NotEmpty(t, p.Description)
	}
	assert.True(t, seen["dashboard:read:overview"])
	assert.True(t, seen["reports:read:sales_report"])
}

func TestSystemRoles_ReferenceCatalogOnly(t *testing.T) {
	catalog := map[string]bool{}
	for _, k := range keysOf(Catalog()) {
		catalog[k] = true
	}
	for _, f := range SystemRoles() {
		for _, k := range f.Permissions {
			assert.True(t, catalog[k], "%s references %s", f.Name, k)
		}
	}
}

func TestAudit_CompliantSnapshot(t *testing.T) {
	assert.Empty(t, Audit(compliantSnapshot()))
}

func TestAudit_ManagerMustNotSeeUsers(t *testing.T) {
	s := compliantSnapshot()
	st := s.Roles[RoleManager]
	st.Permissions = append(st.Permissions, "users:read", "roles:update")
	s.Roles[RoleManager] = st

	violations := Audit(s)

	require.Len(t, violations, 2)
	assert.Equal(t, "manager-no-admin-modules", violations[0].Rule)
	assert.Contains(t, violations[0].Message, "users:read")
	assert.Contains(t, violations[1].Message, "roles:update")
}

func TestAudit_ViewerNeedsDashboardRead(t *testing.T) {
	s := compliantSnapshot()
	s.Roles[RoleViewer] = RoleState{IsSystem: true, Permissions: []string{"dashboard:read:overview"}}

	violations := Audit(s)

	require.Len(t, violations, 1)
	assert.Equal(t, "viewer-dashboard-read", violations[0].Rule)
}

func TestAudit_MissingAndUnflaggedRoles(t *testing.T) {
	s := compliantSnapshot()
	delete(s.Roles, RoleOperator)
	st := s.Roles[RoleViewer]
	st.IsSystem = false
	s.Roles[RoleViewer] = st

	violations := Audit(s)

	require.Len(t, violations, 2)
	assert.Equal(t, RoleOperator, violations[0].Role)
	assert.Equal(t, "role is missing", violations[0].Message)
	assert.Equal(t, RoleViewer, violations[1].Role)
}

func TestAudit_SuperAdminIncomplete(t *testing.T) {
	s := compliantSnapshot()
	st := s.Roles[RoleSuperAdmin]
	st.Permissions = st.Permissions[1:]
	s.Roles[RoleSuperAdmin] = st

	violations := Audit(s)

	require.Len(t, violations, 1)
	assert.Equal(t, "super-admin-complete", violations[0].Rule)
	assert.Contains(t, violations[0].String(), "missing 1 catalog permissions")
}

func TestPlan(t *testing.T) {
	catalog := catalogWithIDs()

	plan, err := Plan(catalog)
	require.NoError(t, err)

	assert.Len(t, plan[RoleSuperAdmin], len(catalog))
	require.Len(t, plan[RoleViewer], 1)
	assert.Equal(t, "dashboard:read", catalog[plan[RoleViewer][0]-1].Key())
	assert.True(t, len(plan[RoleManager]) > len(plan[RoleOperator]))
}

func TestPlan_UnknownKey(t *testing.T) {
	catalog := catalogWithIDs()[1:]

	_, err := Plan(catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown permission")
}
