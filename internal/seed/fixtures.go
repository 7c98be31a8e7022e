// Package seed holds the declarative access-control fixtures: the permission
// catalog, the built-in system roles, and the rules an installation must satisfy.
package seed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/factorytrack/factory-backend/internal/model"
)

// System role names.
const (
	RoleSuperAdmin = "Super Admin"
	RoleManager    = "Manager"
	RoleOperator   = "Operator"
	RoleViewer     = "Viewer"
)

// RoleFixture declares a system role and the permission keys it holds.
type RoleFixture struct {
	Name        string
	Description string
	// AllPermissions grants the whole catalog; Permissions is ignored.
	AllPermissions bool
	Permissions    []string
}

// namedResources are the resource-scoped grants on top of the CRUD wildcards.
var namedResources = []model.Permission{
	model.NewPermission(model.ModuleDashboard, model.ActionRead, "overview"),
	model.NewPermission(model.ModuleReports, model.ActionRead, "sales_report"),
	model.NewPermission(model.ModuleReports, model.ActionRead, "inventory_report"),
	model.NewPermission(model.ModuleReports, model.ActionRead, "production_report"),
	model.NewPermission(model.ModuleReports, model.ActionExport, ""),
	model.NewPermission(model.ModuleReports, model.ActionExport, "sales_report"),
	model.NewPermission(model.ModuleOrders, model.ActionApprove, ""),
	model.NewPermission(model.ModuleProduction, model.ActionApprove, ""),
	model.NewPermission(model.ModuleInventory, model.ActionExport, ""),
}

// Catalog returns the full permission catalog: CRUD wildcards for every module
// followed by the named resources.
func Catalog() []model.Permission {
	perms := make([]model.Permission, 0, len(model.AllModules)*len(model.CRUDActions)+len(namedResources))
	for _, m := range model.AllModules {
		for _, a := range model.CRUDActions {
			p := model.NewPermission(m, a, "")
			p.Description = fmt.Sprintf("%s %s", titleAction(a), m)
			perms = append(perms, p)
		}
	}
	for _, p := range namedResources {
		if p.Resource != nil {
			p.Description = fmt.Sprintf("%s %s (%s)", titleAction(p.Action), p.Module, *p.Resource)
		} else {
			p.Description = fmt.Sprintf("%s %s", titleAction(p.Action), p.Module)
		}
		perms = append(perms, p)
	}
	return perms
}

// SystemRoles returns the built-in roles.
func SystemRoles() []RoleFixture {
	return []RoleFixture{
		{
			Name:           RoleSuperAdmin,
			Description:    "Full access to every module",
			AllPermissions: true,
		},
		{
			Name:        RoleManager,
			Description: "Runs day-to-day factory operations",
			Permissions: []string{
				"dashboard:read",
				"products:read", "products:create", "products:update",
				"materials:read", "materials:create", "materials:update",
				"inventory:read", "inventory:create", "inventory:update", "inventory:export",
				"production:read", "production:create", "production:update", "production:approve",
				"orders:read", "orders:create", "orders:update", "orders:approve",
				"suppliers:read", "suppliers:create", "suppliers:update",
				"reports:read", "reports:export",
			},
		},
		{
			Name:        RoleOperator,
			Description: "Records production and stock movements",
			Permissions: []string{
				"dashboard:read",
				"products:read",
				"materials:read",
				"inventory:read", "inventory:update",
				"production:read", "production:create", "production:update",
				"reports:read:production_report",
			},
		},
		{
			Name:        RoleViewer,
			Description: "Read-only dashboard access",
			Permissions: []string{"dashboard:read"},
		},
	}
}

// RoleState is the persisted state of one role in a Snapshot.
type RoleState struct {
	ID          int
	IsSystem    bool
	Permissions []string
}

// Snapshot is a view of roles keyed by name with their permission keys.
type Snapshot struct {
	Roles map[string]RoleState
}

// Violation is one failed fixture rule.
type Violation struct {
	Rule    string `json:"rule"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Rule, v.Role, v.Message)
}

// Rule checks a snapshot and reports violations.
type Rule struct {
	Name  string
	Check func(Snapshot) []Violation
}

// Rules returns the invariants every installation must satisfy.
func Rules() []Rule {
	return []Rule{
		{Name: "system-roles-present", Check: checkSystemRolesPresent},
		{Name: "viewer-dashboard-read", Check: checkViewerDashboard},
		{Name: "manager-no-admin-modules", Check: checkManagerScope},
		{Name: "super-admin-complete", Check: checkSuperAdminComplete},
	}
}

// Audit runs every rule against the snapshot.
func Audit(s Snapshot) []Violation {
	var violations []Violation
	for _, r := range Rules() {
		violations = append(violations, r.Check(s)...)
	}
	return violations
}

func checkSystemRolesPresent(s Snapshot) []Violation {
	var out []Violation
	for _, f := range SystemRoles() {
		st, ok := s.Roles[f.Name]
		switch {
		case !ok:
			out = append(out, Violation{Rule: "system-roles-present", Role: f.Name, Message: "role is missing"})
		case !st.IsSystem:
			out = append(out, Violation{Rule: "system-roles-present", Role: f.Name, Message: "role is not flagged as system"})
		}
	}
	return out
}

func checkViewerDashboard(s Snapshot) []Violation {
	st, ok := s.Roles[RoleViewer]
	if !ok {
		return nil
	}
	if !toSet(st.Permissions).Allows(model.ModuleDashboard, model.ActionRead, "") {
		return []Violation{{Rule: "viewer-dashboard-read", Role: RoleViewer, Message: "must hold dashboard:read"}}
	}
	return nil
}

func checkManagerScope(s Snapshot) []Violation {
	st, ok := s.Roles[RoleManager]
	if !ok {
		return nil
	}
	var out []Violation
	for _, key := range st.Permissions {
		p, ok := model.ParsePermissionKey(key)
		if !ok {
			continue
		}
		switch p.Module {
		case model.ModuleUsers, model.ModuleRoles, model.ModulePermissions:
			out = append(out, Violation{Rule: "manager-no-admin-modules", Role: RoleManager, Message: "must not hold " + key})
		}
	}
	return out
}

func checkSuperAdminComplete(s Snapshot) []Violation {
	st, ok := s.Roles[RoleSuperAdmin]
	if !ok {
		return nil
	}
	held := make(map[string]struct{}, len(st.Permissions))
	for _, k := range st.Permissions {
		held[k] = struct{}{}
	}
	var missing []string
	for _, p := range Catalog() {
		if _, ok := held[p.Key()]; !ok {
			missing = append(missing, p.Key())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return []Violation{{
		Rule:    "super-admin-complete",
		Role:    RoleSuperAdmin,
		Message: fmt.Sprintf("missing %d catalog permissions (first: %s)", len(missing), missing[0]),
	}}
}

// Plan maps each system role to the permission ids it must end up with, given
// the persisted catalog (which carries ids). A fixture key absent from the
// catalog is an error: the catalog must be ensured first.
func Plan(catalog []model.Permission) (map[string][]int, error) {
	byKey := make(map[string]int, len(catalog))
	all := make([]int, 0, len(catalog))
	for _, p := range catalog {
		byKey[p.Key()] = p.ID
		all = append(all, p.ID)
	}
	sort.Ints(all)

	plan := make(map[string][]int, len(SystemRoles()))
	for _, f := range SystemRoles() {
		if f.AllPermissions {
			plan[f.Name] = all
			continue
		}
		ids := make([]int, 0, len(f.Permissions))
		for _, key := range f.Permissions {
			id, ok := byKey[key]
			if !ok {
				return nil, fmt.Errorf("role %q references unknown permission %q", f.Name, key)
			}
			ids = append(ids, id)
		}
		sort.Ints(ids)
		plan[f.Name] = ids
	}
	return plan, nil
}

func toSet(keys []string) model.PermissionSet {
	set := make(model.PermissionSet, 0, len(keys))
	for _, k := range keys {
		if p, ok := model.ParsePermissionKey(k); ok {
			set = append(set, p)
		}
	}
	return set
}

func titleAction(a model.Action) string {
	s := string(a)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
