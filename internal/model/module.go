package model

// Module is a functional area of the system a permission applies to.
type Module string

const (
	ModuleDashboard   Module = "dashboard"
	ModuleUsers       Module = "users"
	ModuleRoles       Module = "roles"
	ModulePermissions Module = "permissions"
	ModuleProducts    Module = "products"
	ModuleMaterials   Module = "materials"
	ModuleInventory   Module = "inventory"
	ModuleProduction  Module = "production"
	ModuleOrders      Module = "orders"
	ModuleSuppliers   Module = "suppliers"
	ModuleReports     Module = "reports"
	ModuleSettings    Module = "settings"
)

// AllModules lists every module in navigation order.
var AllModules = []Module{
	ModuleDashboard,
	ModuleProducts,
	ModuleMaterials,
	ModuleInventory,
	ModuleProduction,
	ModuleOrders,
	ModuleSuppliers,
	ModuleReports,
	ModuleUsers,
	ModuleRoles,
	ModulePermissions,
	ModuleSettings,
}

// Valid reports whether m is a known module.
func (m Module) Valid() bool {
	for _, known := range AllModules {
		if m == known {
			return true
		}
	}
	return false
}

// Action is an operation type within a module.
type Action string

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExport  Action = "export"
	ActionApprove Action = "approve"
)

// AllActions lists every action.
var AllActions = []Action{
	ActionRead,
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionExport,
	ActionApprove,
}

// CRUDActions are the actions seeded for every module.
var CRUDActions = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}
