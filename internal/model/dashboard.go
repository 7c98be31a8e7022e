package model

// DashboardOverview consolidates the access-control metrics shown on the admin dashboard.
type DashboardOverview struct {
	TotalUsers        int               `json:"total_users"`
	ActiveUsers       int               `json:"active_users"`
	TotalRoles        int               `json:"total_roles"`
	SystemRoles       int               `json:"system_roles"`
	TotalPermissions  int               `json:"total_permissions"`
	ActiveAssignments int               `json:"active_assignments"`
	UsersWithoutRole  int               `json:"users_without_role"`
	RoleDistribution  []RoleUserCount   `json:"role_distribution"`
	ModuleCoverage    []ModulePermCount `json:"module_coverage"`
}

// RoleUserCount is the number of users actively holding a role.
type RoleUserCount struct {
	RoleID    int    `json:"role_id"`
	RoleName  string `json:"role_name"`
	UserCount int    `json:"user_count"`
}

// ModulePermCount is the number of catalog permissions defined for a module.
type ModulePermCount struct {
	Module Module `json:"module"`
	Count  int    `json:"count"`
}

// ModuleAccess is the navigation view for the current user.
type ModuleAccess struct {
	Modules     []Module `json:"modules"`
	Permissions []string `json:"permissions"`
}
