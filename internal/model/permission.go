package model

import (
	"sort"
	"strings"
)

// Permission is an atomic capability identified by (module, action, resource).
// A nil Resource applies to every resource of the module.
type Permission struct {
	ID          int     `json:"id"`
	Module      Module  `json:"module"`
	Action      Action  `json:"action"`
	Resource    *string `json:"resource"`
	Description string  `json:"description"`
}

// NewPermission builds a permission triple; an empty resource means wildcard.
func NewPermission(module Module, action Action, resource string) Permission {
	p := Permission{Module: module, Action: action}
	if resource != "" {
		p.Resource = &resource
	}
	return p
}

// ResourceName returns the resource or "" for the wildcard.
func (p Permission) ResourceName() string {
	if p.Resource == nil {
		return ""
	}
	return *p.Resource
}

// Key renders the triple as module:action[:resource].
func (p Permission) Key() string {
	return PermissionKey(p.Module, p.Action, p.ResourceName())
}

// Matches reports whether this grant covers the requested triple.
// A wildcard grant covers every resource, including a request for the wildcard.
// A specific grant only covers a request for exactly that resource.
func (p Permission) Matches(module Module, action Action, resource string) bool {
	if p.Module != module || p.Action != action {
		return false
	}
	if p.Resource == nil {
		return true
	}
	return resource != "" && *p.Resource == resource
}

// PermissionKey renders a triple as module:action[:resource].
func PermissionKey(module Module, action Action, resource string) string {
	if resource == "" {
		return string(module) + ":" + string(action)
	}
	return string(module) + ":" + string(action) + ":" + resource
}

// ParsePermissionKey is the inverse of PermissionKey.
func ParsePermissionKey(key string) (Permission, bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return Permission{}, false
	}
	resource := ""
	if len(parts) == 3 {
		resource = parts[2]
	}
	p := NewPermission(Module(parts[0]), Action(parts[1]), resource)
	if !p.Module.Valid() || !p.Action.Valid() {
		return Permission{}, false
	}
	return p, true
}

// PermissionSet is the effective permission set of a user: the union of the
// grants of all active roles.
type PermissionSet []Permission

// Allows is the authorization decision. An empty set denies everything.
func (s PermissionSet) Allows(module Module, action Action, resource string) bool {
	for _, p := range s {
		if p.Matches(module, action, resource) {
			return true
		}
	}
	return false
}

// Keys returns the sorted, de-duplicated keys of the set.
func (s PermissionSet) Keys() []string {
	seen := make(map[string]struct{}, len(s))
	keys := make([]string, 0, len(s))
	for _, p := range s {
		k := p.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReadableModules returns the modules holding at least one read grant, in
// navigation order.
func (s PermissionSet) ReadableModules() []Module {
	readable := make(map[Module]bool)
	for _, p := range s {
		if p.Action == ActionRead {
			readable[p.Module] = true
		}
	}
	modules := make([]Module, 0, len(readable))
	for _, m := range AllModules {
		if readable[m] {
			modules = append(modules, m)
		}
	}
	return modules
}

// PermissionDiff summarizes a bulk replace of a role's permissions.
type PermissionDiff struct {
	RoleID        int   `json:"role_id"`
	Added         int   `json:"added"`
	Removed       int   `json:"removed"`
	Unchanged     int   `json:"unchanged"`
	AddedIDs      []int `json:"added_ids"`
	RemovedIDs    []int `json:"removed_ids"`
	PermissionIDs []int `json:"permission_ids"`
}

// DiffPermissionIDs computes which ids must be inserted and deleted to turn
// current into target. Outputs are sorted and de-duplicated.
func DiffPermissionIDs(current, target []int) (add, remove, keep []int) {
	cur := make(map[int]struct{}, len(current))
	for _, id := range current {
		cur[id] = struct{}{}
	}
	want := make(map[int]struct{}, len(target))
	for _, id := range target {
		want[id] = struct{}{}
	}
	for id := range want {
		if _, ok := cur[id]; ok {
			keep = append(keep, id)
		} else {
			add = append(add, id)
		}
	}
	for id := range cur {
		if _, ok := want[id]; !ok {
			remove = append(remove, id)
		}
	}
	sort.Ints(add)
	sort.Ints(remove)
	sort.Ints(keep)
	return add, remove, keep
}

// CreatePermissionRequest is the payload for adding a permission to the catalog.
type CreatePermissionRequest struct {
	Module      Module `json:"module" binding:"required,rbac_module"`
	Action      Action `json:"action" binding:"required,rbac_action"`
	Resource    string `json:"resource" binding:"omitempty,max=100"`
	Description string `json:"description" binding:"max=255"`
}

// ReplacePermissionsRequest is the payload for the bulk permission replace.
type ReplacePermissionsRequest struct {
	PermissionIDs []int `json:"permission_ids" binding:"required,dive,gt=0"`
}

// PermissionCatalog lists the enumerations the frontend builds forms from.
type PermissionCatalog struct {
	Modules []Module `json:"modules"`
	Actions []Action `json:"actions"`
}
