// Package repotest provides in-memory implementations of the repository store
// interfaces for tests. InTx snapshots the whole state and restores it when
// the callback fails, so transactional all-or-nothing behaviour is observable.
package repotest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository"
)

// DB is the shared in-memory state behind the stores.
type DB struct {
	Roles     map[int]*model.Role
	Perms     map[int]model.Permission
	RolePerms map[int]map[int]bool
	Users     map[int]*model.User
	Grants    map[[2]int]*model.UserRole
	nextID    int

	// Failures injects errors keyed by store method name.
	Failures map[string]error
}

func NewDB() *DB {
	return &DB{
		Roles:     map[int]*model.Role{},
		Perms:     map[int]model.Permission{},
		RolePerms: map[int]map[int]bool{},
		Users:     map[int]*model.User{},
		Grants:    map[[2]int]*model.UserRole{},
		Failures:  map[string]error{},
	}
}

func (db *DB) id() int {
	db.nextID++
	return db.nextID
}

func (db *DB) fail(method string) error {
	return db.Failures[method]
}

func (db *DB) snapshot() *DB {
	cp := NewDB()
	cp.nextID = db.nextID
	cp.Failures = db.Failures
	for id, r := range db.Roles {
		c := *r
		cp.Roles[id] = &c
	}
	for id, p := range db.Perms {
		cp.Perms[id] = p
	}
	for rid, set := range db.RolePerms {
		cp.RolePerms[rid] = map[int]bool{}
		for pid := range set {
			cp.RolePerms[rid][pid] = true
		}
	}
	for id, u := range db.Users {
		c := *u
		cp.Users[id] = &c
	}
	for k, g := range db.Grants {
		c := *g
		cp.Grants[k] = &c
	}
	return cp
}

func (db *DB) restore(from *DB) {
	db.Roles = from.Roles
	db.Perms = from.Perms
	db.RolePerms = from.RolePerms
	db.Users = from.Users
	db.Grants = from.Grants
	db.nextID = from.nextID
}

// ─── Seeding helpers ────────────────────────────────────────────────

func (db *DB) AddPermission(key string) model.Permission {
	p, ok := model.ParsePermissionKey(key)
	if !ok {
		panic("bad permission key " + key)
	}
	p.ID = db.id()
	db.Perms[p.ID] = p
	return p
}

func (db *DB) AddRole(name string, system bool, permIDs ...int) *model.Role {
	r := &model.Role{ID: db.id(), Name: name, IsSystem: system, IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	db.Roles[r.ID] = r
	db.RolePerms[r.ID] = map[int]bool{}
	for _, pid := range permIDs {
		db.RolePerms[r.ID][pid] = true
	}
	return r
}

func (db *DB) AddUser(username string) *model.User {
	u := &model.User{ID: db.id(), Username: username, FullName: username, IsActive: true}
	db.Users[u.ID] = u
	return u
}

func (db *DB) Grant(userID, roleID int) {
	db.Grants[[2]int{userID, roleID}] = &model.UserRole{UserID: userID, RoleID: roleID, IsActive: true}
}

func (db *DB) RolePermIDs(roleID int) []int {
	ids := []int{}
	for pid := range db.RolePerms[roleID] {
		ids = append(ids, pid)
	}
	sort.Ints(ids)
	return ids
}

// ─── RoleStore ──────────────────────────────────────────────────────

// RoleStore implements repository.RoleStore over a DB.
type RoleStore struct{ db *DB }

func NewRoleStore(db *DB) *RoleStore { return &RoleStore{db: db} }

var _ repository.RoleStore = (*RoleStore)(nil)

func (s *RoleStore) InTx(ctx context.Context, fn func(repository.RoleStore) error) error {
	snap := s.db.snapshot()
	if err := fn(s); err != nil {
		s.db.restore(snap)
		return err
	}
	return nil
}

func (s *RoleStore) ListRoles(ctx context.Context) ([]model.RoleSummary, error) {
	out := []model.RoleSummary{}
	for _, r := range s.db.Roles {
		sum := model.RoleSummary{Role: *r, PermissionCount: len(s.db.RolePerms[r.ID])}
		for k, g := range s.db.Grants {
			if k[1] == r.ID && g.IsActive {
				sum.UserCount++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RoleStore) GetRole(ctx context.Context, id int) (*model.Role, error) {
	r, ok := s.db.Roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *RoleStore) GetRoleForUpdate(ctx context.Context, id int) (*model.Role, error) {
	return s.GetRole(ctx, id)
}

func (s *RoleStore) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	for _, r := range s.db.Roles {
		if r.Name == name {
			c := *r
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *RoleStore) CreateRole(ctx context.Context, role *model.Role) error {
	if _, err := s.GetRoleByName(ctx, role.Name); err == nil {
		return repository.ErrDuplicate
	}
	role.ID = s.db.id()
	role.CreatedAt, role.UpdatedAt = time.Now(), time.Now()
	c := *role
	s.db.Roles[role.ID] = &c
	s.db.RolePerms[role.ID] = map[int]bool{}
	return nil
}

func (s *RoleStore) UpdateRole(ctx context.Context, role *model.Role) error {
	cur, ok := s.db.Roles[role.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, r := range s.db.Roles {
		if r.ID != role.ID && r.Name == role.Name {
			return repository.ErrDuplicate
		}
	}
	cur.Name, cur.Description, cur.IsActive = role.Name, role.Description, role.IsActive
	return nil
}

func (s *RoleStore) DeleteRole(ctx context.Context, id int) error {
	if err := s.db.fail("DeleteRole"); err != nil {
		return err
	}
	r, ok := s.db.Roles[id]
	if !ok || r.IsSystem {
		return repository.ErrNotFound
	}
	if len(s.db.RolePerms[id]) > 0 {
		return repository.ErrReferenced
	}
	for k := range s.db.Grants {
		if k[1] == id {
			return repository.ErrReferenced
		}
	}
	delete(s.db.Roles, id)
	delete(s.db.RolePerms, id)
	return nil
}

func (s *RoleStore) MarkSystem(ctx context.Context, id int) error {
	r, ok := s.db.Roles[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.IsSystem = true
	return nil
}

func (s *RoleStore) ListRolePermissions(ctx context.Context, roleID int) ([]model.Permission, error) {
	out := []model.Permission{}
	for _, pid := range s.db.RolePermIDs(roleID) {
		out = append(out, s.db.Perms[pid])
	}
	return out, nil
}

func (s *RoleStore) RolePermissionIDs(ctx context.Context, roleID int) ([]int, error) {
	return s.db.RolePermIDs(roleID), nil
}

func (s *RoleStore) ExistingPermissionIDs(ctx context.Context, ids []int) ([]int, error) {
	out := []int{}
	for _, id := range ids {
		if _, ok := s.db.Perms[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *RoleStore) AddRolePermissions(ctx context.Context, roleID int, ids []int) (int64, error) {
	if err := s.db.fail("AddRolePermissions"); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if s.db.RolePerms[roleID][id] {
			return 0, repository.ErrDuplicate
		}
		s.db.RolePerms[roleID][id] = true
	}
	return int64(len(ids)), nil
}

func (s *RoleStore) RemoveRolePermissions(ctx context.Context, roleID int, ids []int) (int64, error) {
	if err := s.db.fail("RemoveRolePermissions"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if s.db.RolePerms[roleID][id] {
			delete(s.db.RolePerms[roleID], id)
			n++
		}
	}
	return n, nil
}

func (s *RoleStore) RemoveAllRolePermissions(ctx context.Context, roleID int) (int64, error) {
	n := int64(len(s.db.RolePerms[roleID]))
	s.db.RolePerms[roleID] = map[int]bool{}
	return n, nil
}

func (s *RoleStore) ListRoleUsers(ctx context.Context, roleID int) ([]model.User, error) {
	out := []model.User{}
	for k, g := range s.db.Grants {
		if k[1] == roleID && g.IsActive {
			out = append(out, *s.db.Users[k[0]])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *RoleStore) RemoveRoleGrants(ctx context.Context, roleID int) (int64, error) {
	if err := s.db.fail("RemoveRoleGrants"); err != nil {
		return 0, err
	}
	var n int64
	for k := range s.db.Grants {
		if k[1] == roleID {
			delete(s.db.Grants, k)
			n++
		}
	}
	return n, nil
}

func (s *RoleStore) ReassignRoleGrants(ctx context.Context, from, to int) (int64, error) {
	var n int64
	for k, g := range s.db.Grants {
		if k[1] == from && g.IsActive {
			s.db.Grant(k[0], to)
			n++
		}
	}
	return n, nil
}

// ─── UserStore ──────────────────────────────────────────────────────

// UserStore implements repository.UserStore over a DB.
type UserStore struct{ db *DB }

func NewUserStore(db *DB) *UserStore { return &UserStore{db: db} }

var _ repository.UserStore = (*UserStore)(nil)

func (s *UserStore) InTx(ctx context.Context, fn func(repository.UserStore) error) error {
	snap := s.db.snapshot()
	if err := fn(s); err != nil {
		s.db.restore(snap)
		return err
	}
	return nil
}

func (s *UserStore) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, int, error) {
	var all []model.User
	for _, u := range s.db.Users {
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(u.Username, f.Search) {
			continue
		}
		if f.RoleID > 0 {
			g, ok := s.db.Grants[[2]int{u.ID, f.RoleID}]
			if !ok || !g.IsActive {
				continue
			}
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	total := len(all)
	start := min(f.Offset(), total)
	end := min(start+f.PerPage, total)
	return all[start:end], total, nil
}

func (s *UserStore) GetUser(ctx context.Context, id int) (*model.User, error) {
	u, ok := s.db.Users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range s.db.Users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) CreateUser(ctx context.Context, u *model.User) error {
	if _, err := s.GetUserByUsername(ctx, u.Username); err == nil {
		return repository.ErrDuplicate
	}
	u.ID = s.db.id()
	c := *u
	s.db.Users[u.ID] = &c
	return nil
}

func (s *UserStore) UpdateUser(ctx context.Context, u *model.User) error {
	cur, ok := s.db.Users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.FullName, cur.Email = u.FullName, u.Email
	return nil
}

func (s *UserStore) SetPassword(ctx context.Context, id int, hash string) error {
	u, ok := s.db.Users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *UserStore) SetActive(ctx context.Context, id int, active bool) error {
	u, ok := s.db.Users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (s *UserStore) ListGrants(ctx context.Context, userID int) ([]model.UserRole, error) {
	out := []model.UserRole{}
	for k, g := range s.db.Grants {
		if k[0] == userID {
			c := *g
			if r, ok := s.db.Roles[k[1]]; ok {
				c.RoleName = r.Name
			}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

func (s *UserStore) UpsertGrant(ctx context.Context, userID, roleID int) (bool, error) {
	if _, ok := s.db.Roles[roleID]; !ok {
		return false, repository.ErrReferenced
	}
	if g, ok := s.db.Grants[[2]int{userID, roleID}]; ok {
		g.IsActive = true
		return false, nil
	}
	s.db.Grant(userID, roleID)
	return true, nil
}

func (s *UserStore) DeactivateGrant(ctx context.Context, userID, roleID int) error {
	g, ok := s.db.Grants[[2]int{userID, roleID}]
	if !ok || !g.IsActive {
		return repository.ErrNotFound
	}
	g.IsActive = false
	return nil
}

// ─── PermissionStore ────────────────────────────────────────────────

// PermissionStore implements repository.PermissionStore over a DB.
type PermissionStore struct{ db *DB }

func NewPermissionStore(db *DB) *PermissionStore { return &PermissionStore{db: db} }

var _ repository.PermissionStore = (*PermissionStore)(nil)

func (s *PermissionStore) ListPermissions(ctx context.Context, module model.Module) ([]model.Permission, error) {
	out := []model.Permission{}
	for _, p := range s.db.Perms {
		if module == "" || p.Module == module {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *PermissionStore) CreatePermission(ctx context.Context, p *model.Permission) error {
	for _, cur := range s.db.Perms {
		if cur.Key() == p.Key() {
			return repository.ErrDuplicate
		}
	}
	p.ID = s.db.id()
	s.db.Perms[p.ID] = *p
	return nil
}

func (s *PermissionStore) EnsurePermission(ctx context.Context, p *model.Permission) error {
	for _, cur := range s.db.Perms {
		if cur.Key() == p.Key() {
			p.ID = cur.ID
			return nil
		}
	}
	return s.CreatePermission(ctx, p)
}

func (s *PermissionStore) ActiveRoleIDs(ctx context.Context, userID int) ([]int, error) {
	if err := s.db.fail("ActiveRoleIDs"); err != nil {
		return nil, err
	}
	u, ok := s.db.Users[userID]
	if !ok || !u.IsActive {
		return []int{}, nil
	}
	ids := []int{}
	for k, g := range s.db.Grants {
		if k[0] != userID || !g.IsActive {
			continue
		}
		if r, ok := s.db.Roles[k[1]]; ok && r.IsActive {
			ids = append(ids, k[1])
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *PermissionStore) PermissionsForRoles(ctx context.Context, roleIDs []int) (model.PermissionSet, error) {
	seen := map[int]bool{}
	set := model.PermissionSet{}
	for _, rid := range roleIDs {
		for _, pid := range s.db.RolePermIDs(rid) {
			if !seen[pid] {
				seen[pid] = true
				set = append(set, s.db.Perms[pid])
			}
		}
	}
	return set, nil
}


// ─── DashboardStore ─────────────────────────────────────────────────

// DashboardStore implements repository.DashboardStore over a DB.
type DashboardStore struct{ db *DB }

func NewDashboardStore(db *DB) *DashboardStore { return &DashboardStore{db: db} }

var _ repository.DashboardStore = (*DashboardStore)(nil)

func (s *DashboardStore) Overview(ctx context.Context) (*model.DashboardOverview, error) {
	o := &model.DashboardOverview{
		TotalUsers:       len(s.db.Users),
		TotalRoles:       len(s.db.Roles),
		TotalPermissions: len(s.db.Perms),
		RoleDistribution: []model.RoleUserCount{},
		ModuleCoverage:   []model.ModulePermCount{},
	}
	holders := map[int]bool{}
	perRole := map[int]int{}
	for k, g := range s.db.Grants {
		if g.IsActive {
			o.ActiveAssignments++
			holders[k[0]] = true
			perRole[k[1]]++
		}
	}
	for _, u := range s.db.Users {
		if u.IsActive {
			o.ActiveUsers++
		}
		if !holders[u.ID] {
			o.UsersWithoutRole++
		}
	}
	for _, r := range s.db.Roles {
		if r.IsSystem {
			o.SystemRoles++
		}
		o.RoleDistribution = append(o.RoleDistribution, model.RoleUserCount{RoleID: r.ID, RoleName: r.Name, UserCount: perRole[r.ID]})
	}
	sort.Slice(o.RoleDistribution, func(i, j int) bool {
		a, b := o.RoleDistribution[i], o.RoleDistribution[j]
		if a.UserCount != b.UserCount {
			return a.UserCount > b.UserCount
		}
		return a.RoleName < b.RoleName
	})
	perModule := map[model.Module]int{}
	for _, p := range s.db.Perms {
		perModule[p.Module]++
	}
	for _, m := range model.AllModules {
		if n := perModule[m]; n > 0 {
			o.ModuleCoverage = append(o.ModuleCoverage, model.ModulePermCount{Module: m, Count: n})
		}
	}
	return o, nil
}
