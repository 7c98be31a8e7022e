package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository"
	"github.com/factorytrack/factory-backend/internal/seed"
)

// RoleSyncResult is the outcome of syncing one system role.
type RoleSyncResult struct {
	Role      string   `json:"role"`
	RoleID    int      `json:"role_id,omitempty"`
	Created   bool     `json:"created"`
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged int      `json:"unchanged"`
}

// Changed reports whether the role's permission set differs from the fixture.
func (r RoleSyncResult) Changed() bool {
	return r.Created || len(r.Added) > 0 || len(r.Removed) > 0
}

// SyncReport summarizes a fixture sync.
type SyncReport struct {
	DryRun             bool             `json:"dry_run"`
	MissingPermissions []string         `json:"missing_permissions"`
	Roles              []RoleSyncResult `json:"roles"`
}

// FixtureService applies and audits the declarative role fixtures.
type FixtureService struct {
	roles  repository.RoleStore
	perms  repository.PermissionStore
	events EventPublisher
	log    zerolog.Logger
}

// NewFixtureService creates a new FixtureService.
func NewFixtureService(roles repository.RoleStore, perms repository.PermissionStore, events EventPublisher, log zerolog.Logger) *FixtureService {
	return &FixtureService{
		roles:  roles,
		perms:  perms,
		events: events,
		log:    logger.Component(log, "fixture_service"),
	}
}

// Snapshot loads every role with its permission keys.
func (s *FixtureService) Snapshot(ctx context.Context) (seed.Snapshot, error) {
	snap := seed.Snapshot{Roles: map[string]seed.RoleState{}}
	roles, err := s.roles.ListRoles(ctx)
	if err != nil {
		return snap, fmt.Errorf("list roles: %w", err)
	}
	for _, r := range roles {
		perms, err := s.roles.ListRolePermissions(ctx, r.ID)
		if err != nil {
			return snap, fmt.Errorf("list permissions of role %d: %w", r.ID, err)
		}
		snap.Roles[r.Name] = seed.RoleState{
			ID:          r.ID,
			IsSystem:    r.IsSystem,
			Permissions: model.PermissionSet(perms).Keys(),
		}
	}
	return snap, nil
}

// Audit checks the persisted roles against the fixture rules.
func (s *FixtureService) Audit(ctx context.Context) ([]seed.Violation, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return seed.Audit(snap), nil
}

// Sync makes the catalog and the system roles match the fixtures. Missing
// permissions and roles are created first; the permission sets of all system
// roles are then replaced in a single transaction. With dryRun nothing is
// written and the report shows what would change.
func (s *FixtureService) Sync(ctx context.Context, dryRun bool) (*SyncReport, error) {
	if dryRun {
		return s.plan(ctx)
	}

	report := &SyncReport{MissingPermissions: []string{}}

	existing, err := s.perms.ListPermissions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	report.MissingPermissions = missingKeys(seed.Catalog(), existing)

	permSvc := NewPermissionService(s.perms, s.log)
	if _, err := permSvc.EnsureCatalog(ctx, seed.Catalog()); err != nil {
		return nil, fmt.Errorf("ensure catalog: %w", err)
	}
	all, err := s.perms.ListPermissions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	keyByID := make(map[int]string, len(all))
	for _, p := range all {
		keyByID[p.ID] = p.Key()
	}

	plan, err := seed.Plan(all)
	if err != nil {
		return nil, err
	}

	roleSvc := NewRoleService(s.roles, s.events, s.log)
	roleIDs := map[string]int{}
	for _, f := range seed.SystemRoles() {
		role, created, err := roleSvc.EnsureSystemRole(ctx, f.Name, f.Description)
		if err != nil {
			return nil, fmt.Errorf("ensure role %q: %w", f.Name, err)
		}
		roleIDs[f.Name] = role.ID
		report.Roles = append(report.Roles, RoleSyncResult{Role: f.Name, RoleID: role.ID, Created: created})
	}

	err = s.roles.InTx(ctx, func(tx repository.RoleStore) error {
		txSvc := NewRoleService(tx, NoopPublisher{}, s.log)
		for i := range report.Roles {
			res := &report.Roles[i]
			diff, err := txSvc.ReplacePermissions(ctx, roleIDs[res.Role], plan[res.Role])
			if err != nil {
				return fmt.Errorf("replace permissions of %q: %w", res.Role, err)
			}
			res.Added = keysOf(diff.AddedIDs, keyByID)
			res.Removed = keysOf(diff.RemovedIDs, keyByID)
			res.Unchanged = diff.Unchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, res := range report.Roles {
		if len(res.Added) > 0 || len(res.Removed) > 0 {
			s.events.Publish(ctx, NewRBACEvent(EventRolePermissionsReplaced, res.RoleID, 0))
		}
	}
	s.log.Info().
		Int("created_permissions", len(report.MissingPermissions)).
		Int("roles", len(report.Roles)).
		Msg("System roles synced")
	return report, nil
}

// plan computes the sync report without writing, comparing permission keys.
func (s *FixtureService) plan(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{DryRun: true}

	existing, err := s.perms.ListPermissions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	report.MissingPermissions = missingKeys(seed.Catalog(), existing)

	allKeys := model.PermissionSet(existing).Keys()
	allKeys = append(allKeys, report.MissingPermissions...)

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	for _, f := range seed.SystemRoles() {
		want := f.Permissions
		if f.AllPermissions {
			want = allKeys
		}
		res := RoleSyncResult{Role: f.Name}
		st, ok := snap.Roles[f.Name]
		if ok {
			res.RoleID = st.ID
		} else {
			res.Created = true
		}
		res.Added, res.Removed, res.Unchanged = diffKeys(st.Permissions, want)
		report.Roles = append(report.Roles, res)
	}
	return report, nil
}

func missingKeys(catalog, existing []model.Permission) []string {
	have := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		have[p.Key()] = struct{}{}
	}
	out := []string{}
	for _, p := range catalog {
		if _, ok := have[p.Key()]; !ok {
			out = append(out, p.Key())
		}
	}
	return out
}

func diffKeys(current, want []string) (added, removed []string, unchanged int) {
	cur := make(map[string]struct{}, len(current))
	for _, k := range current {
		cur[k] = struct{}{}
	}
	wanted := make(map[string]struct{}, len(want))
	added, removed = []string{}, []string{}
	for _, k := range want {
		if _, dup := wanted[k]; dup {
			continue
		}
		wanted[k] = struct{}{}
		if _, ok := cur[k]; ok {
			unchanged++
		} else {
			added = append(added, k)
		}
	}
	for _, k := range current {
		if _, ok := wanted[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed, unchanged
}

func keysOf(ids []int, keyByID map[int]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, keyByID[id])
	}
	sort.Strings(out)
	return out
}
