package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorytrack/factory-backend/internal/repository/repotest"
	"github.com/factorytrack/factory-backend/internal/seed"
)

func newFixtureService(db *repotest.DB) (*FixtureService, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewFixtureService(repotest.NewRoleStore(db), repotest.NewPermissionStore(db), pub, zerolog.Nop())
	return svc, pub
}

func resultFor(t *testing.T, report *SyncReport, role string) RoleSyncResult {
	t.Helper()
	for _, r := range report.Roles {
		if r.Role == role {
			return r
		}
	}
	t.Fatalf("no result for role %q", role)
	return RoleSyncResult{}
}

func TestSync_FromEmptyDatabase(t *testing.T) {
	db := repotest.NewDB()
	svc, pub := newFixtureService(db)
	ctx := context.Background()

	report, err := svc.Sync(ctx, false)
	require.NoError(t, err)
	assert.Len(t, report.MissingPermissions, len(seed.Catalog()))
	assert.Len(t, db.Perms, len(seed.Catalog()))
	require.Len(t, report.Roles, len(seed.SystemRoles()))

	viewer := resultFor(t, report, seed.RoleViewer)
	assert.True(t, viewer.Created)
	assert.Equal(t, []string{"dashboard:read"}, viewer.Added)
	assert.True(t, db.Roles[viewer.RoleID].IsSystem)
	assert.Len(t, pub.events, len(seed.SystemRoles()))

	violations, err := svc.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestSync_Idempotent(t *testing.T) {
	db := repotest.NewDB()
	svc, _ := newFixtureService(db)
	ctx := context.Background()
	_, err := svc.Sync(ctx, false)
	require.NoError(t, err)

	svc, pub := newFixtureService(db)
	report, err := svc.Sync(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.MissingPermissions)
	for _, r := range report.Roles {
		assert.False(t, r.Changed(), r.Role)
	}
	assert.Empty(t, pub.events)
}

func TestSync_RepairsDriftAndPromotesRole(t *testing.T) {
	db := repotest.NewDB()
	svc, _ := newFixtureService(db)
	ctx := context.Background()

	users := db.AddPermission("users:read")
	db.AddRole(seed.RoleManager, false, users.ID)

	violations, err := svc.Audit(ctx)
	require.NoError(t, err)
	rules := map[string]bool{}
	for _, v := range violations {
		rules[v.Rule] = true
	}
	assert.True(t, rules["system-roles-present"])
	assert.True(t, rules["manager-no-admin-modules"])

	report, err := svc.Sync(ctx, false)
	require.NoError(t, err)
	manager := resultFor(t, report, seed.RoleManager)
	assert.False(t, manager.Created)
	assert.Equal(t, []string{"users:read"}, manager.Removed)
	assert.True(t, db.Roles[manager.RoleID].IsSystem)

	violations, err = svc.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestSync_DryRunWritesNothing(t *testing.T) {
	db := repotest.NewDB()
	svc, pub := newFixtureService(db)
	ctx := context.Background()

	dash := db.AddPermission("dashboard:read")
	orders := db.AddPermission("orders:delete")
	db.AddRole(seed.RoleViewer, true, dash.ID, orders.ID)

	report, err := svc.Sync(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.MissingPermissions, len(seed.Catalog())-2)

	viewer := resultFor(t, report, seed.RoleViewer)
	assert.False(t, viewer.Created)
	assert.Empty(t, viewer.Added)
	assert.Equal(t, []string{"orders:delete"}, viewer.Removed)
	assert.Equal(t, 1, viewer.Unchanged)

	assert.True(t, resultFor(t, report, seed.RoleManager).Created)

	assert.Len(t, db.Perms, 2)
	assert.Len(t, db.Roles, 1)
	assert.Empty(t, pub.events)
}

func TestSync_FailureRollsBackPermissionChanges(t *testing.T) {
	db := repotest.NewDB()
	svc, _ := newFixtureService(db)
	ctx := context.Background()

	_, err := svc.Sync(ctx, false)
	require.NoError(t, err)
	viewerID := 0
	for id, r := range db.Roles {
		if r.Name == seed.RoleViewer {
			viewerID = id
		}
	}
	before := db.RolePermIDs(viewerID)
	extra := db.AddPermission("reports:export:waste_report")
	db.RolePerms[viewerID][extra.ID] = true

	db.Failures["RemoveRolePermissions"] = assert.AnError
	_, err = svc.Sync(ctx, false)
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, append(before, extra.ID), db.RolePermIDs(viewerID))
}
