package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository/repotest"
)

type userFixture struct {
	db      *repotest.DB
	svc     *UserService
	pub     *recordingPublisher
	revoker *recordingRevoker
}

func newUserFixture() *userFixture {
	db := repotest.NewDB()
	pub := &recordingPublisher{}
	rev := &recordingRevoker{}
	svc := NewUserService(repotest.NewUserStore(db), repotest.NewRoleStore(db), plainHasher{}, rev, pub, zerolog.Nop())
	return &userFixture{db: db, svc: svc, pub: pub, revoker: rev}
}

func TestAssignRevokeRole_TogglesSingleGrant(t *testing.T) {
	f := newUserFixture()
	role := f.db.AddRole("Operator", false)
	u := f.db.AddUser("op")
	ctx := context.Background()

	grants, created, err := f.svc.AssignRole(ctx, u.ID, role.ID)
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].IsActive)

	grants, err = f.svc.RevokeRole(ctx, u.ID, role.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.False(t, grants[0].IsActive, "revocation keeps the row")

	grants, created, err = f.svc.AssignRole(ctx, u.ID, role.ID)
	require.NoError(t, err)
	assert.False(t, created, "re-assignment reactivates the existing row")
	require.Len(t, grants, 1)
	assert.True(t, grants[0].IsActive)

	_, created, err = f.svc.AssignRole(ctx, u.ID, role.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, f.db.Grants, 1)

	assert.Equal(t, []EventType{EventGrantAssigned, EventGrantRevoked, EventGrantAssigned, EventGrantAssigned}, f.pub.types())
}

func TestRevokeRole_NotHeld(t *testing.T) {
	f := newUserFixture()
	role := f.db.AddRole("Operator", false)
	u := f.db.AddUser("op")

	_, err := f.svc.RevokeRole(context.Background(), u.ID, role.ID)
	assert.ErrorIs(t, err, ErrGrantNotFound)

	_, err = f.svc.RevokeRole(context.Background(), 999, role.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAssignRole_UnknownTargets(t *testing.T) {
	f := newUserFixture()
	role := f.db.AddRole("Operator", false)
	u := f.db.AddUser("op")

	_, _, err := f.svc.AssignRole(context.Background(), 999, role.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, _, err = f.svc.AssignRole(context.Background(), u.ID, 999)
	assert.ErrorIs(t, err, ErrRoleNotFound)
	assert.Empty(t, f.db.Grants)
}

func TestCreateUser_WithRoles(t *testing.T) {
	f := newUserFixture()
	viewer := f.db.AddRole("Viewer", true)

	created, err := f.svc.CreateUser(context.Background(), model.CreateUserRequest{
		Username: "alice",
		FullName: "Alice",
		Password: "secret123",
		RoleIDs:  []int{viewer.ID},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, "hashed:secret123", f.db.Users[created.ID].PasswordHash)
	require.Len(t, created.Roles, 1)
	assert.Equal(t, "Viewer", created.Roles[0].RoleName)

	_, err = f.svc.CreateUser(context.Background(), model.CreateUserRequest{Username: "alice", FullName: "Dup", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestCreateUser_UnknownRoleCreatesNothing(t *testing.T) {
	f := newUserFixture()

	_, err := f.svc.CreateUser(context.Background(), model.CreateUserRequest{
		Username: "bob", FullName: "Bob", Password: "secret123", RoleIDs: []int{77},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "role_ids")
	assert.Empty(t, f.db.Users)
}

func TestSetActive_DeactivationRevokesSessions(t *testing.T) {
	f := newUserFixture()
	u := f.db.AddUser("op")
	ctx := context.Background()

	user, err := f.svc.SetActive(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, []int{u.ID}, f.revoker.revoked)
	assert.Equal(t, []EventType{EventUserStatusChanged}, f.pub.types())

	user, err = f.svc.SetActive(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Len(t, f.revoker.revoked, 1, "activation leaves sessions alone")

	_, err = f.svc.SetActive(ctx, 999, false)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetActive_RevokeFailureIsNotFatal(t *testing.T) {
	f := newUserFixture()
	u := f.db.AddUser("op")
	f.revoker.err = errors.New("redis down")

	_, err := f.svc.SetActive(context.Background(), u.ID, false)
	require.NoError(t, err)
	assert.False(t, f.db.Users[u.ID].IsActive)
}

func TestResetPassword(t *testing.T) {
	f := newUserFixture()
	u := f.db.AddUser("op")

	require.NoError(t, f.svc.ResetPassword(context.Background(), u.ID, "newpass1"))
	assert.Equal(t, "hashed:newpass1", f.db.Users[u.ID].PasswordHash)
	assert.Equal(t, []int{u.ID}, f.revoker.revoked)
	require.Equal(t, []EventType{EventSessionsRevoked}, f.pub.types())
	assert.Equal(t, u.ID, f.pub.events[0].UserID)

	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), 999, "newpass1"), ErrUserNotFound)
	assert.Len(t, f.pub.events, 1, "a failed reset publishes nothing")
}

func TestListUsers_Filters(t *testing.T) {
	f := newUserFixture()
	role := f.db.AddRole("Viewer", true)
	a := f.db.AddUser("anna")
	f.db.AddUser("ben")
	c := f.db.AddUser("carl")
	c.IsActive = false
	f.db.Grant(a.ID, role.ID)

	users, total, err := f.svc.ListUsers(context.Background(), model.UserFilter{RoleID: role.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "anna", users[0].Username)

	users, total, err = f.svc.ListUsers(context.Background(), model.UserFilter{IsActive: ptr(true), PerPage: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, users, 1)
	assert.Equal(t, "ben", users[0].Username)
}
