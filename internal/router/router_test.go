package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/factorytrack/factory-backend/internal/config"
	"github.com/factorytrack/factory-backend/internal/database"
	"github.com/factorytrack/factory-backend/internal/handler"
	"github.com/factorytrack/factory-backend/internal/middleware"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository/repotest"
	"github.com/factorytrack/factory-backend/internal/response"
	"github.com/factorytrack/factory-backend/internal/seed"
	"github.com/factorytrack/factory-backend/internal/service"
	"github.com/factorytrack/factory-backend/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type envelope struct {
	Success    bool                 `json:"success"`
	Data       json.RawMessage      `json:"data"`
	Message    string               `json:"message"`
	Pagination *response.Pagination `json:"pagination"`
	Error      *struct {
		Code    response.ErrCode  `json:"code"`
		Fields  map[string]string `json:"fields"`
		Details map[string]any    `json:"details"`
	} `json:"error"`
}

type harness struct {
	t      *testing.T
	mr     *miniredis.Miniredis
	db     *repotest.DB
	auth   *service.AuthService
	engine *gin.Engine
	roles  map[string]int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := zerolog.Nop()
	cfg := &config.Config{
		GinMode:    gin.TestMode,
		JWTSecret:  "router-test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}

	db := repotest.NewDB()
	userStore := repotest.NewUserStore(db)
	roleStore := repotest.NewRoleStore(db)
	permStore := repotest.NewPermissionStore(db)

	events := service.NewRedisEventPublisher(rdb, log)
	authz := service.NewAuthorizationService(permStore, log)
	auth := service.NewAuthService(cfg, rdb, userStore, authz, log)
	roleSvc := service.NewRoleService(roleStore, events, log)
	userSvc := service.NewUserService(userStore, roleStore, auth, auth, events, log)
	permSvc := service.NewPermissionService(permStore, log)
	dashSvc := service.NewDashboardService(repotest.NewDashboardStore(db))

	limiter := middleware.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	handlers := &Handlers{
		Auth:       handler.NewAuthHandler(auth, userSvc, authz, log),
		Dashboard:  handler.NewDashboardHandler(dashSvc, authz, log),
		Role:       handler.NewRoleHandler(roleSvc, log),
		Permission: handler.NewPermissionHandler(permSvc, log),
		User:       handler.NewUserHandler(userSvc, authz, log),
		WS:         handler.NewWSHandler(rdb, auth, log, nil),
		Health:     handler.NewHealthHandler(log, handler.HealthCheck{Name: "redis", Pinger: database.RedisPinger{Client: rdb}}),
	}

	h := &harness{
		t:      t,
		mr:     mr,
		db:     db,
		auth:   auth,
		engine: SetupRouter(auth, authz, handlers, limiter, cfg, log),
		roles:  map[string]int{},
	}
	h.seed()
	return h
}

// seed loads the permission catalog and the system roles.
func (h *harness) seed() {
	catalog := seed.Catalog()
	for i := range catalog {
		catalog[i].ID = h.db.AddPermission(catalog[i].Key()).ID
	}
	plan, err := seed.Plan(catalog)
	require.NoError(h.t, err)
	for _, rf := range seed.SystemRoles() {
		h.roles[rf.Name] = h.db.AddRole(rf.Name, true, plan[rf.Name]...).ID
	}
}

func (h *harness) addUser(username, password string, roles ...string) int {
	h.t.Helper()
	hash, err := h.auth.HashPassword(password)
	require.NoError(h.t, err)
	u := h.db.AddUser(username)
	u.PasswordHash = hash
	for _, r := range roles {
		h.db.Grant(u.ID, h.roles[r])
	}
	return u.ID
}

func (h *harness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" && w.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (h *harness) login(username, password string) string {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(h.t, http.StatusOK, status, string(env.Data))
	var res model.LoginResponse
	require.NoError(h.t, json.Unmarshal(env.Data, &res))
	return res.Token
}

func errCode(env envelope) response.ErrCode {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	status, env := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok","checks":{"redis":"ok"}}`, string(env.Data))
}

func TestHealth_DependencyDown(t *testing.T) {
	h := newHarness(t)
	h.mr.Close()

	status, env := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrServiceUnavailable, env.Error.Code)
	assert.Equal(t, map[string]any{"redis": "down"}, env.Error.Details["checks"])
}

func TestUnauthenticated(t *testing.T) {
	h := newHarness(t)
	status, env := h.do(http.MethodGet, "/api/v1/roles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, response.ErrTokenRequired, errCode(env))
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.addUser("viewer", "secret123", seed.RoleViewer)

	status, env := h.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "viewer", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, response.ErrInvalidCredentials, errCode(env))

	status, env = h.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "viewer"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.ErrValidation, errCode(env))
	assert.Contains(t, env.Error.Fields, "password")

	status, env = h.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "viewer", "password": "secret123"})
	require.Equal(t, http.StatusOK, status)
	var res model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, []string{seed.RoleViewer}, res.Roles)
	assert.Equal(t, []string{"dashboard:read"}, res.Permissions)
}

func TestViewerSeesOnlyDashboard(t *testing.T) {
	h := newHarness(t)
	h.addUser("viewer", "secret123", seed.RoleViewer)
	token := h.login("viewer", "secret123")

	status, _ := h.do(http.MethodGet, "/api/v1/dashboard", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := h.do(http.MethodGet, "/api/v1/roles", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, response.ErrPermissionDenied, errCode(env))
	assert.Equal(t, "roles:read", env.Error.Details["permission"])

	status, env = h.do(http.MethodGet, "/api/v1/dashboard/access", token, nil)
	require.Equal(t, http.StatusOK, status)
	var access model.ModuleAccess
	require.NoError(t, json.Unmarshal(env.Data, &access))
	assert.Equal(t, []model.Module{model.ModuleDashboard}, access.Modules)

	status, env = h.do(http.MethodGet, "/api/v1/auth/check?module=reports&action=export&resource=sales_report", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"permission":"reports:export:sales_report","allowed":false,"reason":"not_granted"}`, string(env.Data))
}

func TestGrantAndRevokeApplyOnNextRequest(t *testing.T) {
	h := newHarness(t)
	h.addUser("admin", "secret123", seed.RoleSuperAdmin)
	opID := h.addUser("op", "secret123")
	admin := h.login("admin", "secret123")
	op := h.login("op", "secret123")

	status, env := h.do(http.MethodGet, "/api/v1/dashboard", op, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "no_active_role", env.Error.Details["reason"])

	status, _ = h.do(http.MethodPost, "/api/v1/users/"+itoa(opID)+"/roles", admin, gin.H{"role_id": h.roles[seed.RoleOperator]})
	require.Equal(t, http.StatusCreated, status)

	status, _ = h.do(http.MethodGet, "/api/v1/dashboard", op, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.do(http.MethodDelete, "/api/v1/users/"+itoa(opID)+"/roles/"+itoa(h.roles[seed.RoleOperator]), admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = h.do(http.MethodGet, "/api/v1/dashboard", op, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(http.MethodPost, "/api/v1/users/"+itoa(opID)+"/roles", admin, gin.H{"role_id": h.roles[seed.RoleOperator]})
	assert.Equal(t, http.StatusOK, status)
}

func TestReplaceRolePermissions(t *testing.T) {
	h := newHarness(t)
	h.addUser("admin", "secret123", seed.RoleSuperAdmin)
	admin := h.login("admin", "secret123")

	status, env := h.do(http.MethodPost, "/api/v1/roles", admin, gin.H{"name": "Auditor"})
	require.Equal(t, http.StatusCreated, status)
	var role model.Role
	require.NoError(t, json.Unmarshal(env.Data, &role))
	assert.False(t, role.IsSystem)

	status, env = h.do(http.MethodPost, "/api/v1/roles", admin, gin.H{"name": "Auditor"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, response.ErrRoleNameTaken, errCode(env))

	status, env = h.do(http.MethodPut, "/api/v1/roles/"+itoa(role.ID)+"/permissions", admin, gin.H{"permission_ids": []int{1, 2, 999}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.ErrUnknownPermissions, errCode(env))
	assert.Equal(t, []any{float64(999)}, env.Error.Details["unknown_permission_ids"])

	status, env = h.do(http.MethodPut, "/api/v1/roles/"+itoa(role.ID)+"/permissions", admin, gin.H{"permission_ids": []int{2, 1, 2}})
	require.Equal(t, http.StatusOK, status)
	var diff model.PermissionDiff
	require.NoError(t, json.Unmarshal(env.Data, &diff))
	assert.Equal(t, 2, diff.Added)
	assert.Equal(t, []int{1, 2}, diff.PermissionIDs)

	status, env = h.do(http.MethodPut, "/api/v1/roles/"+itoa(role.ID)+"/permissions", admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.ErrValidation, errCode(env))
}

func TestSystemRoleProtection(t *testing.T) {
	h := newHarness(t)
	h.addUser("admin", "secret123", seed.RoleSuperAdmin)
	admin := h.login("admin", "secret123")
	viewerID := itoa(h.roles[seed.RoleViewer])

	status, env := h.do(http.MethodDelete, "/api/v1/roles/"+viewerID, admin, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, response.ErrProtectedResource, errCode(env))

	status, _ = h.do(http.MethodPut, "/api/v1/roles/"+viewerID, admin, gin.H{"name": "Watcher"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(http.MethodGet, "/api/v1/roles/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = h.do(http.MethodGet, "/api/v1/roles/9999", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, response.ErrRoleNotFound, errCode(env))
}

func TestDeleteRoleWithReassign(t *testing.T) {
	h := newHarness(t)
	h.addUser("admin", "secret123", seed.RoleSuperAdmin)
	admin := h.login("admin", "secret123")
	temp := h.db.AddRole("Temp", false)
	uid := h.addUser("worker", "secret123")
	h.db.Grant(uid, temp.ID)

	status, env := h.do(http.MethodDelete, "/api/v1/roles/"+itoa(temp.ID)+"?reassign_to=x", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Error.Fields, "reassign_to")

	status, env = h.do(http.MethodDelete, "/api/v1/roles/"+itoa(temp.ID)+"?reassign_to="+itoa(h.roles[seed.RoleViewer]), admin, nil)
	require.Equal(t, http.StatusOK, status)
	var res model.RoleDeletion
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1, res.AffectedUsers)

	worker := h.login("worker", "secret123")
	status, _ = h.do(http.MethodGet, "/api/v1/dashboard", worker, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestLogoutEndsSession(t *testing.T) {
	h := newHarness(t)
	h.addUser("viewer", "secret123", seed.RoleViewer)
	first := h.login("viewer", "secret123")
	second := h.login("viewer", "secret123")

	status, _ := h.do(http.MethodPost, "/api/v1/auth/logout", first, nil)
	require.Equal(t, http.StatusOK, status)

	status, env := h.do(http.MethodGet, "/api/v1/auth/me", first, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, response.ErrSessionInvalidated, errCode(env))

	status, _ = h.do(http.MethodGet, "/api/v1/auth/me", second, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDeactivatedUserLosesAccess(t *testing.T) {
	h := newHarness(t)
	h.addUser("admin", "secret123", seed.RoleSuperAdmin)
	opID := h.addUser("op", "secret123", seed.RoleOperator)
	admin := h.login("admin", "secret123")
	op := h.login("op", "secret123")

	status, _ := h.do(http.MethodPatch, "/api/v1/users/"+itoa(opID)+"/status", admin, gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, status)

	status, _ = h.do(http.MethodGet, "/api/v1/dashboard", op, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := h.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "op", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, response.ErrAccountInactive, errCode(env))
}

func TestUserManagement(t *testing.T) {
	h := newHarness(t)
	h.addUser("admin", "secret123", seed.RoleSuperAdmin)
	admin := h.login("admin", "secret123")

	status, env := h.do(http.MethodPost, "/api/v1/users", admin, gin.H{
		"username":  "clerk",
		"full_name": "Store Clerk",
		"password":  "secret123",
		"role_ids":  []int{h.roles[seed.RoleViewer]},
	})
	require.Equal(t, http.StatusCreated, status)
	var created model.UserWithRoles
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Len(t, created.Roles, 1)

	status, env = h.do(http.MethodPost, "/api/v1/users", admin, gin.H{
		"username": "clerk", "full_name": "Other", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, response.ErrUsernameTaken, errCode(env))

	status, env = h.do(http.MethodGet, "/api/v1/users?per_page=1&page=2", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.TotalItems)
	assert.Equal(t, 2, env.Pagination.TotalPages)

	status, _ = h.do(http.MethodGet, "/api/v1/users?is_active=maybe", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = h.do(http.MethodGet, "/api/v1/users/"+itoa(created.ID)+"/permissions", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"dashboard:read"`)

	status, _ = h.do(http.MethodPost, "/api/v1/users/"+itoa(created.ID)+"/password", admin, gin.H{"password": "newsecret1"})
	require.Equal(t, http.StatusOK, status)
	h.login("clerk", "newsecret1")

	status, env = h.do(http.MethodDelete, "/api/v1/users/"+itoa(created.ID)+"/roles/"+itoa(h.roles[seed.RoleManager]), admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, response.ErrGrantNotFound, errCode(env))
}

func TestPermissionCatalog(t *testing.T) {
	h := newHarness(t)
	h.addUser("admin", "secret123", seed.RoleSuperAdmin)
	admin := h.login("admin", "secret123")

	status, env := h.do(http.MethodGet, "/api/v1/permissions?module=reports", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var perms []model.Permission
	require.NoError(t, json.Unmarshal(env.Data, &perms))
	require.NotEmpty(t, perms)
	for _, p := range perms {
		assert.Equal(t, model.ModuleReports, p.Module)
	}

	status, _ = h.do(http.MethodGet, "/api/v1/permissions?module=payroll", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, "/api/v1/permissions", admin, gin.H{"module": "reports", "action": "export", "resource": "waste_report"})
	assert.Equal(t, http.StatusCreated, status)

	status, env = h.do(http.MethodPost, "/api/v1/permissions", admin, gin.H{"module": "reports", "action": "export", "resource": "waste_report"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, response.ErrPermissionExists, errCode(env))

	status, env = h.do(http.MethodPost, "/api/v1/permissions", admin, gin.H{"module": "payroll", "action": "fly"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Error.Fields, "module")
	assert.Contains(t, env.Error.Fields, "action")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "factory_")
}

func itoa(n int) string { return strconv.Itoa(n) }
