package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/config"
	"github.com/factorytrack/factory-backend/internal/handler"
	"github.com/factorytrack/factory-backend/internal/middleware"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Dashboard  *handler.DashboardHandler
	Role       *handler.RoleHandler
	Permission *handler.PermissionHandler
	User       *handler.UserHandler
	WS         *handler.WSHandler
	Health     *handler.HealthHandler
}

// Auth is what the router needs from the authentication service.
type Auth interface {
	middleware.TokenValidator
	middleware.SessionValidator
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth Auth,
	authz middleware.Authorizer,
	handlers *Handlers,
	loginLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID, "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the logger and every envelope carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Prometheus())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	guard := middleware.NewPermissionGuard(authz, log)
	authenticated := []gin.HandlerFunc{middleware.RequireJWT(auth), middleware.CheckSession(auth, log)}

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	authAPI := router.Group("/api/v1/auth")
	authAPI.Use(middleware.NoStore())
	{
		authAPI.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)

		authAPI.POST("/logout", append(authenticated, handlers.Auth.Logout)...)
		authAPI.GET("/me", append(authenticated, handlers.Auth.Me)...)
		authAPI.GET("/check", append(authenticated, handlers.Auth.Check)...)
	}

	// ─── 2. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(authenticated...)
	{
		ws.GET("/rbac/events", handlers.WS.RBACEvents)
	}

	// ─── 3. API Group (JWT + Session + RBAC) ───────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.NoStore())
	api.Use(authenticated...)
	{
		// Dashboard
		api.GET("/dashboard",
			guard.RequirePermission(model.ModuleDashboard, model.ActionRead, "overview"),
			handlers.Dashboard.Overview,
		)
		api.GET("/dashboard/access", handlers.Dashboard.Access) // Open to every authenticated user

		// Roles
		api.GET("/roles",
			guard.RequirePermission(model.ModuleRoles, model.ActionRead, ""),
			handlers.Role.List,
		)
		api.POST("/roles",
			guard.RequirePermission(model.ModuleRoles, model.ActionCreate, ""),
			handlers.Role.Create,
		)
		api.GET("/roles/:id",
			guard.RequirePermission(model.ModuleRoles, model.ActionRead, ""),
			handlers.Role.Get,
		)
		api.PUT("/roles/:id",
			guard.RequirePermission(model.ModuleRoles, model.ActionUpdate, ""),
			handlers.Role.Update,
		)
		api.DELETE("/roles/:id",
			guard.RequirePermission(model.ModuleRoles, model.ActionDelete, ""),
			handlers.Role.Delete,
		)
		api.GET("/roles/:id/permissions",
			guard.RequirePermission(model.ModuleRoles, model.ActionRead, ""),
			handlers.Role.GetPermissions,
		)
		api.PUT("/roles/:id/permissions",
			guard.RequirePermission(model.ModuleRoles, model.ActionUpdate, ""),
			handlers.Role.ReplacePermissions,
		)
		api.GET("/roles/:id/users",
			guard.RequirePermission(model.ModuleRoles, model.ActionRead, ""),
			handlers.Role.ListUsers,
		)

		// Permission catalog
		permissions := api.Group("/permissions")
		{
			permissions.GET("", guard.RequirePermission(model.ModulePermissions, model.ActionRead, ""), handlers.Permission.List)
			permissions.GET("/catalog", guard.RequirePermission(model.ModulePermissions, model.ActionRead, ""), handlers.Permission.Catalog)
			permissions.POST("", guard.RequirePermission(model.ModulePermissions, model.ActionCreate, ""), handlers.Permission.Create)
		}

		// Users
		users := api.Group("/users")
		{
			users.GET("", guard.RequirePermission(model.ModuleUsers, model.ActionRead, ""), handlers.User.List)
			users.POST("", guard.RequirePermission(model.ModuleUsers, model.ActionCreate, ""), handlers.User.Create)
			users.GET("/:id", guard.RequirePermission(model.ModuleUsers, model.ActionRead, ""), handlers.User.Get)
			users.PUT("/:id", guard.RequirePermission(model.ModuleUsers, model.ActionUpdate, ""), handlers.User.Update)
			users.PATCH("/:id/status", guard.RequirePermission(model.ModuleUsers, model.ActionUpdate, ""), handlers.User.SetStatus)
			users.POST("/:id/password", guard.RequirePermission(model.ModuleUsers, model.ActionUpdate, ""), handlers.User.ResetPassword)
			users.GET("/:id/permissions", guard.RequirePermission(model.ModuleUsers, model.ActionRead, ""), handlers.User.Permissions)
			users.POST("/:id/roles", guard.RequirePermission(model.ModuleUsers, model.ActionUpdate, ""), handlers.User.AssignRole)
			users.DELETE("/:id/roles/:role_id", guard.RequirePermission(model.ModuleUsers, model.ActionUpdate, ""), handlers.User.RevokeRole)
		}
	}

	return router
}
