package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/configs"
	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/access"
	analyticsService "callmanager_backend/internals/features/analytics/service"
	attendanceService "callmanager_backend/internals/features/sync/attendance/service"
	callHistoryService "callmanager_backend/internals/features/sync/call_history/service"
	"callmanager_backend/internals/features/sync/pipeline"
	subscriptionService "callmanager_backend/internals/features/subscriptions/service"
	"callmanager_backend/internals/helpers/cache"
	"callmanager_backend/internals/helpers/events"
	"callmanager_backend/internals/helpers/storage"
	middlewares "callmanager_backend/internals/middlewares"
	authMiddleware "callmanager_backend/internals/middlewares/auth"
	featuresMiddleware "callmanager_backend/internals/middlewares/features"
	routeDetails "callmanager_backend/internals/route/details"
)

var startTime time.Time

// Deps are the shared services built once in main.
type Deps struct {
	DB       *gorm.DB
	Cache    cache.Cache
	Events   events.Publisher
	Images   *storage.ImageStore
	Renewals *subscriptionService.Renewals
}

func SetupRoutes(app *fiber.App, d Deps) {
	startTime = time.Now()
	log := zap.L()
	db := d.DB

	BaseRoutes(app, db)

	// ===================== SHARED SERVICES =====================
	agg := analyticsService.NewGormAggregator(db, d.Cache, configs.App.AnalyticsCacheTTL)

	runner := pipeline.Runner{
		Deadline:    configs.App.SyncBatchTimeout,
		Events:      d.Events,
		Log:         log.Named("sync"),
		AfterCommit: agg.OnSyncCommitted,
	}
	registry := pipeline.Registry{
		pipeline.KindCallLog:    callHistoryService.NewIngester(callHistoryService.NewGormStore(db), runner),
		pipeline.KindAttendance: attendanceService.NewIngester(attendanceService.NewGormStore(db), d.Images, runner),
	}

	// ===================== AUTH =====================
	log.Info("setting up auth routes")
	routeDetails.AuthRoutes(app, db)

	// ===================== GROUPS =====================
	resolver := access.NewGormResolver(db)

	public := app.Group("/api/public")

	// group middleware only runs on its own path segment ("/api/a" never
	// catches "/api/auth")
	user := app.Group("/api/u", middlewares.OnSegment("/api/u",
		authMiddleware.AuthMiddleware(db),
		authMiddleware.OnlyRoles("", constants.RoleUser),
		featuresMiddleware.TenantGuard(resolver, nil, access.Policy{}),
	)...)

	// renewal stays reachable after the subscription lapsed
	admin := app.Group("/api/a", middlewares.OnSegment("/api/a",
		authMiddleware.AuthMiddleware(db),
		authMiddleware.OnlyRoles("", constants.RoleAdmin),
		featuresMiddleware.TenantGuardExempt(resolver, nil, "/api/a/subscription"),
	)...)

	superAdmin := app.Group("/api/s", middlewares.OnSegment("/api/s",
		authMiddleware.AuthMiddleware(db),
		authMiddleware.OnlyRoles("", constants.RoleSuperAdmin),
		featuresMiddleware.TenantGuard(resolver, nil, access.Policy{}),
	)...)

	// ===================== MOUNT ROUTES =====================
	log.Info("mounting account routes")
	routeDetails.AccountsSuperAdminRoutes(superAdmin, db)
	routeDetails.AccountsAdminRoutes(admin, db, d.Images, agg.Invalidate)
	routeDetails.AccountsUserRoutes(user, db, agg.Invalidate)

	log.Info("mounting sync routes")
	routeDetails.SyncUserRoutes(user, db, registry, configs.App.SyncMaxBatch)
	routeDetails.SyncAdminRoutes(admin, db)

	log.Info("mounting analytics routes")
	routeDetails.AnalyticsAdminRoutes(admin, agg)

	log.Info("mounting subscription routes")
	routeDetails.SubscriptionAdminRoutes(admin, db, d.Renewals)
	routeDetails.SubscriptionPublicRoutes(public, db, d.Renewals)
}
