package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/sync/call_history/controller"
	"callmanager_backend/internals/features/sync/pipeline"
	rateLimiter "callmanager_backend/internals/middlewares"
	middleware "callmanager_backend/internals/middlewares/features"
)

// CallHistoryUserRoutes mounts under /api/u (user token + tenant guard).
func CallHistoryUserRoutes(user fiber.Router, db *gorm.DB, registry pipeline.Registry, maxBatch int) {
	ctrl := controller.NewCallHistoryController(db, registry, maxBatch)

	g := user.Group("/call-history")
	g.Post("/sync", rateLimiter.SyncRateLimiter(), ctrl.Sync)
	g.Get("/my", ctrl.My)
}

// CallHistoryAdminRoutes mounts under /api/a (admin token + tenant guard).
func CallHistoryAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewCallHistoryController(db, nil, 0)

	admin.Get("/call-history", ctrl.TenantList)
	admin.Get("/users/:id/call-history", middleware.RequireOwnedUser(db, "id"), ctrl.UserDetail)
}
