package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/sync/attendance/controller"
	"callmanager_backend/internals/features/sync/pipeline"
	rateLimiter "callmanager_backend/internals/middlewares"
	middleware "callmanager_backend/internals/middlewares/features"
)

func AttendanceUserRoutes(user fiber.Router, db *gorm.DB, registry pipeline.Registry, maxBatch int) {
	ctrl := controller.NewAttendanceController(db, registry, maxBatch)

	g := user.Group("/attendance")
	g.Post("/sync", rateLimiter.SyncRateLimiter(), ctrl.Sync)
	g.Get("/my", ctrl.My)
}

func AttendanceAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewAttendanceController(db, nil, 0)

	admin.Get("/attendance", ctrl.TenantList)
	admin.Get("/users/:id/attendance", middleware.RequireOwnedUser(db, "id"), ctrl.UserDetail)
}
