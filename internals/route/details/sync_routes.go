package details

import (
	attendanceRoute "callmanager_backend/internals/features/sync/attendance/route"
	callHistoryRoute "callmanager_backend/internals/features/sync/call_history/route"
	"callmanager_backend/internals/features/sync/pipeline"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SyncUserRoutes mounts both ingestion endpoints for field users.
func SyncUserRoutes(r fiber.Router, db *gorm.DB, registry pipeline.Registry, maxBatch int) {
	callHistoryRoute.CallHistoryUserRoutes(r, db, registry, maxBatch)
	attendanceRoute.AttendanceUserRoutes(r, db, registry, maxBatch)
}

func SyncAdminRoutes(r fiber.Router, db *gorm.DB) {
	callHistoryRoute.CallHistoryAdminRoutes(r, db)
	attendanceRoute.AttendanceAdminRoutes(r, db)
}
