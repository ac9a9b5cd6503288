package route

import (
	"github.com/gofiber/fiber/v2"

	"callmanager_backend/internals/features/analytics/controller"
	"callmanager_backend/internals/features/analytics/service"
)

// AnalyticsAdminRoutes mounts under /api/a.
func AnalyticsAdminRoutes(admin fiber.Router, agg *service.Aggregator) {
	ctrl := controller.NewAnalyticsController(agg)

	admin.Get("/call-analytics", ctrl.CallAnalytics)
	admin.Get("/performance", ctrl.Performance)
}
