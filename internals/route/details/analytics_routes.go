package details

import (
	analyticsRoute "callmanager_backend/internals/features/analytics/route"
	"callmanager_backend/internals/features/analytics/service"

	"github.com/gofiber/fiber/v2"
)

func AnalyticsAdminRoutes(r fiber.Router, agg *service.Aggregator) {
	analyticsRoute.AnalyticsAdminRoutes(r, agg)
}
