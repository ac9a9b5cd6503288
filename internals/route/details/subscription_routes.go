package details

import (
	subscriptionRoute "callmanager_backend/internals/features/subscriptions/route"
	"callmanager_backend/internals/features/subscriptions/service"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SubscriptionPublicRoutes(r fiber.Router, db *gorm.DB, renewals *service.Renewals) {
	subscriptionRoute.SubscriptionPublicRoutes(r, db, renewals)
}

// SubscriptionAdminRoutes expects a group whose guard lets expired admins through.
func SubscriptionAdminRoutes(r fiber.Router, db *gorm.DB, renewals *service.Renewals) {
	subscriptionRoute.SubscriptionAdminRoutes(r, db, renewals)
}
