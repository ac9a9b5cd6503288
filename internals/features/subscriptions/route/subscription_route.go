package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/subscriptions/controller"
	"callmanager_backend/internals/features/subscriptions/service"
)

// SubscriptionAdminRoutes mounts on the admin group that still lets expired subscriptions through.
func SubscriptionAdminRoutes(admin fiber.Router, db *gorm.DB, renewals *service.Renewals) {
	ctrl := controller.NewSubscriptionController(db, renewals)

	g := admin.Group("/subscription")
	g.Get("/", ctrl.Status)
	g.Post("/renew", ctrl.Renew)
}

func SubscriptionPublicRoutes(public fiber.Router, db *gorm.DB, renewals *service.Renewals) {
	ctrl := controller.NewSubscriptionController(db, renewals)

	public.Post("/subscriptions/notification", ctrl.Notification)
}
