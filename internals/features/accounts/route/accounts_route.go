package route

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/accounts/controller"
	middleware "callmanager_backend/internals/middlewares/features"
)

// SuperAdminRoutes mounts under /api/s.
func SuperAdminRoutes(sa fiber.Router, db *gorm.DB) {
	ctrl := controller.NewSuperAdminController(db)

	admins := sa.Group("/admins")
	admins.Post("/", ctrl.CreateAdmin)
	admins.Get("/", ctrl.ListAdmins)
	admins.Patch("/:id", ctrl.PatchAdmin)

	sa.Get("/dashboard", ctrl.Dashboard)
	sa.Get("/activity-logs", ctrl.ActivityLogs)
}

// AdminUserRoutes mounts under /api/a.
func AdminUserRoutes(admin fiber.Router, db *gorm.DB, images controller.UserFolders, changed func(context.Context, uint)) {
	ctrl := controller.NewAdminController(db, images, changed)
	owned := middleware.RequireOwnedUser(db, "id")

	admin.Get("/dashboard", ctrl.Dashboard)

	users := admin.Group("/users")
	users.Post("/", ctrl.CreateUser)
	users.Get("/", ctrl.ListUsers)
	users.Get("/:id", owned, ctrl.GetUser)
	users.Patch("/:id", owned, ctrl.PatchUser)
	users.Delete("/:id", owned, ctrl.DeleteUser)
}

// UserProfileRoutes mounts under /api/u.
func UserProfileRoutes(user fiber.Router, db *gorm.DB, changed func(context.Context, uint)) {
	ctrl := controller.NewProfileController(db, changed)

	user.Get("/me", ctrl.Me)
	user.Get("/sync-status", ctrl.SyncStatus)
	user.Put("/profile", ctrl.UpdateProfile)
	user.Patch("/profile", ctrl.UpdateProfile)
}
