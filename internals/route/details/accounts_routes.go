package details

import (
	"context"

	accountsRoute "callmanager_backend/internals/features/accounts/route"
	"callmanager_backend/internals/features/accounts/controller"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func AccountsSuperAdminRoutes(r fiber.Router, db *gorm.DB) {
	accountsRoute.SuperAdminRoutes(r, db)
}

func AccountsAdminRoutes(r fiber.Router, db *gorm.DB, images controller.UserFolders, changed func(context.Context, uint)) {
	accountsRoute.AdminUserRoutes(r, db, images, changed)
}

func AccountsUserRoutes(r fiber.Router, db *gorm.DB, changed func(context.Context, uint)) {
	accountsRoute.UserProfileRoutes(r, db, changed)
}
