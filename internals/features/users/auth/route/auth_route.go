package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	controller "callmanager_backend/internals/features/users/auth/controller"
	rateLimiter "callmanager_backend/internals/middlewares"
	authMiddleware "callmanager_backend/internals/middlewares/auth"
)

// AuthRoutes mounts /api/auth. Login is public and rate limited per IP.
func AuthRoutes(app *fiber.App, db *gorm.DB) {
	authController := controller.NewAuthController(db)

	baseAuth := app.Group("/api/auth")

	baseAuth.Post("/superadmin/login", rateLimiter.LoginRateLimiter(), authController.LoginSuperAdmin)
	baseAuth.Post("/admin/login", rateLimiter.LoginRateLimiter(), authController.LoginAdmin)
	baseAuth.Post("/user/login", rateLimiter.LoginRateLimiter(), authController.LoginUser)

	baseAuth.Post("/logout", authMiddleware.AuthMiddleware(db), authController.Logout)
}
