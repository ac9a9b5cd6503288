package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/configs"
	"callmanager_backend/internals/constants"
	authRepo "callmanager_backend/internals/features/users/auth/repository"
	authService "callmanager_backend/internals/features/users/auth/service"
	helper "callmanager_backend/internals/helpers"
)

const expirySkew = 30 * time.Second

// Public webhook paths that never carry a bearer token
var skipPaths = map[string]struct{}{
	"/api/public/subscriptions/notification": {},
}

// AuthMiddleware verifies the bearer token and stores the principal in
// Locals. Account state is checked later by the tenant guard.
func AuthMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := skipPaths[c.Path()]; ok {
			return c.Next()
		}

		tokenString, err := extractBearerToken(c)
		if err != nil {
			return helper.JsonErrorCode(c, fiber.StatusUnauthorized, constants.CodeUnauthenticated, err.Error())
		}

		claims, err := authService.ParseAccessToken(configs.JWTSecret, tokenString, time.Now().UTC(), expirySkew)
		if err != nil {
			if errors.Is(err, authService.ErrMissingSecret) {
				zap.L().Error("JWT_SECRET is empty")
				return fiber.NewError(fiber.StatusInternalServerError, "authentication is not configured")
			}
			msg := "invalid token"
			if errors.Is(err, authService.ErrTokenExpired) {
				msg = "token expired"
			}
			return helper.JsonErrorCode(c, fiber.StatusUnauthorized, constants.CodeInvalidToken, msg)
		}

		// once per request, even when the middleware is mounted twice
		if c.Locals("token_checked") == nil {
			revoked, err := authRepo.IsBlacklisted(db.WithContext(c.UserContext()), claims.ID)
			if err != nil {
				zap.L().Error("blacklist lookup failed", zap.Error(err))
				return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
			}
			if revoked {
				return helper.JsonErrorCode(c, fiber.StatusUnauthorized, constants.CodeInvalidToken, "token has been revoked")
			}
			c.Locals("token_checked", true)
		}

		storeClaimsToLocals(c, tokenString, claims)
		return c.Next()
	}
}
