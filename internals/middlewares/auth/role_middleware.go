package auth

import (
	"github.com/gofiber/fiber/v2"

	"callmanager_backend/internals/constants"
	helper "callmanager_backend/internals/helpers"
)

// RoleMiddlewareWithCustomError lets the request through only for allowedRoles.
func RoleMiddlewareWithCustomError(allowedRoles []string, customForbiddenMessage string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := helper.GetRole(c)
		if role == "" {
			return helper.JsonErrorCode(c, fiber.StatusUnauthorized, constants.CodeUnauthenticated,
				"missing role information")
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				return c.Next()
			}
		}

		if customForbiddenMessage == "" {
			customForbiddenMessage = constants.RoleErrorDefault
		}
		return helper.JsonErrorCode(c, fiber.StatusForbidden, constants.CodeForbiddenRole, customForbiddenMessage)
	}
}

// Shortcut
func OnlyRoles(customMessage string, roles ...string) fiber.Handler {
	return RoleMiddlewareWithCustomError(roles, customMessage)
}
