package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Locals keys written by the auth middleware.
const (
	LocRawToken = "raw_token"
	LocUserID   = "user_id"
	LocRole     = "userRole"
	LocTokenJTI = "token_jti"
	LocTokenExp = "token_exp"

	// set by the tenant guard: the admin every query of this request is scoped to
	LocAdminID = "admin_id"
)

func SetRawAccessToken(c *fiber.Ctx, raw string) {
	if strings.TrimSpace(raw) != "" {
		c.Locals(LocRawToken, strings.TrimSpace(raw))
	}
}

// GetUserID returns the authenticated principal id, 0 when absent.
func GetUserID(c *fiber.Ctx) uint {
	if v, ok := c.Locals(LocUserID).(uint); ok {
		return v
	}
	return 0
}

// GetAdminID returns the tenant resolved by the tenant guard, 0 when absent.
func GetAdminID(c *fiber.Ctx) uint {
	if v, ok := c.Locals(LocAdminID).(uint); ok {
		return v
	}
	return 0
}

func GetRole(c *fiber.Ctx) string {
	if v, ok := c.Locals(LocRole).(string); ok {
		return v
	}
	return ""
}

// ParseUintParam reads a positive integer route param.
func ParseUintParam(c *fiber.Ctx, name string) (uint, error) {
	n := atoiDefault(c.Params(name), 0)
	if n <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(n), nil
}
