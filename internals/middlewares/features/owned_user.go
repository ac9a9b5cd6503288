package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/accounts/access"
	"callmanager_backend/internals/features/accounts/model"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/helpers/metrics"
)

const locTargetUser = "target_user"

// RequireOwnedUser loads the user named by the route param and rejects the
// request with 403 unless the calling admin owns it. Unknown ids get the same
// 403 as foreign ones.
func RequireOwnedUser(db *gorm.DB, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := helper.ParseUintParam(c, param)
		if err != nil {
			return err
		}
		u, d, err := access.OwnedUser(c.UserContext(), db, helper.GetAdminID(c), userID)
		if err != nil {
			zap.L().Error("ownership lookup failed", zap.Uint("user_id", userID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load user")
		}
		if !d.Allowed {
			metrics.AccessDenied.WithLabelValues(d.Code).Inc()
			return helper.JsonErrorCode(c, d.Status, d.Code, d.Message)
		}
		c.Locals(locTargetUser, u)
		return c.Next()
	}
}

// TargetUser returns the user loaded by RequireOwnedUser.
func TargetUser(c *fiber.Ctx) *model.UserModel {
	u, _ := c.Locals(locTargetUser).(*model.UserModel)
	return u
}
