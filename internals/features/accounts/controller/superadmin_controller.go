package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/dto"
	"callmanager_backend/internals/features/accounts/model"
	"callmanager_backend/internals/features/accounts/repository"
	"callmanager_backend/internals/features/users/auth/service"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/helpers/dbtime"
	"callmanager_backend/internals/middlewares/logger"
)

const recentActivityLimit = 50

type SuperAdminController struct {
	DB        *gorm.DB
	Validator *validator.Validate
	Clock     dbtime.Clock
}

func NewSuperAdminController(db *gorm.DB) *SuperAdminController {
	return &SuperAdminController{DB: db, Validator: dto.NewValidator(), Clock: dbtime.SystemClock}
}

// POST /api/s/admins
func (ctrl *SuperAdminController) CreateAdmin(c *fiber.Ctx) error {
	var req dto.CreateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid input format")
	}
	if err := ctrl.Validator.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrorsMap(err))
	}

	taken, err := repository.EmailTaken(ctrl.DB.WithContext(c.UserContext()), req.Email)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to check email")
	}
	if taken {
		return helper.JsonError(c, fiber.StatusConflict, "email already registered")
	}

	hash, err := service.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}
	saID := helper.GetUserID(c)
	admin, err := req.ToModel(hash, saID)
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid expiry_date")
	}
	if err := repository.CreateAdmin(c.UserContext(), ctrl.DB, &admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return helper.JsonError(c, fiber.StatusConflict, "email already registered")
		}
		logger.FromCtx(c).Error("create admin failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create admin")
	}

	ctrl.logActivity(c, model.ActionCreateAdmin, admin.ID, map[string]any{"email": admin.Email})
	return helper.JsonCreated(c, "Admin created", dto.FromAdmin(admin, 0, ctrl.Clock()))
}

// GET /api/s/admins
func (ctrl *SuperAdminController) ListAdmins(c *fiber.Ctx) error {
	rows, err := repository.ListAdminsWithUserCount(ctrl.DB.WithContext(c.UserContext()))
	if err != nil {
		logger.FromCtx(c).Error("list admins failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load admins")
	}
	now := ctrl.Clock()
	out := make([]dto.AdminResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.FromAdmin(r.AdminModel, r.UserCount, now))
	}
	return helper.JsonOK(c, "ok", out)
}

// PATCH /api/s/admins/:id
func (ctrl *SuperAdminController) PatchAdmin(c *fiber.Ctx) error {
	id, err := helper.ParseUintParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.PatchAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid input format")
	}
	if err := ctrl.Validator.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrorsMap(err))
	}
	patch, err := req.Patch()
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid expiry_date")
	}

	admin, err := repository.UpdateAdmin(c.UserContext(), ctrl.DB, id, patch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "admin not found")
		}
		logger.FromCtx(c).Error("update admin failed", zap.Uint("admin_id", id), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to update admin")
	}
	count, err := repository.CountUsersByAdmin(ctrl.DB.WithContext(c.UserContext()), id)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to count users")
	}

	ctrl.logActivity(c, model.ActionUpdateAdmin, id, patchKeys(patch))
	return helper.JsonUpdated(c, "Admin updated", dto.FromAdmin(*admin, count, ctrl.Clock()))
}

// GET /api/s/dashboard
func (ctrl *SuperAdminController) Dashboard(c *fiber.Ctx) error {
	stats, err := repository.LoadSystemStats(c.UserContext(), ctrl.DB, ctrl.Clock())
	if err != nil {
		logger.FromCtx(c).Error("system stats failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load dashboard")
	}
	return helper.JsonOK(c, "ok", stats)
}

// GET /api/s/activity-logs
func (ctrl *SuperAdminController) ActivityLogs(c *fiber.Ctx) error {
	rows, err := repository.ListRecentActivity(ctrl.DB.WithContext(c.UserContext()), recentActivityLimit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load activity logs")
	}
	return helper.JsonOK(c, "ok", rows)
}

func (ctrl *SuperAdminController) logActivity(c *fiber.Ctx, action string, adminID uint, meta map[string]any) {
	err := repository.LogActivity(ctrl.DB.WithContext(c.UserContext()),
		constants.RoleSuperAdmin, helper.GetUserID(c), action, "admin", adminID, meta)
	if err != nil {
		logger.FromCtx(c).Warn("activity log failed", zap.String("action", action), zap.Error(err))
	}
}

// patchKeys records which columns changed, never their values.
func patchKeys(patch map[string]any) map[string]any {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	return map[string]any{"fields": keys}
}
