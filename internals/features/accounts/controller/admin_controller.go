package controller

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/access"
	"callmanager_backend/internals/features/accounts/dto"
	"callmanager_backend/internals/features/accounts/model"
	"callmanager_backend/internals/features/accounts/repository"
	"callmanager_backend/internals/features/users/auth/service"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/helpers/dbtime"
	middleware "callmanager_backend/internals/middlewares/features"
	"callmanager_backend/internals/middlewares/logger"
)

// UserFolders drops a user's stored photos. *storage.ImageStore satisfies it.
type UserFolders interface {
	RemoveUser(adminID, userID uint) error
}

type AdminController struct {
	DB        *gorm.DB
	Validator *validator.Validate
	Clock     dbtime.Clock
	Images    UserFolders
	// Changed runs after the tenant's user set changes so cached reports can be dropped.
	Changed func(ctx context.Context, adminID uint)
}

func NewAdminController(db *gorm.DB, images UserFolders, changed func(context.Context, uint)) *AdminController {
	return &AdminController{
		DB:        db,
		Validator: dto.NewValidator(),
		Clock:     dbtime.SystemClock,
		Images:    images,
		Changed:   changed,
	}
}

var userSortColumns = map[string]string{
	"created_at":        "created_at",
	"name":              "name",
	"last_sync":         "last_sync",
	"performance_score": "performance_score",
}

// POST /api/a/users
func (ctrl *AdminController) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
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

	adminID := helper.GetAdminID(c)
	u := req.ToModel(hash, adminID)
	if err := repository.CreateUserWithinLimit(c.UserContext(), ctrl.DB, &u); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserLimitReached):
			return helper.JsonErrorCode(c, fiber.StatusForbidden, constants.CodeUserLimitReached, err.Error())
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return helper.JsonError(c, fiber.StatusConflict, "email already registered")
		}
		logger.FromCtx(c).Error("create user failed", zap.Uint("admin_id", adminID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create user")
	}

	ctrl.logActivity(c, model.ActionCreateUser, u.ID, map[string]any{"email": u.Email})
	ctrl.changed(c, adminID)
	return helper.JsonCreated(c, "User created", dto.FromUser(u))
}

// GET /api/a/users?page=&per_page=&sort_by=&order=
func (ctrl *AdminController) ListUsers(c *fiber.Ctx) error {
	p := helper.ParseFiber(c, "created_at", "desc", helper.DefaultOpts)
	order, err := p.SafeOrderClause(userSortColumns, "created_at")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	rows, total, err := repository.ListUsersByAdmin(ctrl.DB.WithContext(c.UserContext()),
		helper.GetAdminID(c), order, p.Limit(), p.Offset())
	if err != nil {
		logger.FromCtx(c).Error("list users failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load users")
	}
	return helper.JsonList(c, "ok", dto.FromUsers(rows), helper.BuildMeta(total, p))
}

// GET /api/a/users/:id (behind RequireOwnedUser)
func (ctrl *AdminController) GetUser(c *fiber.Ctx) error {
	target := middleware.TargetUser(c)
	if target == nil {
		return helper.JsonErrorCode(c, fiber.StatusForbidden, constants.CodeNotOwner, access.ErrNotOwner.Error())
	}
	return helper.JsonOK(c, "ok", dto.FromUser(*target))
}

// PATCH /api/a/users/:id (behind RequireOwnedUser)
func (ctrl *AdminController) PatchUser(c *fiber.Ctx) error {
	target := middleware.TargetUser(c)
	if target == nil {
		return helper.JsonErrorCode(c, fiber.StatusForbidden, constants.CodeNotOwner, access.ErrNotOwner.Error())
	}
	var req dto.PatchUserRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid input format")
	}
	if err := ctrl.Validator.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrorsMap(err))
	}

	patch := req.Patch()
	if req.Password != nil {
		hash, err := service.HashPassword(*req.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
		}
		patch["password_hash"] = hash
	}

	u, err := repository.UpdateUser(c.UserContext(), ctrl.DB, target.ID, patch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "user not found")
		}
		logger.FromCtx(c).Error("update user failed", zap.Uint("user_id", target.ID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to update user")
	}

	ctrl.logActivity(c, model.ActionUpdateUser, u.ID, patchKeys(patch))
	if _, renamed := patch["name"]; renamed {
		ctrl.changed(c, u.AdminID)
	}
	return helper.JsonUpdated(c, "User updated", dto.FromUser(*u))
}

// DELETE /api/a/users/:id (behind RequireOwnedUser)
func (ctrl *AdminController) DeleteUser(c *fiber.Ctx) error {
	target := middleware.TargetUser(c)
	if target == nil {
		return helper.JsonErrorCode(c, fiber.StatusForbidden, constants.CodeNotOwner, access.ErrNotOwner.Error())
	}
	if err := repository.DeleteUser(c.UserContext(), ctrl.DB, target.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "user not found")
		}
		logger.FromCtx(c).Error("delete user failed", zap.Uint("user_id", target.ID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to delete user")
	}

	if ctrl.Images != nil {
		if err := ctrl.Images.RemoveUser(target.AdminID, target.ID); err != nil {
			logger.FromCtx(c).Warn("remove user images failed", zap.Uint("user_id", target.ID), zap.Error(err))
		}
	}
	ctrl.logActivity(c, model.ActionDeleteUser, target.ID, map[string]any{"email": target.Email})
	ctrl.changed(c, target.AdminID)
	return helper.JsonDeleted(c, "User deleted", fiber.Map{"id": target.ID})
}

// GET /api/a/dashboard
func (ctrl *AdminController) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	adminID := helper.GetAdminID(c)
	db := ctrl.DB.WithContext(ctx)

	admin, err := repository.FindAdminByID(db, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonErrorCode(c, fiber.StatusUnauthorized, constants.CodeAccountNotFound, "account not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load admin")
	}
	total, err := repository.CountUsersByAdmin(db, adminID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to count users")
	}
	active, err := repository.CountActiveUsersByAdmin(db, adminID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to count users")
	}
	counts, err := repository.TenantActivityCounts(ctx, ctrl.DB, adminID)
	if err != nil {
		logger.FromCtx(c).Error("tenant activity counts failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load dashboard")
	}

	now := ctrl.Clock()
	return helper.JsonOK(c, "ok", dto.AdminDashboard{
		TotalUsers:        total,
		ActiveUsers:       active,
		UserLimit:         admin.UserLimit,
		ExpiryDate:        dbtime.FormatISO(admin.ExpiryDate),
		IsExpired:         admin.IsExpired(now),
		DaysLeft:          dto.DaysLeft(admin.ExpiryDate, now),
		CallRecords:       counts.CallRecords,
		AttendanceRecords: counts.AttendanceRecords,
	})
}

func (ctrl *AdminController) logActivity(c *fiber.Ctx, action string, userID uint, meta map[string]any) {
	err := repository.LogActivity(ctrl.DB.WithContext(c.UserContext()),
		constants.RoleAdmin, helper.GetAdminID(c), action, "user", userID, meta)
	if err != nil {
		logger.FromCtx(c).Warn("activity log failed", zap.String("action", action), zap.Error(err))
	}
}

func (ctrl *AdminController) changed(c *fiber.Ctx, adminID uint) {
	if ctrl.Changed != nil {
		ctrl.Changed(c.UserContext(), adminID)
	}
}
