package controller

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/dto"
	"callmanager_backend/internals/features/accounts/model"
	"callmanager_backend/internals/features/accounts/repository"
	attendanceRepo "callmanager_backend/internals/features/sync/attendance/repository"
	callRepo "callmanager_backend/internals/features/sync/call_history/repository"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/helpers/dbtime"
	"callmanager_backend/internals/middlewares/logger"
)

type ProfileController struct {
	DB        *gorm.DB
	Validator *validator.Validate
	// Changed drops the tenant's cached reports after a rename.
	Changed func(ctx context.Context, adminID uint)
}

func NewProfileController(db *gorm.DB, changed func(context.Context, uint)) *ProfileController {
	return &ProfileController{DB: db, Validator: dto.NewValidator(), Changed: changed}
}

// GET /api/u/me
func (ctrl *ProfileController) Me(c *fiber.Ctx) error {
	u, err := ctrl.currentUser(c)
	if err != nil {
		return err
	}
	admin, err := repository.FindAdminByID(ctrl.DB.WithContext(c.UserContext()), u.AdminID)
	if err != nil {
		logger.FromCtx(c).Error("load owning admin failed", zap.Uint("admin_id", u.AdminID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load profile")
	}
	calls, attendance, err := ctrl.counts(c, u.ID)
	if err != nil {
		return err
	}

	return helper.JsonOK(c, "ok", dto.ProfileResponse{
		User:      dto.FromUser(*u),
		AdminName: admin.Name,
		Sync: dto.SyncSummary{
			LastSync:          dbtime.FormatISOPtr(u.LastSync),
			CallRecords:       calls,
			AttendanceRecords: attendance,
		},
	})
}

// GET /api/u/sync-status
func (ctrl *ProfileController) SyncStatus(c *fiber.Ctx) error {
	u, err := ctrl.currentUser(c)
	if err != nil {
		return err
	}
	calls, attendance, err := ctrl.counts(c, u.ID)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", dto.SyncStatusResponse{
		LastSync:         dbtime.FormatISOPtr(u.LastSync),
		CallHistoryCount: calls,
		AttendanceCount:  attendance,
	})
}

// PUT|PATCH /api/u/profile
func (ctrl *ProfileController) UpdateProfile(c *fiber.Ctx) error {
	u, err := ctrl.currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid input format")
	}
	if err := ctrl.Validator.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrorsMap(err))
	}
	patch, err := req.Patch()
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	updated, err := repository.UpdateUser(c.UserContext(), ctrl.DB, u.ID, patch)
	if err != nil {
		logger.FromCtx(c).Error("update profile failed", zap.Uint("user_id", u.ID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to update profile")
	}

	if len(patch) > 0 {
		err = repository.LogActivity(ctrl.DB.WithContext(c.UserContext()), constants.RoleUser, u.ID,
			model.ActionUpdateProfile, "user", u.ID, patchKeys(patch))
		if err != nil {
			logger.FromCtx(c).Warn("activity log failed", zap.Error(err))
		}
	}
	if _, renamed := patch["name"]; renamed && ctrl.Changed != nil {
		ctrl.Changed(c.UserContext(), updated.AdminID)
	}
	return helper.JsonUpdated(c, "Profile updated", dto.ProfileUpdateResponse{
		ID:    updated.ID,
		Name:  updated.Name,
		Phone: updated.Phone,
	})
}

func (ctrl *ProfileController) currentUser(c *fiber.Ctx) (*model.UserModel, error) {
	u, err := repository.FindUserByID(ctrl.DB.WithContext(c.UserContext()), helper.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "account not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to load profile")
	}
	return u, nil
}

func (ctrl *ProfileController) counts(c *fiber.Ctx, userID uint) (int64, int64, error) {
	calls, err := callRepo.CountForUser(c.UserContext(), ctrl.DB, userID)
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusInternalServerError, "failed to count call history")
	}
	attendance, err := attendanceRepo.CountForUser(c.UserContext(), ctrl.DB, userID)
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusInternalServerError, "failed to count attendance")
	}
	return calls, attendance, nil
}
