package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/access"
	"callmanager_backend/internals/features/sync/attendance/dto"
	"callmanager_backend/internals/features/sync/attendance/repository"
	"callmanager_backend/internals/features/sync/pipeline"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/helpers/dbtime"
	middleware "callmanager_backend/internals/middlewares/features"
	"callmanager_backend/internals/middlewares/logger"
)

type AttendanceController struct {
	DB       *gorm.DB
	Registry pipeline.Registry
	MaxBatch int
	Clock    dbtime.Clock
}

func NewAttendanceController(db *gorm.DB, registry pipeline.Registry, maxBatch int) *AttendanceController {
	return &AttendanceController{DB: db, Registry: registry, MaxBatch: maxBatch, Clock: dbtime.SystemClock}
}

// POST /api/u/attendance/sync
func (ctrl *AttendanceController) Sync(c *fiber.Ctx) error {
	var body dto.SyncRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "'records' must be a list")
	}
	if ctrl.MaxBatch > 0 && len(body.Records) > ctrl.MaxBatch {
		return helper.JsonErrorCode(c, fiber.StatusRequestEntityTooLarge, constants.CodeBatchTooLarge,
			"too many records in one batch")
	}

	owner := pipeline.Owner{UserID: helper.GetUserID(c), AdminID: helper.GetAdminID(c)}
	res, err := ctrl.Registry.IngestBatch(c.UserContext(), owner, pipeline.KindAttendance, body.Records)
	if err != nil {
		if errors.Is(err, pipeline.ErrCommitFailed) {
			return helper.JsonErrorCode(c, fiber.StatusInternalServerError, constants.CodeBatchCommitFailed,
				"attendance batch was not stored, retry the sync")
		}
		logger.FromCtx(c).Error("attendance sync failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to sync attendance")
	}
	return helper.JsonOK(c, "Attendance synced", dto.NewSyncResponse(res))
}

// GET /api/u/attendance/my
func (ctrl *AttendanceController) My(c *fiber.Ctx) error {
	q, err := dto.ParseHistoryQuery(c)
	if err != nil {
		return err
	}
	p := helper.ParseFiber(c, "check_in", "desc", helper.DefaultOpts)

	f := repository.Filter{Since: q.Since(ctrl.Clock()), Status: q.Status}
	rows, total, err := repository.ListForUser(c.UserContext(), ctrl.DB, helper.GetUserID(c), f, p.Limit(), p.Offset())
	if err != nil {
		logger.FromCtx(c).Error("list own attendance failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load attendance")
	}
	return helper.JsonList(c, "ok", dto.FromModels(rows), helper.BuildMeta(total, p))
}

// GET /api/a/attendance?user_id=&days=&status=
func (ctrl *AttendanceController) TenantList(c *fiber.Ctx) error {
	q, err := dto.ParseHistoryQuery(c)
	if err != nil {
		return err
	}
	adminID := helper.GetAdminID(c)
	if q.UserID != nil {
		_, d, err := access.OwnedUser(c.UserContext(), ctrl.DB, adminID, *q.UserID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load user")
		}
		if !d.Allowed {
			return helper.JsonErrorCode(c, d.Status, d.Code, d.Message)
		}
	}
	p := helper.ParseFiber(c, "check_in", "desc", helper.AdminOpts)

	f := repository.Filter{Since: q.Since(ctrl.Clock()), Status: q.Status, UserID: q.UserID}
	rows, total, err := repository.ListForTenant(c.UserContext(), ctrl.DB, adminID, f, p.Limit(), p.Offset())
	if err != nil {
		logger.FromCtx(c).Error("list tenant attendance failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load attendance")
	}

	out := make([]dto.TenantAttendanceResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.TenantAttendanceResponse{
			AttendanceResponse: dto.FromModel(r.AttendanceModel),
			UserName:           r.UserName,
		})
	}
	return helper.JsonList(c, "ok", out, helper.BuildMeta(total, p))
}

// GET /api/a/users/:id/attendance (behind RequireOwnedUser)
func (ctrl *AttendanceController) UserDetail(c *fiber.Ctx) error {
	target := middleware.TargetUser(c)
	if target == nil {
		return helper.JsonErrorCode(c, fiber.StatusForbidden, constants.CodeNotOwner, access.ErrNotOwner.Error())
	}
	q, err := dto.ParseHistoryQuery(c)
	if err != nil {
		return err
	}
	p := helper.ParseFiber(c, "check_in", "desc", helper.DefaultOpts)

	f := repository.Filter{Since: q.Since(ctrl.Clock()), Status: q.Status}
	rows, total, err := repository.ListForUser(c.UserContext(), ctrl.DB, target.ID, f, p.Limit(), p.Offset())
	if err != nil {
		logger.FromCtx(c).Error("list user attendance failed", zap.Uint("user_id", target.ID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load attendance")
	}
	return helper.JsonList(c, "ok", dto.UserAttendanceResponse{
		UserID:     target.ID,
		UserName:   target.Name,
		Total:      total,
		Attendance: dto.FromModels(rows),
	}, helper.BuildMeta(total, p))
}
