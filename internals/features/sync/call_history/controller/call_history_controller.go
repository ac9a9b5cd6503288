package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/access"
	"callmanager_backend/internals/features/sync/call_history/dto"
	"callmanager_backend/internals/features/sync/call_history/repository"
	"callmanager_backend/internals/features/sync/pipeline"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/helpers/dbtime"
	middleware "callmanager_backend/internals/middlewares/features"
	"callmanager_backend/internals/middlewares/logger"
)

type CallHistoryController struct {
	DB       *gorm.DB
	Registry pipeline.Registry
	MaxBatch int
	Clock    dbtime.Clock
}

func NewCallHistoryController(db *gorm.DB, registry pipeline.Registry, maxBatch int) *CallHistoryController {
	return &CallHistoryController{DB: db, Registry: registry, MaxBatch: maxBatch, Clock: dbtime.SystemClock}
}

// POST /api/u/call-history/sync
func (ctrl *CallHistoryController) Sync(c *fiber.Ctx) error {
	var body dto.SyncRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "'call_history' must be a list")
	}
	if ctrl.MaxBatch > 0 && len(body.CallHistory) > ctrl.MaxBatch {
		return helper.JsonErrorCode(c, fiber.StatusRequestEntityTooLarge, constants.CodeBatchTooLarge,
			"too many records in one batch")
	}

	owner := pipeline.Owner{UserID: helper.GetUserID(c), AdminID: helper.GetAdminID(c)}
	res, err := ctrl.Registry.IngestBatch(c.UserContext(), owner, pipeline.KindCallLog, body.CallHistory)
	if err != nil {
		if errors.Is(err, pipeline.ErrCommitFailed) {
			return helper.JsonErrorCode(c, fiber.StatusInternalServerError, constants.CodeBatchCommitFailed,
				"call history batch was not stored, retry the sync")
		}
		logger.FromCtx(c).Error("call history sync failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to sync call history")
	}
	return helper.JsonOK(c, "Call history synced", dto.NewSyncResponse(res))
}

// GET /api/u/call-history/my
func (ctrl *CallHistoryController) My(c *fiber.Ctx) error {
	q, err := dto.ParseHistoryQuery(c)
	if err != nil {
		return err
	}
	p := helper.ParseFiber(c, "timestamp", "desc", helper.DefaultOpts)

	f := repository.Filter{Since: q.Since(ctrl.Clock()), CallType: q.CallType}
	rows, total, err := repository.ListForUser(c.UserContext(), ctrl.DB, helper.GetUserID(c), f, p.Limit(), p.Offset())
	if err != nil {
		logger.FromCtx(c).Error("list own call history failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load call history")
	}
	return helper.JsonList(c, "ok", dto.FromModels(rows), helper.BuildMeta(total, p))
}

// GET /api/a/call-history?user_id=&days=&call_type=
func (ctrl *CallHistoryController) TenantList(c *fiber.Ctx) error {
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
	p := helper.ParseFiber(c, "timestamp", "desc", helper.AdminOpts)

	f := repository.Filter{Since: q.Since(ctrl.Clock()), CallType: q.CallType, UserID: q.UserID}
	rows, total, err := repository.ListForTenant(c.UserContext(), ctrl.DB, adminID, f, p.Limit(), p.Offset())
	if err != nil {
		logger.FromCtx(c).Error("list tenant call history failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load call history")
	}

	out := make([]dto.TenantCallHistoryResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.TenantCallHistoryResponse{
			CallHistoryResponse: dto.FromModel(r.CallHistoryModel),
			UserID:              r.UserID,
			UserName:            r.UserName,
		})
	}
	return helper.JsonList(c, "ok", out, helper.BuildMeta(total, p))
}

// GET /api/a/users/:id/call-history (behind RequireOwnedUser)
func (ctrl *CallHistoryController) UserDetail(c *fiber.Ctx) error {
	target := middleware.TargetUser(c)
	if target == nil {
		return helper.JsonErrorCode(c, fiber.StatusForbidden, constants.CodeNotOwner, access.ErrNotOwner.Error())
	}
	q, err := dto.ParseHistoryQuery(c)
	if err != nil {
		return err
	}
	p := helper.ParseFiber(c, "timestamp", "desc", helper.DefaultOpts)
	f := repository.Filter{Since: q.Since(ctrl.Clock()), CallType: q.CallType}

	rows, total, err := repository.ListForUser(c.UserContext(), ctrl.DB, target.ID, f, p.Limit(), p.Offset())
	if err != nil {
		logger.FromCtx(c).Error("list user call history failed", zap.Uint("user_id", target.ID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load call history")
	}
	// totals cover the whole window, not just this page
	calls, duration, err := repository.TotalsForUser(c.UserContext(), ctrl.DB, target.ID, repository.Filter{Since: f.Since})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load call totals")
	}

	return helper.JsonList(c, "ok", dto.UserCallHistoryResponse{
		UserID:               target.ID,
		UserName:             target.Name,
		TotalCalls:           calls,
		TotalDurationSeconds: duration,
		CallHistory:          dto.FromModels(rows),
	}, helper.BuildMeta(total, p))
}
