package controller

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"callmanager_backend/internals/features/analytics/dto"
	"callmanager_backend/internals/features/analytics/service"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/middlewares/logger"
)

type AnalyticsController struct {
	Aggregator *service.Aggregator
}

func NewAnalyticsController(agg *service.Aggregator) *AnalyticsController {
	return &AnalyticsController{Aggregator: agg}
}

// GET /api/a/call-analytics?days=&range=&group_by=
func (ctrl *AnalyticsController) CallAnalytics(c *fiber.Ctx) error {
	q, err := dto.ParseQuery(c)
	if err != nil {
		return err
	}
	rep, err := ctrl.Aggregator.Aggregate(c.UserContext(), helper.GetAdminID(c), q)
	if err != nil {
		logger.FromCtx(c).Error("call analytics failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to build call analytics")
	}
	return helper.JsonOK(c, "ok", rep)
}

// GET /api/a/performance?range=
func (ctrl *AnalyticsController) Performance(c *fiber.Ctx) error {
	q, err := dto.ParseQuery(c)
	if err != nil {
		return err
	}
	res, err := ctrl.Aggregator.Performance(c.UserContext(), helper.GetAdminID(c), q)
	if err != nil {
		logger.FromCtx(c).Error("performance scores failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute performance")
	}
	return helper.JsonOK(c, "ok", res)
}
