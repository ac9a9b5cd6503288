package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/constants"
	accountModel "callmanager_backend/internals/features/accounts/model"
	accountRepo "callmanager_backend/internals/features/accounts/repository"
	"callmanager_backend/internals/features/subscriptions/dto"
	"callmanager_backend/internals/features/subscriptions/repository"
	"callmanager_backend/internals/features/subscriptions/service"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/middlewares/logger"
)

const recentPaymentsLimit = 10

type SubscriptionController struct {
	DB        *gorm.DB
	Renewals  *service.Renewals
	Validator *validator.Validate
}

func NewSubscriptionController(db *gorm.DB, renewals *service.Renewals) *SubscriptionController {
	return &SubscriptionController{DB: db, Renewals: renewals, Validator: validator.New()}
}

// GET /api/a/subscription
func (ctrl *SubscriptionController) Status(c *fiber.Ctx) error {
	ctx := c.UserContext()
	adminID := helper.GetAdminID(c)
	admin, err := accountRepo.FindAdminByID(ctrl.DB.WithContext(ctx), adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonErrorCode(c, fiber.StatusUnauthorized, constants.CodeAccountNotFound, "account not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load subscription")
	}
	payments, err := repository.ListPaymentsByAdmin(ctx, ctrl.DB, adminID, recentPaymentsLimit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load payments")
	}

	out := dto.FromAdmin(*admin, ctrl.Renewals.Clock())
	out.Payments = dto.FromPayments(payments)
	return helper.JsonOK(c, "ok", out)
}

// POST /api/a/subscription/renew
func (ctrl *SubscriptionController) Renew(c *fiber.Ctx) error {
	var req dto.RenewRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid input format")
	}
	if err := ctrl.Validator.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrorsMap(err))
	}

	ctx := c.UserContext()
	admin, err := accountRepo.FindAdminByID(ctrl.DB.WithContext(ctx), helper.GetAdminID(c))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load admin")
	}
	p, err := ctrl.Renewals.Start(ctx, *admin, req.Months)
	if err != nil {
		if errors.Is(err, service.ErrGatewayDisabled) {
			return helper.JsonError(c, fiber.StatusServiceUnavailable, err.Error())
		}
		logger.FromCtx(c).Error("start renewal failed", zap.Uint("admin_id", admin.ID), zap.Error(err))
		return helper.JsonError(c, fiber.StatusBadGateway, "payment gateway rejected the renewal")
	}

	meta := map[string]any{"order_id": p.OrderID, "months": p.Months, "amount": p.Amount}
	if err := accountRepo.LogActivity(ctrl.DB.WithContext(ctx), constants.RoleAdmin, admin.ID,
		accountModel.ActionRenewalStarted, "admin", admin.ID, meta); err != nil {
		logger.FromCtx(c).Warn("activity log failed", zap.Error(err))
	}
	return helper.JsonCreated(c, "Renewal started", dto.FromPayment(*p))
}

// POST /api/public/subscriptions/notification
func (ctrl *SubscriptionController) Notification(c *fiber.Ctx) error {
	var n dto.Notification
	if err := c.BodyParser(&n); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	res, err := ctrl.Renewals.Handle(c.UserContext(), n)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidSignature):
		return fiber.NewError(fiber.StatusUnauthorized, "invalid signature")
	case errors.Is(err, service.ErrPaymentNotFound):
		// 200 so the gateway stops retrying an order we never issued
		logger.FromCtx(c).Warn("notification for unknown order", zap.String("order_id", n.OrderID))
		return helper.JsonOK(c, "ignored", fiber.Map{"order_id": n.OrderID})
	case errors.Is(err, service.ErrAmountMismatch):
		logger.FromCtx(c).Warn("notification amount mismatch",
			zap.String("order_id", n.OrderID), zap.String("gross_amount", n.GrossAmount))
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		logger.FromCtx(c).Error("handle notification failed", zap.String("order_id", n.OrderID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to process notification")
	}

	if res.Changed {
		logger.FromCtx(c).Info("subscription payment updated",
			zap.String("order_id", res.OrderID),
			zap.String("status", string(res.Status)),
			zap.Uint("admin_id", res.AdminID))
	}
	return helper.JsonOK(c, "processed", res)
}
