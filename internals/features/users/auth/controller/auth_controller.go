package controller

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/configs"
	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/users/auth/service"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/helpers/dbtime"
	"callmanager_backend/internals/middlewares/logger"
)

type AuthController struct {
	DB        *gorm.DB
	Validator *validator.Validate
	Clock     dbtime.Clock
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{DB: db, Validator: validator.New(), Clock: dbtime.SystemClock}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,max=128"`
}

func (ac *AuthController) LoginSuperAdmin(c *fiber.Ctx) error {
	return ac.login(c, constants.RoleSuperAdmin)
}

func (ac *AuthController) LoginAdmin(c *fiber.Ctx) error {
	return ac.login(c, constants.RoleAdmin)
}

func (ac *AuthController) LoginUser(c *fiber.Ctx) error {
	return ac.login(c, constants.RoleUser)
}

func (ac *AuthController) login(c *fiber.Ctx, role string) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid input format")
	}
	if err := ac.Validator.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrorsMap(err))
	}

	tc := service.TokenConfig{Secret: configs.JWTSecret, TTL: configs.App.JWTTTL}
	res, err := service.Login(c.UserContext(), ac.DB, tc, role, req.Email, req.Password, ac.Clock())
	if err != nil {
		var denied *service.DeniedError
		switch {
		case errors.Is(err, service.ErrBadCredentials):
			return helper.JsonError(c, fiber.StatusUnauthorized, err.Error())
		case errors.As(err, &denied):
			d := denied.Decision
			return helper.JsonErrorCode(c, d.Status, d.Code, d.Message)
		}
		logger.FromCtx(c).Error("login failed", zap.String("role", role), zap.Error(err))
		return helper.JsonError(c, fiber.StatusInternalServerError, "login failed")
	}

	logger.FromCtx(c).Info("login", zap.String("role", role), zap.Uint("account_id", res.User.ID))
	return helper.JsonOK(c, "Login successful", res)
}

// POST /api/auth/logout (behind AuthMiddleware)
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals(helper.LocTokenJTI).(string)
	exp, _ := c.Locals(helper.LocTokenExp).(time.Time)
	if exp.IsZero() {
		exp = ac.Clock().Add(configs.App.JWTTTL)
	}
	if err := service.Logout(c.UserContext(), ac.DB, jti, exp); err != nil {
		logger.FromCtx(c).Warn("blacklist token failed", zap.Error(err))
		return helper.JsonError(c, fiber.StatusInternalServerError, "logout failed")
	}
	return helper.JsonOK(c, "Logout successful", nil)
}
