package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"callmanager_backend/internals/features/accounts/access"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/helpers/dbtime"
	"callmanager_backend/internals/helpers/metrics"
)

// TenantGuard re-reads the caller's stored state on every request and lets it
// through only when the access policy allows. On success the tenant the
// request is scoped to is stored under helper.LocAdminID.
func TenantGuard(resolver access.Resolver, clock dbtime.Clock, pol access.Policy) fiber.Handler {
	if clock == nil {
		clock = dbtime.SystemClock
	}
	return func(c *fiber.Ctx) error {
		var p *access.Principal
		if id := helper.GetUserID(c); id != 0 {
			p = &access.Principal{ID: id, Role: helper.GetRole(c)}
		}

		var subject access.Subject
		if p != nil {
			s, err := resolver.Resolve(c.UserContext(), *p)
			if err != nil {
				zap.L().Error("tenant guard: resolve failed", zap.Uint("principal", p.ID), zap.Error(err))
				return fiber.NewError(fiber.StatusInternalServerError, "failed to load account")
			}
			subject = s
		}

		d := pol.Evaluate(p, subject, clock())
		if !d.Allowed {
			metrics.AccessDenied.WithLabelValues(d.Code).Inc()
			return helper.JsonErrorCode(c, d.Status, d.Code, d.Message)
		}
		c.Locals(helper.LocAdminID, d.AdminID)
		return c.Next()
	}
}

// TenantGuardExempt applies the default policy except under the given path
// prefixes, where a lapsed subscription is let through.
func TenantGuardExempt(resolver access.Resolver, clock dbtime.Clock, exemptPrefixes ...string) fiber.Handler {
	strict := TenantGuard(resolver, clock, access.Policy{})
	lenient := TenantGuard(resolver, clock, access.Policy{AllowExpired: true})
	return func(c *fiber.Ctx) error {
		for _, p := range exemptPrefixes {
			if strings.HasPrefix(c.Path(), p) {
				return lenient(c)
			}
		}
		return strict(c)
	}
}
