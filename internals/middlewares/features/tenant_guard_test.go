package middleware_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/access"
	helper "callmanager_backend/internals/helpers"
	middleware "callmanager_backend/internals/middlewares/features"
)

type fakeResolver struct {
	subjects map[uint]access.Subject
	err      error
}

func (f fakeResolver) Resolve(_ context.Context, p access.Principal) (access.Subject, error) {
	return f.subjects[p.ID], f.err
}

var clockNow = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func newApp(res access.Resolver, pol access.Policy, id uint, role string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: helper.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		if id != 0 {
			c.Locals(helper.LocUserID, id)
			c.Locals(helper.LocRole, role)
		}
		return c.Next()
	})
	app.Use(middleware.TenantGuard(res, func() time.Time { return clockNow }, pol))
	app.Get("/x", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"admin_id": helper.GetAdminID(c)})
	})
	return app
}

func call(t *testing.T, app *fiber.App) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/x", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, sonic.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestTenantGuard_UserOfExpiredAdminIsRejected(t *testing.T) {
	t.Parallel()

	res := fakeResolver{subjects: map[uint]access.Subject{
		11: {
			User:  &access.UserState{ID: 11, AdminID: 2, IsActive: true},
			Admin: &access.AdminState{ID: 2, IsActive: true, ExpiryDate: clockNow.AddDate(0, 0, -1)},
		},
	}}

	status, body := call(t, newApp(res, access.Policy{}, 11, constants.RoleUser))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, constants.CodeSubscriptionExpired, body["error_code"])
}

func TestTenantGuard_ScopesRequestToTenant(t *testing.T) {
	t.Parallel()

	res := fakeResolver{subjects: map[uint]access.Subject{
		11: {
			User:  &access.UserState{ID: 11, AdminID: 2, IsActive: true},
			Admin: &access.AdminState{ID: 2, IsActive: true, ExpiryDate: clockNow.AddDate(0, 1, 0)},
		},
	}}

	status, body := call(t, newApp(res, access.Policy{}, 11, constants.RoleUser))
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["admin_id"])
}

func TestTenantGuard_RenewalPolicyLetsExpiredAdminIn(t *testing.T) {
	t.Parallel()

	res := fakeResolver{subjects: map[uint]access.Subject{
		2: {Admin: &access.AdminState{ID: 2, IsActive: true, ExpiryDate: clockNow.AddDate(0, -1, 0)}},
	}}

	status, _ := call(t, newApp(res, access.Policy{}, 2, constants.RoleAdmin))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, newApp(res, access.Policy{AllowExpired: true}, 2, constants.RoleAdmin))
	assert.Equal(t, fiber.StatusOK, status)
}

func TestTenantGuard_NoPrincipal(t *testing.T) {
	t.Parallel()

	status, body := call(t, newApp(fakeResolver{}, access.Policy{}, 0, ""))
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, constants.CodeUnauthenticated, body["error_code"])
}

func TestTenantGuard_ResolverFailure(t *testing.T) {
	t.Parallel()

	status, body := call(t, newApp(fakeResolver{err: errors.New("db down")}, access.Policy{}, 2, constants.RoleAdmin))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
}

func TestTenantGuardExempt_OnlyRenewalPathsSkipExpiry(t *testing.T) {
	t.Parallel()

	res := fakeResolver{subjects: map[uint]access.Subject{
		2: {Admin: &access.AdminState{ID: 2, IsActive: true, ExpiryDate: clockNow.AddDate(0, 0, -3)}},
	}}
	app := fiber.New(fiber.Config{ErrorHandler: helper.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(helper.LocUserID, uint(2))
		c.Locals(helper.LocRole, constants.RoleAdmin)
		return c.Next()
	})
	app.Use(middleware.TenantGuardExempt(res, func() time.Time { return clockNow }, "/api/a/subscription"))
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/api/a/subscription", ok)
	app.Get("/api/a/users", ok)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/a/subscription", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/a/users", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
