package middlewares_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	middlewares "callmanager_backend/internals/middlewares"
)

func newGroupedApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/auth/admin/login", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	deny := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusUnauthorized) }
	admin := app.Group("/api/a", middlewares.OnSegment("/api/a", deny)...)
	admin.Get("/users", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func status(t *testing.T, app *fiber.App, method, path string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestOnSegment_SiblingPrefixSkipsGroupMiddleware(t *testing.T) {
	t.Parallel()

	app := newGroupedApp()

	assert.Equal(t, fiber.StatusOK, status(t, app, fiber.MethodPost, "/api/auth/admin/login"))
	// wrong method on an auth route is a routing miss, not an auth failure
	got := status(t, app, fiber.MethodGet, "/api/auth/admin/login")
	assert.Contains(t, []int{fiber.StatusNotFound, fiber.StatusMethodNotAllowed}, got)
	assert.Equal(t, fiber.StatusNotFound, status(t, app, fiber.MethodGet, "/api/authz"))

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, fiber.MethodGet, "/api/a/users"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, fiber.MethodGet, "/api/a"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, fiber.MethodGet, "/API/A/users"))
}
