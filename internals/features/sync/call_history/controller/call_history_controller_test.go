package controller_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmanager_backend/internals/features/sync/call_history/controller"
	"callmanager_backend/internals/features/sync/pipeline"
	helper "callmanager_backend/internals/helpers"
)

type nopTx struct{}

func (nopTx) Savepoint(string) error              { return nil }
func (nopTx) RollbackTo(string) error             { return nil }
func (nopTx) TouchLastSync(uint, time.Time) error { return nil }
func (nopTx) Commit() error                       { return nil }
func (nopTx) Rollback() error                     { return nil }

// acceptAll stores every object entry it is handed.
type acceptAll struct{ got []any }

func (a *acceptAll) Ingest(ctx context.Context, owner pipeline.Owner, raws []any) (pipeline.Result, error) {
	a.got = raws
	r := &pipeline.Runner{Kind: pipeline.KindCallLog}
	begin := func(context.Context) (nopTx, error) { return nopTx{}, nil }
	step := func(context.Context, nopTx, map[string]any) (pipeline.Applied, error) {
		return pipeline.Applied{Outcome: pipeline.Created}, nil
	}
	return pipeline.Run(ctx, r, begin, owner, raws, step)
}

func newSyncApp(ing pipeline.Ingester) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: helper.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(helper.LocUserID, uint(7))
		c.Locals(helper.LocAdminID, uint(3))
		return c.Next()
	})
	ctrl := controller.NewCallHistoryController(nil, pipeline.Registry{pipeline.KindCallLog: ing}, 100)
	app.Post("/sync", ctrl.Sync)
	return app
}

func postSync(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/sync", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestSync_NonObjectEntryOnlyFailsItself(t *testing.T) {
	t.Parallel()

	ing := &acceptAll{}
	status, body := postSync(t, newSyncApp(ing), `{"call_history": [
		{"number": "1", "timestamp": 1700000000},
		"garbage",
		{"number": "2", "timestamp": 1700000001}
	]}`)

	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, ing.got, 3)

	data := body["data"].(map[string]any)
	assert.EqualValues(t, 2, data["records_saved"])
	errs := data["errors"].([]any)
	require.Len(t, errs, 1)
	e := errs[0].(map[string]any)
	assert.EqualValues(t, 1, e["index"])
	assert.Equal(t, "garbage", e["entry"])
	assert.Equal(t, "entry must be an object", e["error"])
}

func TestSync_BodyWithoutListIsRejected(t *testing.T) {
	t.Parallel()

	ing := &acceptAll{}
	status, _ := postSync(t, newSyncApp(ing), `{"call_history": "nope"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Nil(t, ing.got)
}
