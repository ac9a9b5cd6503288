package dto_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmanager_backend/internals/features/analytics/dto"
)

func parse(t *testing.T, target string) (dto.Query, int) {
	t.Helper()
	var got dto.Query
	app := fiber.New()
	app.Get("/q", func(c *fiber.Ctx) error {
		q, err := dto.ParseQuery(c)
		if err != nil {
			return err
		}
		got = q
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil))
	require.NoError(t, err)
	return got, resp.StatusCode
}

func TestParseQuery(t *testing.T) {
	t.Parallel()

	q, status := parse(t, "/q")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, dto.Query{Days: 7, Range: dto.RangeAll, GroupBy: dto.GroupByDay}, q)

	q, _ = parse(t, "/q?days=500&range=WEEK&group_by=week")
	assert.Equal(t, dto.Query{Days: 90, Range: dto.RangeWeek, GroupBy: dto.GroupByWeek}, q)

	q, _ = parse(t, "/q?days=0&filter=today")
	assert.Equal(t, 1, q.Days)
	assert.Equal(t, dto.RangeToday, q.Range)

	_, status = parse(t, "/q?days=abc")
	assert.Equal(t, fiber.StatusBadRequest, status)
	_, status = parse(t, "/q?range=year")
	assert.Equal(t, fiber.StatusBadRequest, status)
	_, status = parse(t, "/q?group_by=hour")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestQueryBounds(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 20, 13, 0, 0, 0, time.UTC)

	from, to := dto.Query{Range: dto.RangeToday}.Bounds(now)
	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 5, 21, 0, 0, 0, 0, time.UTC), to)

	from, to = dto.Query{Range: dto.RangeMonth}.Bounds(now)
	assert.Equal(t, now.AddDate(0, 0, -30), from)
	assert.True(t, to.IsZero())

	from, to = dto.Query{Range: dto.RangeAll}.Bounds(now)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())
}
