package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"callmanager_backend/internals/helpers/dbtime"
)

/* ====================== QUERY ====================== */

const (
	DefaultTrendDays = 7
	MaxTrendDays     = 90

	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeAll   = "all"

	GroupByDay  = "day"
	GroupByWeek = "week"
)

// Query is a normalized analytics request. Days bounds the trend series,
// Range bounds totals and the per-user summary.
type Query struct {
	Days    int
	Range   string
	GroupBy string
}

// ParseQuery clamps days into [1, MaxTrendDays]; unknown range or group_by
// values are a 400.
func ParseQuery(c *fiber.Ctx) (Query, error) {
	q := Query{Days: DefaultTrendDays, Range: RangeAll, GroupBy: GroupByDay}

	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "days must be an integer")
		}
		q.Days = clampDays(n)
	}

	// "filter" is what older dashboards send
	raw := strings.ToLower(strings.TrimSpace(c.Query("range", c.Query("filter"))))
	switch raw {
	case "":
	case RangeToday, RangeWeek, RangeMonth, RangeAll:
		q.Range = raw
	default:
		return q, fiber.NewError(fiber.StatusBadRequest, "range must be one of today, week, month, all")
	}

	switch g := strings.ToLower(strings.TrimSpace(c.Query("group_by"))); g {
	case "":
	case GroupByDay, GroupByWeek:
		q.GroupBy = g
	default:
		return q, fiber.NewError(fiber.StatusBadRequest, "group_by must be day or week")
	}
	return q, nil
}

func clampDays(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxTrendDays {
		return MaxTrendDays
	}
	return n
}

// Bounds turns Range into a half-open [from, to) window. Zero values mean
// unbounded.
func (q Query) Bounds(now time.Time) (from, to time.Time) {
	switch q.Range {
	case RangeToday:
		return dbtime.DayWindow(now)
	case RangeWeek:
		return now.UTC().AddDate(0, 0, -7), time.Time{}
	case RangeMonth:
		return now.UTC().AddDate(0, 0, -30), time.Time{}
	}
	return time.Time{}, time.Time{}
}

// CacheKey identifies the report shape for one tenant.
func (q Query) CacheKey() string {
	return q.Range + ":" + strconv.Itoa(q.Days) + ":" + q.GroupBy
}

/* ====================== REPORT ====================== */

type TrendPoint struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type Series struct {
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}

type UserSummary struct {
	UserID           uint    `json:"user_id"`
	UserName         string  `json:"user_name"`
	Incoming         int64   `json:"incoming"`
	Outgoing         int64   `json:"outgoing"`
	Missed           int64   `json:"missed"`
	TotalDuration    int64   `json:"total_duration"`
	TotalCalls       int64   `json:"total_calls"`
	AttendanceCount  int64   `json:"attendance_count"`
	PerformanceScore float64 `json:"performance_score"`
}

// Report: Missed counts missed and rejected calls together; Rejected is the
// rejected share of it.
type Report struct {
	Range         string        `json:"range"`
	Days          int           `json:"days"`
	GroupBy       string        `json:"group_by"`
	TotalCalls    int64         `json:"total_calls"`
	Incoming      int64         `json:"incoming"`
	Outgoing      int64         `json:"outgoing"`
	Missed        int64         `json:"missed"`
	Rejected      int64         `json:"rejected"`
	TotalDuration int64         `json:"total_duration"`
	TotalUsers    int           `json:"total_users"`
	DailyTrend    []TrendPoint  `json:"daily_trend"`
	DailySeries   Series        `json:"daily_series"`
	UserSummary   []UserSummary `json:"user_summary"`
	GeneratedAt   string        `json:"generated_at"`
}

/* ====================== PERFORMANCE ====================== */

type PerformanceRow struct {
	UserID           uint    `json:"user_id"`
	UserName         string  `json:"user_name"`
	PerformanceScore float64 `json:"performance_score"`
	OnTimeRate       float64 `json:"on_time_rate"`
	AnswerRate       float64 `json:"answer_rate"`
}

// PerformanceResponse carries the chart form next to the rows.
type PerformanceResponse struct {
	Range  string           `json:"range"`
	Labels []string         `json:"labels"`
	Values []float64        `json:"values"`
	Count  int              `json:"count"`
	Users  []PerformanceRow `json:"users"`
}
