package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/analytics/dto"
	"callmanager_backend/internals/features/analytics/repository"
	"callmanager_backend/internals/features/sync/pipeline"
	"callmanager_backend/internals/helpers/cache"
	"callmanager_backend/internals/helpers/dbtime"
	"callmanager_backend/internals/helpers/metrics"
)

// Source is the tenant scoped store the aggregator reads.
type Source interface {
	TenantUsers(ctx context.Context, adminID uint) ([]repository.TenantUser, error)
	CallTotals(ctx context.Context, userIDs []uint, w repository.Window) (repository.Totals, error)
	DailyCounts(ctx context.Context, userIDs []uint, fromDay, toDay time.Time) ([]repository.DayCount, error)
	UserCallSummaries(ctx context.Context, adminID uint, w repository.Window) ([]repository.UserCalls, error)
	AttendanceStats(ctx context.Context, userIDs []uint, w repository.Window) ([]repository.UserAttendance, error)
	SavePerformanceScores(ctx context.Context, adminID uint, scores map[uint]float64) error
}

const (
	versionTTL      = 24 * time.Hour
	maxPerformRows  = 50
	trendDateLayout = "2006-01-02"
	trendLabel      = "02 Jan"
)

type Aggregator struct {
	Source Source
	Cache  cache.Cache // nil disables caching
	TTL    time.Duration
	Clock  dbtime.Clock
}

func NewAggregator(src Source, c cache.Cache, ttl time.Duration) *Aggregator {
	return &Aggregator{Source: src, Cache: c, TTL: ttl, Clock: dbtime.SystemClock}
}

func NewGormAggregator(db *gorm.DB, c cache.Cache, ttl time.Duration) *Aggregator {
	return NewAggregator(repository.NewSource(db), c, ttl)
}

/* ====================== CACHE ====================== */

func versionKey(adminID uint) string {
	return fmt.Sprintf("analytics:ver:%d", adminID)
}

func (a *Aggregator) version(ctx context.Context, adminID uint) string {
	var v string
	hit, err := a.Cache.GetJSON(ctx, versionKey(adminID), &v)
	if err != nil || !hit {
		return "0"
	}
	return v
}

// Invalidate makes every cached report of the tenant unreachable.
func (a *Aggregator) Invalidate(ctx context.Context, adminID uint) {
	if a.Cache == nil {
		return
	}
	v := strconv.FormatInt(time.Now().UnixNano(), 36)
	if err := a.Cache.SetJSON(ctx, versionKey(adminID), v, versionTTL); err != nil {
		zap.L().Warn("analytics cache invalidate failed", zap.Uint("admin_id", adminID), zap.Error(err))
	}
}

// OnSyncCommitted is the pipeline AfterCommit hook.
func (a *Aggregator) OnSyncCommitted(ctx context.Context, owner pipeline.Owner) {
	a.Invalidate(ctx, owner.AdminID)
}

/* ====================== REPORT ====================== */

// Aggregate builds the tenant report, served from cache while the tenant has
// not synced anything new.
func (a *Aggregator) Aggregate(ctx context.Context, adminID uint, q dto.Query) (dto.Report, error) {
	now := a.Clock()
	if a.Cache == nil {
		return a.compute(ctx, adminID, q, now)
	}

	key := fmt.Sprintf("analytics:report:%d:%s:%s:%s",
		adminID, a.version(ctx, adminID), dbtime.StartOfDay(now).Format("20060102"), q.CacheKey())

	var cached dto.Report
	hit, err := a.Cache.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.AnalyticsCache.WithLabelValues("error").Inc()
		zap.L().Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
	case hit:
		metrics.AnalyticsCache.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.AnalyticsCache.WithLabelValues("miss").Inc()
	}

	rep, err := a.compute(ctx, adminID, q, now)
	if err != nil {
		return rep, err
	}
	if err := a.Cache.SetJSON(ctx, key, rep, a.TTL); err != nil {
		zap.L().Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rep, nil
}

func (a *Aggregator) compute(ctx context.Context, adminID uint, q dto.Query, now time.Time) (dto.Report, error) {
	from, to := q.Bounds(now)
	w := repository.Window{From: from, To: to}
	firstDay, lastDay := dbtime.LastNDays(now, q.Days), dbtime.StartOfDay(now)

	rep := dto.Report{
		Range:       q.Range,
		Days:        q.Days,
		GroupBy:     q.GroupBy,
		UserSummary: []dto.UserSummary{},
		GeneratedAt: dbtime.FormatISO(now),
	}

	users, err := a.Source.TenantUsers(ctx, adminID)
	if err != nil {
		return rep, fmt.Errorf("load tenant users: %w", err)
	}
	rep.TotalUsers = len(users)
	if len(users) == 0 {
		rep.DailyTrend = DenseTrend(firstDay, lastDay, nil, q.GroupBy)
		rep.DailySeries = SeriesOf(rep.DailyTrend)
		return rep, nil
	}
	ids := userIDs(users)

	totals, err := a.Source.CallTotals(ctx, ids, w)
	if err != nil {
		return rep, fmt.Errorf("call totals: %w", err)
	}
	days, err := a.Source.DailyCounts(ctx, ids, firstDay, lastDay)
	if err != nil {
		return rep, fmt.Errorf("daily counts: %w", err)
	}
	calls, err := a.Source.UserCallSummaries(ctx, adminID, w)
	if err != nil {
		return rep, fmt.Errorf("user summaries: %w", err)
	}
	att, err := a.Source.AttendanceStats(ctx, ids, w)
	if err != nil {
		return rep, fmt.Errorf("attendance stats: %w", err)
	}

	rep.TotalCalls = totals.TotalCalls
	rep.Incoming = totals.Incoming
	rep.Outgoing = totals.Outgoing
	rep.Missed = totals.Missed
	rep.Rejected = totals.Rejected
	rep.TotalDuration = totals.TotalDuration
	rep.DailyTrend = DenseTrend(firstDay, lastDay, days, q.GroupBy)
	rep.DailySeries = SeriesOf(rep.DailyTrend)

	byUser := attendanceByUser(att)
	for _, c := range calls {
		at := byUser[c.UserID]
		score := PerformanceScore(ScoreInput{
			AttendanceTotal:  at.Total,
			AttendanceOnTime: at.OnTime,
			Answered:         c.Incoming,
			Unanswered:       c.Missed,
		})
		rep.UserSummary = append(rep.UserSummary, dto.UserSummary{
			UserID:           c.UserID,
			UserName:         c.UserName,
			Incoming:         c.Incoming,
			Outgoing:         c.Outgoing,
			Missed:           c.Missed,
			TotalDuration:    c.TotalDuration,
			TotalCalls:       c.TotalCalls,
			AttendanceCount:  at.Total,
			PerformanceScore: score,
		})
	}
	SortSummaries(rep.UserSummary)
	return rep, nil
}

/* ====================== PERFORMANCE ====================== */

// Performance recomputes and stores the score of every owned user and returns
// the best ones first.
func (a *Aggregator) Performance(ctx context.Context, adminID uint, q dto.Query) (dto.PerformanceResponse, error) {
	out := dto.PerformanceResponse{Range: q.Range, Labels: []string{}, Values: []float64{}, Users: []dto.PerformanceRow{}}

	from, to := q.Bounds(a.Clock())
	w := repository.Window{From: from, To: to}

	users, err := a.Source.TenantUsers(ctx, adminID)
	if err != nil {
		return out, fmt.Errorf("load tenant users: %w", err)
	}
	if len(users) == 0 {
		return out, nil
	}
	calls, err := a.Source.UserCallSummaries(ctx, adminID, w)
	if err != nil {
		return out, fmt.Errorf("user summaries: %w", err)
	}
	att, err := a.Source.AttendanceStats(ctx, userIDs(users), w)
	if err != nil {
		return out, fmt.Errorf("attendance stats: %w", err)
	}

	callsByUser := make(map[uint]repository.UserCalls, len(calls))
	for _, c := range calls {
		callsByUser[c.UserID] = c
	}
	attByUser := attendanceByUser(att)

	scores := make(map[uint]float64, len(users))
	rows := make([]dto.PerformanceRow, 0, len(users))
	for _, u := range users {
		c, at := callsByUser[u.ID], attByUser[u.ID]
		in := ScoreInput{
			AttendanceTotal:  at.Total,
			AttendanceOnTime: at.OnTime,
			Answered:         c.Incoming,
			Unanswered:       c.Missed,
		}
		onTime, _, answer, _ := in.Rates()
		score := PerformanceScore(in)
		scores[u.ID] = score
		rows = append(rows, dto.PerformanceRow{
			UserID:           u.ID,
			UserName:         u.Name,
			PerformanceScore: score,
			OnTimeRate:       round2(onTime),
			AnswerRate:       round2(answer),
		})
	}

	if err := a.Source.SavePerformanceScores(ctx, adminID, scores); err != nil {
		return out, fmt.Errorf("save scores: %w", err)
	}

	slices.SortStableFunc(rows, func(x, y dto.PerformanceRow) int {
		switch {
		case x.PerformanceScore > y.PerformanceScore:
			return -1
		case x.PerformanceScore < y.PerformanceScore:
			return 1
		}
		return cmp.Compare(x.UserID, y.UserID)
	})
	if len(rows) > maxPerformRows {
		rows = rows[:maxPerformRows]
	}

	out.Users = rows
	out.Count = len(rows)
	for _, r := range rows {
		out.Labels = append(out.Labels, r.UserName)
		out.Values = append(out.Values, r.PerformanceScore)
	}
	return out, nil
}

/* ====================== SERIES ====================== */

// DenseTrend emits one point per bucket between firstDay and lastDay, zero
// buckets included. Week buckets start on Monday and only count days inside
// the window.
func DenseTrend(firstDay, lastDay time.Time, counts []repository.DayCount, groupBy string) []dto.TrendPoint {
	byDay := make(map[time.Time]int64, len(counts))
	for _, c := range counts {
		byDay[dbtime.StartOfDay(c.Day)] += c.Count
	}

	first, last := dbtime.StartOfDay(firstDay), dbtime.StartOfDay(lastDay)
	out := []dto.TrendPoint{}
	var current time.Time
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		bucket := day
		if groupBy == dto.GroupByWeek {
			bucket = weekStart(day)
		}
		if len(out) == 0 || !bucket.Equal(current) {
			current = bucket
			out = append(out, dto.TrendPoint{
				Date:  bucket.Format(trendDateLayout),
				Label: bucket.Format(trendLabel),
			})
		}
		out[len(out)-1].Count += byDay[day]
	}
	return out
}

func SeriesOf(points []dto.TrendPoint) dto.Series {
	s := dto.Series{Labels: make([]string, 0, len(points)), Values: make([]int64, 0, len(points))}
	for _, p := range points {
		s.Labels = append(s.Labels, p.Label)
		s.Values = append(s.Values, p.Count)
	}
	return s
}

func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// SortSummaries orders most active users first, ties by id.
func SortSummaries(rows []dto.UserSummary) {
	slices.SortStableFunc(rows, func(x, y dto.UserSummary) int {
		switch {
		case x.TotalCalls > y.TotalCalls:
			return -1
		case x.TotalCalls < y.TotalCalls:
			return 1
		}
		return cmp.Compare(x.UserID, y.UserID)
	})
}

func userIDs(users []repository.TenantUser) []uint {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func attendanceByUser(rows []repository.UserAttendance) map[uint]repository.UserAttendance {
	m := make(map[uint]repository.UserAttendance, len(rows))
	for _, r := range rows {
		m[r.UserID] = r
	}
	return m
}
