package repository

import (
	"context"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	attendanceModel "callmanager_backend/internals/features/sync/attendance/model"
)

// Window is a half-open [From, To) range. Zero values mean unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

type TenantUser struct {
	ID               uint
	Name             string
	PerformanceScore float64
}

type Totals struct {
	TotalCalls    int64
	Incoming      int64
	Outgoing      int64
	Missed        int64
	Rejected      int64
	TotalDuration int64
}

type DayCount struct {
	Day   time.Time
	Count int64
}

type UserCalls struct {
	UserID        uint
	UserName      string
	TotalCalls    int64
	Incoming      int64
	Outgoing      int64
	Missed        int64
	TotalDuration int64
}

type UserAttendance struct {
	UserID uint
	Total  int64
	OnTime int64
}

// Source runs the tenant scoped aggregate queries.
type Source struct {
	DB *gorm.DB
}

func NewSource(db *gorm.DB) *Source {
	return &Source{DB: db}
}

func idArray(ids []uint) any {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return pq.Array(out)
}

func (s *Source) TenantUsers(ctx context.Context, adminID uint) ([]TenantUser, error) {
	var rows []TenantUser
	err := s.DB.WithContext(ctx).
		Table("users").
		Select("id, name, performance_score").
		Where("admin_id = ?", adminID).
		Order("id ASC").
		Scan(&rows).Error
	return rows, err
}

const callBuckets = `
	COUNT(ch.id) AS total_calls,
	COALESCE(SUM(CASE WHEN ch.call_type = 'incoming' THEN 1 ELSE 0 END), 0) AS incoming,
	COALESCE(SUM(CASE WHEN ch.call_type = 'outgoing' THEN 1 ELSE 0 END), 0) AS outgoing,
	COALESCE(SUM(CASE WHEN ch.call_type IN ('missed', 'rejected') THEN 1 ELSE 0 END), 0) AS missed,
	COALESCE(SUM(ch.duration), 0) AS total_duration`

func (s *Source) CallTotals(ctx context.Context, userIDs []uint, w Window) (Totals, error) {
	var out Totals
	if len(userIDs) == 0 {
		return out, nil
	}
	q := s.DB.WithContext(ctx).
		Table("call_history ch").
		Select(callBuckets+`,
	COALESCE(SUM(CASE WHEN ch.call_type = 'rejected' THEN 1 ELSE 0 END), 0) AS rejected`).
		Where("ch.user_id = ANY(?)", idArray(userIDs))
	if !w.From.IsZero() {
		q = q.Where(`ch."timestamp" >= ?`, w.From)
	}
	if !w.To.IsZero() {
		q = q.Where(`ch."timestamp" < ?`, w.To)
	}
	err := q.Scan(&out).Error
	return out, err
}

// DailyCounts groups calls by their UTC calendar date, both ends inclusive.
// Days without calls are absent.
func (s *Source) DailyCounts(ctx context.Context, userIDs []uint, fromDay, toDay time.Time) ([]DayCount, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []DayCount
	err := s.DB.WithContext(ctx).
		Table("call_history").
		Select("call_date AS day, COUNT(*) AS count").
		Where("user_id = ANY(?)", idArray(userIDs)).
		Where("call_date BETWEEN ? AND ?", fromDay.Format("2006-01-02"), toDay.Format("2006-01-02")).
		Group("call_date").
		Order("call_date ASC").
		Scan(&rows).Error
	return rows, err
}

// UserCallSummaries returns one row per owned user, users without calls
// included, most active first.
func (s *Source) UserCallSummaries(ctx context.Context, adminID uint, w Window) ([]UserCalls, error) {
	join := "LEFT JOIN call_history ch ON ch.user_id = u.id"
	var args []any
	if !w.From.IsZero() {
		join += ` AND ch."timestamp" >= ?`
		args = append(args, w.From)
	}
	if !w.To.IsZero() {
		join += ` AND ch."timestamp" < ?`
		args = append(args, w.To)
	}

	var rows []UserCalls
	err := s.DB.WithContext(ctx).
		Table("users u").
		Select("u.id AS user_id, u.name AS user_name,"+callBuckets).
		Joins(join, args...).
		Where("u.admin_id = ?", adminID).
		Group("u.id, u.name").
		Order("total_calls DESC, u.id ASC").
		Scan(&rows).Error
	return rows, err
}

func onTimeStatuses() []string {
	out := make([]string, len(attendanceModel.OnTimeStatuses))
	for i, st := range attendanceModel.OnTimeStatuses {
		out[i] = string(st)
	}
	return out
}

// AttendanceStats counts check-ins per user and how many of them count as on time.
func (s *Source) AttendanceStats(ctx context.Context, userIDs []uint, w Window) ([]UserAttendance, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	q := s.DB.WithContext(ctx).
		Table("attendance").
		Select("user_id, COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ANY(?) THEN 1 ELSE 0 END), 0) AS on_time",
			pq.Array(onTimeStatuses())).
		Where("user_id = ANY(?)", idArray(userIDs))
	if !w.From.IsZero() {
		q = q.Where("check_in >= ?", w.From)
	}
	if !w.To.IsZero() {
		q = q.Where("check_in < ?", w.To)
	}
	var rows []UserAttendance
	err := q.Group("user_id").Scan(&rows).Error
	return rows, err
}

// SavePerformanceScores writes scores for users owned by adminID in one transaction.
func (s *Source) SavePerformanceScores(ctx context.Context, adminID uint, scores map[uint]float64) error {
	if len(scores) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for userID, score := range scores {
			err := tx.Table("users").
				Where("id = ? AND admin_id = ?", userID, adminID).
				Update("performance_score", score).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
