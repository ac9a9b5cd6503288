// Package dedup defines the natural keys that make re-sent device records
// idempotent, and the merge rule applied when an attendance record repeats.
package dedup

import (
	"strings"
	"time"

	attendanceModel "callmanager_backend/internals/features/sync/attendance/model"
	callModel "callmanager_backend/internals/features/sync/call_history/model"
	"callmanager_backend/internals/helpers/dbtime"
)

// CallKey identifies a call log. Two calls with the same number, type and
// duration on the same UTC calendar date are the same call.
type CallKey struct {
	UserID      uint
	PhoneNumber string
	CallType    callModel.CallType
	Duration    int
	Day         time.Time
}

func CallKeyOf(rec *callModel.CallHistoryModel) CallKey {
	return CallKey{
		UserID:      rec.UserID,
		PhoneNumber: strings.TrimSpace(rec.PhoneNumber),
		CallType:    rec.CallType,
		Duration:    rec.Duration,
		Day:         dbtime.StartOfDay(rec.Timestamp),
	}
}

// AttendanceKey identifies an attendance record by check-in at second precision.
type AttendanceKey struct {
	UserID  uint
	CheckIn time.Time
}

func AttendanceKeyOf(userID uint, checkIn time.Time) AttendanceKey {
	return AttendanceKey{UserID: userID, CheckIn: checkIn.UTC().Truncate(time.Second)}
}

// AttendancePatch carries the fields a repeated record may contribute. Nil
// means "not supplied".
type AttendancePatch struct {
	CheckOut  *time.Time
	Latitude  *float64
	Longitude *float64
	Address   *string
	Status    *attendanceModel.AttendanceStatus
	ImagePath *string
}

// MergeAttendance folds a repeated record into the stored one and reports
// whether anything changed:
//   - check_out moves only forward in time
//   - latitude, longitude, address and status are overwritten when supplied
//   - an image is attached only when none is stored
func MergeAttendance(existing *attendanceModel.AttendanceModel, p AttendancePatch) bool {
	changed := false

	if p.CheckOut != nil && (existing.CheckOut == nil || p.CheckOut.After(*existing.CheckOut)) {
		v := *p.CheckOut
		existing.CheckOut = &v
		changed = true
	}
	if p.Latitude != nil && (existing.Latitude == nil || *existing.Latitude != *p.Latitude) {
		v := *p.Latitude
		existing.Latitude = &v
		changed = true
	}
	if p.Longitude != nil && (existing.Longitude == nil || *existing.Longitude != *p.Longitude) {
		v := *p.Longitude
		existing.Longitude = &v
		changed = true
	}
	if p.Address != nil && (existing.Address == nil || *existing.Address != *p.Address) {
		v := *p.Address
		existing.Address = &v
		changed = true
	}
	if p.Status != nil && existing.Status != *p.Status {
		existing.Status = *p.Status
		changed = true
	}
	if p.ImagePath != nil && existing.ImagePath == nil {
		v := *p.ImagePath
		existing.ImagePath = &v
		changed = true
	}
	return changed
}
