package dedup_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	attendanceModel "callmanager_backend/internals/features/sync/attendance/model"
	callModel "callmanager_backend/internals/features/sync/call_history/model"
	"callmanager_backend/internals/features/sync/dedup"
)

func ptr[T any](v T) *T { return &v }

func TestCallKey_SameDayCollapses(t *testing.T) {
	t.Parallel()

	morning := &callModel.CallHistoryModel{
		UserID: 1, PhoneNumber: " +628123 ", CallType: callModel.CallIncoming, Duration: 30,
		Timestamp: time.Date(2024, 1, 5, 0, 0, 1, 0, time.UTC),
	}
	night := *morning
	night.PhoneNumber = "+628123"
	night.Timestamp = time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, dedup.CallKeyOf(morning), dedup.CallKeyOf(&night))

	nextDay := night
	nextDay.Timestamp = time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t, dedup.CallKeyOf(morning), dedup.CallKeyOf(&nextDay))

	otherDuration := night
	otherDuration.Duration = 31
	assert.NotEqual(t, dedup.CallKeyOf(morning), dedup.CallKeyOf(&otherDuration))

	otherUser := night
	otherUser.UserID = 2
	assert.NotEqual(t, dedup.CallKeyOf(morning), dedup.CallKeyOf(&otherUser))
}

func TestCallKey_DayIsUTC(t *testing.T) {
	t.Parallel()

	jakarta := time.FixedZone("WIB", 7*3600)
	a := &callModel.CallHistoryModel{UserID: 1, PhoneNumber: "1", Timestamp: time.Date(2024, 1, 6, 3, 0, 0, 0, jakarta)}
	b := &callModel.CallHistoryModel{UserID: 1, PhoneNumber: "1", Timestamp: time.Date(2024, 1, 5, 21, 0, 0, 0, time.UTC)}
	assert.Equal(t, dedup.CallKeyOf(a), dedup.CallKeyOf(b))
}

func TestAttendanceKey_SecondPrecision(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, dedup.AttendanceKeyOf(1, base), dedup.AttendanceKeyOf(1, base.Add(400*time.Millisecond)))
	assert.NotEqual(t, dedup.AttendanceKeyOf(1, base), dedup.AttendanceKeyOf(1, base.Add(time.Second)))
}

func TestMergeAttendance(t *testing.T) {
	t.Parallel()

	checkIn := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	out1 := checkIn.Add(8 * time.Hour)
	out0 := checkIn.Add(4 * time.Hour)

	existing := &attendanceModel.AttendanceModel{
		ID: "a", UserID: 1, CheckIn: checkIn, CheckOut: &out1,
		Address: ptr("old"), Status: attendanceModel.StatusPresent,
	}

	// earlier check_out is ignored, nothing else supplied
	assert.False(t, dedup.MergeAttendance(existing, dedup.AttendancePatch{CheckOut: &out0}))
	assert.Equal(t, out1, *existing.CheckOut)

	late := attendanceModel.StatusLate
	changed := dedup.MergeAttendance(existing, dedup.AttendancePatch{
		CheckOut:  ptr(out1.Add(time.Hour)),
		Latitude:  ptr(-6.2),
		Longitude: ptr(106.8),
		Address:   ptr("new"),
		Status:    &late,
		ImagePath: ptr("attendance/1/1/a.webp"),
	})
	assert.True(t, changed)
	assert.Equal(t, out1.Add(time.Hour), *existing.CheckOut)
	assert.Equal(t, -6.2, *existing.Latitude)
	assert.Equal(t, 106.8, *existing.Longitude)
	assert.Equal(t, "new", *existing.Address)
	assert.Equal(t, attendanceModel.StatusLate, existing.Status)
	assert.Equal(t, "attendance/1/1/a.webp", *existing.ImagePath)

	// image is attached only once
	assert.False(t, dedup.MergeAttendance(existing, dedup.AttendancePatch{ImagePath: ptr("attendance/1/1/b.webp")}))
	assert.Equal(t, "attendance/1/1/a.webp", *existing.ImagePath)

	// identical values are not a change
	assert.False(t, dedup.MergeAttendance(existing, dedup.AttendancePatch{Address: ptr("new"), Status: &late}))
}
