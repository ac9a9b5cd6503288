package model

import "strings"

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusOnTime  AttendanceStatus = "on-time"
	StatusLate    AttendanceStatus = "late"
	StatusAbsent  AttendanceStatus = "absent"
	StatusHalfDay AttendanceStatus = "half-day"
	StatusOther   AttendanceStatus = "other"
)

var knownStatuses = map[string]AttendanceStatus{
	"present":  StatusPresent,
	"on-time":  StatusOnTime,
	"on_time":  StatusOnTime,
	"ontime":   StatusOnTime,
	"late":     StatusLate,
	"absent":   StatusAbsent,
	"half-day": StatusHalfDay,
	"half_day": StatusHalfDay,
	"other":    StatusOther,
}

// ParseStatus maps client values onto the closed set; unseen values become other.
func ParseStatus(s string) AttendanceStatus {
	if st, ok := knownStatuses[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st
	}
	return StatusOther
}

// OnTimeStatuses count toward the on-time share of the performance score.
var OnTimeStatuses = []AttendanceStatus{StatusPresent, StatusOnTime}
