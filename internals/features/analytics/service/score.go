package service

import "math"

// ScoreInput is the per-user activity a performance score is computed from.
type ScoreInput struct {
	AttendanceTotal  int64
	AttendanceOnTime int64
	Answered         int64 // incoming calls
	Unanswered       int64 // missed and rejected calls
}

const (
	onTimeWeight = 0.5
	answerWeight = 0.5
)

// Rates returns the on-time and answer rates in [0, 1] and whether each had
// any data behind it.
func (in ScoreInput) Rates() (onTime float64, hasAttendance bool, answer float64, hasCalls bool) {
	if in.AttendanceTotal > 0 {
		onTime = float64(clamp0(in.AttendanceOnTime)) / float64(in.AttendanceTotal)
		hasAttendance = true
	}
	if n := clamp0(in.Answered) + clamp0(in.Unanswered); n > 0 {
		answer = float64(clamp0(in.Answered)) / float64(n)
		hasCalls = true
	}
	return math.Min(onTime, 1), hasAttendance, math.Min(answer, 1), hasCalls
}

// PerformanceScore blends the attendance on-time rate and the call answer
// rate into 0..100, rounded to two decimals. A component without data hands
// its weight to the other one; with no data at all the score is 0.
func PerformanceScore(in ScoreInput) float64 {
	onTime, hasAttendance, answer, hasCalls := in.Rates()

	var score float64
	switch {
	case hasAttendance && hasCalls:
		score = onTimeWeight*onTime + answerWeight*answer
	case hasAttendance:
		score = onTime
	case hasCalls:
		score = answer
	default:
		return 0
	}
	return round2(score * 100)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func clamp0(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
