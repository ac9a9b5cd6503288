package dbtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Epoch values whose magnitude is above this are read as milliseconds,
// otherwise seconds.
const epochMillisThreshold = 1e10

// Accepted instants span 0001-01-01T00:00:00Z .. 9999-12-31T23:59:59Z.
const (
	minEpochSeconds = -62135596800
	maxEpochSeconds = 253402300799
)

var (
	ErrMissing         = errors.New("timestamp is missing")
	ErrUnsupportedType = errors.New("unsupported timestamp type")
	ErrUnparsable      = errors.New("invalid timestamp")
)

// isoLayouts are tried in order. Go accepts an optional fractional second
// after the seconds field even when the layout does not name one.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Normalize turns a client supplied timestamp into a UTC instant truncated to
// whole seconds. Numbers are epoch seconds or epoch milliseconds. Strings are
// ISO-8601 (a trailing Z means UTC, offsets are converted to UTC, no zone
// means UTC) or a numeric epoch string.
func Normalize(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, ErrMissing
	case time.Time:
		if t.IsZero() {
			return time.Time{}, ErrMissing
		}
		return t.UTC().Truncate(time.Second), nil
	case float64:
		return fromEpoch(t)
	case float32:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	case int32:
		return fromEpoch(float64(t))
	case int64:
		return fromEpochInt(t)
	case uint:
		return fromEpoch(float64(t))
	case uint32:
		return fromEpoch(float64(t))
	case uint64:
		return fromEpoch(float64(t))
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromEpochInt(n)
		}
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsable, t.String())
		}
		return fromEpoch(f)
	case string:
		return fromString(t)
	default:
		return time.Time{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// NormalizePtr is Normalize for optional fields: nil and blank strings yield nil.
func NormalizePtr(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func fromString(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrMissing
	}

	iso := s
	if strings.HasSuffix(iso, "z") {
		iso = iso[:len(iso)-1] + "Z"
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromEpochInt(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f)
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsable, raw)
}

func fromEpochInt(n int64) (time.Time, error) {
	return fromEpoch(float64(n))
}

func fromEpoch(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnparsable, f)
	}
	if math.Abs(f) > epochMillisThreshold {
		f /= 1000
	}
	if f < minEpochSeconds || f > maxEpochSeconds {
		return time.Time{}, fmt.Errorf("%w: %v out of range", ErrUnparsable, f)
	}
	sec := math.Floor(f)
	return time.Unix(int64(sec), 0).UTC(), nil
}
