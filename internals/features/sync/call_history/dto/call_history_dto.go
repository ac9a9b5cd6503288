package dto

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"callmanager_backend/internals/features/sync/call_history/model"
	"callmanager_backend/internals/features/sync/pipeline"
	"callmanager_backend/internals/helpers/dbtime"
)

/* ====================== SYNC ====================== */

type SyncRequest struct {
	CallHistory []any `json:"call_history"`
}

type SyncResponse struct {
	RecordsSaved int                   `json:"records_saved"`
	Duplicates   int                   `json:"duplicates"`
	Errors       []pipeline.EntryError `json:"errors"`
	SyncedAt     string                `json:"synced_at"`
}

func NewSyncResponse(res pipeline.Result) SyncResponse {
	return SyncResponse{
		RecordsSaved: res.Saved,
		Duplicates:   res.Duplicates,
		Errors:       res.Errors,
		SyncedAt:     dbtime.FormatISO(res.SyncedAt),
	}
}

// Per-entry rejection reasons returned to the device.
var (
	ErrMissingFields    = errors.New("Missing timestamp or phone_number")
	ErrInvalidTimestamp = errors.New("Invalid timestamp")
	ErrInvalidDuration  = errors.New("Invalid duration")
)

// Entry is one device call log after validation and normalization.
type Entry struct {
	PhoneNumber     string
	FormattedNumber *string
	CallType        model.CallType
	Timestamp       time.Time
	Duration        int
	ContactName     *string
}

// ParseEntry validates a raw device entry. Devices send either number or
// phone_number and either name or contact_name.
func ParseEntry(raw map[string]any) (Entry, error) {
	phone := firstString(raw, "phone_number", "number")
	if phone == "" || raw["timestamp"] == nil {
		return Entry{}, ErrMissingFields
	}
	ts, err := dbtime.Normalize(raw["timestamp"])
	if errors.Is(err, dbtime.ErrMissing) {
		return Entry{}, ErrMissingFields
	}
	if err != nil {
		return Entry{}, ErrInvalidTimestamp
	}
	dur, err := parseDuration(raw["duration"])
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		PhoneNumber:     phone,
		FormattedNumber: optString(firstString(raw, "formatted_number")),
		CallType:        model.ParseCallType(raw["call_type"]),
		Timestamp:       ts,
		Duration:        dur,
		ContactName:     optString(firstString(raw, "contact_name", "name")),
	}, nil
}

func (e Entry) ToModel(userID uint) model.CallHistoryModel {
	return model.CallHistoryModel{
		UserID:          userID,
		PhoneNumber:     e.PhoneNumber,
		FormattedNumber: e.FormattedNumber,
		CallType:        e.CallType,
		Timestamp:       e.Timestamp,
		CallDate:        dbtime.StartOfDay(e.Timestamp),
		Duration:        e.Duration,
		ContactName:     e.ContactName,
	}
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseDuration reads seconds. Missing or unreadable values count as 0; a
// negative duration is rejected.
func parseDuration(v any) (int, error) {
	var f float64
	switch d := v.(type) {
	case nil:
		return 0, nil
	case float64:
		f = d
	case int:
		f = float64(d)
	case int64:
		f = float64(d)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(d), 64)
		if err != nil {
			return 0, nil
		}
		f = n
	default:
		return 0, nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, nil
	}
	if f < 0 {
		return 0, ErrInvalidDuration
	}
	if f > math.MaxInt32 {
		return 0, ErrInvalidDuration
	}
	return int(f), nil
}

/* ====================== QUERY ====================== */

const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 365
)

// HistoryQuery is the ?days=&call_type= filter of the history listings.
type HistoryQuery struct {
	Days     int
	CallType *model.CallType
	UserID   *uint
}

func ParseHistoryQuery(c *fiber.Ctx) (HistoryQuery, error) {
	q := HistoryQuery{Days: DefaultHistoryDays}
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fiber.NewError(fiber.StatusBadRequest, "days must be a positive integer")
		}
		if n > MaxHistoryDays {
			n = MaxHistoryDays
		}
		q.Days = n
	}
	ct, err := model.ParseCallTypeFilter(c.Query("call_type"))
	if err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q.CallType = ct
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			return q, fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
		}
		id := uint(n)
		q.UserID = &id
	}
	return q, nil
}

// Since is the first instant inside the window.
func (q HistoryQuery) Since(now time.Time) time.Time {
	return dbtime.LastNDays(now, q.Days)
}

/* ====================== RESPONSE ====================== */

type CallHistoryResponse struct {
	ID              uint    `json:"id"`
	PhoneNumber     string  `json:"phone_number"`
	FormattedNumber *string `json:"formatted_number"`
	CallType        string  `json:"call_type"`
	Timestamp       string  `json:"timestamp"`
	Duration        int     `json:"duration"`
	ContactName     *string `json:"contact_name"`
	CreatedAt       string  `json:"created_at"`
}

func FromModel(m model.CallHistoryModel) CallHistoryResponse {
	return CallHistoryResponse{
		ID:              m.ID,
		PhoneNumber:     m.PhoneNumber,
		FormattedNumber: m.FormattedNumber,
		CallType:        string(m.CallType),
		Timestamp:       dbtime.FormatISO(m.Timestamp),
		Duration:        m.Duration,
		ContactName:     m.ContactName,
		CreatedAt:       dbtime.FormatISO(m.CreatedAt),
	}
}

func FromModels(rows []model.CallHistoryModel) []CallHistoryResponse {
	out := make([]CallHistoryResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromModel(r))
	}
	return out
}

// TenantCallHistoryResponse is a row of the admin wide listing.
type TenantCallHistoryResponse struct {
	CallHistoryResponse
	UserID   uint   `json:"user_id"`
	UserName string `json:"user_name"`
}

type UserCallHistoryResponse struct {
	UserID               uint                  `json:"user_id"`
	UserName             string                `json:"user_name"`
	TotalCalls           int64                 `json:"total_calls"`
	TotalDurationSeconds int64                 `json:"total_duration_seconds"`
	CallHistory          []CallHistoryResponse `json:"call_history"`
}
