package dto

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"callmanager_backend/internals/features/sync/attendance/model"
	"callmanager_backend/internals/features/sync/dedup"
	"callmanager_backend/internals/features/sync/pipeline"
	"callmanager_backend/internals/helpers/dbtime"
)

/* ====================== SYNC ====================== */

type SyncRequest struct {
	Records []any `json:"records"`
}

// SyncResponse: synced_count covers created and merged records, created_ids
// only the new ones.
type SyncResponse struct {
	SyncedCount int                   `json:"synced_count"`
	Merged      int                   `json:"merged"`
	Duplicates  int                   `json:"duplicates"`
	CreatedIDs  []string              `json:"created_ids"`
	Errors      []pipeline.EntryError `json:"errors"`
	SyncedAt    string                `json:"synced_at"`
}

func NewSyncResponse(res pipeline.Result) SyncResponse {
	return SyncResponse{
		SyncedCount: res.Saved + res.Merged,
		Merged:      res.Merged,
		Duplicates:  res.Duplicates,
		CreatedIDs:  res.CreatedIDs,
		Errors:      res.Errors,
		SyncedAt:    dbtime.FormatISO(res.SyncedAt),
	}
}

var (
	ErrMissingCheckIn  = errors.New("Missing check_in")
	ErrInvalidCheckIn  = errors.New("Invalid check_in")
	ErrInvalidCheckOut = errors.New("Invalid check_out")
	ErrCheckOutBefore  = errors.New("check_out is before check_in")
	ErrInvalidID       = errors.New("Invalid id")
	ErrInvalidLocation = errors.New("Invalid latitude/longitude")
)

const maxIDLength = 64

// Entry is one device attendance record after validation.
type Entry struct {
	ClientID   *string
	ExternalID *string
	CheckIn    time.Time
	CheckOut   *time.Time
	Latitude   *float64
	Longitude  *float64
	Address    *string
	Status     *model.AttendanceStatus
	// Image is the raw base64 payload, "" when absent.
	Image string
}

func ParseEntry(raw map[string]any) (Entry, error) {
	var e Entry

	if raw["check_in"] == nil {
		return e, ErrMissingCheckIn
	}
	in, err := dbtime.Normalize(raw["check_in"])
	if errors.Is(err, dbtime.ErrMissing) {
		return e, ErrMissingCheckIn
	}
	if err != nil {
		return e, ErrInvalidCheckIn
	}
	e.CheckIn = in

	out, err := dbtime.NormalizePtr(raw["check_out"])
	if err != nil {
		return e, ErrInvalidCheckOut
	}
	if out != nil && out.Before(in) {
		return e, ErrCheckOutBefore
	}
	e.CheckOut = out

	if e.ClientID, err = optID(raw["id"]); err != nil {
		return e, err
	}
	if e.ExternalID, err = optID(raw["external_id"]); err != nil {
		return e, err
	}

	lat, latErr := optFloat(raw["latitude"])
	lng, lngErr := optFloat(raw["longitude"])
	if latErr != nil || lngErr != nil ||
		(lat != nil && math.Abs(*lat) > 90) || (lng != nil && math.Abs(*lng) > 180) {
		return e, ErrInvalidLocation
	}
	e.Latitude, e.Longitude = lat, lng

	if s, ok := raw["address"].(string); ok && strings.TrimSpace(s) != "" {
		addr := strings.TrimSpace(s)
		e.Address = &addr
	}
	if s, ok := raw["status"].(string); ok && strings.TrimSpace(s) != "" {
		st := model.ParseStatus(s)
		e.Status = &st
	}
	if s, ok := raw["image"].(string); ok {
		e.Image = strings.TrimSpace(s)
	}
	return e, nil
}

// Patch is what this entry may contribute to a stored record with the same
// natural key. The image is attached by the caller once stored.
func (e Entry) Patch() dedup.AttendancePatch {
	return dedup.AttendancePatch{
		CheckOut:  e.CheckOut,
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		Address:   e.Address,
		Status:    e.Status,
	}
}

func (e Entry) ToModel(id string, userID uint, syncedAt time.Time) model.AttendanceModel {
	status := model.StatusPresent
	if e.Status != nil {
		status = *e.Status
	}
	at := syncedAt
	return model.AttendanceModel{
		ID:            id,
		UserID:        userID,
		ExternalID:    e.ExternalID,
		CheckIn:       e.CheckIn,
		CheckOut:      e.CheckOut,
		Latitude:      e.Latitude,
		Longitude:     e.Longitude,
		Address:       e.Address,
		Status:        status,
		Synced:        true,
		SyncTimestamp: &at,
	}
}

func optID(v any) (*string, error) {
	var s string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = strings.TrimSpace(t)
	case float64:
		if t != math.Trunc(t) {
			return nil, ErrInvalidID
		}
		s = strconv.FormatFloat(t, 'f', 0, 64)
	default:
		return nil, ErrInvalidID
	}
	if s == "" {
		return nil, nil
	}
	if len(s) > maxIDLength {
		return nil, ErrInvalidID
	}
	return &s, nil
}

func optFloat(v any) (*float64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, ErrInvalidLocation
		}
		return &t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, ErrInvalidLocation
		}
		return &f, nil
	}
	return nil, ErrInvalidLocation
}

/* ====================== QUERY ====================== */

const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 365
)

type HistoryQuery struct {
	Days   int
	Status *model.AttendanceStatus
	UserID *uint
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
	if raw := strings.TrimSpace(c.Query("status")); raw != "" && raw != "all" {
		st := model.ParseStatus(raw)
		q.Status = &st
	}
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

func (q HistoryQuery) Since(now time.Time) time.Time {
	return dbtime.LastNDays(now, q.Days)
}

/* ====================== RESPONSE ====================== */

type AttendanceResponse struct {
	ID            string   `json:"id"`
	ExternalID    *string  `json:"external_id"`
	UserID        uint     `json:"user_id"`
	CheckIn       string   `json:"check_in"`
	CheckOut      *string  `json:"check_out"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Address       *string  `json:"address"`
	ImagePath     *string  `json:"image_path"`
	Status        string   `json:"status"`
	Synced        bool     `json:"synced"`
	SyncTimestamp *string  `json:"sync_timestamp"`
	CreatedAt     string   `json:"created_at"`
}

func FromModel(m model.AttendanceModel) AttendanceResponse {
	return AttendanceResponse{
		ID:            m.ID,
		ExternalID:    m.ExternalID,
		UserID:        m.UserID,
		CheckIn:       dbtime.FormatISO(m.CheckIn),
		CheckOut:      dbtime.FormatISOPtr(m.CheckOut),
		Latitude:      m.Latitude,
		Longitude:     m.Longitude,
		Address:       m.Address,
		ImagePath:     m.ImagePath,
		Status:        string(m.Status),
		Synced:        m.Synced,
		SyncTimestamp: dbtime.FormatISOPtr(m.SyncTimestamp),
		CreatedAt:     dbtime.FormatISO(m.CreatedAt),
	}
}

func FromModels(rows []model.AttendanceModel) []AttendanceResponse {
	out := make([]AttendanceResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromModel(r))
	}
	return out
}

type TenantAttendanceResponse struct {
	AttendanceResponse
	UserName string `json:"user_name"`
}

type UserAttendanceResponse struct {
	UserID     uint                 `json:"user_id"`
	UserName   string               `json:"user_name"`
	Total      int64                `json:"total"`
	Attendance []AttendanceResponse `json:"attendance"`
}
