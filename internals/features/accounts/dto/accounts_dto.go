package dto

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"callmanager_backend/internals/features/accounts/model"
	"callmanager_backend/internals/helpers/dbtime"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,20}$`)

// NewValidator returns a validator that also knows the "phone" tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	})
	return v
}

const dateLayout = "2006-01-02"

/* ====================== ADMIN ====================== */

type CreateAdminRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email,max=120"`
	Password   string `json:"password" validate:"required,min=8,max=128"`
	UserLimit  *int   `json:"user_limit" validate:"omitempty,min=1,max=10000"`
	ExpiryDate string `json:"expiry_date" validate:"required,datetime=2006-01-02"`
}

// ToModel expects a validated request; the expiry covers the whole named day.
func (r CreateAdminRequest) ToModel(hash string, createdBy uint) (model.AdminModel, error) {
	expiry, err := endOfDay(r.ExpiryDate)
	if err != nil {
		return model.AdminModel{}, err
	}
	limit := model.DefaultUserLimit
	if r.UserLimit != nil {
		limit = *r.UserLimit
	}
	return model.AdminModel{
		Name:         strings.TrimSpace(r.Name),
		Email:        r.Email,
		PasswordHash: hash,
		UserLimit:    limit,
		ExpiryDate:   expiry,
		IsActive:     true,
		CreatedBy:    &createdBy,
	}, nil
}

type PatchAdminRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=100"`
	IsActive   *bool   `json:"is_active"`
	UserLimit  *int    `json:"user_limit" validate:"omitempty,min=1,max=10000"`
	ExpiryDate *string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r PatchAdminRequest) Patch() (map[string]any, error) {
	out := map[string]any{}
	if r.Name != nil {
		out["name"] = strings.TrimSpace(*r.Name)
	}
	if r.IsActive != nil {
		out["is_active"] = *r.IsActive
	}
	if r.UserLimit != nil {
		out["user_limit"] = *r.UserLimit
	}
	if r.ExpiryDate != nil {
		t, err := endOfDay(*r.ExpiryDate)
		if err != nil {
			return nil, err
		}
		out["expiry_date"] = t
	}
	return out, nil
}

func endOfDay(s string) (time.Time, error) {
	d, err := dbtime.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(24*time.Hour - time.Second), nil
}

type AdminResponse struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	UserLimit  int     `json:"user_limit"`
	UserCount  int64   `json:"user_count"`
	ExpiryDate string  `json:"expiry_date"`
	IsActive   bool    `json:"is_active"`
	IsExpired  bool    `json:"is_expired"`
	CreatedAt  string  `json:"created_at"`
	LastLogin  *string `json:"last_login"`
}

func FromAdmin(a model.AdminModel, userCount int64, now time.Time) AdminResponse {
	return AdminResponse{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		UserLimit:  a.UserLimit,
		UserCount:  userCount,
		ExpiryDate: a.ExpiryDate.UTC().Format(dateLayout),
		IsActive:   a.IsActive,
		IsExpired:  a.IsExpired(now),
		CreatedAt:  dbtime.FormatISO(a.CreatedAt),
		LastLogin:  dbtime.FormatISOPtr(a.LastLogin),
	}
}

/* ====================== USER ====================== */

type CreateUserRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email,max=120"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
}

func (r CreateUserRequest) ToModel(hash string, adminID uint) model.UserModel {
	return model.UserModel{
		Name:         strings.TrimSpace(r.Name),
		Email:        r.Email,
		PasswordHash: hash,
		Phone:        trimPtr(r.Phone),
		AdminID:      adminID,
		IsActive:     true,
	}
}

type PatchUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
}

// Patch leaves password hashing to the caller.
func (r PatchUserRequest) Patch() map[string]any {
	out := map[string]any{}
	if r.Name != nil {
		out["name"] = strings.TrimSpace(*r.Name)
	}
	if r.Phone != nil {
		out["phone"] = trimPtr(r.Phone)
	}
	if r.IsActive != nil {
		out["is_active"] = *r.IsActive
	}
	return out
}

// UpdateProfileRequest is a field user editing their own profile. A blank
// phone clears it.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Phone *string `json:"phone" validate:"omitempty,phone"`
}

var ErrInvalidName = errors.New("Invalid name")

func (r UpdateProfileRequest) Patch() (map[string]any, error) {
	out := map[string]any{}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if len(name) < 2 {
			return nil, ErrInvalidName
		}
		out["name"] = name
	}
	if r.Phone != nil {
		out["phone"] = trimPtr(r.Phone)
	}
	return out, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ReplaceAll(strings.TrimSpace(*s), " ", "")
	if v == "" {
		return nil
	}
	return &v
}

type UserResponse struct {
	ID               uint    `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Phone            *string `json:"phone"`
	AdminID          uint    `json:"admin_id"`
	IsActive         bool    `json:"is_active"`
	PerformanceScore float64 `json:"performance_score"`
	CreatedAt        string  `json:"created_at"`
	LastLogin        *string `json:"last_login"`
	LastSync         *string `json:"last_sync"`
}

func FromUser(u model.UserModel) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Phone:            u.Phone,
		AdminID:          u.AdminID,
		IsActive:         u.IsActive,
		PerformanceScore: u.PerformanceScore,
		CreatedAt:        dbtime.FormatISO(u.CreatedAt),
		LastLogin:        dbtime.FormatISOPtr(u.LastLogin),
		LastSync:         dbtime.FormatISOPtr(u.LastSync),
	}
}

func FromUsers(rows []model.UserModel) []UserResponse {
	out := make([]UserResponse, 0, len(rows))
	for _, u := range rows {
		out = append(out, FromUser(u))
	}
	return out
}

/* ====================== DASHBOARD / PROFILE ====================== */

type AdminDashboard struct {
	TotalUsers        int64  `json:"total_users"`
	ActiveUsers       int64  `json:"active_users"`
	UserLimit         int    `json:"user_limit"`
	ExpiryDate        string `json:"expiry_date"`
	IsExpired         bool   `json:"is_expired"`
	DaysLeft          int    `json:"days_left"`
	CallRecords       int64  `json:"call_records"`
	AttendanceRecords int64  `json:"attendance_records"`
}

// DaysLeft counts whole days until expiry, never negative.
func DaysLeft(expiry, now time.Time) int {
	if !expiry.After(now) {
		return 0
	}
	return int(expiry.Sub(now).Hours() / 24)
}

type SyncSummary struct {
	LastSync          *string `json:"last_sync"`
	CallRecords       int64   `json:"call_records"`
	AttendanceRecords int64   `json:"attendance_records"`
}

type ProfileResponse struct {
	User      UserResponse `json:"user"`
	AdminName string       `json:"admin_name"`
	Sync      SyncSummary  `json:"sync"`
}

type ProfileUpdateResponse struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

type SyncStatusResponse struct {
	LastSync         *string `json:"last_sync"`
	CallHistoryCount int64   `json:"call_history_count"`
	AttendanceCount  int64   `json:"attendance_count"`
}
