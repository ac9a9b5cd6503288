package model

import (
	"time"

	accountModel "callmanager_backend/internals/features/accounts/model"
)

// AttendanceModel is one check-in/check-out pair. (user_id, check_in) is the
// natural key; re-sent records merge into the stored row.
type AttendanceModel struct {
	ID            string           `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	UserID        uint             `gorm:"column:user_id;not null;uniqueIndex:uq_attendance_user_check_in,priority:1" json:"user_id"`
	ExternalID    *string          `gorm:"column:external_id;type:varchar(64)" json:"external_id,omitempty"`
	CheckIn       time.Time        `gorm:"column:check_in;not null;uniqueIndex:uq_attendance_user_check_in,priority:2" json:"check_in"`
	CheckOut      *time.Time       `gorm:"column:check_out" json:"check_out,omitempty"`
	Latitude      *float64         `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude     *float64         `gorm:"column:longitude" json:"longitude,omitempty"`
	Address       *string          `gorm:"column:address;type:text" json:"address,omitempty"`
	ImagePath     *string          `gorm:"column:image_path;type:varchar(255)" json:"image_path,omitempty"`
	Status        AttendanceStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Synced        bool             `gorm:"column:synced;not null" json:"synced"`
	SyncTimestamp *time.Time       `gorm:"column:sync_timestamp" json:"sync_timestamp,omitempty"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	User *accountModel.UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AttendanceModel) TableName() string {
	return "attendance"
}
