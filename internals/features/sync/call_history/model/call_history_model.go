package model

import (
	"time"

	accountModel "callmanager_backend/internals/features/accounts/model"
)

// CallHistoryModel is one phone call reported by a device. call_date is the
// UTC calendar date of timestamp and is part of the natural key.
type CallHistoryModel struct {
	ID              uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID          uint      `gorm:"column:user_id;not null;uniqueIndex:uq_call_history_natural,priority:1;index:idx_call_history_user_ts,priority:1" json:"user_id"`
	PhoneNumber     string    `gorm:"column:phone_number;type:varchar(32);not null;uniqueIndex:uq_call_history_natural,priority:2" json:"phone_number"`
	FormattedNumber *string   `gorm:"column:formatted_number;type:varchar(64)" json:"formatted_number,omitempty"`
	CallType        CallType  `gorm:"column:call_type;type:varchar(16);not null;uniqueIndex:uq_call_history_natural,priority:3" json:"call_type"`
	Timestamp       time.Time `gorm:"column:timestamp;not null;index:idx_call_history_user_ts,priority:2" json:"timestamp"`
	CallDate        time.Time `gorm:"column:call_date;type:date;not null;uniqueIndex:uq_call_history_natural,priority:5" json:"-"`
	Duration        int       `gorm:"column:duration;not null;default:0;uniqueIndex:uq_call_history_natural,priority:4" json:"duration"`
	ContactName     *string   `gorm:"column:contact_name;type:varchar(255)" json:"contact_name,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	User *accountModel.UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (CallHistoryModel) TableName() string {
	return "call_history"
}
