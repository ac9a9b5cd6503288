package model

import (
	"time"

	"gorm.io/datatypes"
)

// Activity actions
const (
	ActionCreateAdmin    = "create_admin"
	ActionUpdateAdmin    = "update_admin"
	ActionCreateUser     = "create_user"
	ActionUpdateUser     = "update_user"
	ActionDeleteUser     = "delete_user"
	ActionUpdateProfile  = "update_profile"
	ActionRenewalStarted = "subscription_renewal_started"
	ActionRenewalSettled = "subscription_renewed"
)

type ActivityLogModel struct {
	ID         uint           `gorm:"column:id;primaryKey" json:"id"`
	ActorRole  string         `gorm:"column:actor_role;type:varchar(20);not null" json:"actor_role"`
	ActorID    uint           `gorm:"column:actor_id;not null" json:"actor_id"`
	Action     string         `gorm:"column:action;type:varchar(64);not null" json:"action"`
	TargetType *string        `gorm:"column:target_type;type:varchar(32)" json:"target_type,omitempty"`
	TargetID   *uint          `gorm:"column:target_id" json:"target_id,omitempty"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	Timestamp  time.Time      `gorm:"column:timestamp;autoCreateTime;index" json:"timestamp"`
}

func (ActivityLogModel) TableName() string {
	return "activity_logs"
}
