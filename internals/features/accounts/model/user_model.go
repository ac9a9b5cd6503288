package model

import "time"

// UserModel is a field user belonging to exactly one admin.
type UserModel struct {
	ID               uint       `gorm:"column:id;primaryKey" json:"id"`
	Name             string     `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Email            string     `gorm:"column:email;type:varchar(120);not null;uniqueIndex" json:"email"`
	PasswordHash     string     `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Phone            *string    `gorm:"column:phone;type:varchar(20)" json:"phone,omitempty"`
	AdminID          uint       `gorm:"column:admin_id;not null;index" json:"admin_id"`
	IsActive         bool       `gorm:"column:is_active;not null" json:"is_active"`
	PerformanceScore float64    `gorm:"column:performance_score;not null;default:0" json:"performance_score"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	LastLogin        *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
	LastSync         *time.Time `gorm:"column:last_sync" json:"last_sync,omitempty"`
}

func (UserModel) TableName() string {
	return "users"
}
