package model

import "time"

const DefaultUserLimit = 10

// AdminModel is a tenant: it owns users and everything they sync.
type AdminModel struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Email        string     `gorm:"column:email;type:varchar(120);not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	UserLimit    int        `gorm:"column:user_limit;not null" json:"user_limit"`
	ExpiryDate   time.Time  `gorm:"column:expiry_date;not null;index" json:"expiry_date"`
	IsActive     bool       `gorm:"column:is_active;not null" json:"is_active"`
	CreatedBy    *uint      `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	LastLogin    *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`

	Users []UserModel `gorm:"foreignKey:AdminID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AdminModel) TableName() string {
	return "admins"
}

// IsExpired reports whether the subscription has lapsed at now.
func (a AdminModel) IsExpired(now time.Time) bool {
	return now.After(a.ExpiryDate)
}
