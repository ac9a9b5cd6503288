package model

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// SubscriptionPaymentModel is one renewal attempt for an admin. OrderID is
// the gateway order id and is unique.
type SubscriptionPaymentModel struct {
	ID               uint          `gorm:"column:id;primaryKey" json:"id"`
	AdminID          uint          `gorm:"column:admin_id;not null;index" json:"admin_id"`
	OrderID          string        `gorm:"column:order_id;type:varchar(64);not null;uniqueIndex" json:"order_id"`
	Months           int           `gorm:"column:months;not null" json:"months"`
	Amount           int64         `gorm:"column:amount;not null" json:"amount"`
	Status           PaymentStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'" json:"status"`
	SnapToken        *string       `gorm:"column:snap_token;type:varchar(128)" json:"snap_token,omitempty"`
	RedirectURL      *string       `gorm:"column:redirect_url;type:text" json:"redirect_url,omitempty"`
	GatewayReference *string       `gorm:"column:gateway_reference;type:varchar(128)" json:"gateway_reference,omitempty"`
	PaidAt           *time.Time    `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt        time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SubscriptionPaymentModel) TableName() string {
	return "subscription_payments"
}
