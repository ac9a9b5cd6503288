package dto

import (
	"time"

	"callmanager_backend/internals/features/accounts/model"
	payModel "callmanager_backend/internals/features/subscriptions/model"
	"callmanager_backend/internals/helpers/dbtime"
)

type StatusResponse struct {
	ExpiryDate string `json:"expiry_date"`
	IsExpired  bool   `json:"is_expired"`
	DaysLeft   int    `json:"days_left"`
	UserLimit  int    `json:"user_limit"`

	Payments []PaymentResponse `json:"payments"`
}

func FromAdmin(a model.AdminModel, now time.Time) StatusResponse {
	days := 0
	if a.ExpiryDate.After(now) {
		days = int(a.ExpiryDate.Sub(now).Hours() / 24)
	}
	return StatusResponse{
		ExpiryDate: dbtime.FormatISO(a.ExpiryDate),
		IsExpired:  a.IsExpired(now),
		DaysLeft:   days,
		UserLimit:  a.UserLimit,
		Payments:   []PaymentResponse{},
	}
}

type PaymentResponse struct {
	OrderID   string  `json:"order_id"`
	Months    int     `json:"months"`
	Amount    int64   `json:"amount"`
	Status    string  `json:"status"`
	PaidAt    *string `json:"paid_at"`
	CreatedAt string  `json:"created_at"`
}

func FromPayments(rows []payModel.SubscriptionPaymentModel) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(rows))
	for _, p := range rows {
		out = append(out, PaymentResponse{
			OrderID:   p.OrderID,
			Months:    p.Months,
			Amount:    p.Amount,
			Status:    string(p.Status),
			PaidAt:    dbtime.FormatISOPtr(p.PaidAt),
			CreatedAt: dbtime.FormatISO(p.CreatedAt),
		})
	}
	return out
}

type RenewRequest struct {
	Months int `json:"months" validate:"required,min=1,max=12"`
}

type RenewResponse struct {
	OrderID     string `json:"order_id"`
	Months      int    `json:"months"`
	Amount      int64  `json:"amount"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

func FromPayment(p payModel.SubscriptionPaymentModel) RenewResponse {
	out := RenewResponse{OrderID: p.OrderID, Months: p.Months, Amount: p.Amount}
	if p.SnapToken != nil {
		out.Token = *p.SnapToken
	}
	if p.RedirectURL != nil {
		out.RedirectURL = *p.RedirectURL
	}
	return out
}

// Notification is the gateway's payment status callback. Amounts arrive as
// strings such as "150000.00".
type Notification struct {
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
}
