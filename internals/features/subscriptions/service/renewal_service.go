package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/constants"
	accountModel "callmanager_backend/internals/features/accounts/model"
	accountRepo "callmanager_backend/internals/features/accounts/repository"
	"callmanager_backend/internals/features/subscriptions/dto"
	"callmanager_backend/internals/features/subscriptions/model"
	"callmanager_backend/internals/features/subscriptions/repository"
	"callmanager_backend/internals/helpers/dbtime"
)

var (
	ErrGatewayDisabled  = errors.New("payment gateway is not configured")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrAmountMismatch   = errors.New("gross amount does not match the order")
)

// Gateway creates hosted checkout transactions. *snap.Client satisfies it.
type Gateway interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// NewSnapGateway returns nil when no server key is configured.
func NewSnapGateway(serverKey string, production bool) Gateway {
	if serverKey == "" {
		return nil
	}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var c snap.Client
	c.New(serverKey, env)
	return &c
}

type Renewals struct {
	DB        *gorm.DB
	Gateway   Gateway
	ServerKey string
	Price     int64
	Clock     dbtime.Clock
}

func NewRenewals(db *gorm.DB, gw Gateway, serverKey string, monthlyPrice int64) *Renewals {
	return &Renewals{DB: db, Gateway: gw, ServerKey: serverKey, Price: monthlyPrice, Clock: dbtime.SystemClock}
}

/* ====================== START ====================== */

func newOrderID(adminID uint, now time.Time) string {
	return fmt.Sprintf("SUB-%d-%d-%s", adminID, now.Unix(), uuid.NewString()[:8])
}

// Start records a pending payment and opens a checkout for it. A payment
// the gateway refused is kept as failed.
func (s *Renewals) Start(ctx context.Context, admin accountModel.AdminModel, months int) (*model.SubscriptionPaymentModel, error) {
	if s.Gateway == nil {
		return nil, ErrGatewayDisabled
	}
	p := model.SubscriptionPaymentModel{
		AdminID: admin.ID,
		OrderID: newOrderID(admin.ID, s.Clock()),
		Months:  months,
		Amount:  s.Price * int64(months),
		Status:  model.PaymentPending,
	}
	if err := repository.CreatePayment(ctx, s.DB, &p); err != nil {
		return nil, err
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{OrderID: p.OrderID, GrossAmt: p.Amount},
		CustomerDetail:     &midtrans.CustomerDetails{FName: admin.Name, Email: admin.Email},
		Items: &[]midtrans.ItemDetails{{
			ID:       "subscription-monthly",
			Name:     "Subscription (monthly)",
			Price:    s.Price,
			Qty:      int32(months),
			Category: "subscription",
		}},
	}
	resp, gerr := s.Gateway.CreateTransaction(req)
	if gerr != nil {
		if err := repository.UpdatePayment(ctx, s.DB, p.ID, map[string]any{"status": model.PaymentFailed}); err != nil {
			zap.L().Warn("mark renewal failed", zap.String("order_id", p.OrderID), zap.Error(err))
		}
		return nil, fmt.Errorf("create checkout: %s", gerr.Message)
	}

	p.SnapToken = &resp.Token
	p.RedirectURL = &resp.RedirectURL
	err := repository.UpdatePayment(ctx, s.DB, p.ID, map[string]any{
		"snap_token":   resp.Token,
		"redirect_url": resp.RedirectURL,
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

/* ====================== NOTIFICATION ====================== */

// Signature is SHA-512 over order_id, status_code, gross_amount and the server key, hex encoded.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifySignature(n dto.Notification, serverKey string) bool {
	if n.SignatureKey == "" || serverKey == "" {
		return false
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(n.SignatureKey)), []byte(want)) == 1
}

// Transition maps a gateway status onto a payment status. ok is false for
// statuses that change nothing (pending, fraud challenge, refunds).
func Transition(transactionStatus, fraudStatus string) (model.PaymentStatus, bool) {
	switch strings.ToLower(transactionStatus) {
	case "settlement":
		return model.PaymentPaid, true
	case "capture":
		switch strings.ToLower(fraudStatus) {
		case "", "accept":
			return model.PaymentPaid, true
		case "deny":
			return model.PaymentFailed, true
		}
		return "", false
	case "expire", "cancel", "deny", "failure":
		return model.PaymentFailed, true
	}
	return "", false
}

// ExtendExpiry adds months to whichever is later, the current expiry or now.
func ExtendExpiry(expiry, now time.Time, months int) time.Time {
	base := expiry
	if now.After(base) {
		base = now
	}
	return base.AddDate(0, months, 0).UTC()
}

func amountMatches(gross string, want int64) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(gross), 64)
	if err != nil {
		return false
	}
	return int64(math.Round(f)) == want
}

type Settlement struct {
	OrderID    string              `json:"order_id"`
	Status     model.PaymentStatus `json:"status"`
	AdminID    uint                `json:"admin_id"`
	ExpiryDate *time.Time          `json:"expiry_date,omitempty"`
	Changed    bool                `json:"changed"`
}

// Handle applies a verified notification. A payment is settled at most once,
// so redelivered notifications never extend the subscription twice.
func (s *Renewals) Handle(ctx context.Context, n dto.Notification) (Settlement, error) {
	if !VerifySignature(n, s.ServerKey) {
		return Settlement{}, ErrInvalidSignature
	}
	target, ok := Transition(n.TransactionStatus, n.FraudStatus)
	now := s.Clock()

	var out Settlement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repository.LockPaymentByOrder(tx, n.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if !amountMatches(n.GrossAmount, p.Amount) {
			return ErrAmountMismatch
		}
		out = Settlement{OrderID: p.OrderID, Status: p.Status, AdminID: p.AdminID}
		if !ok {
			return nil
		}

		patch := map[string]any{}
		if n.TransactionID != "" {
			patch["gateway_reference"] = n.TransactionID
		}
		switch {
		case target == model.PaymentPaid && p.Status != model.PaymentPaid:
			admin, err := repository.LockAdmin(tx, p.AdminID)
			if err != nil {
				return err
			}
			expiry := ExtendExpiry(admin.ExpiryDate, now, p.Months)
			if err := tx.Model(admin).Update("expiry_date", expiry).Error; err != nil {
				return err
			}
			patch["status"] = model.PaymentPaid
			patch["paid_at"] = now
			out.ExpiryDate = &expiry
		case target == model.PaymentFailed && p.Status == model.PaymentPending:
			patch["status"] = model.PaymentFailed
		default:
			return nil
		}

		if err := tx.Model(p).Updates(patch).Error; err != nil {
			return err
		}
		out.Status = target
		out.Changed = true

		if target == model.PaymentPaid {
			meta := map[string]any{"order_id": p.OrderID, "months": p.Months, "expiry_date": dbtime.FormatISO(*out.ExpiryDate)}
			return accountRepo.LogActivity(tx, constants.RoleAdmin, p.AdminID,
				accountModel.ActionRenewalSettled, "admin", p.AdminID, meta)
		}
		return nil
	})
	return out, err
}
