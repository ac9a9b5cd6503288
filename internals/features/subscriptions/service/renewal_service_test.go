package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"callmanager_backend/internals/features/subscriptions/dto"
	"callmanager_backend/internals/features/subscriptions/model"
	"callmanager_backend/internals/features/subscriptions/service"
)

const serverKey = "SB-Mid-server-test"

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	n := dto.Notification{OrderID: "SUB-3-1700000000-ab12cd34", StatusCode: "200", GrossAmount: "150000.00"}
	n.SignatureKey = service.Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)

	assert.Len(t, n.SignatureKey, 128)
	assert.True(t, service.VerifySignature(n, serverKey))
	assert.False(t, service.VerifySignature(n, "other-key"))
	assert.False(t, service.VerifySignature(n, ""))

	tampered := n
	tampered.GrossAmount = "1.00"
	assert.False(t, service.VerifySignature(tampered, serverKey))

	unsigned := n
	unsigned.SignatureKey = ""
	assert.False(t, service.VerifySignature(unsigned, serverKey))
}

func TestTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status, fraud string
		want          model.PaymentStatus
		ok            bool
	}{
		{"settlement", "", model.PaymentPaid, true},
		{"capture", "accept", model.PaymentPaid, true},
		{"capture", "challenge", "", false},
		{"capture", "deny", model.PaymentFailed, true},
		{"expire", "", model.PaymentFailed, true},
		{"cancel", "", model.PaymentFailed, true},
		{"deny", "", model.PaymentFailed, true},
		{"pending", "", "", false},
		{"refund", "", "", false},
	}
	for _, tc := range cases {
		got, ok := service.Transition(tc.status, tc.fraud)
		assert.Equal(t, tc.want, got, tc.status+"/"+tc.fraud)
		assert.Equal(t, tc.ok, ok, tc.status+"/"+tc.fraud)
	}
}

func TestExtendExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	active := time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 7, 30, 23, 59, 59, 0, time.UTC), service.ExtendExpiry(active, now, 3))

	lapsed := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC), service.ExtendExpiry(lapsed, now, 1))
}
