package access_test

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/access"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func activeAdmin(id uint) *access.AdminState {
	return &access.AdminState{ID: id, IsActive: true, ExpiryDate: now.AddDate(0, 1, 0)}
}

func TestEvaluate_Unauthenticated(t *testing.T) {
	t.Parallel()

	d := access.Evaluate(nil, access.Subject{}, now)
	assert.False(t, d.Allowed)
	assert.Equal(t, fiber.StatusUnauthorized, d.Status)
	assert.Equal(t, constants.CodeUnauthenticated, d.Code)
}

func TestEvaluate_Admin(t *testing.T) {
	t.Parallel()

	p := &access.Principal{ID: 5, Role: constants.RoleAdmin}

	cases := []struct {
		name   string
		admin  *access.AdminState
		status int
		code   string
	}{
		{"active", activeAdmin(5), fiber.StatusOK, ""},
		{"missing", nil, fiber.StatusUnauthorized, constants.CodeAccountNotFound},
		{"inactive", &access.AdminState{ID: 5, ExpiryDate: now.AddDate(1, 0, 0)}, fiber.StatusForbidden, constants.CodeAccountInactive},
		{"expired", &access.AdminState{ID: 5, IsActive: true, ExpiryDate: now.Add(-time.Second)}, fiber.StatusForbidden, constants.CodeSubscriptionExpired},
		{"expires exactly now", &access.AdminState{ID: 5, IsActive: true, ExpiryDate: now}, fiber.StatusOK, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := access.Evaluate(p, access.Subject{Admin: tc.admin}, now)
			assert.Equal(t, tc.status, d.Status)
			assert.Equal(t, tc.code, d.Code)
			assert.Equal(t, tc.code == "", d.Allowed)
			if d.Allowed {
				assert.Equal(t, uint(5), d.AdminID)
			}
		})
	}
}

func TestEvaluate_ExpiredAdminAllowedByRenewalPolicy(t *testing.T) {
	t.Parallel()

	p := &access.Principal{ID: 5, Role: constants.RoleAdmin}
	s := access.Subject{Admin: &access.AdminState{ID: 5, IsActive: true, ExpiryDate: now.AddDate(0, 0, -3)}}

	assert.False(t, access.Evaluate(p, s, now).Allowed)
	assert.True(t, access.Policy{AllowExpired: true}.Evaluate(p, s, now).Allowed)

	s.Admin.IsActive = false
	assert.False(t, access.Policy{AllowExpired: true}.Evaluate(p, s, now).Allowed)
}

func TestEvaluate_UserIsGatedThroughItsAdmin(t *testing.T) {
	t.Parallel()

	p := &access.Principal{ID: 11, Role: constants.RoleUser}
	user := &access.UserState{ID: 11, AdminID: 5, IsActive: true}

	d := access.Evaluate(p, access.Subject{User: user, Admin: activeAdmin(5)}, now)
	assert.True(t, d.Allowed)
	assert.Equal(t, uint(5), d.AdminID)

	// same stored state, clock moved past the admin's expiry
	later := now.AddDate(0, 2, 0)
	d = access.Evaluate(p, access.Subject{User: user, Admin: activeAdmin(5)}, later)
	assert.False(t, d.Allowed)
	assert.Equal(t, constants.CodeSubscriptionExpired, d.Code)

	// renewal exemption never applies to users
	d = access.Policy{AllowExpired: true}.Evaluate(p, access.Subject{User: user, Admin: activeAdmin(5)}, later)
	assert.False(t, d.Allowed)

	inactive := activeAdmin(5)
	inactive.IsActive = false
	d = access.Evaluate(p, access.Subject{User: user, Admin: inactive}, now)
	assert.Equal(t, constants.CodeTenantInactive, d.Code)

	d = access.Evaluate(p, access.Subject{User: user}, now)
	assert.Equal(t, constants.CodeTenantInactive, d.Code)

	off := *user
	off.IsActive = false
	d = access.Evaluate(p, access.Subject{User: &off, Admin: activeAdmin(5)}, now)
	assert.Equal(t, constants.CodeAccountInactive, d.Code)

	d = access.Evaluate(p, access.Subject{Admin: activeAdmin(5)}, now)
	assert.Equal(t, fiber.StatusUnauthorized, d.Status)
}

func TestEvaluate_SuperAdminAndUnknownRole(t *testing.T) {
	t.Parallel()

	sa := &access.Principal{ID: 1, Role: constants.RoleSuperAdmin}
	assert.True(t, access.Evaluate(sa, access.Subject{SuperAdminFound: true}, now).Allowed)
	assert.Equal(t, constants.CodeAccountNotFound, access.Evaluate(sa, access.Subject{}, now).Code)

	d := access.Evaluate(&access.Principal{ID: 1, Role: "guest"}, access.Subject{}, now)
	assert.Equal(t, fiber.StatusForbidden, d.Status)
	assert.Equal(t, constants.CodeForbiddenRole, d.Code)
}

func TestCheckOwnership(t *testing.T) {
	t.Parallel()

	mine := &access.UserState{ID: 3, AdminID: 5, IsActive: true}
	foreign := &access.UserState{ID: 4, AdminID: 6, IsActive: true}

	assert.True(t, access.CheckOwnership(5, mine).Allowed)

	for _, target := range []*access.UserState{foreign, nil} {
		d := access.CheckOwnership(5, target)
		assert.False(t, d.Allowed)
		assert.Equal(t, fiber.StatusForbidden, d.Status, "never 404")
		assert.Equal(t, constants.CodeNotOwner, d.Code)
	}
}

func TestDecisionErr(t *testing.T) {
	t.Parallel()

	p := &access.Principal{ID: 5, Role: constants.RoleAdmin}
	expired := access.Subject{Admin: &access.AdminState{ID: 5, IsActive: true, ExpiryDate: now.AddDate(0, 0, -1)}}

	assert.ErrorIs(t, access.Evaluate(p, expired, now).Err(), access.ErrSubscriptionExpired)
	assert.ErrorIs(t, access.CheckOwnership(5, nil).Err(), access.ErrNotOwner)
	assert.NoError(t, access.Evaluate(p, access.Subject{Admin: activeAdmin(5)}, now).Err())
}
