package access

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"callmanager_backend/internals/constants"
)

// Principal is the authenticated caller as read from its token.
type Principal struct {
	ID   uint
	Role string
}

type AdminState struct {
	ID         uint
	IsActive   bool
	ExpiryDate time.Time
}

type UserState struct {
	ID       uint
	AdminID  uint
	IsActive bool
}

// Subject is the stored state the guard needs for one principal. Admin is the
// caller itself for admins and the owning admin for users.
type Subject struct {
	SuperAdminFound bool
	Admin           *AdminState
	User            *UserState
}

type Decision struct {
	Allowed bool
	Status  int
	Code    string
	Message string
	// AdminID is the tenant every downstream query must be scoped to.
	AdminID uint
}

func allow(adminID uint) Decision {
	return Decision{Allowed: true, Status: fiber.StatusOK, AdminID: adminID}
}

func deny(status int, code, msg string) Decision {
	return Decision{Status: status, Code: code, Message: msg}
}

// Policy tweaks evaluation for a route group.
type Policy struct {
	// AllowExpired lets an admin with a lapsed subscription through, so the
	// renewal endpoints stay reachable.
	AllowExpired bool
}

// Evaluate applies the default policy.
func Evaluate(p *Principal, s Subject, now time.Time) Decision {
	return Policy{}.Evaluate(p, s, now)
}

// Evaluate is a pure function of principal, stored state and clock. It is run
// on every request, so deactivation and expiry take effect immediately.
func (pol Policy) Evaluate(p *Principal, s Subject, now time.Time) Decision {
	if p == nil || p.ID == 0 {
		return deny(fiber.StatusUnauthorized, constants.CodeUnauthenticated, "authentication required")
	}

	switch p.Role {
	case constants.RoleSuperAdmin:
		if !s.SuperAdminFound {
			return deny(fiber.StatusUnauthorized, constants.CodeAccountNotFound, "account not found")
		}
		return allow(0)

	case constants.RoleAdmin:
		a := s.Admin
		if a == nil || a.ID != p.ID {
			return deny(fiber.StatusUnauthorized, constants.CodeAccountNotFound, "account not found")
		}
		if !a.IsActive {
			return deny(fiber.StatusForbidden, constants.CodeAccountInactive, "account is deactivated")
		}
		if !pol.AllowExpired && IsExpired(a.ExpiryDate, now) {
			return deny(fiber.StatusForbidden, constants.CodeSubscriptionExpired, "subscription has expired")
		}
		return allow(a.ID)

	case constants.RoleUser:
		u := s.User
		if u == nil || u.ID != p.ID {
			return deny(fiber.StatusUnauthorized, constants.CodeAccountNotFound, "account not found")
		}
		if !u.IsActive {
			return deny(fiber.StatusForbidden, constants.CodeAccountInactive, "account is deactivated")
		}
		a := s.Admin
		if a == nil || a.ID != u.AdminID || !a.IsActive {
			return deny(fiber.StatusForbidden, constants.CodeTenantInactive, "organisation account is not active")
		}
		// users never get the renewal exemption
		if IsExpired(a.ExpiryDate, now) {
			return deny(fiber.StatusForbidden, constants.CodeSubscriptionExpired, "organisation subscription has expired")
		}
		return allow(a.ID)
	}

	return deny(fiber.StatusForbidden, constants.CodeForbiddenRole, "role not permitted")
}

// CheckOwnership allows an admin to act on a user only when it owns that user.
// A missing user is reported exactly like a foreign one so ids do not leak.
func CheckOwnership(adminID uint, target *UserState) Decision {
	if adminID == 0 || target == nil || target.AdminID != adminID {
		return deny(fiber.StatusForbidden, constants.CodeNotOwner, "user does not belong to this account")
	}
	return allow(adminID)
}

var (
	ErrUnauthenticated     = errors.New("authentication required")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountInactive     = errors.New("account is deactivated")
	ErrSubscriptionExpired = errors.New("subscription has expired")
	ErrTenantInactive      = errors.New("organisation account is not active")
	ErrForbiddenRole       = errors.New("role not permitted")
	ErrNotOwner            = errors.New("user does not belong to this account")
)

var errByCode = map[string]error{
	constants.CodeUnauthenticated:     ErrUnauthenticated,
	constants.CodeAccountNotFound:     ErrAccountNotFound,
	constants.CodeAccountInactive:     ErrAccountInactive,
	constants.CodeSubscriptionExpired: ErrSubscriptionExpired,
	constants.CodeTenantInactive:      ErrTenantInactive,
	constants.CodeForbiddenRole:       ErrForbiddenRole,
	constants.CodeNotOwner:            ErrNotOwner,
}

// Err returns the sentinel for a denial, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if err, ok := errByCode[d.Code]; ok {
		return err
	}
	return ErrForbiddenRole
}

func IsExpired(expiry, now time.Time) bool {
	return now.After(expiry)
}
