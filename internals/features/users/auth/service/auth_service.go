package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/access"
	accountRepo "callmanager_backend/internals/features/accounts/repository"
	authRepo "callmanager_backend/internals/features/users/auth/repository"
	"callmanager_backend/internals/helpers/dbtime"
)

// DeniedError is a login refused by the access policy after the password
// matched (inactive account, expired subscription).
type DeniedError struct {
	Decision access.Decision
}

func (e *DeniedError) Error() string { return e.Decision.Message }
func (e *DeniedError) Unwrap() error { return e.Decision.Err() }

type LoginUser struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	AdminID    *uint   `json:"admin_id,omitempty"`
	ExpiryDate *string `json:"expiry_date,omitempty"`
}

type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   string    `json:"expires_at"`
	User        LoginUser `json:"user"`
}

// TokenConfig is the signing side of login.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// candidate is one account as login sees it, whatever its table.
type candidate struct {
	user    LoginUser
	hash    string
	table   string
	subject access.Subject
}

// Login checks credentials for role, applies the access policy and issues an
// access token. Unknown email and wrong password are indistinguishable.
func Login(ctx context.Context, db *gorm.DB, tc TokenConfig, role, email, password string, now time.Time) (*LoginResult, error) {
	db = db.WithContext(ctx)

	cand, err := loadCandidate(db, role, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// burn comparable time so unknown emails do not answer faster
		_ = CheckPassword(dummyHash(), password)
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(cand.hash, password); err != nil {
		return nil, err
	}

	d := access.Evaluate(&access.Principal{ID: cand.user.ID, Role: role}, cand.subject, now)
	if !d.Allowed {
		return nil, &DeniedError{Decision: d}
	}

	if err := accountRepo.TouchLastLogin(db, cand.table, cand.user.ID, now); err != nil {
		return nil, err
	}

	tok, err := IssueAccessToken(tc.Secret, cand.user.ID, role, tc.TTL, now)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		ExpiresAt:   dbtime.FormatISO(tok.ExpiresAt),
		User:        cand.user,
	}, nil
}

func loadCandidate(db *gorm.DB, role, email string) (*candidate, error) {
	switch role {
	case constants.RoleSuperAdmin:
		sa, err := accountRepo.FindSuperAdminByEmail(db, email)
		if err != nil {
			return nil, err
		}
		return &candidate{
			user:    LoginUser{ID: sa.ID, Name: sa.Name, Email: sa.Email, Role: role},
			hash:    sa.PasswordHash,
			table:   "super_admins",
			subject: access.Subject{SuperAdminFound: true},
		}, nil

	case constants.RoleAdmin:
		a, err := accountRepo.FindAdminByEmail(db, email)
		if err != nil {
			return nil, err
		}
		exp := a.ExpiryDate.UTC().Format("2006-01-02")
		return &candidate{
			user:    LoginUser{ID: a.ID, Name: a.Name, Email: a.Email, Role: role, ExpiryDate: &exp},
			hash:    a.PasswordHash,
			table:   "admins",
			subject: access.Subject{Admin: access.AdminStateOf(a)},
		}, nil

	case constants.RoleUser:
		u, err := accountRepo.FindUserByEmail(db, email)
		if err != nil {
			return nil, err
		}
		c := &candidate{
			user:    LoginUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: role, AdminID: &u.AdminID},
			hash:    u.PasswordHash,
			table:   "users",
			subject: access.Subject{User: access.UserStateOf(u)},
		}
		a, err := accountRepo.FindAdminByID(db, u.AdminID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		c.subject.Admin = access.AdminStateOf(a)
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// Logout revokes the token's jti until it expires.
func Logout(ctx context.Context, db *gorm.DB, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	return authRepo.BlacklistToken(db.WithContext(ctx), jti, expiresAt)
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword(uuid.NewString())
	return h
})
