package access

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/accounts/model"
	"callmanager_backend/internals/features/accounts/repository"
)

// Resolver loads the stored state for a principal.
type Resolver interface {
	Resolve(ctx context.Context, p Principal) (Subject, error)
}

type GormResolver struct {
	DB *gorm.DB
}

func NewGormResolver(db *gorm.DB) *GormResolver {
	return &GormResolver{DB: db}
}

func (r *GormResolver) Resolve(ctx context.Context, p Principal) (Subject, error) {
	db := r.DB.WithContext(ctx)
	var s Subject

	switch p.Role {
	case constants.RoleSuperAdmin:
		found, err := repository.SuperAdminExists(db, p.ID)
		if err != nil {
			return s, err
		}
		s.SuperAdminFound = found

	case constants.RoleAdmin:
		a, err := repository.FindAdminByID(db, p.ID)
		if err != nil {
			return s, notFoundIsEmpty(err)
		}
		s.Admin = AdminStateOf(a)

	case constants.RoleUser:
		u, err := repository.FindUserByID(db, p.ID)
		if err != nil {
			return s, notFoundIsEmpty(err)
		}
		s.User = UserStateOf(u)
		a, err := repository.FindAdminByID(db, u.AdminID)
		if err != nil {
			return s, notFoundIsEmpty(err)
		}
		s.Admin = AdminStateOf(a)
	}
	return s, nil
}

// OwnedUser loads userID and checks it belongs to adminID. The user is only
// returned when the decision allows.
func OwnedUser(ctx context.Context, db *gorm.DB, adminID, userID uint) (*model.UserModel, Decision, error) {
	u, err := repository.FindUserByID(db.WithContext(ctx), userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Decision{}, err
	}
	d := CheckOwnership(adminID, UserStateOf(u))
	if !d.Allowed {
		return nil, d, nil
	}
	return u, d, nil
}

func AdminStateOf(a *model.AdminModel) *AdminState {
	if a == nil {
		return nil
	}
	return &AdminState{ID: a.ID, IsActive: a.IsActive, ExpiryDate: a.ExpiryDate}
}

func UserStateOf(u *model.UserModel) *UserState {
	if u == nil {
		return nil
	}
	return &UserState{ID: u.ID, AdminID: u.AdminID, IsActive: u.IsActive}
}

func notFoundIsEmpty(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
