package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"callmanager_backend/internals/features/accounts/model"
)

var ErrUserLimitReached = errors.New("user limit reached")

/* ====================== ADMIN ====================== */

func CreateAdmin(ctx context.Context, db *gorm.DB, a *model.AdminModel) error {
	a.Email = NormalizeEmail(a.Email)
	return db.WithContext(ctx).Create(a).Error
}

// UpdateAdmin applies a column -> value patch and returns the fresh row.
func UpdateAdmin(ctx context.Context, db *gorm.DB, id uint, patch map[string]any) (*model.AdminModel, error) {
	if len(patch) > 0 {
		res := db.WithContext(ctx).Model(&model.AdminModel{}).Where("id = ?", id).Updates(patch)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return FindAdminByID(db.WithContext(ctx), id)
}

/* ====================== USER ====================== */

// CreateUserWithinLimit locks the owning admin row so concurrent creates
// cannot overshoot user_limit.
func CreateUserWithinLimit(ctx context.Context, db *gorm.DB, u *model.UserModel) error {
	u.Email = NormalizeEmail(u.Email)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin model.AdminModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&admin, u.AdminID).Error; err != nil {
			return err
		}
		n, err := CountUsersByAdmin(tx, admin.ID)
		if err != nil {
			return err
		}
		if n >= int64(admin.UserLimit) {
			return ErrUserLimitReached
		}
		return tx.Create(u).Error
	})
}

func UpdateUser(ctx context.Context, db *gorm.DB, id uint, patch map[string]any) (*model.UserModel, error) {
	if len(patch) > 0 {
		if err := db.WithContext(ctx).Model(&model.UserModel{}).Where("id = ?", id).Updates(patch).Error; err != nil {
			return nil, err
		}
	}
	return FindUserByID(db.WithContext(ctx), id)
}

// DeleteUser removes the user with every call and attendance row it synced.
func DeleteUser(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM call_history WHERE user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM attendance WHERE user_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.UserModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

/* ====================== DASHBOARD ====================== */

type ActivityCounts struct {
	CallRecords       int64 `json:"call_records"`
	AttendanceRecords int64 `json:"attendance_records"`
}

func TenantActivityCounts(ctx context.Context, db *gorm.DB, adminID uint) (ActivityCounts, error) {
	var out ActivityCounts
	err := db.WithContext(ctx).Raw(`SELECT
		(SELECT COUNT(*) FROM call_history ch JOIN users u ON u.id = ch.user_id WHERE u.admin_id = ?) AS call_records,
		(SELECT COUNT(*) FROM attendance a JOIN users u ON u.id = a.user_id WHERE u.admin_id = ?) AS attendance_records`,
		adminID, adminID).Scan(&out).Error
	return out, err
}
