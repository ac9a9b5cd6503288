package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"callmanager_backend/internals/features/accounts/model"
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

/* ====================== SUPER ADMIN ====================== */

func FindSuperAdminByEmail(db *gorm.DB, email string) (*model.SuperAdminModel, error) {
	var sa model.SuperAdminModel
	if err := db.Where("email = ?", NormalizeEmail(email)).First(&sa).Error; err != nil {
		return nil, err
	}
	return &sa, nil
}

func SuperAdminExists(db *gorm.DB, id uint) (bool, error) {
	var n int64
	err := db.Model(&model.SuperAdminModel{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func CountSuperAdmins(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&model.SuperAdminModel{}).Count(&n).Error
	return n, err
}

/* ====================== ADMIN ====================== */

func FindAdminByEmail(db *gorm.DB, email string) (*model.AdminModel, error) {
	var a model.AdminModel
	if err := db.Where("email = ?", NormalizeEmail(email)).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func FindAdminByID(db *gorm.DB, id uint) (*model.AdminModel, error) {
	var a model.AdminModel
	if err := db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

type AdminWithCount struct {
	model.AdminModel
	UserCount int64 `gorm:"column:user_count"`
}

func ListAdminsWithUserCount(db *gorm.DB) ([]AdminWithCount, error) {
	var rows []AdminWithCount
	err := db.Table("admins a").
		Select("a.*, COUNT(u.id) AS user_count").
		Joins("LEFT JOIN users u ON u.admin_id = a.id").
		Group("a.id").
		Order("a.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

/* ====================== USER ====================== */

func FindUserByEmail(db *gorm.DB, email string) (*model.UserModel, error) {
	var u model.UserModel
	if err := db.Where("email = ?", NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func FindUserByID(db *gorm.DB, id uint) (*model.UserModel, error) {
	var u model.UserModel
	if err := db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func CountUsersByAdmin(db *gorm.DB, adminID uint) (int64, error) {
	var n int64
	err := db.Model(&model.UserModel{}).Where("admin_id = ?", adminID).Count(&n).Error
	return n, err
}

func CountActiveUsersByAdmin(db *gorm.DB, adminID uint) (int64, error) {
	var n int64
	err := db.Model(&model.UserModel{}).Where("admin_id = ? AND is_active", adminID).Count(&n).Error
	return n, err
}

func ListUsersByAdmin(db *gorm.DB, adminID uint, orderClause string, limit, offset int) ([]model.UserModel, int64, error) {
	q := db.Model(&model.UserModel{}).Where("admin_id = ?", adminID)
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []model.UserModel
	err := q.Order(orderClause).Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error
	return users, total, err
}

// EmailTaken checks every account table; one address identifies one login.
func EmailTaken(db *gorm.DB, email string) (bool, error) {
	email = NormalizeEmail(email)
	var n int64
	err := db.Raw(`SELECT
		(SELECT COUNT(*) FROM super_admins WHERE email = ?) +
		(SELECT COUNT(*) FROM admins WHERE email = ?) +
		(SELECT COUNT(*) FROM users WHERE email = ?)`, email, email, email).Scan(&n).Error
	return n > 0, err
}

func TouchLastLogin(db *gorm.DB, table string, id uint, at time.Time) error {
	return db.Table(table).Where("id = ?", id).Update("last_login", at).Error
}

/* ====================== DASHBOARD ====================== */

type SystemStats struct {
	TotalAdmins   int64 `json:"total_admins"`
	ActiveAdmins  int64 `json:"active_admins"`
	ExpiredAdmins int64 `json:"expired_admins"`
	TotalUsers    int64 `json:"total_users"`
	TotalCalls    int64 `json:"total_calls"`
	TotalAttend   int64 `json:"total_attendance"`
}

func LoadSystemStats(ctx context.Context, db *gorm.DB, now time.Time) (SystemStats, error) {
	var s SystemStats
	err := db.WithContext(ctx).Raw(`SELECT
		(SELECT COUNT(*) FROM admins) AS total_admins,
		(SELECT COUNT(*) FROM admins WHERE is_active AND expiry_date >= ?) AS active_admins,
		(SELECT COUNT(*) FROM admins WHERE expiry_date < ?) AS expired_admins,
		(SELECT COUNT(*) FROM users) AS total_users,
		(SELECT COUNT(*) FROM call_history) AS total_calls,
		(SELECT COUNT(*) FROM attendance) AS total_attend`, now, now).Scan(&s).Error
	return s, err
}
