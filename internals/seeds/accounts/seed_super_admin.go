package accounts

import (
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/accounts/model"
	"callmanager_backend/internals/features/accounts/repository"
	"callmanager_backend/internals/features/users/auth/service"
)

// SeedSuperAdmin creates the first super admin when the table is empty.
// Nothing happens once any super admin exists or when no password is given.
func SeedSuperAdmin(db *gorm.DB, name, email, password string) {
	log := zap.L().Named("seed")
	if strings.TrimSpace(password) == "" {
		return
	}

	n, err := repository.CountSuperAdmins(db)
	if err != nil {
		log.Error("count super admins failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Debug("super admin already present, skipped")
		return
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		log.Error("hash super admin password failed", zap.Error(err))
		return
	}
	sa := model.SuperAdminModel{
		Name:         name,
		Email:        repository.NormalizeEmail(email),
		PasswordHash: hash,
	}
	if err := db.Create(&sa).Error; err != nil {
		log.Error("create super admin failed", zap.Error(err))
		return
	}
	log.Info("super admin created", zap.String("email", sa.Email))
}
