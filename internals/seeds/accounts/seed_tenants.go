package accounts

import (
	"os"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/accounts/model"
	"callmanager_backend/internals/features/accounts/repository"
	"callmanager_backend/internals/features/users/auth/service"
)

type userSeed struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tenantSeed struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	UserLimit int        `json:"user_limit"`
	ValidDays int        `json:"valid_days"`
	Users     []userSeed `json:"users"`
}

// SeedTenantsFromJSON loads demo admins with their users. Accounts whose
// email is already registered are skipped.
func SeedTenantsFromJSON(db *gorm.DB, filePath string) {
	log := zap.L().Named("seed")

	raw, err := os.ReadFile(filePath)
	if err != nil {
		log.Warn("read tenant seed file failed", zap.String("file", filePath), zap.Error(err))
		return
	}
	var seeds []tenantSeed
	if err := sonic.Unmarshal(raw, &seeds); err != nil {
		log.Warn("decode tenant seed file failed", zap.String("file", filePath), zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, t := range seeds {
		if taken, err := repository.EmailTaken(db, t.Email); err != nil || taken {
			log.Info("tenant seed skipped", zap.String("email", t.Email))
			continue
		}
		hash, err := service.HashPassword(t.Password)
		if err != nil {
			log.Warn("hash seed password failed", zap.String("email", t.Email), zap.Error(err))
			continue
		}
		limit := t.UserLimit
		if limit <= 0 {
			limit = model.DefaultUserLimit
		}
		days := t.ValidDays
		if days <= 0 {
			days = 30
		}
		admin := model.AdminModel{
			Name:         t.Name,
			Email:        repository.NormalizeEmail(t.Email),
			PasswordHash: hash,
			UserLimit:    limit,
			ExpiryDate:   now.AddDate(0, 0, days),
			IsActive:     true,
		}
		if err := db.Create(&admin).Error; err != nil {
			log.Warn("create seed admin failed", zap.String("email", t.Email), zap.Error(err))
			continue
		}

		created := 0
		for _, u := range t.Users {
			if created >= limit {
				break
			}
			if taken, err := repository.EmailTaken(db, u.Email); err != nil || taken {
				continue
			}
			uh, err := service.HashPassword(u.Password)
			if err != nil {
				continue
			}
			user := model.UserModel{
				Name:         u.Name,
				Email:        repository.NormalizeEmail(u.Email),
				PasswordHash: uh,
				AdminID:      admin.ID,
				IsActive:     true,
			}
			if err := db.Create(&user).Error; err != nil {
				log.Warn("create seed user failed", zap.String("email", u.Email), zap.Error(err))
				continue
			}
			created++
		}
		log.Info("tenant seeded", zap.String("email", admin.Email), zap.Int("users", created))
	}
}
