package seeds

import (
	"gorm.io/gorm"

	"callmanager_backend/internals/configs"
	accounts "callmanager_backend/internals/seeds/accounts"
)

func RunAllSeeds(db *gorm.DB) {

	//* Accounts
	accounts.SeedSuperAdmin(db, configs.App.SuperAdminName, configs.App.SuperAdminEmail, configs.App.SuperAdminPass)

	if path := configs.GetEnv("SEED_TENANTS_FILE"); path != "" {
		accounts.SeedTenantsFromJSON(db, path)
	}
}
