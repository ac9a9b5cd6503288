package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountModel "callmanager_backend/internals/features/accounts/model"
	subscriptionModel "callmanager_backend/internals/features/subscriptions/model"
	attendanceModel "callmanager_backend/internals/features/sync/attendance/model"
	callHistoryModel "callmanager_backend/internals/features/sync/call_history/model"
	authModel "callmanager_backend/internals/features/users/auth/model"
)

// AutoMigrate creates or widens every table. Parents come before children so
// foreign keys resolve: users cascade with their admin, call_history and
// attendance rows with their user.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&accountModel.SuperAdminModel{},
		&accountModel.AdminModel{},
		&accountModel.UserModel{},
		&accountModel.ActivityLogModel{},
		&callHistoryModel.CallHistoryModel{},
		&attendanceModel.AttendanceModel{},
		&authModel.TokenBlacklist{},
		&subscriptionModel.SubscriptionPaymentModel{},
	)
	if err != nil {
		return err
	}
	zap.L().Info("schema migrated")
	return nil
}
