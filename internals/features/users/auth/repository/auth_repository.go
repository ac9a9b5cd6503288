package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	authModel "callmanager_backend/internals/features/users/auth/model"
)

/* ====================== BLACKLIST TOKEN ====================== */

// BlacklistToken revokes jti until expiresAt. Logging out twice is a no-op.
func BlacklistToken(db *gorm.DB, jti string, expiresAt time.Time) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&authModel.TokenBlacklist{
		JTI:       jti,
		ExpiredAt: expiresAt.UTC(),
	}).Error
}

func IsBlacklisted(db *gorm.DB, jti string) (bool, error) {
	var exists bool
	err := db.Raw(`SELECT EXISTS(SELECT 1 FROM token_blacklist WHERE jti = ? AND deleted_at IS NULL)`, jti).
		Scan(&exists).Error
	return exists, err
}

// CleanupExpiredBlacklist hard deletes rows that expired before cutoff.
func CleanupExpiredBlacklist(db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.Exec(`DELETE FROM token_blacklist WHERE expired_at < ?`, cutoff.UTC())
	return res.RowsAffected, res.Error
}
