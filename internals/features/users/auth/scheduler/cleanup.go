package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	authRepo "callmanager_backend/internals/features/users/auth/repository"
)

// StartBlacklistCleanupScheduler purges blacklist rows once a day. Rows are
// kept ttlDays past their expiry. The loop stops with ctx.
func StartBlacklistCleanupScheduler(ctx context.Context, db *gorm.DB, ttlDays int) {
	if ttlDays <= 0 {
		ttlDays = 7
	}
	log := zap.L().Named("blacklist-cleanup")

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			cutoff := time.Now().UTC().AddDate(0, 0, -ttlDays)
			n, err := authRepo.CleanupExpiredBlacklist(db.WithContext(ctx), cutoff)
			if err != nil {
				log.Warn("cleanup failed", zap.Error(err))
			} else {
				log.Info("cleanup done", zap.Int64("deleted", n))
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
