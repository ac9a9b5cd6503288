package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"callmanager_backend/internals/features/sync/call_history/model"
	"callmanager_backend/internals/features/sync/dedup"
	"callmanager_backend/internals/features/sync/pipeline"
)

/* ====================== SYNC ====================== */

type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// SyncTx is the transaction one call log batch runs in.
type SyncTx struct {
	pipeline.GormTx
}

func (s *Store) Begin(ctx context.Context) (*SyncTx, error) {
	tx, err := pipeline.BeginGorm(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	return &SyncTx{GormTx: tx}, nil
}

// CallExists looks the natural key up, including rows written earlier in
// this transaction.
func (t *SyncTx) CallExists(key dedup.CallKey) (bool, error) {
	var n int64
	err := t.DB.Model(&model.CallHistoryModel{}).
		Where("user_id = ? AND phone_number = ? AND call_type = ? AND duration = ? AND call_date = ?",
			key.UserID, key.PhoneNumber, string(key.CallType), key.Duration, key.Day).
		Count(&n).Error
	return n > 0, err
}

func (t *SyncTx) InsertCall(rec *model.CallHistoryModel) error {
	return pipeline.TranslateDuplicate(t.DB.Create(rec).Error)
}

/* ====================== QUERIES ====================== */

// Filter narrows the listings. Zero values mean "no filter".
type Filter struct {
	Since    time.Time
	CallType *model.CallType
	UserID   *uint
}

func (f Filter) apply(q *gorm.DB, prefix string) *gorm.DB {
	if !f.Since.IsZero() {
		q = q.Where(prefix+`"timestamp" >= ?`, f.Since)
	}
	if f.CallType != nil {
		q = q.Where(prefix+"call_type = ?", string(*f.CallType))
	}
	if f.UserID != nil {
		q = q.Where(prefix+"user_id = ?", *f.UserID)
	}
	return q
}

// ListForUser returns one user's calls, newest first.
func ListForUser(ctx context.Context, db *gorm.DB, userID uint, f Filter, limit, offset int) ([]model.CallHistoryModel, int64, error) {
	q := f.apply(db.WithContext(ctx).Model(&model.CallHistoryModel{}).Where("user_id = ?", userID), "")

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []model.CallHistoryModel
	err := q.Order(`"timestamp" DESC, id DESC`).Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

type TenantRow struct {
	model.CallHistoryModel
	UserName string `gorm:"column:user_name"`
}

// ListForTenant returns calls of every user owned by adminID, newest first.
func ListForTenant(ctx context.Context, db *gorm.DB, adminID uint, f Filter, limit, offset int) ([]TenantRow, int64, error) {
	base := db.WithContext(ctx).
		Table("call_history ch").
		Joins("JOIN users u ON u.id = ch.user_id").
		Where("u.admin_id = ?", adminID)
	base = f.apply(base, "ch.")

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []TenantRow
	err := base.Select("ch.*, u.name AS user_name").
		Order(`ch."timestamp" DESC, ch.id DESC`).
		Limit(limit).Offset(offset).
		Scan(&rows).Error
	return rows, total, err
}

// TotalsForUser returns the call count and summed duration inside the filter.
func TotalsForUser(ctx context.Context, db *gorm.DB, userID uint, f Filter) (int64, int64, error) {
	var out struct {
		Calls    int64
		Duration int64
	}
	q := f.apply(db.WithContext(ctx).Model(&model.CallHistoryModel{}).Where("user_id = ?", userID), "")
	err := q.Select("COUNT(*) AS calls, COALESCE(SUM(duration), 0) AS duration").Scan(&out).Error
	return out.Calls, out.Duration, err
}

func CountForUser(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&model.CallHistoryModel{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
