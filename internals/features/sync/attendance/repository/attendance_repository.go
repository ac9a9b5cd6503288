package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"callmanager_backend/internals/features/sync/attendance/model"
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

// SyncTx is the transaction one attendance batch runs in.
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

// FindByKey returns the record stored under the natural key, nil when none.
func (t *SyncTx) FindByKey(key dedup.AttendanceKey) (*model.AttendanceModel, error) {
	var row model.AttendanceModel
	err := t.DB.Where("user_id = ? AND check_in = ?", key.UserID, key.CheckIn).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// IDTaken reports whether a client supplied id is already used by any row.
func (t *SyncTx) IDTaken(id string) (bool, error) {
	var n int64
	err := t.DB.Model(&model.AttendanceModel{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (t *SyncTx) Insert(rec *model.AttendanceModel) error {
	return pipeline.TranslateDuplicate(t.DB.Create(rec).Error)
}

// Update writes the mergeable columns of rec back.
func (t *SyncTx) Update(rec *model.AttendanceModel) error {
	return t.DB.Model(&model.AttendanceModel{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"check_out":      rec.CheckOut,
			"latitude":       rec.Latitude,
			"longitude":      rec.Longitude,
			"address":        rec.Address,
			"image_path":     rec.ImagePath,
			"status":         string(rec.Status),
			"synced":         rec.Synced,
			"sync_timestamp": rec.SyncTimestamp,
			"updated_at":     time.Now(),
		}).Error
}

/* ====================== QUERIES ====================== */

type Filter struct {
	Since  time.Time
	Status *model.AttendanceStatus
	UserID *uint
}

func (f Filter) apply(q *gorm.DB, prefix string) *gorm.DB {
	if !f.Since.IsZero() {
		q = q.Where(prefix+"check_in >= ?", f.Since)
	}
	if f.Status != nil {
		q = q.Where(prefix+"status = ?", string(*f.Status))
	}
	if f.UserID != nil {
		q = q.Where(prefix+"user_id = ?", *f.UserID)
	}
	return q
}

// ListForUser returns one user's attendance, newest check-in first.
func ListForUser(ctx context.Context, db *gorm.DB, userID uint, f Filter, limit, offset int) ([]model.AttendanceModel, int64, error) {
	q := f.apply(db.WithContext(ctx).Model(&model.AttendanceModel{}).Where("user_id = ?", userID), "")

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []model.AttendanceModel
	err := q.Order("check_in DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

type TenantRow struct {
	model.AttendanceModel
	UserName string `gorm:"column:user_name"`
}

func ListForTenant(ctx context.Context, db *gorm.DB, adminID uint, f Filter, limit, offset int) ([]TenantRow, int64, error) {
	base := db.WithContext(ctx).
		Table("attendance a").
		Joins("JOIN users u ON u.id = a.user_id").
		Where("u.admin_id = ?", adminID)
	base = f.apply(base, "a.")

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []TenantRow
	err := base.Select("a.*, u.name AS user_name").
		Order("a.check_in DESC, a.id DESC").
		Limit(limit).Offset(offset).
		Scan(&rows).Error
	return rows, total, err
}

func CountForUser(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&model.AttendanceModel{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

