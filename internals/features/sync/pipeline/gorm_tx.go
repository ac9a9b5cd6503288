package pipeline

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// GormTx implements Tx on a gorm transaction. Kind specific stores embed it.
type GormTx struct {
	DB *gorm.DB
}

func BeginGorm(ctx context.Context, db *gorm.DB) (GormTx, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return GormTx{}, tx.Error
	}
	return GormTx{DB: tx}, nil
}

func (t GormTx) Savepoint(name string) error  { return t.DB.SavePoint(name).Error }
func (t GormTx) RollbackTo(name string) error { return t.DB.RollbackTo(name).Error }
func (t GormTx) Commit() error                { return t.DB.Commit().Error }
func (t GormTx) Rollback() error              { return t.DB.Rollback().Error }

func (t GormTx) TouchLastSync(userID uint, at time.Time) error {
	res := t.DB.Table("users").Where("id = ?", userID).Update("last_sync", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("user not found")
	}
	return nil
}

// TranslateDuplicate turns a unique violation into ErrDuplicateKey.
// Needs gorm.Config.TranslateError.
func TranslateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}
