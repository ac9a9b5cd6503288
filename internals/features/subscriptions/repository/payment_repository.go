package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	accountModel "callmanager_backend/internals/features/accounts/model"
	"callmanager_backend/internals/features/subscriptions/model"
)

func CreatePayment(ctx context.Context, db *gorm.DB, p *model.SubscriptionPaymentModel) error {
	return db.WithContext(ctx).Create(p).Error
}

func UpdatePayment(ctx context.Context, db *gorm.DB, id uint, patch map[string]any) error {
	return db.WithContext(ctx).Model(&model.SubscriptionPaymentModel{}).Where("id = ?", id).Updates(patch).Error
}

// LockPaymentByOrder reads the payment row FOR UPDATE inside tx.
func LockPaymentByOrder(tx *gorm.DB, orderID string) (*model.SubscriptionPaymentModel, error) {
	var p model.SubscriptionPaymentModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func LockAdmin(tx *gorm.DB, adminID uint) (*accountModel.AdminModel, error) {
	var a accountModel.AdminModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, adminID).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func ListPaymentsByAdmin(ctx context.Context, db *gorm.DB, adminID uint, limit int) ([]model.SubscriptionPaymentModel, error) {
	var rows []model.SubscriptionPaymentModel
	err := db.WithContext(ctx).
		Where("admin_id = ?", adminID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
