package repository

import (
	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/accounts/model"
)

// LogActivity appends an audit row. meta may be nil.
func LogActivity(db *gorm.DB, actorRole string, actorID uint, action, targetType string, targetID uint, meta map[string]any) error {
	row := model.ActivityLogModel{
		ActorRole: actorRole,
		ActorID:   actorID,
		Action:    action,
	}
	if targetType != "" {
		row.TargetType = &targetType
		row.TargetID = &targetID
	}
	if len(meta) > 0 {
		raw, err := sonic.Marshal(meta)
		if err != nil {
			return err
		}
		row.Metadata = datatypes.JSON(raw)
	}
	return db.Create(&row).Error
}

func ListRecentActivity(db *gorm.DB, limit int) ([]model.ActivityLogModel, error) {
	var rows []model.ActivityLogModel
	err := db.Order(`"timestamp" DESC`).Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
