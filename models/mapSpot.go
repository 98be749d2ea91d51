package models

import (
	"context"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"github.com/sirupsen/logrus"
)

// MapSpot is a clickable marker on a warehouse map image. The editor works on
// a whole image at a time and submits its changes as one sync request.
type MapSpot struct {
	ID          int       `gorm:"primary_key" json:"spot_id"`
	ImageId     int       `gorm:"index;not null" json:"image_id"`
	SpotName    string    `gorm:"size:100" json:"spot_name"`
	PosX        int       `json:"pos_x"`
	PosY        int       `json:"pos_y"`
	Radius      int       `json:"radius"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewMapSpot struct {
	ID          int    `json:"spot_id"`
	ImageId     int    `json:"image_id" binding:"required"`
	SpotName    string `json:"spot_name"`
	PosX        int    `json:"pos_x"`
	PosY        int    `json:"pos_y"`
	Radius      int    `json:"radius"`
	Description string `json:"description"`
}

type MapSpotSyncRequest struct {
	ToDelete []int         `json:"to_delete"`
	ToUpdate []*NewMapSpot `json:"to_update"`
	ToInsert []*NewMapSpot `json:"to_insert"`
}

func GetMapSpotsByImageId(ctx context.Context, imageId int) ([]*MapSpot, error) {
	db := config.GetDB()
	var results []*MapSpot
	err := db.WithContext(ctx).Where("image_id = ?", imageId).
		Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// SyncMapSpots applies an editor batch atomically: deletes, then updates,
// then inserts.
func SyncMapSpots(ctx context.Context, request *MapSpotSyncRequest) error {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Error; err != nil {
		return err
	}

	deleted := 0
	if len(request.ToDelete) > 0 {
		result := tx.Where("id IN ?", request.ToDelete).Delete(&MapSpot{})
		if result.Error != nil {
			tx.Rollback()
			return result.Error
		}
		deleted = int(result.RowsAffected)
	}

	updated := 0
	for _, input := range request.ToUpdate {
		result := tx.Model(&MapSpot{}).Where("id = ?", input.ID).
			Updates(map[string]interface{}{
				"SpotName":    input.SpotName,
				"PosX":        input.PosX,
				"PosY":        input.PosY,
				"Radius":      input.Radius,
				"Description": input.Description,
			})
		if result.Error != nil {
			tx.Rollback()
			return result.Error
		}
		updated += int(result.RowsAffected)
	}

	inserted := 0
	for _, input := range request.ToInsert {
		spot := MapSpot{
			ImageId:     input.ImageId,
			SpotName:    input.SpotName,
			PosX:        input.PosX,
			PosY:        input.PosY,
			Radius:      input.Radius,
			Description: input.Description,
		}
		if err := tx.Create(&spot).Error; err != nil {
			tx.Rollback()
			return err
		}
		inserted++
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	config.GetLogger().WithFields(logrus.Fields{
		"module":   "models",
		"funcName": "SyncMapSpots",
		"deleted":  deleted,
		"updated":  updated,
		"inserted": inserted,
	}).Info("map spots synced")
	return nil
}
