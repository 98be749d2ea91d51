package models

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/utils"
)

// Image rows back two screens: lot photos attached to incoming records and
// warehouse map images that MapSpot markers hang off.
type Image struct {
	ID            int    `gorm:"primary_key" json:"image_id"`
	ImageUrl      string `json:"image_url"`
	ThumbnailUrl  string `json:"thumbnail_url"`
	ReferenceType string `gorm:"size:50;index" json:"reference_type"`
	ReferenceID   int    `gorm:"index" json:"reference_id"`
}

type UploadResponse struct {
	ImageUrl     string `json:"image_url"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

const (
	ImageRefIncoming = "part_incomings"
	ImageRefMap      = "warehouse_maps"
)

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UploadImage stores the original plus a generated thumbnail and records the
// pair against its owning entity.
func UploadImage(ctx context.Context, referenceType string, referenceId int,
	filename string, r io.Reader) (*Image, error) {

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		return nil, errors.New("unsupported image type")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	thumbData, err := utils.MakeThumbnail(data)
	if err != nil {
		return nil, err
	}

	base := utils.GenerateUniqueFilename()
	originalName := "images/" + base + ext
	thumbName := "images/thumb_" + base + ".jpg"

	var imageUrl, thumbUrl string
	if utils.GetStorageProvider() == utils.StorageProviderDisk {
		if imageUrl, err = utils.SaveToDisk(originalName, bytes.NewReader(data)); err != nil {
			return nil, err
		}
		if thumbUrl, err = utils.SaveToDisk(thumbName, bytes.NewReader(thumbData)); err != nil {
			return nil, err
		}
	} else {
		if imageUrl, err = utils.UploadToGCS(ctx, originalName, contentType, bytes.NewReader(data)); err != nil {
			return nil, err
		}
		if thumbUrl, err = utils.UploadToGCS(ctx, thumbName, "image/jpeg", bytes.NewReader(thumbData)); err != nil {
			return nil, err
		}
	}

	image := Image{
		ImageUrl:      imageUrl,
		ThumbnailUrl:  thumbUrl,
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func GetImage(ctx context.Context, id int) (*Image, error) {
	db := config.GetDB()
	var result Image
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetImagesByReference(ctx context.Context, referenceType string, referenceId int) ([]*Image, error) {
	db := config.GetDB()
	var results []*Image
	err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func extractObjectName(fullUrl string) string {
	idx := strings.Index(fullUrl, "images/")
	if idx < 0 {
		idx = strings.Index(fullUrl, "documents/")
	}
	if idx < 0 {
		return ""
	}
	return fullUrl[idx:]
}

// DeleteImage removes the row first; file cleanup failures are logged but do
// not resurrect the record.
func DeleteImage(ctx context.Context, id int) (*Image, error) {
	image, err := GetImage(ctx, id)
	if err != nil {
		return nil, err
	}

	// map images keep their spot markers from dangling
	var spotCount int64
	db := config.GetDB()
	if image.ReferenceType == ImageRefMap {
		if err := db.WithContext(ctx).Model(&MapSpot{}).
			Where("image_id = ?", id).Count(&spotCount).Error; err != nil {
			return nil, err
		}
		if spotCount > 0 {
			return nil, errors.New("map image has spots, remove them first")
		}
	}

	if err := db.WithContext(ctx).Delete(image).Error; err != nil {
		return nil, err
	}

	if utils.GetStorageProvider() != utils.StorageProviderDisk {
		for _, url := range []string{image.ImageUrl, image.ThumbnailUrl} {
			if objectName := extractObjectName(url); objectName != "" {
				if err := utils.DeleteFromGCS(ctx, objectName); err != nil {
					config.LogWarn(config.GetLogger(), "models", "DeleteImage", "orphaned object "+objectName, err)
				}
			}
		}
	}
	return image, nil
}
