package models

import (
	"bytes"
	"context"
	"io"
	"mime"
	"path/filepath"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/utils"
)

// Document holds non-image attachments of an incoming record, such as
// invoices and datasheets.
type Document struct {
	ID            int    `gorm:"primary_key" json:"document_id"`
	DocumentUrl   string `json:"document_url"`
	FileName      string `gorm:"size:255" json:"file_name"`
	ReferenceType string `gorm:"size:50;index" json:"reference_type"`
	ReferenceID   int    `gorm:"index" json:"reference_id"`
}

func UploadDocument(ctx context.Context, referenceType string, referenceId int,
	filename string, r io.Reader) (*Document, error) {

	ext := filepath.Ext(filename)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectName := "documents/" + utils.GenerateUniqueFilename() + ext

	var documentUrl string
	var err error
	if utils.GetStorageProvider() == utils.StorageProviderDisk {
		data, readErr := io.ReadAll(r)
		if readErr != nil {
			return nil, readErr
		}
		documentUrl, err = utils.SaveToDisk(objectName, bytes.NewReader(data))
	} else {
		documentUrl, err = utils.UploadToGCS(ctx, objectName, contentType, r)
	}
	if err != nil {
		return nil, err
	}

	document := Document{
		DocumentUrl:   documentUrl,
		FileName:      filename,
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&document).Error; err != nil {
		return nil, err
	}
	return &document, nil
}

func GetDocument(ctx context.Context, id int) (*Document, error) {
	db := config.GetDB()
	var result Document
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetDocumentsByReference(ctx context.Context, referenceType string, referenceId int) ([]*Document, error) {
	db := config.GetDB()
	var results []*Document
	err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteDocument(ctx context.Context, id int) (*Document, error) {
	document, err := GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(document).Error; err != nil {
		return nil, err
	}

	if utils.GetStorageProvider() != utils.StorageProviderDisk {
		if objectName := extractObjectName(document.DocumentUrl); objectName != "" {
			if err := utils.DeleteFromGCS(ctx, objectName); err != nil {
				config.LogWarn(config.GetLogger(), "models", "DeleteDocument", "orphaned object "+objectName, err)
			}
		}
	}
	return document, nil
}
