package models

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/utils"
)

// DocumentTemplate stores print-layout configuration for generated documents:
// a background image plus the table area and fixed text blocks placed on it.
//
// It only affects rendering on the client side, never the inventory ledger.
// TableConfig and FixedTexts are stored as JSON text; the API validates that
// they parse, nothing more.
type DocumentTemplate struct {
	ID                int       `gorm:"primary_key" json:"template_id"`
	TemplateName      string    `gorm:"size:150;not null" json:"template_name"`
	BackgroundImageId int       `gorm:"index" json:"background_image_id"`
	TableConfig       string    `gorm:"type:longtext" json:"table_config"`
	FixedTexts        string    `gorm:"type:longtext" json:"fixed_texts"`
	CreatedBy         string    `gorm:"size:50" json:"created_by"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDocumentTemplate struct {
	TemplateName      string `json:"template_name" binding:"required"`
	BackgroundImageId int    `json:"background_image_id"`
	TableConfig       string `json:"table_config"`
	FixedTexts        string `json:"fixed_texts"`
	CreatedBy         string `json:"created_by"`
}

// GeneratedDocument is a document produced from a template: the template
// reference plus the table rows the user filled in. TemplateName is joined in
// for list screens and never stored.
type GeneratedDocument struct {
	ID           int       `gorm:"primary_key" json:"document_id"`
	TemplateId   int       `gorm:"index;not null" json:"template_id"`
	DocumentName string    `gorm:"size:150;not null" json:"document_name"`
	TableData    string    `gorm:"type:longtext" json:"table_data"`
	GeneratedBy  string    `gorm:"size:50" json:"generated_by"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	// populated by the list/detail joins, never stored
	TemplateName string `gorm:"->;-:migration" json:"template_name,omitempty"`
}

type NewGeneratedDocument struct {
	TemplateId   int    `json:"template_id" binding:"required"`
	DocumentName string `json:"document_name" binding:"required"`
	TableData    string `json:"table_data"`
	GeneratedBy  string `json:"generated_by"`
}

func validateTemplateJSON(input *NewDocumentTemplate) error {
	if input.TableConfig != "" && !json.Valid([]byte(input.TableConfig)) {
		return errors.New("table_config is not valid JSON")
	}
	if input.FixedTexts != "" && !json.Valid([]byte(input.FixedTexts)) {
		return errors.New("fixed_texts is not valid JSON")
	}
	return nil
}

func CreateDocumentTemplate(ctx context.Context, input *NewDocumentTemplate) (*DocumentTemplate, error) {
	if err := validateTemplateJSON(input); err != nil {
		return nil, err
	}

	template := DocumentTemplate{
		TemplateName:      strings.TrimSpace(input.TemplateName),
		BackgroundImageId: input.BackgroundImageId,
		TableConfig:       input.TableConfig,
		FixedTexts:        input.FixedTexts,
		CreatedBy:         input.CreatedBy,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func UpdateDocumentTemplate(ctx context.Context, id int, input *NewDocumentTemplate) (*DocumentTemplate, error) {
	template, err := GetDocumentTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateTemplateJSON(input); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(template).
		Updates(map[string]interface{}{
			"TemplateName":      strings.TrimSpace(input.TemplateName),
			"BackgroundImageId": input.BackgroundImageId,
			"TableConfig":       input.TableConfig,
			"FixedTexts":        input.FixedTexts,
		}).Error
	if err != nil {
		return nil, err
	}
	return GetDocumentTemplate(ctx, id)
}

// DeleteDocumentTemplate refuses while generated documents still reference
// the template; they would lose their layout.
func DeleteDocumentTemplate(ctx context.Context, id int) (*DocumentTemplate, error) {
	template, err := GetDocumentTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&GeneratedDocument{}).
		Where("template_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("template has generated documents")
	}

	if err := db.WithContext(ctx).Delete(template).Error; err != nil {
		return nil, err
	}
	return template, nil
}

func GetDocumentTemplate(ctx context.Context, id int) (*DocumentTemplate, error) {
	db := config.GetDB()
	var result DocumentTemplate
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetDocumentTemplates(ctx context.Context) ([]*DocumentTemplate, error) {
	db := config.GetDB()
	var results []*DocumentTemplate
	if err := db.WithContext(ctx).Order("template_name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func CreateGeneratedDocument(ctx context.Context, input *NewGeneratedDocument) (*GeneratedDocument, error) {
	if input.TableData != "" && !json.Valid([]byte(input.TableData)) {
		return nil, errors.New("table_data is not valid JSON")
	}
	template, err := GetDocumentTemplate(ctx, input.TemplateId)
	if err != nil {
		return nil, err
	}

	document := GeneratedDocument{
		TemplateId:   input.TemplateId,
		DocumentName: strings.TrimSpace(input.DocumentName),
		TableData:    input.TableData,
		GeneratedBy:  input.GeneratedBy,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&document).Error; err != nil {
		return nil, err
	}
	document.TemplateName = template.TemplateName
	return &document, nil
}

func DeleteGeneratedDocument(ctx context.Context, id int) (*GeneratedDocument, error) {
	document, err := GetGeneratedDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&GeneratedDocument{}, id).Error; err != nil {
		return nil, err
	}
	return document, nil
}

func GetGeneratedDocument(ctx context.Context, id int) (*GeneratedDocument, error) {
	db := config.GetDB()
	var result GeneratedDocument
	err := db.WithContext(ctx).Table("generated_documents gd").
		Select("gd.*, dt.template_name").
		Joins("LEFT JOIN document_templates dt ON dt.id = gd.template_id").
		Where("gd.id = ?", id).Scan(&result).Error
	if err != nil {
		return nil, err
	}
	if result.ID == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetGeneratedDocuments(ctx context.Context, templateId int) ([]*GeneratedDocument, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Table("generated_documents gd").
		Select("gd.*, dt.template_name").
		Joins("LEFT JOIN document_templates dt ON dt.id = gd.template_id")
	if templateId > 0 {
		dbCtx = dbCtx.Where("gd.template_id = ?", templateId)
	}

	var results []*GeneratedDocument
	if err := dbCtx.Order("gd.created_at DESC, gd.id DESC").Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
