package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"gorm.io/gorm"
)

type Category struct {
	ID           int       `gorm:"primary_key" json:"category_id"`
	CategoryName string    `gorm:"size:100;not null;uniqueIndex" json:"category_name" binding:"required"`
	CategoryCode string    `gorm:"size:4;index" json:"category_code"`
	LastNumber   int       `gorm:"not null;default:0" json:"last_number"`
	IsActive     *bool     `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCategory struct {
	CategoryName string `json:"category_name" binding:"required"`
	CategoryCode string `json:"category_code"`
}

// FormatPartNumber renders the minted identifier, e.g. ("E", 1) -> "E-0001".
func FormatPartNumber(categoryCode string, number int64) string {
	return fmt.Sprintf("%s-%04d", categoryCode, number)
}

// NextPartNumber mints the next part number for a category.
//
// The increment is a single atomic UPDATE scoped to the category row, and the
// read-back uses LAST_INSERT_ID(expr), which MySQL keeps per connection: a
// concurrent increment on another category (or even this one, from another
// connection) can never leak into our read. Both statements run on the
// caller's transaction, so aborting the surrounding registration also reverts
// the counter.
func NextPartNumber(tx *gorm.DB, ctx context.Context, categoryId int) (string, error) {
	var category Category
	if err := tx.WithContext(ctx).First(&category, categoryId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", utils.ErrorRecordNotFound
		}
		return "", err
	}
	if strings.TrimSpace(category.CategoryCode) == "" {
		return "", errors.New("category has no code, part number must be entered manually")
	}

	result := tx.WithContext(ctx).Exec(
		"UPDATE categories SET last_number = LAST_INSERT_ID(last_number + 1) WHERE id = ?", categoryId)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		// category deleted between lookup and increment
		return "", utils.ErrorSequenceExhausted
	}

	var next int64
	if err := tx.WithContext(ctx).Raw("SELECT LAST_INSERT_ID()").Scan(&next).Error; err != nil {
		return "", err
	}

	// the cached copy now carries a stale last_number; dropping it on a
	// rolled-back registration only costs one cache miss
	if err := utils.RemoveRedisItem[Category](categoryId); err != nil {
		config.LogWarn(config.GetLogger(), "models", "NextPartNumber", "cache invalidation", err)
	}

	return FormatPartNumber(category.CategoryCode, next), nil
}

// deriveCategoryCode picks a code for implicitly created categories: the
// first letter of the name, falling back to the first two letters when the
// single letter is taken. Returns "" when nothing unique is available, which
// disables auto-minted part numbers for the category.
func deriveCategoryCode(tx *gorm.DB, ctx context.Context, name string) string {
	runes := []rune(strings.ToUpper(strings.TrimSpace(name)))
	if len(runes) == 0 || !unicode.IsLetter(runes[0]) || runes[0] > 'Z' {
		return ""
	}
	candidates := []string{string(runes[0])}
	if len(runes) > 1 && unicode.IsLetter(runes[1]) && runes[1] <= 'Z' {
		candidates = append(candidates, string(runes[0:2]))
	}
	for _, code := range candidates {
		var count int64
		if err := tx.WithContext(ctx).Model(&Category{}).
			Where("category_code = ?", code).Count(&count).Error; err != nil {
			return ""
		}
		if count == 0 {
			return code
		}
	}
	return ""
}

// FindOrCreateCategoryByName resolves the category during incoming
// registration when the client sends only a display name.
func FindOrCreateCategoryByName(tx *gorm.DB, ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("category name is required")
	}

	var category Category
	err := tx.WithContext(ctx).Where("category_name = ?", name).First(&category).Error
	if err == nil {
		return &category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category = Category{
		CategoryName: name,
		CategoryCode: deriveCategoryCode(tx, ctx, name),
		IsActive:     utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {
	if err := utils.ValidateUnique[Category](ctx, "category_name", input.CategoryName, 0); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(input.CategoryCode))
	if code != "" {
		if len(code) > 2 {
			return nil, errors.New("category code must be 1-2 letters")
		}
		if err := utils.ValidateUnique[Category](ctx, "category_code", code, 0); err != nil {
			return nil, err
		}
	}

	category := Category{
		CategoryName: input.CategoryName,
		CategoryCode: code,
		IsActive:     utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func UpdateCategory(ctx context.Context, id int, input *NewCategory) (*Category, error) {
	category, err := GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[Category](ctx, "category_name", input.CategoryName, id); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(input.CategoryCode))
	if code != "" {
		if err := utils.ValidateUnique[Category](ctx, "category_code", code, id); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	// last_number is owned by the sequence generator, never by plain edits
	if err := db.WithContext(ctx).Model(category).
		Updates(map[string]interface{}{
			"CategoryName": input.CategoryName,
			"CategoryCode": code,
		}).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Category](id); err != nil {
		return nil, err
	}
	return category, nil
}

func DeactivateCategory(ctx context.Context, id int) (*Category, error) {
	category, err := GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(category).
		Update("IsActive", utils.NewFalse()).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Category](id); err != nil {
		return nil, err
	}
	return category, nil
}

func DeleteCategory(ctx context.Context, id int) (*Category, error) {
	category, err := GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// Do not delete while incoming records reference this category
	var count int64
	if err := db.WithContext(ctx).Model(&PartIncoming{}).
		Where("category_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("category is used by incoming records")
	}

	if err := db.WithContext(ctx).Delete(category).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Category](id); err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategory serves single-category lookups through the redis object cache.
// Every mutation, including a counter increment, removes the cached copy.
func GetCategory(ctx context.Context, id int) (*Category, error) {

	result, err := utils.RetrieveRedis[Category](id)
	if err != nil {
		return nil, err
	}

	if result == nil {
		db := config.GetDB()
		if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		if err := utils.StoreRedis[Category](result, id); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func GetCategoryByCode(ctx context.Context, code string) (*Category, error) {
	db := config.GetDB()
	var result Category
	err := db.WithContext(ctx).Where("category_code = ?", strings.ToUpper(code)).First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetCategories(ctx context.Context, name *string) ([]*Category, error) {
	db := config.GetDB()
	var results []*Category

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("category_name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("category_name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
