package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"gorm.io/gorm"
)

type PartUsage struct {
	ID            int       `gorm:"primary_key" json:"usage_id"`
	IncomingId    int       `gorm:"index;not null" json:"incoming_id"`
	PartNumber    string    `gorm:"size:50;index;not null" json:"part_number"`
	PartName      string    `gorm:"size:100" json:"part_name"`
	QuantityUsed  int       `gorm:"not null" json:"quantity_used"`
	UsageLocation string    `gorm:"size:100;index" json:"usage_location"`
	UsedAt        time.Time `json:"used_at"`
	CreatedBy     string    `gorm:"size:50" json:"created_by"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewPartUsage struct {
	IncomingId    int        `json:"incoming_id" binding:"required"`
	QuantityUsed  int        `json:"quantity_used" binding:"required,gt=0"`
	UsageLocation string     `json:"usage_location"`
	UsedAt        *time.Time `json:"used_at"`
	CreatedBy     string     `json:"created_by"`
}

// UpdatePartUsage revises an existing withdrawal. The owning incoming record
// is fixed at registration and cannot be re-pointed.
type UpdatePartUsage struct {
	QuantityUsed  int        `json:"quantity_used" binding:"required,gt=0"`
	UsageLocation string     `json:"usage_location"`
	UsedAt        *time.Time `json:"used_at"`
	CreatedBy     string     `json:"created_by"`
}

// CurrentStock derives a part's balance from the full incoming/usage history:
// SUM(incoming) - SUM(usage). Runs on the caller's transaction so a
// check-then-insert under the part advisory lock observes uncommitted rows of
// the same transaction.
func CurrentStock(tx *gorm.DB, ctx context.Context, partNumber string) (int, error) {
	var stock int
	err := tx.WithContext(ctx).Raw(`
		SELECT COALESCE((SELECT SUM(incoming_quantity) FROM part_incomings WHERE part_number = ?), 0)
		     - COALESCE((SELECT SUM(quantity_used) FROM part_usages WHERE part_number = ?), 0)`,
		partNumber, partNumber).Scan(&stock).Error
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// CheckStock enforces the non-negative ledger invariant for a requested
// withdrawal. Callers must hold the part advisory lock for the whole
// check-then-insert, otherwise two registrations can jointly overdraw.
func CheckStock(tx *gorm.DB, ctx context.Context, partNumber string, requestedQty int) error {
	current, err := CurrentStock(tx, ctx, partNumber)
	if err != nil {
		return err
	}
	if current < requestedQty {
		return &utils.InsufficientStockError{
			PartNumber: partNumber,
			Current:    current,
			Requested:  requestedQty,
		}
	}
	return nil
}

func GetUsage(ctx context.Context, id int) (*PartUsage, error) {
	db := config.GetDB()
	var result PartUsage
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetAllUsage(ctx context.Context) ([]*PartUsage, error) {
	db := config.GetDB()
	var results []*PartUsage
	if err := db.WithContext(ctx).Order("used_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func SearchUsage(ctx context.Context, keyword string) ([]*PartUsage, error) {
	db := config.GetDB()
	var results []*PartUsage
	like := "%" + keyword + "%"
	err := db.WithContext(ctx).
		Where("part_number LIKE ? OR part_name LIKE ? OR usage_location LIKE ?", like, like, like).
		Order("used_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetUsageByLocation(ctx context.Context, usageLocation string) ([]*PartUsage, error) {
	db := config.GetDB()
	var results []*PartUsage
	err := db.WithContext(ctx).Where("usage_location = ?", usageLocation).
		Order("used_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetUsageByPartNumber(ctx context.Context, partNumber string) ([]*PartUsage, error) {
	db := config.GetDB()
	var results []*PartUsage
	err := db.WithContext(ctx).Where("part_number = ?", partNumber).
		Order("used_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetUsageByCategory(ctx context.Context, categoryId int) ([]*PartUsage, error) {
	db := config.GetDB()
	var results []*PartUsage
	err := db.WithContext(ctx).
		Joins("JOIN part_incomings pi ON pi.id = part_usages.incoming_id").
		Where("pi.category_id = ?", categoryId).
		Order("part_usages.used_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetUsageByDateRange(ctx context.Context, startDate time.Time, endDate time.Time) ([]*PartUsage, error) {
	db := config.GetDB()
	var results []*PartUsage
	err := db.WithContext(ctx).
		Where("used_at >= ? AND used_at < ?", startDate, endDate.AddDate(0, 0, 1)).
		Order("used_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

var usageSortColumns = map[string]string{
	"part_number":    "part_number",
	"part_name":      "part_name",
	"quantity_used":  "quantity_used",
	"usage_location": "usage_location",
	"used_at":        "used_at",
	"created_at":     "created_at",
}

func GetUsageSorted(ctx context.Context, column string, order string) ([]*PartUsage, error) {
	col, ok := usageSortColumns[column]
	if !ok {
		col = "used_at"
	}
	if order != "asc" {
		order = "desc"
	}

	db := config.GetDB()
	var results []*PartUsage
	if err := db.WithContext(ctx).Order(col + " " + order).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func SearchUsageWithSort(ctx context.Context, keyword string, column string, order string) ([]*PartUsage, error) {
	col, ok := usageSortColumns[column]
	if !ok {
		col = "used_at"
	}
	if order != "asc" {
		order = "desc"
	}

	db := config.GetDB()
	var results []*PartUsage
	like := "%" + keyword + "%"
	err := db.WithContext(ctx).
		Where("part_number LIKE ? OR part_name LIKE ? OR usage_location LIKE ?", like, like, like).
		Order(col + " " + order).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

type UsageSummaryRow struct {
	PartNumber string `json:"part_number"`
	PartName   string `json:"part_name"`
	TotalUsed  int    `json:"total_used"`
	UsageCount int    `json:"usage_count"`
}

func GetUsageSummaryByPart(ctx context.Context) ([]*UsageSummaryRow, error) {
	db := config.GetDB()
	var results []*UsageSummaryRow
	err := db.WithContext(ctx).Raw(`
		SELECT part_number,
		       MAX(part_name)      AS part_name,
		       SUM(quantity_used)  AS total_used,
		       COUNT(*)            AS usage_count
		FROM part_usages
		GROUP BY part_number
		ORDER BY total_used DESC`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetUsageForUpdate fetches the row on the caller's transaction for revision.
func GetUsageForUpdate(tx *gorm.DB, ctx context.Context, id int) (*PartUsage, error) {
	var result PartUsage
	if err := tx.WithContext(ctx).First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}
