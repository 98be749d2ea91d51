package models

import (
	"context"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"github.com/shopspring/decimal"
)

type PartIncoming struct {
	ID               int             `gorm:"primary_key" json:"incoming_id"`
	PartNumber       string          `gorm:"size:50;index;not null" json:"part_number"`
	CategoryId       int             `gorm:"index;not null" json:"category_id"`
	PartName         string          `gorm:"size:100;not null" json:"part_name"`
	Description      string          `gorm:"type:text" json:"description"`
	ProjectName      string          `gorm:"size:100" json:"project_name"`
	Unit             string          `gorm:"size:20" json:"unit"`
	IncomingQuantity int             `gorm:"not null" json:"incoming_quantity"`
	PurchasePrice    decimal.Decimal `gorm:"type:decimal(16,2)" json:"purchase_price"`
	Currency         string          `gorm:"size:3;default:KRW" json:"currency"`
	ExchangeRate     decimal.Decimal `gorm:"type:decimal(16,6)" json:"exchange_rate"`
	OriginalPrice    decimal.Decimal `gorm:"type:decimal(16,2)" json:"original_price"`
	PurchaseDate     *time.Time      `json:"purchase_date"`
	Supplier         string          `gorm:"size:100" json:"supplier"`
	Purchaser        string          `gorm:"size:50" json:"purchaser"`
	InvoiceNumber    string          `gorm:"size:50" json:"invoice_number"`
	Note             string          `gorm:"type:text" json:"note"`
	CreatedBy        string          `gorm:"size:50" json:"created_by"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// NewPartIncoming is the registration payload. Either category_id or
// category_name must be present; part_number may be blank, in which case the
// sequence generator mints one. cabinet_location takes the A-1 form (the
// `cabinetloc` binding is registered in server.go).
type NewPartIncoming struct {
	PartNumber       string          `json:"part_number"`
	CategoryId       int             `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	PartName         string          `json:"part_name" binding:"required"`
	Description      string          `json:"description"`
	ProjectName      string          `json:"project_name"`
	Unit             string          `json:"unit"`
	IncomingQuantity int             `json:"incoming_quantity" binding:"required,gt=0"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	Currency         string          `json:"currency"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	PurchaseDate     *time.Time      `json:"purchase_date"`
	Supplier         string          `json:"supplier"`
	Purchaser        string          `json:"purchaser"`
	InvoiceNumber    string          `json:"invoice_number"`
	Note             string          `json:"note"`
	CreatedBy        string          `json:"created_by"`

	// location fields, consumed by the slot allocator
	CabinetLocation string `json:"cabinet_location" binding:"omitempty,cabinetloc"`
	MapLocation     string `json:"map_location"`
	Location        string `json:"location"` // legacy single-field scheme
	LocationNote    string `json:"location_note"`
	OverrideCabinet bool   `json:"override_cabinet"`
}

func GetIncoming(ctx context.Context, id int) (*PartIncoming, error) {
	db := config.GetDB()
	var result PartIncoming
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetAllIncoming(ctx context.Context) ([]*PartIncoming, error) {
	db := config.GetDB()
	var results []*PartIncoming
	if err := db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetIncomingByPartNumber(ctx context.Context, partNumber string) ([]*PartIncoming, error) {
	db := config.GetDB()
	var results []*PartIncoming
	err := db.WithContext(ctx).Where("part_number = ?", partNumber).
		Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func SearchIncomingByPartName(ctx context.Context, partName string) ([]*PartIncoming, error) {
	db := config.GetDB()
	var results []*PartIncoming
	err := db.WithContext(ctx).Where("part_name LIKE ?", "%"+partName+"%").
		Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetIncomingByCategory(ctx context.Context, categoryId int) ([]*PartIncoming, error) {
	db := config.GetDB()
	var results []*PartIncoming
	err := db.WithContext(ctx).Where("category_id = ?", categoryId).
		Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// column whitelist for user-driven sorting; anything else falls back to created_at
var incomingSortColumns = map[string]string{
	"category_name":     "c.category_name",
	"part_number":       "pi.part_number",
	"part_name":         "pi.part_name",
	"description":       "pi.description",
	"project_name":      "pi.project_name",
	"note":              "pi.note",
	"incoming_quantity": "pi.incoming_quantity",
	"purchase_price":    "pi.purchase_price",
	"purchase_date":     "pi.purchase_date",
	"supplier":          "pi.supplier",
	"purchaser":         "pi.purchaser",
	"created_at":        "pi.created_at",
}

func GetIncomingSorted(ctx context.Context, column string, order string) ([]*PartIncoming, error) {
	return searchIncoming(ctx, "", column, order)
}

func SearchIncomingWithSort(ctx context.Context, keyword string, column string, order string) ([]*PartIncoming, error) {
	return searchIncoming(ctx, keyword, column, order)
}

func searchIncoming(ctx context.Context, keyword string, column string, order string) ([]*PartIncoming, error) {
	col, ok := incomingSortColumns[column]
	if !ok {
		col = "pi.created_at"
	}
	if order != "asc" {
		order = "desc"
	}

	db := config.GetDB()
	var results []*PartIncoming
	dbCtx := db.WithContext(ctx).Table("part_incomings pi").
		Select("pi.*").
		Joins("LEFT JOIN categories c ON c.id = pi.category_id")
	if keyword != "" {
		like := "%" + keyword + "%"
		dbCtx = dbCtx.Where(
			"pi.part_number LIKE ? OR pi.part_name LIKE ? OR pi.description LIKE ? OR pi.supplier LIKE ? OR c.category_name LIKE ?",
			like, like, like, like, like)
	}
	if err := dbCtx.Order(col + " " + order).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// IncomingSearchParams drives the advanced multi-filter search.
type IncomingSearchParams struct {
	Keyword    string     `form:"keyword"`
	CategoryId int        `form:"category_id"`
	Supplier   string     `form:"supplier"`
	Project    string     `form:"project"`
	DateFrom   *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo     *time.Time `form:"date_to" time_format:"2006-01-02"`
	Column     string     `form:"column"`
	Order      string     `form:"order"`
}

func SearchIncomingAdvanced(ctx context.Context, params *IncomingSearchParams) ([]*PartIncoming, error) {
	col, ok := incomingSortColumns[params.Column]
	if !ok {
		col = "pi.created_at"
	}
	order := params.Order
	if order != "asc" {
		order = "desc"
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Table("part_incomings pi").
		Select("pi.*").
		Joins("LEFT JOIN categories c ON c.id = pi.category_id")

	if params.Keyword != "" {
		like := "%" + params.Keyword + "%"
		dbCtx = dbCtx.Where("pi.part_number LIKE ? OR pi.part_name LIKE ? OR pi.note LIKE ?", like, like, like)
	}
	if params.CategoryId > 0 {
		dbCtx = dbCtx.Where("pi.category_id = ?", params.CategoryId)
	}
	if params.Supplier != "" {
		dbCtx = dbCtx.Where("pi.supplier LIKE ?", "%"+params.Supplier+"%")
	}
	if params.Project != "" {
		dbCtx = dbCtx.Where("pi.project_name LIKE ?", "%"+params.Project+"%")
	}
	if params.DateFrom != nil {
		dbCtx = dbCtx.Where("pi.purchase_date >= ?", *params.DateFrom)
	}
	if params.DateTo != nil {
		dbCtx = dbCtx.Where("pi.purchase_date < ?", params.DateTo.AddDate(0, 0, 1))
	}

	var results []*PartIncoming
	if err := dbCtx.Order(col + " " + order).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// InventoryRow is the derived per-part ledger view.
type InventoryRow struct {
	PartNumber    string `json:"part_number"`
	PartName      string `json:"part_name"`
	CategoryName  string `json:"category_name"`
	TotalIncoming int    `json:"total_incoming"`
	TotalUsed     int    `json:"total_used"`
	CurrentStock  int    `json:"current_stock"`
}

const inventoryQuery = `
	SELECT pi.part_number,
	       MAX(pi.part_name)     AS part_name,
	       MAX(c.category_name)  AS category_name,
	       SUM(pi.incoming_quantity) AS total_incoming,
	       COALESCE((SELECT SUM(pu.quantity_used) FROM part_usages pu
	                 WHERE pu.part_number = pi.part_number), 0) AS total_used,
	       SUM(pi.incoming_quantity)
	         - COALESCE((SELECT SUM(pu.quantity_used) FROM part_usages pu
	                     WHERE pu.part_number = pi.part_number), 0) AS current_stock
	FROM part_incomings pi
	LEFT JOIN categories c ON c.id = pi.category_id
	GROUP BY pi.part_number`

func GetCurrentInventory(ctx context.Context) ([]*InventoryRow, error) {
	db := config.GetDB()
	var results []*InventoryRow
	if err := db.WithContext(ctx).Raw(inventoryQuery + " ORDER BY pi.part_number").Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetLowStock(ctx context.Context, threshold int) ([]*InventoryRow, error) {
	if threshold <= 0 {
		threshold = 10
	}
	db := config.GetDB()
	var results []*InventoryRow
	err := db.WithContext(ctx).Raw(
		"SELECT * FROM ("+inventoryQuery+") inv WHERE inv.current_stock <= ? ORDER BY inv.current_stock",
		threshold).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
