package models

import (
	"context"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
)

// ActionAudit is append-only. Rows are written after the business transaction
// commits, on a separate connection, and never block or fail the operation
// they describe.
type ActionAudit struct {
	ID            int       `gorm:"primary_key" json:"audit_id"`
	EntityType    string    `gorm:"size:50;index;not null" json:"entity_type"`
	EntityId      int       `gorm:"index" json:"entity_id"`
	Action        string    `gorm:"size:10;not null" json:"action"`
	ChangedFields *string   `gorm:"type:text" json:"changed_fields"`
	Actor         string    `gorm:"size:50" json:"actor"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func InsertAudit(ctx context.Context, audit *ActionAudit) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(audit).Error
}

// GetRecentAudits returns the newest rows first. The limit is clamped to
// 1..1000 and defaults to 200. A read failure degrades to an empty list so
// the audit screen can never take down the admin UI.
func GetRecentAudits(ctx context.Context, entityType string, entityId int, limit int) []*ActionAudit {
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if entityType != "" {
		dbCtx = dbCtx.Where("entity_type = ?", entityType)
	}
	if entityId > 0 {
		dbCtx = dbCtx.Where("entity_id = ?", entityId)
	}

	var results []*ActionAudit
	if err := dbCtx.Order("created_at DESC, id DESC").Limit(limit).Find(&results).Error; err != nil {
		config.LogWarn(config.GetLogger(), "models", "GetRecentAudits", "audit query degraded", err)
		return []*ActionAudit{}
	}
	return results
}

func GetAuditsByActor(ctx context.Context, actor string, limit int) []*ActionAudit {
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	db := config.GetDB()
	var results []*ActionAudit
	err := db.WithContext(ctx).Where("actor = ?", actor).
		Order("created_at DESC, id DESC").Limit(limit).Find(&results).Error
	if err != nil {
		config.LogWarn(config.GetLogger(), "models", "GetAuditsByActor", "audit query degraded", err)
		return []*ActionAudit{}
	}
	return results
}
