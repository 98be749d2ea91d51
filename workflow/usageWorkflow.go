package workflow

import (
	"context"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"gorm.io/gorm"
)

const entityUsage = "part_usage"

// RegisterUsage withdraws stock. The non-negative invariant is enforced with
// a check-then-insert serialized by the part advisory lock: concurrent
// withdrawals of the same part queue up, everything else proceeds in
// parallel. The lock is taken on the pinned connection and released only
// after the commit, so a waiter always re-checks against our committed row.
func RegisterUsage(ctx context.Context, input *models.NewPartUsage) (*models.PartUsage, error) {

	db := config.GetDB()
	var usage models.PartUsage

	err := db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var incoming models.PartIncoming
		if err := conn.First(&incoming, input.IncomingId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		if err := AcquirePartStockLock(conn, incoming.PartNumber); err != nil {
			return err
		}
		defer ReleasePartStockLock(conn, incoming.PartNumber)

		tx := conn.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			}
		}()
		if err := tx.Error; err != nil {
			return err
		}

		if err := models.CheckStock(tx, ctx, incoming.PartNumber, input.QuantityUsed); err != nil {
			tx.Rollback()
			return err
		}

		usedAt := time.Now()
		if input.UsedAt != nil {
			usedAt = *input.UsedAt
		}

		usage = models.PartUsage{
			IncomingId:    input.IncomingId,
			PartNumber:    incoming.PartNumber,
			PartName:      incoming.PartName,
			QuantityUsed:  input.QuantityUsed,
			UsageLocation: input.UsageLocation,
			UsedAt:        usedAt,
			CreatedBy:     input.CreatedBy,
		}
		if err := tx.WithContext(ctx).Create(&usage).Error; err != nil {
			tx.Rollback()
			return err
		}

		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityUsage, usage.ID, "CREATE", nil,
		ResolveActor(ctx, input.CreatedBy))

	return &usage, nil
}

// UpdateUsage revises a withdrawal. Only a growing quantity consumes more
// stock, so only the positive delta is re-validated under the part lock.
func UpdateUsage(ctx context.Context, id int, input *models.UpdatePartUsage) (*models.PartUsage, error) {

	db := config.GetDB()
	var (
		before *models.PartUsage
		after  models.PartUsage
	)

	err := db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var err error
		before, err = models.GetUsageForUpdate(conn, ctx, id)
		if err != nil {
			return err
		}

		delta := input.QuantityUsed - before.QuantityUsed
		if delta > 0 {
			if err := AcquirePartStockLock(conn, before.PartNumber); err != nil {
				return err
			}
			defer ReleasePartStockLock(conn, before.PartNumber)
		}

		tx := conn.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			}
		}()
		if err := tx.Error; err != nil {
			return err
		}

		if delta > 0 {
			if err := models.CheckStock(tx, ctx, before.PartNumber, delta); err != nil {
				tx.Rollback()
				return err
			}
		}

		after = *before
		after.QuantityUsed = input.QuantityUsed
		after.UsageLocation = input.UsageLocation
		if input.UsedAt != nil {
			after.UsedAt = *input.UsedAt
		}

		if err := tx.WithContext(ctx).Save(&after).Error; err != nil {
			tx.Rollback()
			return err
		}

		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}

	if diff := BuildChangedFields(before, &after, usageFieldLabels); diff != nil {
		RecordAudit(ctx, entityUsage, id, "UPDATE", MarshalChangedFields(diff),
			ResolveActor(ctx, input.CreatedBy))
	}

	return &after, nil
}

// DeleteUsage returns the withdrawn quantity to stock, which can never
// violate the ledger invariant, so no lock is needed.
func DeleteUsage(ctx context.Context, id int) (*models.PartUsage, error) {

	usage, err := models.GetUsage(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(usage).Error; err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityUsage, id, "DELETE", nil, ResolveActor(ctx, ""))

	return usage, nil
}
