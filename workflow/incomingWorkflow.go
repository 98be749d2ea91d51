package workflow

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const entityIncoming = "part_incoming"

// applyExchangeRate converts foreign-currency purchases to KRW. For KRW the
// original price mirrors the purchase price with a rate of 1, so every row
// carries a complete currency triple.
func applyExchangeRate(input *models.NewPartIncoming) {
	if strings.TrimSpace(input.Currency) == "" {
		input.Currency = "KRW"
	}
	if input.Currency != "KRW" && !input.OriginalPrice.IsZero() && !input.ExchangeRate.IsZero() {
		input.PurchasePrice = input.OriginalPrice.Mul(input.ExchangeRate)
		return
	}
	if input.Currency == "KRW" && !input.PurchasePrice.IsZero() {
		input.OriginalPrice = input.PurchasePrice
		input.ExchangeRate = decimal.NewFromInt(1)
	}
}

func resolveCategory(tx *gorm.DB, ctx context.Context, input *models.NewPartIncoming) (*models.Category, error) {
	if input.CategoryId > 0 {
		var category models.Category
		if err := tx.WithContext(ctx).First(&category, input.CategoryId).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		return &category, nil
	}
	if strings.TrimSpace(input.CategoryName) != "" {
		return models.FindOrCreateCategoryByName(tx, ctx, input.CategoryName)
	}
	return nil, errors.New("category id or category name is required")
}

// RegisterIncoming creates an incoming lot: category resolution, part number
// minting, currency conversion, the row itself, and storage allocation, all
// in one transaction. The audit row is written after commit.
//
// The cabinet advisory lock is taken on the pinned connection, outside the
// transaction, so it survives the commit: a competing allocation cannot
// re-check the slot until our row is visible.
func RegisterIncoming(ctx context.Context, input *models.NewPartIncoming) (*models.PartIncoming, error) {

	db := config.GetDB()
	var incoming models.PartIncoming

	err := db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		// cabinet coordinate wins over the legacy single location field
		cabinet := strings.TrimSpace(input.CabinetLocation)
		if cabinet == "" {
			cabinet = strings.TrimSpace(input.Location)
		}
		var (
			col string
			row int
		)
		if cabinet != "" {
			var err error
			col, row, err = models.NormalizeCabinetLocation(cabinet)
			if err != nil {
				return err
			}
			if err := AcquireCabinetSlotLock(conn, col, row); err != nil {
				return err
			}
			defer ReleaseCabinetSlotLock(conn, col, row)
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

		category, err := resolveCategory(tx, ctx, input)
		if err != nil {
			tx.Rollback()
			return err
		}

		partNumber := strings.TrimSpace(input.PartNumber)
		if partNumber == "" {
			partNumber, err = models.NextPartNumber(tx, ctx, category.ID)
			if err != nil {
				tx.Rollback()
				return err
			}
		}

		applyExchangeRate(input)

		incoming = models.PartIncoming{
			PartNumber:       partNumber,
			CategoryId:       category.ID,
			PartName:         input.PartName,
			Description:      input.Description,
			ProjectName:      input.ProjectName,
			Unit:             input.Unit,
			IncomingQuantity: input.IncomingQuantity,
			PurchasePrice:    input.PurchasePrice,
			Currency:         input.Currency,
			ExchangeRate:     input.ExchangeRate,
			OriginalPrice:    input.OriginalPrice,
			PurchaseDate:     input.PurchaseDate,
			Supplier:         input.Supplier,
			Purchaser:        input.Purchaser,
			InvoiceNumber:    input.InvoiceNumber,
			Note:             input.Note,
			CreatedBy:        input.CreatedBy,
		}
		if err := tx.WithContext(ctx).Create(&incoming).Error; err != nil {
			tx.Rollback()
			return err
		}

		switch {
		case cabinet != "":
			_, err = models.AssignCabinetSlot(tx, ctx, incoming.ID, col, row,
				incoming.PartNumber, incoming.PartName, input.MapLocation, input.LocationNote,
				input.OverrideCabinet)
		case strings.TrimSpace(input.MapLocation) != "":
			_, err = models.InsertMapOnlyLocation(tx, ctx, incoming.ID,
				incoming.PartNumber, incoming.PartName, input.MapLocation, input.LocationNote)
		}
		if err != nil {
			tx.Rollback()
			return err
		}

		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityIncoming, incoming.ID, "CREATE", nil,
		ResolveActor(ctx, input.CreatedBy))

	return &incoming, nil
}

// UpdateIncoming revises a lot. A quantity reduction or a part number change
// is re-validated under the part stock lock so the edit cannot push the
// derived balance negative, and a rename is rejected outright while usage
// records still reference the lot. The audit row carries a field diff and is
// skipped when nothing changed.
func UpdateIncoming(ctx context.Context, id int, input *models.NewPartIncoming) (*models.PartIncoming, error) {

	db := config.GetDB()
	var before, after models.PartIncoming

	err := db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.First(&before, id).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		partNumber := strings.TrimSpace(input.PartNumber)
		if partNumber == "" {
			partNumber = before.PartNumber
		}
		renamed := partNumber != before.PartNumber

		// A shrinking lot may not overdraw what usage already consumed. A
		// renamed lot moves its full quantity out of the old part number's
		// pool, so it is checked as a withdrawal of the whole lot.
		withdrawal := before.IncomingQuantity - input.IncomingQuantity
		if renamed {
			withdrawal = before.IncomingQuantity
		}
		if withdrawal > 0 {
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

		category, err := resolveCategory(tx, ctx, input)
		if err != nil {
			tx.Rollback()
			return err
		}

		applyExchangeRate(input)

		if renamed {
			// usage rows stay keyed by the old part number; re-pointing the
			// lot underneath them would corrupt both ledgers
			var usageCount int64
			if err := tx.WithContext(ctx).Model(&models.PartUsage{}).
				Where("incoming_id = ?", id).Count(&usageCount).Error; err != nil {
				tx.Rollback()
				return err
			}
			if usageCount > 0 {
				tx.Rollback()
				return errors.New("part number cannot change while usage records reference this lot")
			}
		}

		if withdrawal > 0 {
			current, err := models.CurrentStock(tx, ctx, before.PartNumber)
			if err != nil {
				tx.Rollback()
				return err
			}
			if current < withdrawal {
				tx.Rollback()
				return &utils.InsufficientStockError{
					PartNumber: before.PartNumber,
					Current:    current,
					Requested:  withdrawal,
				}
			}
		}

		after = before
		after.PartNumber = partNumber
		after.CategoryId = category.ID
		after.PartName = input.PartName
		after.Description = input.Description
		after.ProjectName = input.ProjectName
		after.Unit = input.Unit
		after.IncomingQuantity = input.IncomingQuantity
		after.PurchasePrice = input.PurchasePrice
		after.Currency = input.Currency
		after.ExchangeRate = input.ExchangeRate
		after.OriginalPrice = input.OriginalPrice
		after.PurchaseDate = input.PurchaseDate
		after.Supplier = input.Supplier
		after.Purchaser = input.Purchaser
		after.InvoiceNumber = input.InvoiceNumber
		after.Note = input.Note

		if err := tx.WithContext(ctx).Save(&after).Error; err != nil {
			tx.Rollback()
			return err
		}

		// keep the denormalized slot info in step with the lot
		if after.PartNumber != before.PartNumber || after.PartName != before.PartName {
			if err := models.RefreshLocationInfoByIncomingId(tx, ctx, id, after.PartNumber, after.PartName); err != nil {
				tx.Rollback()
				return err
			}
		}

		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}

	if diff := BuildChangedFields(&before, &after, incomingFieldLabels); diff != nil {
		RecordAudit(ctx, entityIncoming, id, "UPDATE", MarshalChangedFields(diff),
			ResolveActor(ctx, input.CreatedBy))
	}

	return &after, nil
}

// DeleteIncoming removes a lot and its location row. The removal is treated
// like a stock withdrawal and checked under the part lock; lots with usage
// history cannot be deleted.
func DeleteIncoming(ctx context.Context, id int) (*models.PartIncoming, error) {

	db := config.GetDB()
	var incoming models.PartIncoming

	err := db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.First(&incoming, id).Error; err != nil {
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

		var usageCount int64
		if err := tx.WithContext(ctx).Model(&models.PartUsage{}).
			Where("incoming_id = ?", id).Count(&usageCount).Error; err != nil {
			tx.Rollback()
			return err
		}
		if usageCount > 0 {
			tx.Rollback()
			return errors.New("incoming record has usage history")
		}

		current, err := models.CurrentStock(tx, ctx, incoming.PartNumber)
		if err != nil {
			tx.Rollback()
			return err
		}
		if current < incoming.IncomingQuantity {
			tx.Rollback()
			return &utils.InsufficientStockError{
				PartNumber: incoming.PartNumber,
				Current:    current,
				Requested:  incoming.IncomingQuantity,
			}
		}

		if err := tx.WithContext(ctx).Where("incoming_id = ?", id).
			Delete(&models.PartLocation{}).Error; err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.WithContext(ctx).Delete(&incoming).Error; err != nil {
			tx.Rollback()
			return err
		}

		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, entityIncoming, id, "DELETE", nil, ResolveActor(ctx, ""))

	return &incoming, nil
}
