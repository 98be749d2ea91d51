package models

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PartLocation is a satellite of PartIncoming: at most one row per lot. A row
// carries a decomposed cabinet coordinate (PosX/PosY), a free-form map code
// (LocationCode), or both; rows with neither are never persisted.
type PartLocation struct {
	ID           int       `gorm:"primary_key" json:"location_id"`
	IncomingId   *int      `gorm:"index" json:"incoming_id"`
	LocationCode string    `gorm:"size:50;index" json:"location_code"`
	PartNumber   string    `gorm:"size:50;index" json:"part_number"`
	PartName     string    `gorm:"size:100" json:"part_name"`
	PosX         string    `gorm:"size:2" json:"pos_x"`
	PosY         *int      `json:"pos_y"`
	Note         string    `gorm:"type:text" json:"note"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPartLocation struct {
	IncomingId   *int   `json:"incoming_id"`
	LocationCode string `json:"location_code"`
	PartNumber   string `json:"part_number"`
	PartName     string `json:"part_name"`
	PosX         string `json:"pos_x"`
	PosY         *int   `json:"pos_y"`
	Note         string `json:"note"`
}

var (
	cabinetLocPattern  = regexp.MustCompile(`^([A-Z]{1,2})-(\d{1,2})$`)
	cabinetShortStyle  = regexp.MustCompile(`^([A-Z]{1,2})(\d{1,2})$`)
	maxCabinetRow      = 32
	maxCabinetColumnAA = "AA"
)

// NormalizeCabinetLocation parses and validates a cabinet coordinate.
// Accepts the shorthand "a2" as well as the canonical "A-2". Valid columns
// are A..Z and AA; valid rows are 1..32.
func NormalizeCabinetLocation(raw string) (string, int, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "" {
		return "", 0, &utils.InvalidLocationError{Input: raw}
	}

	if m := cabinetShortStyle.FindStringSubmatch(normalized); m != nil {
		normalized = m[1] + "-" + m[2]
	}

	m := cabinetLocPattern.FindStringSubmatch(normalized)
	if m == nil {
		return "", 0, &utils.InvalidLocationError{Input: raw}
	}

	col := m[1]
	row, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, &utils.InvalidLocationError{Input: raw}
	}
	if len(col) == 2 && col != maxCabinetColumnAA {
		return "", 0, &utils.InvalidLocationError{Input: raw}
	}
	if row < 1 || row > maxCabinetRow {
		return "", 0, &utils.InvalidLocationError{Input: raw}
	}
	return col, row, nil
}

// GetCabinetOccupant returns the current occupant of a coordinate, nil when
// the slot is free. Runs on the caller's transaction so the check and the
// following write see the same state.
func GetCabinetOccupant(tx *gorm.DB, ctx context.Context, col string, row int) (*PartLocation, error) {
	var occupant PartLocation
	err := tx.WithContext(ctx).Where("pos_x = ? AND pos_y = ?", col, row).First(&occupant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &occupant, nil
}

// AssignCabinetSlot binds a cabinet coordinate (and optional map code) to an
// incoming lot.
//
// Same part number on the occupied slot is an idempotent update. A different
// part fails with SlotConflictError unless override is set, in which case the
// occupant's row is freed first and the overwrite is logged. The caller must
// hold the cabinet advisory lock for the coordinate so two concurrent
// allocations cannot both pass the check.
func AssignCabinetSlot(tx *gorm.DB, ctx context.Context, incomingId int, col string, row int,
	partNumber string, partName string, mapCode string, note string, override bool) (*PartLocation, error) {

	if !config.CabinetAllowDuplicate() {
		occupant, err := GetCabinetOccupant(tx, ctx, col, row)
		if err != nil {
			return nil, err
		}
		if occupant != nil && occupant.PartNumber != partNumber {
			if !override {
				return nil, &utils.SlotConflictError{
					Column:             col,
					Row:                row,
					OccupantPartNumber: occupant.PartNumber,
					OccupantPartName:   occupant.PartName,
				}
			}
			config.GetLogger().WithFields(logrus.Fields{
				"module":   "models",
				"funcName": "AssignCabinetSlot",
				"slot":     col + "-" + strconv.Itoa(row),
				"evicted":  occupant.PartNumber,
				"newPart":  partNumber,
			}).Warn("cabinet slot overridden, previous occupant freed")
			if err := tx.WithContext(ctx).Delete(occupant).Error; err != nil {
				return nil, err
			}
		}
	}

	location := PartLocation{
		IncomingId:   &incomingId,
		LocationCode: mapCode,
		PartNumber:   partNumber,
		PartName:     partName,
		PosX:         col,
		PosY:         &row,
		Note:         note,
	}
	if err := insertLocationByIncomingId(tx, ctx, &location); err != nil {
		return nil, err
	}
	return &location, nil
}

// insertLocationByIncomingId is insert-only: incoming registration must never
// silently replace a slot that already exists for the lot.
func insertLocationByIncomingId(tx *gorm.DB, ctx context.Context, location *PartLocation) error {
	if location.IncomingId == nil {
		return errors.New("incoming id is required")
	}
	var count int64
	if err := tx.WithContext(ctx).Model(&PartLocation{}).
		Where("incoming_id = ?", *location.IncomingId).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("location already exists for this incoming record")
	}
	return tx.WithContext(ctx).Create(location).Error
}

// InsertMapOnlyLocation persists a row that has only a free-form map code.
func InsertMapOnlyLocation(tx *gorm.DB, ctx context.Context, incomingId int,
	partNumber string, partName string, mapCode string, note string) (*PartLocation, error) {

	location := PartLocation{
		IncomingId:   &incomingId,
		LocationCode: mapCode,
		PartNumber:   partNumber,
		PartName:     partName,
		Note:         note,
	}
	if err := insertLocationByIncomingId(tx, ctx, &location); err != nil {
		return nil, err
	}
	return &location, nil
}

// RefreshLocationInfoByIncomingId is update-only: it refreshes the
// denormalized part number/name on an existing slot and deliberately does NOT
// create a row when the lot has no slot, so plain metadata edits cannot
// allocate storage as a side effect.
func RefreshLocationInfoByIncomingId(tx *gorm.DB, ctx context.Context, incomingId int,
	partNumber string, partName string) error {

	var location PartLocation
	err := tx.WithContext(ctx).Where("incoming_id = ?", incomingId).First(&location).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // no slot, nothing to refresh
		}
		return err
	}

	return tx.WithContext(ctx).Model(&location).
		Updates(map[string]interface{}{
			"PartNumber": partNumber,
			"PartName":   partName,
		}).Error
}

func GetLocationByIncomingId(ctx context.Context, incomingId int) (*PartLocation, error) {
	db := config.GetDB()
	var result PartLocation
	err := db.WithContext(ctx).Where("incoming_id = ?", incomingId).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func GetAllLocations(ctx context.Context) ([]*PartLocation, error) {
	db := config.GetDB()
	var results []*PartLocation
	if err := db.WithContext(ctx).Order("pos_x, pos_y, location_code").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetLocationByCode(ctx context.Context, code string) (*PartLocation, error) {
	db := config.GetDB()
	var result PartLocation
	err := db.WithContext(ctx).Where("location_code = ?", code).First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

// SaveOrUpdateLocationByCode keeps the legacy code-keyed addressing scheme
// working: upsert keyed by location_code.
func SaveOrUpdateLocationByCode(ctx context.Context, input *NewPartLocation) (*PartLocation, error) {
	if strings.TrimSpace(input.LocationCode) == "" {
		return nil, errors.New("location code is required")
	}

	db := config.GetDB()
	var existing PartLocation
	err := db.WithContext(ctx).Where("location_code = ?", input.LocationCode).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		location := PartLocation{
			IncomingId:   input.IncomingId,
			LocationCode: input.LocationCode,
			PartNumber:   input.PartNumber,
			PartName:     input.PartName,
			PosX:         input.PosX,
			PosY:         input.PosY,
			Note:         input.Note,
		}
		if err := db.WithContext(ctx).Create(&location).Error; err != nil {
			return nil, err
		}
		return &location, nil
	}

	if err := db.WithContext(ctx).Model(&existing).
		Updates(map[string]interface{}{
			"PartNumber": input.PartNumber,
			"PartName":   input.PartName,
			"Note":       input.Note,
		}).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func DeleteLocationByCode(ctx context.Context, code string) (*PartLocation, error) {
	location, err := GetLocationByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(location).Error; err != nil {
		return nil, err
	}
	return location, nil
}
