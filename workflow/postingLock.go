package workflow

import (
	"fmt"
	"strconv"

	"gorm.io/gorm"
)

// AcquirePartStockLock serializes stock check-then-insert per part across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped. Acquire it on the pinned connection
// the transaction will run on, and release on that same connection after
// the commit; releasing on a finished *gorm.DB transaction is a no-op and
// leaks the lock into the pool.
func AcquirePartStockLock(tx *gorm.DB, partNumber string) error {
	lockName := fmt.Sprintf("stock:%s", partNumber)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire stock lock for part_number=%s", partNumber)
	}
	return nil
}

func ReleasePartStockLock(tx *gorm.DB, partNumber string) {
	lockName := fmt.Sprintf("stock:%s", partNumber)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// AcquireCabinetSlotLock serializes allocation of one cabinet coordinate.
func AcquireCabinetSlotLock(tx *gorm.DB, col string, row int) error {
	lockName := "cabinet:" + col + "-" + strconv.Itoa(row)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire cabinet lock for slot=%s-%d", col, row)
	}
	return nil
}

func ReleaseCabinetSlotLock(tx *gorm.DB, col string, row int) {
	lockName := "cabinet:" + col + "-" + strconv.Itoa(row)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
