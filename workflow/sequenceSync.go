package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// SyncCategorySequences catches each category counter up to the highest part
// number suffix already present in the incoming table. Manually entered part
// numbers can run ahead of the counter; without this pass the generator would
// eventually mint a duplicate.
//
// The counter only ever moves forward: the guarded UPDATE is a no-op for
// categories whose counter is already at or past the observed maximum, so a
// sync racing live registrations can never rewind a sequence.
func SyncCategorySequences(ctx context.Context) error {

	db := config.GetDB()

	type maxRow struct {
		CategoryId int
		MaxSuffix  int
	}
	var rows []maxRow
	// suffix of "E-0123" is the digits after the last '-'
	err := db.WithContext(ctx).Raw(`
		SELECT pi.category_id AS category_id,
		       MAX(CAST(SUBSTRING_INDEX(pi.part_number, '-', -1) AS UNSIGNED)) AS max_suffix
		FROM part_incomings pi
		JOIN categories c ON c.id = pi.category_id
		WHERE pi.part_number REGEXP CONCAT('^', c.category_code, '-[0-9]+$')
		GROUP BY pi.category_id`).Scan(&rows).Error
	if err != nil {
		return err
	}

	logger := config.GetLogger()
	adjusted := 0
	for _, row := range rows {
		result := db.WithContext(ctx).Exec(
			"UPDATE categories SET last_number = ? WHERE id = ? AND last_number < ?",
			row.MaxSuffix, row.CategoryId, row.MaxSuffix)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			adjusted++
			if err := utils.RemoveRedisItem[models.Category](row.CategoryId); err != nil {
				config.LogWarn(logger, "workflow", "SyncCategorySequences", "cache invalidation", err)
			}
			logger.WithFields(logrus.Fields{
				"module":     "workflow",
				"funcName":   "SyncCategorySequences",
				"categoryId": row.CategoryId,
				"lastNumber": row.MaxSuffix,
			}).Info("category sequence caught up")
		}
	}

	logger.WithFields(logrus.Fields{
		"module":   "workflow",
		"funcName": "SyncCategorySequences",
		"scanned":  len(rows),
		"adjusted": adjusted,
	}).Info("category sequence sync completed")
	return nil
}

// SyncCategorySequencesGuarded wraps the sync in a redis lock so only one
// instance runs it when several replicas start at once. When redis is down
// the sync runs unguarded; it is idempotent, so the worst case is wasted
// work.
func SyncCategorySequencesGuarded(ctx context.Context) error {
	locker := config.GetRedisLock()
	if locker == nil {
		return SyncCategorySequences(ctx)
	}

	lock, err := locker.Obtain(ctx, "sequence-sync", time.Minute, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		config.GetLogger().WithFields(logrus.Fields{
			"module":   "workflow",
			"funcName": "SyncCategorySequencesGuarded",
		}).Info("sequence sync already running elsewhere, skipping")
		return nil
	}
	if err != nil {
		return SyncCategorySequences(ctx)
	}
	defer lock.Release(ctx)

	return SyncCategorySequences(ctx)
}
