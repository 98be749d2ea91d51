package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"bitbucket.org/partsadmin/parts_backend/workflow"
)

// setupIntegrationEnv boots throwaway MySQL and Redis containers, points the
// config package at them, and migrates a fresh schema. Each caller gets its
// own containers so tests never share state.
func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "parts_test")
	// Audit rows go to the DB only; no Pub/Sub fan-out during tests.
	t.Setenv("AUDIT_TOPIC", "")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUsernameInContext(ctx, "test@local")
	return ctx
}

func mustCreateCategory(t *testing.T, ctx context.Context, name string, code string) *models.Category {
	t.Helper()
	category, err := models.CreateCategory(ctx, &models.NewCategory{
		CategoryName: name,
		CategoryCode: code,
	})
	if err != nil {
		t.Fatalf("CreateCategory(%s): %v", name, err)
	}
	return category
}

func TestRegisterIncomingMintsUniquePartNumbersUnderConcurrency(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Electronics", "E")

	const workers = 20
	var (
		mu      sync.Mutex
		minted  = make(map[string]int)
		wg      sync.WaitGroup
		errOnce error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			incoming, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
				CategoryId:       category.ID,
				PartName:         fmt.Sprintf("Relay %d", i),
				IncomingQuantity: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errOnce == nil {
					errOnce = err
				}
				return
			}
			minted[incoming.PartNumber]++
		}(i)
	}
	wg.Wait()

	if errOnce != nil {
		t.Fatalf("RegisterIncoming: %v", errOnce)
	}
	if len(minted) != workers {
		t.Fatalf("expected %d distinct part numbers, got %d: %v", workers, len(minted), minted)
	}
	for partNumber, n := range minted {
		if n != 1 {
			t.Fatalf("part number %s minted %d times", partNumber, n)
		}
		suffix, err := strconv.Atoi(strings.TrimPrefix(partNumber, "E-"))
		if err != nil || suffix < 1 || suffix > workers {
			t.Fatalf("part number %s outside expected E-0001..E-%04d range", partNumber, workers)
		}
	}
}

func TestSequenceSyncCatchesUpManuallyEnteredNumbers(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Mechanical", "M")

	// Manual entry far ahead of the counter.
	_, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartNumber:       "M-0042",
		PartName:         "Bearing",
		IncomingQuantity: 5,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming(manual): %v", err)
	}

	if err := workflow.SyncCategorySequences(ctx); err != nil {
		t.Fatalf("SyncCategorySequences: %v", err)
	}

	incoming, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Bearing Mount",
		IncomingQuantity: 2,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming(minted): %v", err)
	}
	if incoming.PartNumber != "M-0043" {
		t.Fatalf("expected next minted number M-0043, got %s", incoming.PartNumber)
	}
}

func TestUsageCannotOverdrawStock(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Electronics", "E")

	incoming, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Fuse 5A",
		IncomingQuantity: 3,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming: %v", err)
	}

	_, err = workflow.RegisterUsage(ctx, &models.NewPartUsage{
		IncomingId:   incoming.ID,
		QuantityUsed: 5,
	})
	var stockErr *utils.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Current != 3 || stockErr.Requested != 5 {
		t.Fatalf("InsufficientStockError = have %d need %d, want have 3 need 5", stockErr.Current, stockErr.Requested)
	}

	// Exact balance is allowed.
	if _, err := workflow.RegisterUsage(ctx, &models.NewPartUsage{
		IncomingId:   incoming.ID,
		QuantityUsed: 3,
	}); err != nil {
		t.Fatalf("RegisterUsage(3 of 3): %v", err)
	}

	// And the part is now empty.
	_, err = workflow.RegisterUsage(ctx, &models.NewPartUsage{
		IncomingId:   incoming.ID,
		QuantityUsed: 1,
	})
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError on empty part, got %v", err)
	}
	if stockErr.Current != 0 {
		t.Fatalf("expected current stock 0, got %d", stockErr.Current)
	}
}

func TestConcurrentUsageHonorsStockLock(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Electronics", "E")

	const stock = 10
	incoming, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Terminal Block",
		IncomingQuantity: stock,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming: %v", err)
	}

	// Twice as many single-unit withdrawals as there is stock. The advisory
	// lock serializes the check-then-insert, so exactly `stock` succeed.
	const attempts = stock * 2
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := workflow.RegisterUsage(ctx, &models.NewPartUsage{
				IncomingId:   incoming.ID,
				QuantityUsed: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			var stockErr *utils.InsufficientStockError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &stockErr):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != stock || rejected != attempts-stock {
		t.Fatalf("succeeded=%d rejected=%d, want %d/%d", succeeded, rejected, stock, attempts-stock)
	}

	current, err := models.CurrentStock(config.GetDB(), ctx, incoming.PartNumber)
	if err != nil {
		t.Fatalf("CurrentStock: %v", err)
	}
	if current != 0 {
		t.Fatalf("expected final stock 0, got %d", current)
	}
}

func TestCabinetSlotConflictAndOverride(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Electronics", "E")

	first, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Relay",
		IncomingQuantity: 4,
		CabinetLocation:  "A-1",
	})
	if err != nil {
		t.Fatalf("RegisterIncoming(first): %v", err)
	}

	// A different part on the same coordinate is rejected with the occupant.
	_, err = workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Contactor",
		IncomingQuantity: 2,
		CabinetLocation:  "a1", // shorthand form normalizes to A-1
	})
	var slotErr *utils.SlotConflictError
	if !errors.As(err, &slotErr) {
		t.Fatalf("expected SlotConflictError, got %v", err)
	}
	if slotErr.Column != "A" || slotErr.Row != 1 {
		t.Fatalf("conflict at %s-%d, want A-1", slotErr.Column, slotErr.Row)
	}
	if slotErr.OccupantPartNumber != first.PartNumber {
		t.Fatalf("occupant = %s, want %s", slotErr.OccupantPartNumber, first.PartNumber)
	}

	// The rejected registration must not leave a row behind.
	rows, err := models.GetIncomingByPartNumber(ctx, "E-0002")
	if err != nil {
		t.Fatalf("GetIncomingByPartNumber: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rejected registration left %d incoming rows", len(rows))
	}

	// Override evicts the occupant.
	second, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Contactor",
		IncomingQuantity: 2,
		CabinetLocation:  "A-1",
		OverrideCabinet:  true,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming(override): %v", err)
	}

	occupant, err := models.GetCabinetOccupant(config.GetDB(), ctx, "A", 1)
	if err != nil {
		t.Fatalf("GetCabinetOccupant: %v", err)
	}
	if occupant == nil || occupant.PartNumber != second.PartNumber {
		t.Fatalf("slot A-1 occupant = %+v, want part %s", occupant, second.PartNumber)
	}

	freed, err := models.GetLocationByIncomingId(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetLocationByIncomingId: %v", err)
	}
	if freed != nil {
		t.Fatalf("evicted lot still holds a location row: %+v", freed)
	}
}

func TestDeleteIncomingBlockedByUsageHistory(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Electronics", "E")

	incoming, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Sensor",
		IncomingQuantity: 6,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming: %v", err)
	}
	if _, err := workflow.RegisterUsage(ctx, &models.NewPartUsage{
		IncomingId:   incoming.ID,
		QuantityUsed: 2,
	}); err != nil {
		t.Fatalf("RegisterUsage: %v", err)
	}

	if _, err := workflow.DeleteIncoming(ctx, incoming.ID); err == nil {
		t.Fatalf("expected delete to be blocked by usage history")
	}

	// The lot must still be there.
	if _, err := models.GetIncoming(ctx, incoming.ID); err != nil {
		t.Fatalf("GetIncoming after blocked delete: %v", err)
	}
}

func TestUpdateUsageValidatesOnlyPositiveDelta(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Electronics", "E")

	incoming, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Breaker",
		IncomingQuantity: 5,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming: %v", err)
	}
	usage, err := workflow.RegisterUsage(ctx, &models.NewPartUsage{
		IncomingId:   incoming.ID,
		QuantityUsed: 5,
	})
	if err != nil {
		t.Fatalf("RegisterUsage: %v", err)
	}

	// Stock is 0, but shrinking the withdrawal returns stock and must always
	// go through.
	updated, err := workflow.UpdateUsage(ctx, usage.ID, &models.UpdatePartUsage{
		QuantityUsed: 3,
	})
	if err != nil {
		t.Fatalf("UpdateUsage(5 -> 3): %v", err)
	}
	if updated.QuantityUsed != 3 {
		t.Fatalf("QuantityUsed = %d, want 3", updated.QuantityUsed)
	}

	// Growing back consumes only the delta: +2 against stock 2 fits exactly.
	if _, err := workflow.UpdateUsage(ctx, usage.ID, &models.UpdatePartUsage{
		QuantityUsed: 5,
	}); err != nil {
		t.Fatalf("UpdateUsage(3 -> 5): %v", err)
	}

	// One more unit than the lot holds is rejected with the delta, not the
	// full revised quantity.
	_, err = workflow.UpdateUsage(ctx, usage.ID, &models.UpdatePartUsage{
		QuantityUsed: 6,
	})
	var stockErr *utils.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Current != 0 || stockErr.Requested != 1 {
		t.Fatalf("InsufficientStockError = have %d need %d, want have 0 need 1", stockErr.Current, stockErr.Requested)
	}

	current, err := models.CurrentStock(config.GetDB(), ctx, incoming.PartNumber)
	if err != nil {
		t.Fatalf("CurrentStock: %v", err)
	}
	if current != 0 {
		t.Fatalf("expected final stock 0, got %d", current)
	}
}

func TestMutationsSurviveAuditTableLoss(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Electronics", "E")

	incoming, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Relay",
		IncomingQuantity: 8,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming: %v", err)
	}

	// Audit writes are best effort: with the table gone every mutation must
	// still commit.
	if err := config.GetDB().Exec("DROP TABLE action_audits").Error; err != nil {
		t.Fatalf("drop audit table: %v", err)
	}

	usage, err := workflow.RegisterUsage(ctx, &models.NewPartUsage{
		IncomingId:   incoming.ID,
		QuantityUsed: 2,
	})
	if err != nil {
		t.Fatalf("RegisterUsage without audit table: %v", err)
	}
	if _, err := workflow.UpdateUsage(ctx, usage.ID, &models.UpdatePartUsage{
		QuantityUsed: 1,
	}); err != nil {
		t.Fatalf("UpdateUsage without audit table: %v", err)
	}
	if _, err := workflow.UpdateIncoming(ctx, incoming.ID, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Relay 24V",
		IncomingQuantity: 8,
	}); err != nil {
		t.Fatalf("UpdateIncoming without audit table: %v", err)
	}

	// The business rows made it.
	got, err := models.GetUsage(ctx, usage.ID)
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if got.QuantityUsed != 1 {
		t.Fatalf("QuantityUsed = %d, want 1", got.QuantityUsed)
	}
	lot, err := models.GetIncoming(ctx, incoming.ID)
	if err != nil {
		t.Fatalf("GetIncoming: %v", err)
	}
	if lot.PartName != "Relay 24V" {
		t.Fatalf("PartName = %s, want Relay 24V", lot.PartName)
	}
}

func TestUpdateIncomingRejectsRenameWithUsageHistory(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Electronics", "E")

	incoming, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Encoder",
		IncomingQuantity: 10,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming: %v", err)
	}
	if _, err := workflow.RegisterUsage(ctx, &models.NewPartUsage{
		IncomingId:   incoming.ID,
		QuantityUsed: 2,
	}); err != nil {
		t.Fatalf("RegisterUsage: %v", err)
	}

	_, err = workflow.UpdateIncoming(ctx, incoming.ID, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartNumber:       "E-0099",
		PartName:         "Encoder",
		IncomingQuantity: 10,
	})
	if err == nil {
		t.Fatal("expected rename to be rejected while usage rows reference the lot")
	}

	lot, err := models.GetIncoming(ctx, incoming.ID)
	if err != nil {
		t.Fatalf("GetIncoming: %v", err)
	}
	if lot.PartNumber != incoming.PartNumber {
		t.Fatalf("part number changed to %s despite usage history", lot.PartNumber)
	}
}

func TestUpdateIncomingRenameChecksPooledStock(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Pneumatics", "P")

	// Two lots pool stock under the same manually entered part number.
	lot1, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartNumber:       "P-0100",
		PartName:         "Valve",
		IncomingQuantity: 5,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming(lot1): %v", err)
	}
	lot2, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartNumber:       "P-0100",
		PartName:         "Valve",
		IncomingQuantity: 5,
	})
	if err != nil {
		t.Fatalf("RegisterIncoming(lot2): %v", err)
	}
	usage, err := workflow.RegisterUsage(ctx, &models.NewPartUsage{
		IncomingId:   lot2.ID,
		QuantityUsed: 6,
	})
	if err != nil {
		t.Fatalf("RegisterUsage: %v", err)
	}

	// Stock is 4; moving lot1's 5 units to a new number would leave the old
	// part number overdrawn.
	_, err = workflow.UpdateIncoming(ctx, lot1.ID, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartNumber:       "P-0200",
		PartName:         "Valve",
		IncomingQuantity: 5,
	})
	var stockErr *utils.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Current != 4 || stockErr.Requested != 5 {
		t.Fatalf("InsufficientStockError = have %d need %d, want have 4 need 5", stockErr.Current, stockErr.Requested)
	}

	// After the withdrawal shrinks, the rename fits and the quantities move.
	if _, err := workflow.UpdateUsage(ctx, usage.ID, &models.UpdatePartUsage{
		QuantityUsed: 2,
	}); err != nil {
		t.Fatalf("UpdateUsage: %v", err)
	}
	if _, err := workflow.UpdateIncoming(ctx, lot1.ID, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartNumber:       "P-0200",
		PartName:         "Valve",
		IncomingQuantity: 5,
	}); err != nil {
		t.Fatalf("UpdateIncoming(rename): %v", err)
	}

	oldStock, err := models.CurrentStock(config.GetDB(), ctx, "P-0100")
	if err != nil {
		t.Fatalf("CurrentStock(P-0100): %v", err)
	}
	if oldStock != 3 {
		t.Fatalf("old part stock = %d, want 3", oldStock)
	}
	newStock, err := models.CurrentStock(config.GetDB(), ctx, "P-0200")
	if err != nil {
		t.Fatalf("CurrentStock(P-0200): %v", err)
	}
	if newStock != 5 {
		t.Fatalf("new part stock = %d, want 5", newStock)
	}
}

func TestCategoryMutationsWriteAuditRows(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	category, err := workflow.CreateCategory(ctx, &models.NewCategory{
		CategoryName: "Hydraulics",
		CategoryCode: "H",
	})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	if _, err := workflow.UpdateCategory(ctx, category.ID, &models.NewCategory{
		CategoryName: "Hydraulic Parts",
		CategoryCode: "H",
	}); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if _, err := workflow.DeactivateCategory(ctx, category.ID); err != nil {
		t.Fatalf("DeactivateCategory: %v", err)
	}
	if _, err := workflow.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	audits := models.GetRecentAudits(ctx, "category", category.ID, 10)
	actions := make(map[string]*models.ActionAudit)
	for _, a := range audits {
		actions[a.Action] = a
	}
	for _, want := range []string{"CREATE", "UPDATE", "DEACTIVATE", "DELETE"} {
		if _, ok := actions[want]; !ok {
			t.Fatalf("missing %s audit row, got %d rows", want, len(audits))
		}
	}

	update := actions["UPDATE"]
	if update.ChangedFields == nil || !strings.Contains(*update.ChangedFields, "Category name") {
		t.Fatalf("UPDATE audit missing Category name diff: %v", update.ChangedFields)
	}
	if update.Actor != "test@local" {
		t.Fatalf("actor = %s, want test@local", update.Actor)
	}
	deactivate := actions["DEACTIVATE"]
	if deactivate.ChangedFields == nil || !strings.Contains(*deactivate.ChangedFields, "Active") {
		t.Fatalf("DEACTIVATE audit missing Active diff: %v", deactivate.ChangedFields)
	}
}

func TestUserMutationsWriteAuditRows(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	user, err := workflow.CreateUser(ctx, &models.NewUser{
		Username: "jlee",
		Name:     "J. Lee",
		Password: "initial-pass",
		IsActive: utils.NewTrue(),
		Role:     models.RoleStaff,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := workflow.UpdateUser(ctx, user.ID, &models.NewUser{
		Username: "jlee",
		Name:     "J. Lee",
		Password: "rotated-pass",
		IsActive: utils.NewTrue(),
		Role:     models.RoleAdmin,
	}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if _, err := workflow.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	audits := models.GetRecentAudits(ctx, "user", user.ID, 10)
	actions := make(map[string]*models.ActionAudit)
	for _, a := range audits {
		actions[a.Action] = a
	}
	for _, want := range []string{"CREATE", "UPDATE", "DELETE"} {
		if _, ok := actions[want]; !ok {
			t.Fatalf("missing %s audit row, got %d rows", want, len(audits))
		}
	}

	// The role change is diffed; the password rotation never leaks a value.
	update := actions["UPDATE"]
	if update.ChangedFields == nil || !strings.Contains(*update.ChangedFields, "Role") {
		t.Fatalf("UPDATE audit missing Role diff: %v", update.ChangedFields)
	}
	if strings.Contains(*update.ChangedFields, "pass") {
		t.Fatalf("UPDATE audit leaked password material: %v", *update.ChangedFields)
	}
}

func TestCategoryCacheInvalidatedOnMutation(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	category := mustCreateCategory(t, ctx, "Fasteners", "F")

	// First read fills the cache.
	if _, err := models.GetCategory(ctx, category.ID); err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	cached, err := utils.RetrieveRedis[models.Category](category.ID)
	if err != nil {
		t.Fatalf("RetrieveRedis: %v", err)
	}
	if cached == nil || cached.CategoryName != "Fasteners" {
		t.Fatalf("cache not primed after read: %+v", cached)
	}

	// A rename drops the cached copy and the next read serves fresh data.
	if _, err := workflow.UpdateCategory(ctx, category.ID, &models.NewCategory{
		CategoryName: "Fastening Hardware",
		CategoryCode: "F",
	}); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	got, err := models.GetCategory(ctx, category.ID)
	if err != nil {
		t.Fatalf("GetCategory after update: %v", err)
	}
	if got.CategoryName != "Fastening Hardware" {
		t.Fatalf("CategoryName = %s, want Fastening Hardware", got.CategoryName)
	}

	// Minting a part number bumps last_number and also drops the cache.
	if _, err := workflow.RegisterIncoming(ctx, &models.NewPartIncoming{
		CategoryId:       category.ID,
		PartName:         "Hex Bolt",
		IncomingQuantity: 100,
	}); err != nil {
		t.Fatalf("RegisterIncoming: %v", err)
	}
	got, err = models.GetCategory(ctx, category.ID)
	if err != nil {
		t.Fatalf("GetCategory after mint: %v", err)
	}
	if got.LastNumber != 1 {
		t.Fatalf("LastNumber = %d, want 1", got.LastNumber)
	}
}

func TestDocumentTemplateMetadataCrud(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	_, err := workflow.CreateDocumentTemplate(ctx, &models.NewDocumentTemplate{
		TemplateName: "Broken",
		TableConfig:  "{not json",
	})
	if err == nil {
		t.Fatal("expected invalid table_config to be rejected")
	}

	template, err := workflow.CreateDocumentTemplate(ctx, &models.NewDocumentTemplate{
		TemplateName: "Outgoing Slip",
		TableConfig:  `{"x":10,"y":120,"width":560,"height":400,"columns":4,"rowHeight":24}`,
		FixedTexts:   `[{"text":"Parts Withdrawal","x":40,"y":30,"fontSize":18,"fontWeight":"bold"}]`,
	})
	if err != nil {
		t.Fatalf("CreateDocumentTemplate: %v", err)
	}

	document, err := workflow.CreateGeneratedDocument(ctx, &models.NewGeneratedDocument{
		TemplateId:   template.ID,
		DocumentName: "Slip 2026-08",
		TableData:    `[["E-0001","Relay",2]]`,
	})
	if err != nil {
		t.Fatalf("CreateGeneratedDocument: %v", err)
	}
	if document.TemplateName != "Outgoing Slip" {
		t.Fatalf("TemplateName = %s, want Outgoing Slip", document.TemplateName)
	}

	// Listing joins the template name in.
	list, err := models.GetGeneratedDocuments(ctx, template.ID)
	if err != nil {
		t.Fatalf("GetGeneratedDocuments: %v", err)
	}
	if len(list) != 1 || list[0].TemplateName != "Outgoing Slip" {
		t.Fatalf("list = %+v, want one row with joined template name", list)
	}

	// The template cannot go while documents reference it.
	if _, err := workflow.DeleteDocumentTemplate(ctx, template.ID); err == nil {
		t.Fatal("expected template delete to be blocked by generated documents")
	}
	if _, err := workflow.DeleteGeneratedDocument(ctx, document.ID); err != nil {
		t.Fatalf("DeleteGeneratedDocument: %v", err)
	}
	if _, err := workflow.DeleteDocumentTemplate(ctx, template.ID); err != nil {
		t.Fatalf("DeleteDocumentTemplate: %v", err)
	}

	audits := models.GetRecentAudits(ctx, "document_template", template.ID, 10)
	if len(audits) < 2 {
		t.Fatalf("expected CREATE and DELETE audit rows, got %d", len(audits))
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("parts-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("parts-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=parts_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
