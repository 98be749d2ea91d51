package workflow

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/utils"
	"github.com/shopspring/decimal"
)

func TestBuildChangedFieldsSkipsIdenticalSnapshots(t *testing.T) {
	before := &models.PartIncoming{PartNumber: "E-0001", PartName: "Relay", IncomingQuantity: 10}
	after := *before

	if diff := BuildChangedFields(before, &after, incomingFieldLabels); diff != nil {
		t.Fatalf("expected nil diff for identical snapshots, got %v", diff)
	}
}

func TestBuildChangedFieldsLabelsChanges(t *testing.T) {
	before := &models.PartIncoming{PartNumber: "E-0001", PartName: "Relay", IncomingQuantity: 10, Supplier: "Acme"}
	after := &models.PartIncoming{PartNumber: "E-0001", PartName: "Relay 24V", IncomingQuantity: 8, Supplier: "Acme"}

	diff := BuildChangedFields(before, after, incomingFieldLabels)
	if diff == nil {
		t.Fatal("expected a diff")
	}
	if len(diff) != 2 {
		t.Fatalf("expected 2 changed fields, got %d: %v", len(diff), diff)
	}

	change, ok := diff["Part name"]
	if !ok {
		t.Fatalf("expected Part name change, got %v", diff)
	}
	if change.Before != "Relay" || change.After != "Relay 24V" {
		t.Errorf("Part name change = %v -> %v", change.Before, change.After)
	}
	if _, ok := diff["Incoming quantity"]; !ok {
		t.Errorf("expected Incoming quantity change, got %v", diff)
	}
	if _, ok := diff["Supplier"]; ok {
		t.Errorf("unchanged Supplier should not appear in diff")
	}
}

func TestBuildChangedFieldsIgnoresUnlabeledFields(t *testing.T) {
	before := &models.PartIncoming{ID: 1, PartName: "Relay", CreatedBy: "kim"}
	after := &models.PartIncoming{ID: 2, PartName: "Relay", CreatedBy: "lee", CreatedAt: time.Now()}

	// only id, created_by and created_at differ, none of which are labeled
	if diff := BuildChangedFields(before, after, incomingFieldLabels); diff != nil {
		t.Fatalf("expected nil diff, got %v", diff)
	}
}

func TestMarshalChangedFields(t *testing.T) {
	if got := MarshalChangedFields(nil); got != nil {
		t.Fatalf("expected nil for nil diff, got %q", *got)
	}

	diff := map[string]FieldChange{"Part name": {Before: "a", After: "b"}}
	got := MarshalChangedFields(diff)
	if got == nil {
		t.Fatal("expected serialized diff")
	}
	want := `{"Part name":{"before":"a","after":"b"}}`
	if *got != want {
		t.Errorf("MarshalChangedFields = %s, want %s", *got, want)
	}
}

func TestResolveActor(t *testing.T) {
	ctx := context.Background()

	if got := ResolveActor(ctx, "kim"); got != "kim" {
		t.Errorf("explicit actor: got %q", got)
	}
	if got := ResolveActor(ctx, "  "); got != "system" {
		t.Errorf("blank actor without session: got %q, want system", got)
	}

	ctx = utils.SetUsernameInContext(ctx, "lee")
	if got := ResolveActor(ctx, ""); got != "lee" {
		t.Errorf("session actor: got %q, want lee", got)
	}
	if got := ResolveActor(ctx, "kim"); got != "kim" {
		t.Errorf("explicit actor overrides session: got %q", got)
	}
}

func TestApplyExchangeRateForeignCurrency(t *testing.T) {
	input := &models.NewPartIncoming{
		Currency:      "USD",
		OriginalPrice: decimal.NewFromFloat(12.50),
		ExchangeRate:  decimal.NewFromInt(1350),
	}
	applyExchangeRate(input)

	want := decimal.NewFromFloat(16875)
	if !input.PurchasePrice.Equal(want) {
		t.Errorf("PurchasePrice = %s, want %s", input.PurchasePrice, want)
	}
	if input.Currency != "USD" {
		t.Errorf("Currency = %s", input.Currency)
	}
}

func TestApplyExchangeRateKRW(t *testing.T) {
	input := &models.NewPartIncoming{
		PurchasePrice: decimal.NewFromInt(5000),
	}
	applyExchangeRate(input)

	if input.Currency != "KRW" {
		t.Errorf("Currency = %s, want KRW", input.Currency)
	}
	if !input.OriginalPrice.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("OriginalPrice = %s, want 5000", input.OriginalPrice)
	}
	if !input.ExchangeRate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("ExchangeRate = %s, want 1", input.ExchangeRate)
	}
}
