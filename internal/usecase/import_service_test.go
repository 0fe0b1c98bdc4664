package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

var catalogueDay = time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)

func TestImportBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty batch fails without errors", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		result := env.importer.ImportBatch(ctx, nil, store.ID, catalogueDay, nil)
		if result.Success {
			t.Error("Success = true, want false")
		}
		if len(result.Errors) != 0 {
			t.Errorf("errors = %v, want none", result.Errors)
		}
	})

	t.Run("unknown store aborts the batch", func(t *testing.T) {
		env := newTestEnv()
		products := []domain.RawProduct{{ProductName: "Milk 2L", Price: "$4.50"}}
		result := env.importer.ImportBatch(ctx, products, "no-such-store", catalogueDay, nil)
		if result.Success {
			t.Error("Success = true, want false")
		}
		if len(result.Errors) != 1 || result.Errors[0].Type != domain.ErrorTypeStore {
			t.Fatalf("errors = %v, want one store_error", result.Errors)
		}
		if len(env.prices.records) != 0 {
			t.Errorf("created %d price records, want 0", len(env.prices.records))
		}
	})

	t.Run("bad catalogue date aborts the batch", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		products := []domain.RawProduct{{ProductName: "Milk 2L", Price: "$4.50"}}
		result := env.importer.ImportBatch(ctx, products, store.ID, catalogueDay.AddDate(10, 0, 0), nil)
		if result.Success {
			t.Error("Success = true, want false")
		}
	})

	t.Run("creates item and price record", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		products := []domain.RawProduct{{
			ProductName:   "Coca-Cola Classic 2L",
			Brand:         "Coca-Cola",
			Category:      "Beverages",
			Price:         "$2.85",
			OriginalPrice: "$3.80",
			Savings:       "$0.95",
		}}

		result := env.importer.ImportBatch(ctx, products, store.ID, catalogueDay, nil)
		if !result.Success {
			t.Fatalf("Success = false: %s", result.ErrorMessage)
		}
		if result.ItemsProcessed != 1 || result.PriceRecordsCreated != 1 {
			t.Fatalf("processed %d, records %d, want 1 and 1", result.ItemsProcessed, result.PriceRecordsCreated)
		}

		item := env.items.items[0]
		if item.ExtraInformation[domain.ExtraKeyStore] != "Drakes" {
			t.Errorf("store extra = %q, want Drakes", item.ExtraInformation[domain.ExtraKeyStore])
		}
		if item.PackageSize != "2l" {
			t.Errorf("package size = %q, want 2l", item.PackageSize)
		}

		record := env.prices.records[0]
		if record.Price != 2.85 {
			t.Errorf("price = %v, want 2.85", record.Price)
		}
		if record.OriginalPrice == nil || *record.OriginalPrice != 3.80 {
			t.Errorf("original price = %v, want 3.80", record.OriginalPrice)
		}
		if !record.IsOnSale {
			t.Error("IsOnSale = false, want true")
		}
		if record.Source != domain.SourceCatalogue {
			t.Errorf("source = %q, want Catalogue", record.Source)
		}
		if record.ValidTo == nil || !record.ValidTo.Equal(catalogueDay.AddDate(0, 0, 7)) {
			t.Errorf("ValidTo = %v, want catalogue date + 7 days", record.ValidTo)
		}
	})

	t.Run("re-import matches existing item", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		products := []domain.RawProduct{{ProductName: "Milk 2L", Brand: "Devondale", Price: "$4.50"}}

		first := env.importer.ImportBatch(ctx, products, store.ID, catalogueDay, nil)
		second := env.importer.ImportBatch(ctx, products, store.ID, catalogueDay.AddDate(0, 0, 7), nil)

		if !first.Success || !second.Success {
			t.Fatal("expected both imports to succeed")
		}
		if len(env.items.items) != 1 {
			t.Fatalf("have %d items, want 1", len(env.items.items))
		}
		if len(env.prices.records) != 2 {
			t.Fatalf("have %d price records, want 2", len(env.prices.records))
		}
		if second.ItemsUpdated != 1 {
			t.Errorf("second ItemsUpdated = %d, want 1", second.ItemsUpdated)
		}
	})

	t.Run("name match is case-insensitive", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		env.importer.ImportBatch(ctx, []domain.RawProduct{{ProductName: "Milk 2L", Brand: "Devondale", Price: "$4.50"}}, store.ID, catalogueDay, nil)
		env.importer.ImportBatch(ctx, []domain.RawProduct{{ProductName: "MILK 2L", Brand: "Devondale", Price: "$4.60"}}, store.ID, catalogueDay, nil)
		if len(env.items.items) != 1 {
			t.Errorf("have %d items, want 1", len(env.items.items))
		}
	})

	t.Run("brand match is exact", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		env.importer.ImportBatch(ctx, []domain.RawProduct{{ProductName: "Cola 2L", Brand: "Coca-Cola", Price: "$2.85"}}, store.ID, catalogueDay, nil)
		env.importer.ImportBatch(ctx, []domain.RawProduct{{ProductName: "Cola 2L", Brand: "Pepsi", Price: "$2.50"}}, store.ID, catalogueDay, nil)
		env.importer.ImportBatch(ctx, []domain.RawProduct{{ProductName: "Cola 2L", Price: "$2.00"}}, store.ID, catalogueDay, nil)
		if len(env.items.items) != 3 {
			t.Errorf("have %d items, want 3 (distinct brands including no brand)", len(env.items.items))
		}
	})

	t.Run("explicit mapping records price without touching the item", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		item := &domain.Item{Name: "House Cola", Brand: "Drakes", IsActive: true}
		env.items.Add(ctx, item)

		products := []domain.RawProduct{{ProductID: "ext-1", ProductName: "Cola Two Litre", Price: "$2.00"}}
		opts := &ImportBatchOptions{ExistingMappings: map[string]string{"ext-1": item.ID}}
		result := env.importer.ImportBatch(ctx, products, store.ID, catalogueDay, opts)

		if !result.Success {
			t.Fatalf("Success = false: %s", result.ErrorMessage)
		}
		if result.ItemsProcessed != 0 {
			t.Errorf("ItemsProcessed = %d, want 0 for mapped record", result.ItemsProcessed)
		}
		if result.PriceRecordsCreated != 1 {
			t.Errorf("PriceRecordsCreated = %d, want 1", result.PriceRecordsCreated)
		}
		if len(env.items.items) != 1 {
			t.Errorf("have %d items, want 1", len(env.items.items))
		}
		if env.items.items[0].Name != "House Cola" {
			t.Errorf("mapped item renamed to %q", env.items.items[0].Name)
		}
		if env.prices.records[0].ItemID != item.ID {
			t.Errorf("price recorded against %s, want %s", env.prices.records[0].ItemID, item.ID)
		}
	})

	t.Run("mapping to a missing item skips the record", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		products := []domain.RawProduct{{ProductID: "ext-1", ProductName: "Cola", Price: "$2.00"}}
		opts := &ImportBatchOptions{ExistingMappings: map[string]string{"ext-1": "gone"}}
		result := env.importer.ImportBatch(ctx, products, store.ID, catalogueDay, opts)

		if result.Success {
			t.Error("Success = true, want false with nothing processed")
		}
		if len(result.Errors) != 1 || result.Errors[0].Type != domain.ErrorTypeStore {
			t.Fatalf("errors = %v, want one store_error", result.Errors)
		}
	})

	t.Run("invalid records accumulate errors without aborting", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		products := []domain.RawProduct{
			{ProductName: "Milk 2L", Price: "$4.50"},
			{ProductName: "Bread", Price: "$3.00"},
			{ProductName: "Gold Bar", Price: "$20000"},
			{ProductName: "Eggs", Price: "$6.50"},
			{ProductName: "Butter", Price: "$5.00"},
		}

		result := env.importer.ImportBatch(ctx, products, store.ID, catalogueDay, nil)
		if !result.Success {
			t.Fatal("Success = false, want true for partial failure")
		}
		if result.ItemsProcessed != 4 {
			t.Errorf("ItemsProcessed = %d, want 4", result.ItemsProcessed)
		}
		if result.ItemsFailed != 1 {
			t.Errorf("ItemsFailed = %d, want 1", result.ItemsFailed)
		}
		if len(result.Errors) != 1 || result.Errors[0].Type != domain.ErrorTypeInvalidData {
			t.Fatalf("errors = %v, want one invalid_data error", result.Errors)
		}
		if result.Errors[0].RecordIndex != 2 {
			t.Errorf("record index = %d, want 2", result.Errors[0].RecordIndex)
		}
	})

	t.Run("progress fires once per record in order", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		products := []domain.RawProduct{
			{ProductName: "Milk 2L", Price: "$4.50"},
			{ProductName: "Bread", Price: "$3.00"},
		}

		var seen []domain.ImportProgress
		opts := &ImportBatchOptions{Progress: func(p domain.ImportProgress) { seen = append(seen, p) }}
		env.importer.ImportBatch(ctx, products, store.ID, catalogueDay, opts)

		if len(seen) != 2 {
			t.Fatalf("progress fired %d times, want 2", len(seen))
		}
		if seen[0].CurrentItem != "Milk 2L" || seen[1].CurrentItem != "Bread" {
			t.Errorf("progress order = %q then %q", seen[0].CurrentItem, seen[1].CurrentItem)
		}
		if seen[1].PercentComplete() != 100 {
			t.Errorf("final percent = %v, want 100", seen[1].PercentComplete())
		}
	})

	t.Run("panicking progress sink does not abort the batch", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		products := []domain.RawProduct{{ProductName: "Milk 2L", Price: "$4.50"}}
		opts := &ImportBatchOptions{Progress: func(domain.ImportProgress) { panic("sink broke") }}
		result := env.importer.ImportBatch(ctx, products, store.ID, catalogueDay, opts)
		if !result.Success {
			t.Errorf("Success = false: %s", result.ErrorMessage)
		}
	})

	t.Run("publishes one event per price record", func(t *testing.T) {
		env := newTestEnv()
		store := env.addStore("Drakes")
		products := []domain.RawProduct{
			{ProductName: "Milk 2L", Price: "$4.50"},
			{ProductName: "Bread", Price: "$3.00"},
		}
		env.importer.ImportBatch(ctx, products, store.ID, catalogueDay, nil)
		if len(env.publisher.events) != 2 {
			t.Fatalf("published %d events, want 2", len(env.publisher.events))
		}
		if env.publisher.events[0].EventType != domain.EventTypePriceRecorded {
			t.Errorf("event type = %q", env.publisher.events[0].EventType)
		}
	})

	t.Run("publisher failure does not fail the import", func(t *testing.T) {
		env := newTestEnv()
		env.publisher.err = os.ErrDeadlineExceeded
		store := env.addStore("Drakes")
		products := []domain.RawProduct{{ProductName: "Milk 2L", Price: "$4.50"}}
		result := env.importer.ImportBatch(ctx, products, store.ID, catalogueDay, nil)
		if !result.Success || result.PriceRecordsCreated != 1 {
			t.Errorf("result = %+v, want successful import despite publish failure", result)
		}
	})
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()

	writeFile := func(t *testing.T, name, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("imports bare array and detects chain from filename", func(t *testing.T) {
		env := newTestEnv()
		path := writeFile(t, "coles_catalogue.json", `[{"productName":"Milk 2L","price":"$4.50"}]`)
		result := env.importer.ImportFile(ctx, path, catalogueDay)
		if !result.Success {
			t.Fatalf("Success = false: %s", result.ErrorMessage)
		}
		if len(env.places.places) != 1 || env.places.places[0].Name != "Coles" {
			t.Fatalf("places = %+v, want one Coles store", env.places.places)
		}
	})

	t.Run("imports wrapped object", func(t *testing.T) {
		env := newTestEnv()
		path := writeFile(t, "woolworths.json", `{"items":[{"productName":"Bread","price":"$3.00"}]}`)
		result := env.importer.ImportFile(ctx, path, catalogueDay)
		if !result.Success {
			t.Fatalf("Success = false: %s", result.ErrorMessage)
		}
		if result.PriceRecordsCreated != 1 {
			t.Errorf("records = %d, want 1", result.PriceRecordsCreated)
		}
	})

	t.Run("reuses existing store on second import", func(t *testing.T) {
		env := newTestEnv()
		path := writeFile(t, "aldi_week1.json", `[{"productName":"Milk 2L","price":"$4.50"}]`)
		env.importer.ImportFile(ctx, path, catalogueDay)
		env.importer.ImportFile(ctx, path, catalogueDay.AddDate(0, 0, 7))
		if len(env.places.places) != 1 {
			t.Errorf("have %d places, want 1", len(env.places.places))
		}
	})

	t.Run("rejects invalid JSON without side effects", func(t *testing.T) {
		env := newTestEnv()
		path := writeFile(t, "broken.json", `[{"productName":`)
		result := env.importer.ImportFile(ctx, path, catalogueDay)
		if result.Success {
			t.Error("Success = true, want false")
		}
		if len(result.Errors) != 1 || result.Errors[0].Type != domain.ErrorTypeInvalidJSON {
			t.Fatalf("errors = %v, want one invalid_json error", result.Errors)
		}
		if len(env.items.items) != 0 || len(env.prices.records) != 0 {
			t.Error("import wrote data despite invalid input")
		}
	})

	t.Run("rejects missing file", func(t *testing.T) {
		env := newTestEnv()
		result := env.importer.ImportFile(ctx, filepath.Join(t.TempDir(), "none.json"), catalogueDay)
		if result.Success || len(result.Errors) == 0 || result.Errors[0].Type != domain.ErrorTypeFileNotFound {
			t.Fatalf("result = %+v, want file_not_found failure", result)
		}
	})
}

func TestImportMarkdownFile(t *testing.T) {
	ctx := context.Background()

	t.Run("imports parsed catalogue with sale period validity", func(t *testing.T) {
		env := newTestEnv()
		path := filepath.Join(t.TempDir(), "drakes.md")
		if err := os.WriteFile(path, []byte(sampleCatalogue), 0o644); err != nil {
			t.Fatal(err)
		}

		result := env.importer.ImportMarkdownFile(ctx, path, "Drakes")
		if !result.Success {
			t.Fatalf("Success = false: %s", result.ErrorMessage)
		}
		if result.ItemsProcessed != 4 || result.PriceRecordsCreated != 4 {
			t.Fatalf("processed %d, records %d, want 4 and 4", result.ItemsProcessed, result.PriceRecordsCreated)
		}

		wantTo := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
		record := env.prices.records[0]
		if record.ValidTo == nil || !record.ValidTo.Equal(wantTo) {
			t.Errorf("ValidTo = %v, want %v from the sale period", record.ValidTo, wantTo)
		}
	})

	t.Run("empty catalogue fails without errors", func(t *testing.T) {
		env := newTestEnv()
		path := filepath.Join(t.TempDir(), "empty.md")
		if err := os.WriteFile(path, []byte("# Specials\n\nNothing.\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		result := env.importer.ImportMarkdownFile(ctx, path, "Drakes")
		if result.Success {
			t.Error("Success = true, want false")
		}
		if len(result.Errors) != 0 {
			t.Errorf("errors = %v, want none", result.Errors)
		}
	})

	t.Run("missing file fails with parse error", func(t *testing.T) {
		env := newTestEnv()
		result := env.importer.ImportMarkdownFile(ctx, filepath.Join(t.TempDir(), "none.md"), "Drakes")
		if result.Success || len(result.Errors) != 1 || result.Errors[0].Type != domain.ErrorTypeParse {
			t.Fatalf("result = %+v, want one parse_error", result)
		}
	})
}

func TestPreviewFile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	path := filepath.Join(t.TempDir(), "mixed.json")
	content := `[
		{"productName":"Milk 2L","price":"$4.50"},
		{"productName":"","price":"$1.00"},
		{"productName":"Gold Bar","price":"$20000"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	valid, errs := env.importer.PreviewFile(ctx, path)
	if len(valid) != 1 || valid[0].ProductName != "Milk 2L" {
		t.Fatalf("valid = %+v, want just Milk 2L", valid)
	}
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want 2", errs)
	}
	if len(env.items.items) != 0 || len(env.prices.records) != 0 {
		t.Error("preview wrote data")
	}
}

func TestImportBatchAsync(t *testing.T) {
	env := newTestEnv()
	store := env.addStore("Drakes")
	products := []domain.RawProduct{{ProductName: "Milk 2L", Price: "$4.50"}}

	result := <-env.importer.ImportBatchAsync(context.Background(), products, store.ID, catalogueDay, nil)
	if !result.Success || result.PriceRecordsCreated != 1 {
		t.Fatalf("result = %+v, want one price record", result)
	}
}

func TestDetectChain(t *testing.T) {
	testCases := []struct {
		name    string
		path    string
		content string
		want    string
	}{
		{name: "chain in filename", path: "/tmp/coles_feb.json", want: "Coles"},
		{name: "chain case-insensitive", path: "/tmp/WOOLWORTHS.json", want: "Woolworths"},
		{name: "chain in content", path: "/tmp/feed.json", content: `{"source":"ALDI weekly"}`, want: "ALDI"},
		{name: "filename wins over content", path: "/tmp/iga.json", content: "coles", want: "IGA"},
		{name: "unknown source", path: "/tmp/feed.json", content: "{}", want: "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectChain(tc.path, []byte(tc.content)); got != tc.want {
				t.Errorf("DetectChain(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}
