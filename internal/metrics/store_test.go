package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"platewise/internal/database"
	"platewise/internal/shared"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStoreRecordAndDailyUsage(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	for i := 0; i < 3; i++ {
		err := store.Record(ctx, GenerationMetric{
			Operation:        "generate_plan",
			Model:            "test-model",
			PromptTokens:     100,
			CompletionTokens: 400,
			LatencyMS:        1200,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected 1 day of usage, got %d", len(usage))
	}
	if usage[0].TotalCalls != 3 {
		t.Errorf("Expected 3 calls, got %d", usage[0].TotalCalls)
	}
	if usage[0].TotalPrompt != 300 {
		t.Errorf("Expected 300 prompt tokens, got %d", usage[0].TotalPrompt)
	}
	if usage[0].TotalCompletion != 1200 {
		t.Errorf("Expected 1200 completion tokens, got %d", usage[0].TotalCompletion)
	}
}

func TestStoreRecordMetaSkipsEmptyUsage(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	err := store.RecordMeta(ctx, shared.GenerationMeta{Operation: "generate_plan"})
	if err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 0 {
		t.Errorf("Expected no usage rows, got %d", len(usage))
	}
}

func TestStoreCleanup(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	old := GenerationMetric{
		Operation:        "generate_plan",
		Model:            "test-model",
		PromptTokens:     10,
		CompletionTokens: 10,
		Timestamp:        time.Now().AddDate(0, 0, -60).UTC(),
	}
	recent := old
	recent.Timestamp = time.Now().UTC()

	if err := store.Record(ctx, old); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Record(ctx, recent); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	removed, err := store.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed row, got %d", removed)
	}
}
