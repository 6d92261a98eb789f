package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
)

func openTestRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	r, err := OpenSQLiteRegistry(context.Background(), filepath.Join(t.TempDir(), "state", "state.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRegistrySaveReplaces(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	if err := r.Save(ctx, []string{"b", "a", "a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	ids, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}

	if err := r.Save(ctx, []string{"c"}); err != nil {
		t.Fatal(err)
	}
	ids, _ = r.Load(ctx)
	if len(ids) != 1 || ids[0] != "c" {
		t.Fatalf("save should replace previous set, got %v", ids)
	}

	if err := r.Save(ctx, nil); err != nil {
		t.Fatal(err)
	}
	ids, _ = r.Load(ctx)
	if len(ids) != 0 {
		t.Fatalf("expected empty set, got %v", ids)
	}
}

func TestSQLiteRegistryLedger(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()
	fire := time.Date(2025, time.April, 1, 9, 45, 0, 0, time.UTC)

	keys := []models.AlarmKey{
		{EventID: "e", Kind: models.Original(0)},
		{EventID: "e", Kind: models.Original(12)},
		{EventID: "e", Kind: models.Snooze},
		{EventID: "other", Kind: models.FinalReminder},
	}
	for _, k := range keys {
		if err := r.Record(ctx, k, fire); err != nil {
			t.Fatalf("record %s: %v", k, err)
		}
	}
	// Recording twice updates in place
	if err := r.Record(ctx, keys[0], fire.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	got, err := r.Keys(ctx, "e")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 keys for e, got %v", got)
	}
	found := false
	for _, k := range got {
		if k.Kind == models.Original(12) {
			found = true
		}
	}
	if !found {
		t.Fatalf("ledger must keep kinds outside the bounded enumeration: %v", got)
	}

	if err := r.Remove(ctx, keys[2]); err != nil {
		t.Fatal(err)
	}
	got, _ = r.Keys(ctx, "e")
	if len(got) != 2 {
		t.Fatalf("expected 2 keys after remove, got %v", got)
	}

	if err := r.ForgetEvent(ctx, "e"); err != nil {
		t.Fatal(err)
	}
	got, _ = r.Keys(ctx, "e")
	if len(got) != 0 {
		t.Fatalf("expected no keys after forget, got %v", got)
	}
	got, _ = r.Keys(ctx, "other")
	if len(got) != 1 {
		t.Fatalf("other event keys must survive, got %v", got)
	}
}

func TestSQLiteRegistryPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	r, err := OpenSQLiteRegistry(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Save(ctx, []string{"persisted"}); err != nil {
		t.Fatal(err)
	}
	r.Close()

	r, err = OpenSQLiteRegistry(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	ids, _ := r.Load(ctx)
	if len(ids) != 1 || ids[0] != "persisted" {
		t.Fatalf("expected persisted id, got %v", ids)
	}
}
