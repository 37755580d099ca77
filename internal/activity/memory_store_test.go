package activity

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEntry(id, op, outcome string, minutes int) Entry {
	return Entry{
		ID:         id,
		CallID:     "call-" + id,
		Operation:  op,
		Path:       "read",
		Outcome:    outcome,
		Generation: 1,
		OccurredAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_AppendAndList(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, e := range []Entry{
				testEntry("1", "balanceOf", "succeeded", 1),
				testEntry("2", "transfer", "failed", 2),
				testEntry("3", "balanceOf", "failed", 3),
			} {
				if err := store.Append(ctx, e); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}

			got, next, err := store.List(ctx, QueryOptions{Operation: "balanceOf"})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if next != "" {
				t.Errorf("next = %q, want empty", next)
			}
			if len(got) != 2 {
				t.Fatalf("results = %d, want 2", len(got))
			}
			if got[0].ID != "3" || got[1].ID != "1" {
				t.Errorf("order = %s,%s, want 3,1", got[0].ID, got[1].ID)
			}
		})
	}
}

func TestStore_FilterOutcomeAndSince(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Append(ctx, testEntry("1", "transfer", "failed", 1))
			store.Append(ctx, testEntry("2", "transfer", "succeeded", 2))
			store.Append(ctx, testEntry("3", "transfer", "failed", 10))

			got, _, err := store.List(ctx, QueryOptions{Outcome: "failed"})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != 2 {
				t.Errorf("failed results = %d, want 2", len(got))
			}

			since := base.Add(5 * time.Minute)
			got, _, err = store.List(ctx, QueryOptions{Since: &since})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != 1 || got[0].ID != "3" {
				t.Errorf("since results = %+v, want only 3", got)
			}
		})
	}
}

func TestStore_Pagination(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, id := range []string{"a", "b", "c", "d", "e"} {
				store.Append(ctx, testEntry(id, "approve", "succeeded", i))
			}

			page1, cursor, err := store.List(ctx, QueryOptions{Limit: 2})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(page1) != 2 || cursor == "" {
				t.Fatalf("page1 = %d entries, cursor %q", len(page1), cursor)
			}
			if page1[0].ID != "e" || page1[1].ID != "d" {
				t.Errorf("page1 = %s,%s, want e,d", page1[0].ID, page1[1].ID)
			}

			page2, cursor, _ := store.List(ctx, QueryOptions{Limit: 2, Cursor: cursor})
			if len(page2) != 2 || page2[0].ID != "c" || page2[1].ID != "b" {
				t.Errorf("page2 = %+v, want c,b", page2)
			}

			page3, cursor, _ := store.List(ctx, QueryOptions{Limit: 2, Cursor: cursor})
			if len(page3) != 1 || page3[0].ID != "a" {
				t.Errorf("page3 = %+v, want a", page3)
			}
			if cursor != "" {
				t.Errorf("final cursor = %q, want empty", cursor)
			}
		})
	}
}

func TestStore_AppendIsIdempotent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := testEntry("dup", "transfer", "succeeded", 0)
			store.Append(ctx, e)
			if err := store.Append(ctx, e); err != nil {
				t.Fatalf("second Append: %v", err)
			}
			got, _, _ := store.List(ctx, DefaultQueryOptions())
			if len(got) != 1 {
				t.Errorf("results = %d, want 1", len(got))
			}
		})
	}
}

func TestStore_PreservesResultAndFields(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := testEntry("r", "balanceOf", "succeeded", 0)
			e.Result = json.RawMessage(`"1000"`)
			e.SchemaDigest = "abc"
			e.Generation = 7
			store.Append(ctx, e)

			got, _, _ := store.List(ctx, DefaultQueryOptions())
			if len(got) != 1 {
				t.Fatalf("results = %d, want 1", len(got))
			}
			if string(got[0].Result) != `"1000"` {
				t.Errorf("result = %s", got[0].Result)
			}
			if got[0].Generation != 7 || got[0].SchemaDigest != "abc" || got[0].CallID != "call-r" {
				t.Errorf("fields not preserved: %+v", got[0])
			}
			if !got[0].OccurredAt.Equal(e.OccurredAt) {
				t.Errorf("occurred_at = %v, want %v", got[0].OccurredAt, e.OccurredAt)
			}
		})
	}
}

func TestStore_PaginationWithSharedTimestamps(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"a", "b", "c"} {
				store.Append(ctx, testEntry(id, "transfer", "succeeded", 0))
			}
			store.Append(ctx, testEntry("z", "transfer", "failed", -1))

			var seen []string
			cursor := ""
			for i := 0; i < 4; i++ {
				page, next, err := store.List(ctx, QueryOptions{Limit: 1, Cursor: cursor})
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				for _, e := range page {
					seen = append(seen, e.ID)
				}
				if next == "" {
					break
				}
				cursor = next
			}
			want := []string{"c", "b", "a", "z"}
			if len(seen) != len(want) {
				t.Fatalf("seen = %v, want %v", seen, want)
			}
			for i := range want {
				if seen[i] != want[i] {
					t.Errorf("seen = %v, want %v", seen, want)
					break
				}
			}
		})
	}
}
