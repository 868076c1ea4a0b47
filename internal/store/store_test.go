package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ummitifli/storefront/internal/domain"
)

func sampleInput(name, category string, price float64) domain.ProductInput {
	return domain.ProductInput{Name: name, Category: category, Price: price, InStock: true}
}

// testContract runs the behaviour every backend must share.
func testContract(t *testing.T, s Store) {
	ctx := context.Background()

	a, err := s.Insert(ctx, sampleInput("زجاجة رضاعة", "التغذية", 45))
	if err != nil {
		t.Fatalf("insert a: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	b, err := s.Insert(ctx, sampleInput("مناديل مبللة", "العناية بالطفل", 25))
	if err != nil {
		t.Fatalf("insert b: %v", err)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct generated ids, got %q %q", a.ID, b.ID)
	}
	if a.CreatedAt == nil || a.UpdatedAt == nil {
		t.Fatalf("expected timestamps to be set")
	}

	t.Run("newest first", func(t *testing.T) {
		rows, err := s.List(ctx, Newest)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 || rows[0].ID != b.ID || rows[1].ID != a.ID {
			t.Fatalf("unexpected order: %+v", rows)
		}
	})

	t.Run("filter by category", func(t *testing.T) {
		rows, err := s.List(ctx, ByCategory("التغذية"))
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0].ID != a.ID {
			t.Fatalf("unexpected rows: %+v", rows)
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := s.List(ctx, Query{Filters: []Filter{{Column: "secret", Value: "x"}}})
		if err == nil {
			t.Fatal("expected error for unknown column")
		}
	})

	t.Run("partial update", func(t *testing.T) {
		got, err := s.Update(ctx, a.ID, domain.ProductPatch{Price: domain.Float64Ptr(40)})
		if err != nil {
			t.Fatal(err)
		}
		if got.Price != 40 || got.Name != a.Name || got.Category != a.Category {
			t.Fatalf("unexpected product after update: %+v", got)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := s.Update(ctx, "missing", domain.ProductPatch{Price: domain.Float64Ptr(1)})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, b.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, b.ID); err != nil {
			t.Fatalf("deleting twice should succeed: %v", err)
		}
		rows, err := s.List(ctx, Newest)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0].ID != a.ID {
			t.Fatalf("unexpected rows after delete: %+v", rows)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testContract(t, NewMemoryStore())
}

func TestMemoryStoreSameTimestamp(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.SetClock(func() time.Time { return fixed })
	ctx := context.Background()
	first, _ := s.Insert(ctx, sampleInput("أ", "الألعاب", 1))
	second, _ := s.Insert(ctx, sampleInput("ب", "الألعاب", 2))

	rows, err := s.List(ctx, Newest)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Fatalf("expected latest insert first, got %s then %s", rows[0].Name, rows[1].Name)
	}
}

func TestMemoryStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemoryStore().List(ctx, Newest); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBoltStore(t *testing.T) {
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "storefront.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testContract(t, s)
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.db")
	s, err := OpenBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	desc := "قطن عضوي"
	in := sampleInput("بطانية", "الملابس", 80)
	in.Description = &desc
	p, err := s.Insert(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	rows, err := s.List(context.Background(), Newest)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID != p.ID || rows[0].Description == nil || *rows[0].Description != desc {
		t.Fatalf("row not persisted: %+v", rows)
	}
}
