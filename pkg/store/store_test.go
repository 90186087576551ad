package store

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/gangsheet/pkg/errors"
	"github.com/matzehuels/gangsheet/pkg/sheet"
)

func sampleSnapshot() sheet.Snapshot {
	return sheet.Snapshot{
		Items: []sheet.Item{
			{ID: 1, URL: "a.png", WidthIn: 3, HeightIn: 4, Copies: 2},
		},
		Counter: 1,
	}
}

// backends under test share one behavioral contract.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	rec := &Record{Name: "summer batch", Snapshot: sampleSnapshot()}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" {
		t.Fatal("save did not assign an id")
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("save did not stamp timestamps")
	}

	loaded, err := s.Load(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "summer batch" {
		t.Errorf("name = %q", loaded.Name)
	}
	if got, want := len(loaded.Snapshot.Items), 1; got != want {
		t.Errorf("items = %d, want %d", got, want)
	}

	// Overwrite keeps the id and bumps UpdatedAt.
	prev := rec.UpdatedAt
	time.Sleep(time.Millisecond)
	rec.Name = "summer batch v2"
	if err := s.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	loaded, err = s.Load(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "summer batch v2" {
		t.Errorf("overwrite lost: %q", loaded.Name)
	}
	if !loaded.UpdatedAt.After(prev) {
		t.Error("UpdatedAt not bumped on overwrite")
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(list), 1; got != want {
		t.Fatalf("list = %d records, want %d", got, want)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	_, err = s.Load(ctx, rec.ID)
	if got, want := errors.GetCode(err), errors.ErrCodeSheetNotFound; got != want {
		t.Errorf("code after delete = %v, want %v", got, want)
	}

	// Deleting again is fine.
	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	testStore(t, s)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestFileStoreUnknownID(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_, err = s.Load(context.Background(), "nope")
	if got, want := errors.GetCode(err), errors.ErrCodeSheetNotFound; got != want {
		t.Errorf("code = %v, want %v", got, want)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := &Record{Name: "old"}
	if err := s.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	second := &Record{Name: "new"}
	if err := s.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := list[0].Name, "new"; got != want {
		t.Errorf("first record = %q, want %q", got, want)
	}
}

func TestNewIDUnique(t *testing.T) {
	if NewID() == NewID() {
		t.Error("ids collide")
	}
}
