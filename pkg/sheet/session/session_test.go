package session

import (
	"math"
	"testing"

	"github.com/matzehuels/gangsheet/pkg/config"
	"github.com/matzehuels/gangsheet/pkg/errors"
	"github.com/matzehuels/gangsheet/pkg/sheet"
)

func freeSettings() Settings {
	return Settings{
		Canvas: config.Canvas{
			WidthIn:   24,
			HeightIn:  19.5,
			MarginIn:  0.25,
			SpacingIn: 0.5,
			GridPx:    config.DefaultGridPx,
		},
		Zoom: 1,
	}
}

func nestedSettings() Settings {
	s := freeSettings()
	s.Canvas.AutoNest = true
	return s
}

func addItem(st *sheet.Store, w, h float64) sheet.Item {
	return st.Add(sheet.Item{URL: "file://img.png", Name: "img.png", WidthIn: w, HeightIn: h, Copies: 1, Price: 12.34})
}

func TestSelectAndToggle(t *testing.T) {
	st := sheet.NewStore()
	a := addItem(st, 2, 2)
	b := addItem(st, 2, 2)
	s := New(st, freeSettings(), nil)

	s.Select(a.ID)
	if got, want := s.Primary(), a.ID; got != want {
		t.Errorf("primary = %d, want %d", got, want)
	}

	s.ToggleSelect(b.ID)
	if got, want := s.Primary(), b.ID; got != want {
		t.Errorf("primary after toggle = %d, want %d", got, want)
	}
	if got, want := len(s.Selected()), 2; got != want {
		t.Errorf("selected count = %d, want %d", got, want)
	}

	s.ClearSelection()
	if s.Primary() != 0 || len(s.Selected()) != 0 {
		t.Error("clear selection left residue")
	}
}

func TestDragMovesByPointerDelta(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 2, 2)
	st.Update(it.ID, func(i *sheet.Item) { i.PosX, i.PosY = 1, 1 })
	s := New(st, freeSettings(), nil)

	if err := s.BeginDrag(it.ID, 100, 100); err != nil {
		t.Fatal(err)
	}
	// 96px at zoom 1 is exactly one inch.
	s.DragMove(196, 148)
	s.EndDrag()

	got, _ := st.Get(it.ID)
	if math.Abs(got.PosX-2) > 1e-9 || math.Abs(got.PosY-1.5) > 1e-9 {
		t.Errorf("pos = (%f, %f), want (2, 1.5)", got.PosX, got.PosY)
	}
}

func TestDragHonorsZoom(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 2, 2)
	cfg := freeSettings()
	cfg.Zoom = 2
	s := New(st, cfg, nil)

	if err := s.BeginDrag(it.ID, 0, 0); err != nil {
		t.Fatal(err)
	}
	s.DragMove(192, 0) // 192px at zoom 2 is one inch
	s.EndDrag()

	got, _ := st.Get(it.ID)
	if math.Abs(got.PosX-1) > 1e-9 {
		t.Errorf("posX = %f, want 1", got.PosX)
	}
}

func TestDragLockedItemRejected(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 2, 2)
	st.Update(it.ID, func(i *sheet.Item) { i.Locked = true })
	s := New(st, freeSettings(), nil)

	err := s.BeginDrag(it.ID, 0, 0)
	if !errors.Is(err, errors.ErrCodeItemLocked) {
		t.Fatalf("expected ITEM_LOCKED, got %v", err)
	}
	if s.Gesture() != GestureNone {
		t.Error("gesture started for locked item")
	}
}

func TestOneGestureAtATime(t *testing.T) {
	st := sheet.NewStore()
	a := addItem(st, 2, 2)
	b := addItem(st, 2, 2)
	s := New(st, freeSettings(), nil)

	if err := s.BeginDrag(a.ID, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginDrag(b.ID, 0, 0); !errors.Is(err, errors.ErrCodeGestureActive) {
		t.Errorf("second drag: expected GESTURE_ACTIVE, got %v", err)
	}
	if err := s.BeginResize(0, 0); !errors.Is(err, errors.ErrCodeGestureActive) {
		t.Errorf("resize during drag: expected GESTURE_ACTIVE, got %v", err)
	}
	s.EndDrag()

	s.Select(b.ID)
	if err := s.BeginResize(0, 0); err != nil {
		t.Errorf("resize after drag ended: %v", err)
	}
	s.EndResize()
}

func TestDragSnapToGrid(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 2, 2)
	cfg := freeSettings()
	cfg.Canvas.SnapToGrid = true
	s := New(st, cfg, nil)

	if err := s.BeginDrag(it.ID, 0, 0); err != nil {
		t.Fatal(err)
	}
	s.DragMove(30, 30) // 0.3125in, nearest 20px grid point is 0.208333…*1? unit=20/96
	s.EndDrag()

	unit := config.DefaultGridPx / config.PixelsPerInch
	got, _ := st.Get(it.ID)
	ratio := got.PosX / unit
	if math.Abs(ratio-math.Round(ratio)) > 1e-9 {
		t.Errorf("posX %f is not on the grid (unit %f)", got.PosX, unit)
	}
}

func TestNestedDragReorders(t *testing.T) {
	st := sheet.NewStore()
	a := addItem(st, 2, 2)
	b := addItem(st, 2, 2)
	c := addItem(st, 2, 2)
	s := New(st, nestedSettings(), nil)
	s.Settle() // put the three items on a row

	items := st.Items()
	if items[0].ID != a.ID || items[1].ID != b.ID || items[2].ID != c.ID {
		t.Fatal("unexpected initial order")
	}

	// Drag item a to the right of item c's center.
	cPos, _ := st.Get(c.ID)
	if err := s.BeginDrag(a.ID, 0, 0); err != nil {
		t.Fatal(err)
	}
	targetX := (cPos.CenterX() + 1) * config.PixelsPerInch
	targetY := cPos.CenterY() * config.PixelsPerInch
	s.DragMove(targetX, targetY)
	s.EndDrag()

	order := st.Items()
	if got, want := order[len(order)-1].ID, a.ID; got != want {
		t.Errorf("dragged item ended at id %d, want %d (last)", got, want)
	}
}

func TestResizeLinkedPreservesRatio(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 4, 2) // ratio 0.5
	st.Update(it.ID, func(i *sheet.Item) { i.Linked = true })
	s := New(st, freeSettings(), nil)
	s.Select(it.ID)

	if err := s.BeginResize(0, 0); err != nil {
		t.Fatal(err)
	}
	s.ResizeMove(96, 33) // arbitrary unequal deltas
	s.EndResize()

	got, _ := st.Get(it.ID)
	if math.Abs(got.HeightIn/got.WidthIn-0.5) > 1e-9 {
		t.Errorf("ratio = %f, want 0.5", got.HeightIn/got.WidthIn)
	}
}

func TestResizeLinkedRatioHoldsAtFloor(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 4, 2) // ratio 0.5
	st.Update(it.ID, func(i *sheet.Item) { i.Linked = true })
	s := New(st, freeSettings(), nil)
	s.Select(it.ID)

	if err := s.BeginResize(0, 0); err != nil {
		t.Fatal(err)
	}
	s.ResizeMove(-10000, -10000)
	s.EndResize()

	got, _ := st.Get(it.ID)
	if math.Abs(got.HeightIn/got.WidthIn-0.5) > 1e-9 {
		t.Errorf("ratio = %f, want 0.5", got.HeightIn/got.WidthIn)
	}
	if math.Abs(got.HeightIn-sheet.MinSizeIn) > 1e-9 {
		t.Errorf("height = %f, want floor %v", got.HeightIn, sheet.MinSizeIn)
	}
}

func TestResizeFloorsAtMinimum(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 2, 2)
	s := New(st, freeSettings(), nil)
	s.Select(it.ID)

	if err := s.BeginResize(0, 0); err != nil {
		t.Fatal(err)
	}
	s.ResizeMove(-10000, -10000)
	s.EndResize()

	got, _ := st.Get(it.ID)
	if got.WidthIn != sheet.MinSizeIn || got.HeightIn != sheet.MinSizeIn {
		t.Errorf("size = %fx%f, want floor %v", got.WidthIn, got.HeightIn, sheet.MinSizeIn)
	}
}

func TestSnapToggleRestoresExactPositions(t *testing.T) {
	st := sheet.NewStore()
	a := addItem(st, 2, 2)
	b := addItem(st, 2, 2)
	st.Update(a.ID, func(i *sheet.Item) { i.PosX, i.PosY = 1.2345, 6.789 })
	st.Update(b.ID, func(i *sheet.Item) { i.PosX, i.PosY = 0.111, 0.222 })
	s := New(st, freeSettings(), nil)

	s.SetSnapToGrid(true)
	snapped, _ := st.Get(a.ID)
	if snapped.PosX == 1.2345 {
		t.Fatal("snap did not move the item")
	}

	s.SetSnapToGrid(false)
	restored, _ := st.Get(a.ID)
	if restored.PosX != 1.2345 || restored.PosY != 6.789 {
		t.Errorf("restored pos = (%f, %f), want exact original", restored.PosX, restored.PosY)
	}
}

func TestMergeSumsCopies(t *testing.T) {
	st := sheet.NewStore()
	a := addItem(st, 2, 2)
	b := addItem(st, 2, 2)
	st.Update(a.ID, func(i *sheet.Item) { i.Copies = 2 })
	st.Update(b.ID, func(i *sheet.Item) { i.Copies = 3 })
	s := New(st, freeSettings(), nil)

	s.Select(a.ID)
	s.ToggleSelect(b.ID)
	merged, ok := s.MergeSelected()
	if !ok {
		t.Fatal("merge refused")
	}
	if got, want := merged.Copies, 5; got != want {
		t.Errorf("copies = %d, want %d", got, want)
	}
	if merged.ID == a.ID || merged.ID == b.ID {
		t.Error("merged item should get a fresh id")
	}
	if got, want := st.Len(), 1; got != want {
		t.Errorf("store has %d items, want %d", got, want)
	}
	if got, want := s.Primary(), merged.ID; got != want {
		t.Errorf("primary = %d, want merged %d", got, want)
	}
}

func TestMergeMixedSourcesNoOp(t *testing.T) {
	st := sheet.NewStore()
	a := addItem(st, 2, 2)
	b := st.Add(sheet.Item{URL: "file://other.png", WidthIn: 2, HeightIn: 2, Copies: 1})
	s := New(st, freeSettings(), nil)

	s.Select(a.ID)
	s.ToggleSelect(b.ID)
	if _, ok := s.MergeSelected(); ok {
		t.Fatal("merge of different sources should be a no-op")
	}
	if got, want := st.Len(), 2; got != want {
		t.Errorf("store has %d items, want %d", got, want)
	}
}

func TestToggleLinkedUngroupsCopies(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 2, 2)
	st.Update(it.ID, func(i *sheet.Item) {
		i.Copies = 4
		i.PosX, i.PosY = 1, 1
	})
	s := New(st, freeSettings(), nil)
	s.Select(it.ID)

	s.ToggleLinked()

	items := st.Items()
	if got, want := len(items), 4; got != want {
		t.Fatalf("split into %d items, want %d", got, want)
	}
	if items[0].ID != it.ID {
		t.Errorf("first split item id = %d, want original %d", items[0].ID, it.ID)
	}
	for i, split := range items {
		if split.Copies != 1 {
			t.Errorf("split item %d copies = %d, want 1", i, split.Copies)
		}
	}
	// 2x2 tiling at the group gap: second item sits one tile to the right.
	wantX := 1 + 2 + sheet.GroupGapIn
	if math.Abs(items[1].PosX-wantX) > 1e-9 {
		t.Errorf("second tile posX = %f, want %f", items[1].PosX, wantX)
	}
	wantY := 1 + 2 + sheet.GroupGapIn
	if math.Abs(items[2].PosY-wantY) > 1e-9 {
		t.Errorf("third tile posY = %f, want %f", items[2].PosY, wantY)
	}
}

func TestToggleLinkedSingleCopyTogglesAspect(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 2, 2)
	s := New(st, freeSettings(), nil)
	s.Select(it.ID)

	s.ToggleLinked()
	got, _ := st.Get(it.ID)
	if !got.Linked {
		t.Error("expected linked = true")
	}
	s.ToggleLinked()
	got, _ = st.Get(it.ID)
	if got.Linked {
		t.Error("expected linked = false after second toggle")
	}
}

func TestDuplicateOffsetsAndSelects(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 2, 2)
	st.Update(it.ID, func(i *sheet.Item) { i.PosX, i.PosY = 3, 4 })
	s := New(st, freeSettings(), nil)
	s.Select(it.ID)

	clone, ok := s.Duplicate()
	if !ok {
		t.Fatal("duplicate failed")
	}
	if clone.ID == it.ID {
		t.Error("clone should have a fresh id")
	}
	if clone.PosX != 3+sheet.DuplicateOffsetIn || clone.PosY != 4+sheet.DuplicateOffsetIn {
		t.Errorf("clone pos = (%f, %f)", clone.PosX, clone.PosY)
	}
	if got, want := s.Primary(), clone.ID; got != want {
		t.Errorf("primary = %d, want clone %d", got, want)
	}
}

func TestDeleteSelectedClearsSelection(t *testing.T) {
	st := sheet.NewStore()
	a := addItem(st, 2, 2)
	b := addItem(st, 2, 2)
	s := New(st, freeSettings(), nil)

	s.Select(a.ID)
	s.ToggleSelect(b.ID)
	s.DeleteSelected()

	if got, want := st.Len(), 0; got != want {
		t.Errorf("store has %d items, want %d", got, want)
	}
	if s.Primary() != 0 {
		t.Error("selection not cleared")
	}
}

func TestSetWidthLinkedPropagates(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 4, 2)
	st.Update(it.ID, func(i *sheet.Item) { i.Linked = true })
	s := New(st, freeSettings(), nil)
	s.Select(it.ID)

	s.SetWidth(8)
	got, _ := st.Get(it.ID)
	if got.WidthIn != 8 || got.HeightIn != 4 {
		t.Errorf("size = %fx%f, want 8x4", got.WidthIn, got.HeightIn)
	}
}

func TestSetCopiesClampsToFloor(t *testing.T) {
	st := sheet.NewStore()
	it := addItem(st, 2, 2)
	s := New(st, freeSettings(), nil)
	s.Select(it.ID)

	s.SetCopies(-3)
	got, _ := st.Get(it.ID)
	if got.Copies != sheet.MinCopies {
		t.Errorf("copies = %d, want clamped to %d", got.Copies, sheet.MinCopies)
	}
}

func TestLandSettlesArrivingItem(t *testing.T) {
	st := sheet.NewStore()
	it := st.Add(sheet.Item{URL: "u", WidthIn: 2, HeightIn: 2, Copies: 1, Settlement: sheet.Arriving})
	s := New(st, nestedSettings(), nil)

	s.Land(it.ID)
	got, _ := st.Get(it.ID)
	if got.Settlement != sheet.Settled {
		t.Errorf("settlement = %v, want settled after land + settle", got.Settlement)
	}
}
