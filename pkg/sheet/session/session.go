// Package session implements the interactive manipulation state machine
// for a gang sheet canvas.
//
// A Session owns the transient UI state the rest of the engine must not
// see as globals: the current selection, the active pointer gesture, the
// grid-snap memory, and the layout invocation policy. All mutations flow
// through it into the item store; layout and summary are derived from the
// store afterwards.
//
// At most one gesture (drag or resize) is active at a time across the
// whole canvas. Pointer coordinates arrive in screen pixels and are
// converted to inches at 96 pixels per inch scaled by the current zoom.
package session

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gangsheet/pkg/config"
	"github.com/matzehuels/gangsheet/pkg/errors"
	"github.com/matzehuels/gangsheet/pkg/observability"
	"github.com/matzehuels/gangsheet/pkg/sheet"
	"github.com/matzehuels/gangsheet/pkg/sheet/layout"
)

// Gesture identifies the active pointer gesture.
type Gesture int

const (
	// GestureNone means no gesture is in progress.
	GestureNone Gesture = iota

	// GestureDrag is an item drag in progress.
	GestureDrag

	// GestureResize is an item resize in progress.
	GestureResize
)

// Settings is the layout-affecting configuration a session operates under.
type Settings struct {
	Canvas config.Canvas

	// Zoom scales the pixel-to-inch conversion for pointer deltas.
	Zoom float64
}

// LayoutOptions derives the layout engine options from the settings.
func (s Settings) LayoutOptions() layout.Options {
	return layout.Options{
		CanvasWidthIn: s.Canvas.WidthIn,
		SpacingIn:     s.Canvas.SpacingIn,
		MarginIn:      s.Canvas.MarginIn,
	}
}

// pxToIn converts a pointer delta in screen pixels to inches.
func (s Settings) pxToIn(px float64) float64 {
	zoom := s.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return px / (config.PixelsPerInch * zoom)
}

// Session is the interaction manager for one canvas.
type Session struct {
	store    *sheet.Store
	settings Settings
	logger   *log.Logger

	// Selection: one primary focus plus an optional multi-selection set
	// used by link/merge operations.
	primary int
	multi   map[int]bool

	// Active gesture state.
	gesture    Gesture
	gestureID  int
	startPxX   float64
	startPxY   float64
	startPosX  float64
	startPosY  float64
	startW     float64
	startH     float64
	startRatio float64

	// Pre-snap positions remembered when grid snapping turns on, restored
	// exactly when it turns off.
	preSnap map[int]layout.Position
}

// New creates a session over the given store.
func New(store *sheet.Store, settings Settings, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	if settings.Zoom == 0 {
		settings.Zoom = 1
	}
	return &Session{
		store:    store,
		settings: settings,
		logger:   logger,
		multi:    make(map[int]bool),
		preSnap:  make(map[int]layout.Position),
	}
}

// Store returns the underlying item store.
func (s *Session) Store() *sheet.Store { return s.store }

// Settings returns the current settings.
func (s *Session) Settings() Settings { return s.settings }

// UpdateSettings replaces the settings and resettles the layout, since
// canvas width, margin, spacing, and the nest flag all affect positions.
func (s *Session) UpdateSettings(settings Settings) {
	if settings.Zoom == 0 {
		settings.Zoom = 1
	}
	s.settings = settings
	s.Settle()
}

// SetZoom updates only the zoom factor. Zoom affects pointer conversion,
// not layout, so no resettle happens.
func (s *Session) SetZoom(zoom float64) {
	if zoom > 0 {
		s.settings.Zoom = zoom
	}
}

// =============================================================================
// Selection
// =============================================================================

// Select makes the item the single primary selection.
func (s *Session) Select(id int) {
	if _, ok := s.store.Get(id); !ok {
		return
	}
	s.primary = id
	s.multi = map[int]bool{id: true}
}

// ToggleSelect toggles the item's membership in the multi-selection set
// (the modifier-click path). The primary focus follows the most recently
// toggled item that is still selected.
func (s *Session) ToggleSelect(id int) {
	if _, ok := s.store.Get(id); !ok {
		return
	}
	if s.multi[id] {
		delete(s.multi, id)
		if s.primary == id {
			s.primary = 0
			for other := range s.multi {
				s.primary = other
				break
			}
		}
		return
	}
	s.multi[id] = true
	s.primary = id
}

// ClearSelection empties the selection (the empty-canvas click path).
func (s *Session) ClearSelection() {
	s.primary = 0
	s.multi = make(map[int]bool)
}

// Primary returns the primary selected item id, or 0.
func (s *Session) Primary() int { return s.primary }

// Selected returns the selected item ids in store order.
func (s *Session) Selected() []int {
	var out []int
	for _, it := range s.store.Items() {
		if s.multi[it.ID] || it.ID == s.primary {
			out = append(out, it.ID)
		}
	}
	return out
}

// =============================================================================
// Drag gesture
// =============================================================================

// BeginDrag starts a drag gesture on the item at the given pointer position.
// Locked items never drag. Under auto-nest with manual placement forbidden
// the drag still starts, but moves reorder the store instead of free-placing.
func (s *Session) BeginDrag(id int, pxX, pxY float64) error {
	if s.gesture != GestureNone {
		return errors.New(errors.ErrCodeGestureActive, "another gesture is in progress")
	}
	it, ok := s.store.Get(id)
	if !ok {
		return errors.New(errors.ErrCodeItemNotFound, "item %d", id)
	}
	if it.Locked {
		return errors.New(errors.ErrCodeItemLocked, "item %d is locked", id)
	}
	s.gesture = GestureDrag
	s.gestureID = id
	s.startPxX, s.startPxY = pxX, pxY
	s.startPosX, s.startPosY = it.PosX, it.PosY
	s.primary = id
	return nil
}

// DragMove advances the active drag to a new pointer position.
func (s *Session) DragMove(pxX, pxY float64) {
	if s.gesture != GestureDrag {
		return
	}
	dx := s.settings.pxToIn(pxX - s.startPxX)
	dy := s.settings.pxToIn(pxY - s.startPxY)
	newX := s.startPosX + dx
	newY := s.startPosY + dy

	if s.settings.Canvas.AutoNest && !s.settings.Canvas.AllowManualNestDrag {
		s.dragReorder(newX, newY)
		return
	}

	if s.settings.Canvas.SnapToGrid {
		unit := s.settings.Canvas.GridUnitIn()
		newX = snap(newX, unit)
		newY = snap(newY, unit)
	}
	s.store.Update(s.gestureID, func(it *sheet.Item) {
		it.PosX, it.PosY = newX, newY
	})
}

// dragReorder is the nested-mode drag variant: the dragged item follows
// the pointer while its store index is recomputed live from proximity to
// the other items' centers. Whichever side of the nearest neighbor the
// dragged center is on decides insert-before versus insert-after.
func (s *Session) dragReorder(newX, newY float64) {
	dragged, ok := s.store.Get(s.gestureID)
	if !ok {
		return
	}
	centerX := newX + dragged.WidthIn/2
	centerY := newY + dragged.HeightIn/2

	targetIndex := 0
	minDist := math.Inf(1)
	idx := 0
	for _, it := range s.store.Items() {
		if it.ID == s.gestureID {
			continue
		}
		dist := math.Hypot(it.CenterX()-centerX, it.CenterY()-centerY)
		if dist < minDist {
			minDist = dist
			if centerX > it.CenterX() {
				targetIndex = idx + 1
			} else {
				targetIndex = idx
			}
		}
		idx++
	}

	s.store.Update(s.gestureID, func(it *sheet.Item) {
		it.PosX, it.PosY = newX, newY
	})
	if s.store.IndexOf(s.gestureID) != targetIndex {
		s.store.MoveTo(s.gestureID, targetIndex)
		s.Settle()
	}
}

// EndDrag completes the drag. Under auto-nest the item's rest position is
// whatever the next layout pass assigns.
func (s *Session) EndDrag() {
	if s.gesture != GestureDrag {
		return
	}
	s.gesture = GestureNone
	s.gestureID = 0
	s.Settle()
}

// =============================================================================
// Resize gesture
// =============================================================================

// BeginResize starts a resize gesture on the primary selection.
func (s *Session) BeginResize(pxX, pxY float64) error {
	if s.gesture != GestureNone {
		return errors.New(errors.ErrCodeGestureActive, "another gesture is in progress")
	}
	if s.primary == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no item selected")
	}
	it, ok := s.store.Get(s.primary)
	if !ok {
		return errors.New(errors.ErrCodeItemNotFound, "item %d", s.primary)
	}
	s.gesture = GestureResize
	s.gestureID = it.ID
	s.startPxX, s.startPxY = pxX, pxY
	s.startW, s.startH = it.WidthIn, it.HeightIn
	s.startRatio = it.Ratio()
	return nil
}

// ResizeMove advances the active resize. For linked items the deltas on
// both axes are averaged into one scale step so the aspect ratio captured
// at gesture start is preserved exactly.
func (s *Session) ResizeMove(pxX, pxY float64) {
	if s.gesture != GestureResize {
		return
	}
	dx := s.settings.pxToIn(pxX - s.startPxX)
	dy := s.settings.pxToIn(pxY - s.startPxY)

	it, ok := s.store.Get(s.gestureID)
	if !ok {
		return
	}

	if it.Linked && s.startRatio > 0 {
		avg := (dx + dy/s.startRatio) / 2
		// Floor the uniform scale, not each axis: the smaller dimension
		// lands exactly on the minimum and the ratio survives.
		floor := math.Max(sheet.MinSizeIn, sheet.MinSizeIn/s.startRatio)
		w := math.Max(floor, s.startW+avg)
		h := w * s.startRatio
		s.store.Update(s.gestureID, func(it *sheet.Item) {
			it.WidthIn, it.HeightIn = w, h
		})
		return
	}

	w := math.Max(sheet.MinSizeIn, s.startW+dx)
	h := math.Max(sheet.MinSizeIn, s.startH+dy)
	s.store.Update(s.gestureID, func(it *sheet.Item) {
		it.WidthIn, it.HeightIn = w, h
	})
}

// EndResize completes the resize. Sizes are never snapped.
func (s *Session) EndResize() {
	if s.gesture != GestureResize {
		return
	}
	s.gesture = GestureNone
	s.gestureID = 0
	s.Settle()
}

// Gesture returns the currently active gesture.
func (s *Session) Gesture() Gesture { return s.gesture }

// =============================================================================
// Grid snapping
// =============================================================================

// SetSnapToGrid toggles grid snapping. Turning it on remembers each item's
// pre-snap position (first time only per item) and snaps everything;
// turning it off restores the remembered positions exactly rather than
// re-deriving them.
func (s *Session) SetSnapToGrid(on bool) {
	s.settings.Canvas.SnapToGrid = on
	unit := s.settings.Canvas.GridUnitIn()

	if on {
		for _, it := range s.store.Items() {
			if _, ok := s.preSnap[it.ID]; !ok {
				s.preSnap[it.ID] = layout.Position{X: it.PosX, Y: it.PosY}
			}
		}
		s.store.UpdateAll(func(it *sheet.Item) {
			it.PosX = snap(it.PosX, unit)
			it.PosY = snap(it.PosY, unit)
		})
		return
	}

	s.store.UpdateAll(func(it *sheet.Item) {
		if p, ok := s.preSnap[it.ID]; ok {
			it.PosX, it.PosY = p.X, p.Y
		}
	})
}

// =============================================================================
// Item operations
// =============================================================================

// Duplicate clones the primary selection with a fresh id, offset slightly,
// and selects the clone.
func (s *Session) Duplicate() (sheet.Item, bool) {
	it, ok := s.store.Get(s.primary)
	if !ok {
		return sheet.Item{}, false
	}
	clone := it
	clone.ID = 0
	clone.PosX += sheet.DuplicateOffsetIn
	clone.PosY += sheet.DuplicateOffsetIn
	clone = s.store.Add(clone)
	s.Select(clone.ID)
	s.Settle()
	return clone, true
}

// DeleteSelected removes every selected item and clears the selection.
func (s *Session) DeleteSelected() {
	ids := s.Selected()
	if len(ids) == 0 {
		return
	}
	s.store.Remove(ids...)
	s.ClearSelection()
	s.Settle()
}

// MergeSelected replaces a multi-selection of items sharing the same image
// source with a single item whose copies is the sum of the inputs'. The
// first selected item in store order is the template; the merged item gets
// a fresh id. Mixed sources make this a no-op.
func (s *Session) MergeSelected() (sheet.Item, bool) {
	ids := s.Selected()
	if len(ids) < 2 {
		return sheet.Item{}, false
	}

	var selected []sheet.Item
	for _, id := range ids {
		if it, ok := s.store.Get(id); ok {
			selected = append(selected, it)
		}
	}
	if len(selected) < 2 {
		return sheet.Item{}, false
	}
	for _, it := range selected[1:] {
		if it.URL != selected[0].URL {
			return sheet.Item{}, false
		}
	}

	total := 0
	for _, it := range selected {
		total += it.Copies
	}
	merged := selected[0]
	merged.ID = 0 // fresh id
	merged.Copies = total
	merged.Linked = false

	out := s.store.Replace(ids, []sheet.Item{merged})
	s.Select(out[0].ID)
	s.Settle()
	return out[0], true
}

// ToggleLinked flips aspect-ratio linking for the primary selection.
//
// When the item has more than one copy the toggle means ungroup instead:
// the group splits into single-copy items tiled at the exact positions the
// copies occupied, the first keeping the original id and the rest getting
// fresh ones. Ungrouping takes precedence over aspect linking whenever
// copies > 1.
func (s *Session) ToggleLinked() {
	it, ok := s.store.Get(s.primary)
	if !ok {
		return
	}

	if it.Copies > 1 {
		cols := it.GroupCols()
		split := make([]sheet.Item, 0, it.Copies)
		for i := 0; i < it.Copies; i++ {
			col := i % cols
			row := i / cols
			single := it
			single.Copies = 1
			single.PosX = it.PosX + float64(col)*(it.WidthIn+sheet.GroupGapIn)
			single.PosY = it.PosY + float64(row)*(it.HeightIn+sheet.GroupGapIn)
			if i > 0 {
				single.ID = 0 // fresh id
			}
			split = append(split, single)
		}
		s.store.Replace([]int{it.ID}, split)
		s.Settle()
		return
	}

	s.store.Update(it.ID, func(it *sheet.Item) { it.Linked = !it.Linked })
}

// Rotate turns the primary selection by 90 degrees.
func (s *Session) Rotate() {
	s.store.Update(s.primary, func(it *sheet.Item) {
		it.Rotation = (it.Rotation + 90) % 360
	})
}

// ToggleFlip mirrors the primary selection horizontally.
func (s *Session) ToggleFlip() {
	s.store.Update(s.primary, func(it *sheet.Item) { it.Flipped = !it.Flipped })
}

// ToggleLock toggles drag suppression on the primary selection.
func (s *Session) ToggleLock() {
	s.store.Update(s.primary, func(it *sheet.Item) { it.Locked = !it.Locked })
}

// ToggleExpand toggles the display-size hint on the primary selection.
func (s *Session) ToggleExpand() {
	s.store.Update(s.primary, func(it *sheet.Item) { it.Expanded = !it.Expanded })
}

// SetCopies sets the copy count of the primary selection. Values below the
// floor are clamped, never rejected as fatal.
func (s *Session) SetCopies(n int) {
	s.store.Update(s.primary, func(it *sheet.Item) { it.Copies = n })
	s.Settle()
}

// SetWidth sets the width of the primary selection, propagating through
// the aspect ratio when the item is linked.
func (s *Session) SetWidth(w float64) {
	s.store.Update(s.primary, func(it *sheet.Item) {
		if it.Linked && it.WidthIn > 0 {
			ratio := it.HeightIn / it.WidthIn
			it.WidthIn = w
			it.HeightIn = w * ratio
			return
		}
		it.WidthIn = w
	})
	s.Settle()
}

// SetHeight sets the height of the primary selection, propagating through
// the aspect ratio when the item is linked.
func (s *Session) SetHeight(h float64) {
	s.store.Update(s.primary, func(it *sheet.Item) {
		if it.Linked && it.HeightIn > 0 {
			ratio := it.WidthIn / it.HeightIn
			it.HeightIn = h
			it.WidthIn = h * ratio
			return
		}
		it.HeightIn = h
	})
	s.Settle()
}

// SetPosition moves the primary selection, honoring grid snap.
func (s *Session) SetPosition(x, y float64) {
	if s.settings.Canvas.SnapToGrid {
		unit := s.settings.Canvas.GridUnitIn()
		x = snap(x, unit)
		y = snap(y, unit)
	}
	s.store.Update(s.primary, func(it *sheet.Item) {
		it.PosX, it.PosY = x, y
	})
}

// Land marks an arriving item as landed and due for settlement, then
// resettles the sheet. Called by the host when the drop animation ends.
func (s *Session) Land(id int) {
	s.store.Update(id, func(it *sheet.Item) {
		if it.Settlement == sheet.Arriving {
			it.Settlement = sheet.Displaced
		}
	})
	s.Settle()
}

// =============================================================================
// Layout invocation policy
// =============================================================================

// Settle runs a layout pass when the current state calls for one: always
// under auto-nest, otherwise only when some item is marked displaced. The
// item under an active drag gesture is never overwritten.
func (s *Session) Settle() {
	if !s.settings.Canvas.AutoNest && !s.store.HasDisplaced() {
		return
	}
	var exclude []int
	if s.gesture == GestureDrag {
		exclude = append(exclude, s.gestureID)
	}
	start := time.Now()
	moved := layout.Apply(s.store, s.settings.LayoutOptions(), exclude...)
	observability.Layout().OnLayoutPass(context.Background(), s.store.Len(), moved, time.Since(start))
	if moved {
		s.logger.Debug("layout settled", "items", s.store.Len(), "took", time.Since(start).Round(time.Microsecond))
	}
}

// snap rounds a coordinate to the nearest multiple of the grid unit.
func snap(v, unit float64) float64 {
	if unit <= 0 {
		return v
	}
	return math.Round(v/unit) * unit
}
