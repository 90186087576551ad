package ingest

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/matzehuels/gangsheet/pkg/sheet"
	"github.com/matzehuels/gangsheet/pkg/units"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestBatchCreatesItemsCenteredOnDrop(t *testing.T) {
	st := sheet.NewStore()
	files := []File{
		{Name: "a.png", Data: pngBytes(t, 300, 150)},
		{Name: "b.png", Data: pngBytes(t, 150, 150)},
	}
	res := Batch(context.Background(), st, files, Options{DropX: 10, DropY: 5, Price: 12.34})

	if len(res.Failed) != 0 {
		t.Fatalf("failures: %v", res.Failed)
	}
	if got, want := len(res.Items), 2; got != want {
		t.Fatalf("items = %d, want %d", got, want)
	}
	if got, want := st.Len(), 2; got != want {
		t.Fatalf("store len = %d, want %d", got, want)
	}

	// 300x150 px at the default 150 DPI is 2x1 in, centered on (10, 5).
	a := res.Items[0]
	if a.WidthIn != 2 || a.HeightIn != 1 {
		t.Errorf("size = %vx%v, want 2x1", a.WidthIn, a.HeightIn)
	}
	if a.PosX != 9 || a.PosY != 4.5 {
		t.Errorf("pos = (%v, %v), want (9, 4.5)", a.PosX, a.PosY)
	}
	if a.Name != "a.png" || a.URL != "a.png" {
		t.Errorf("provenance = %q/%q", a.Name, a.URL)
	}
	if a.Price != 12.34 || a.Copies != 1 || !a.Linked {
		t.Errorf("defaults wrong: price=%v copies=%d linked=%v", a.Price, a.Copies, a.Linked)
	}
	if a.Settlement != sheet.Arriving {
		t.Errorf("settlement = %v, want arriving", a.Settlement)
	}
}

func TestBatchSkipsUndecodableFiles(t *testing.T) {
	st := sheet.NewStore()
	files := []File{
		{Name: "bad.bin", Data: []byte("definitely not an image")},
		{Name: "ok.png", Data: pngBytes(t, 150, 150)},
	}
	res := Batch(context.Background(), st, files, Options{})

	if got, want := len(res.Items), 1; got != want {
		t.Fatalf("items = %d, want %d", got, want)
	}
	if _, ok := res.Failed["bad.bin"]; !ok {
		t.Error("bad file not reported in failures")
	}
	if got, want := res.Items[0].Name, "ok.png"; got != want {
		t.Errorf("surviving item = %q, want %q", got, want)
	}
}

func TestBatchCountsLowDPI(t *testing.T) {
	st := sheet.NewStore()
	// Metadata-free PNGs resolve at the default resolution, below the
	// print-quality threshold.
	files := []File{
		{Name: "a.png", Data: pngBytes(t, 100, 100)},
		{Name: "b.png", Data: pngBytes(t, 100, 100)},
	}
	res := Batch(context.Background(), st, files, Options{})
	if got, want := res.LowDPI, 2; got != want {
		t.Errorf("low dpi count = %d, want %d", got, want)
	}
	if units.DefaultDPI >= units.QualityThresholdDPI {
		t.Fatal("test assumes default resolution is below the quality threshold")
	}
}

func TestBatchEmpty(t *testing.T) {
	st := sheet.NewStore()
	res := Batch(context.Background(), st, nil, Options{})
	if len(res.Items) != 0 || len(res.Failed) != 0 || res.LowDPI != 0 {
		t.Errorf("empty batch produced %+v", res)
	}
}

func TestNoticeAutoClears(t *testing.T) {
	var n Notice
	n.Set(3)
	if got, want := n.Count(), 3; got != want {
		t.Fatalf("count = %d, want %d", got, want)
	}
	n.Set(0)
	if got, want := n.Count(), 0; got != want {
		t.Errorf("count = %d, want %d", got, want)
	}
}

func TestNoticeRestartsOnNewBatch(t *testing.T) {
	var n Notice
	n.Set(1)
	n.Set(2)
	if got, want := n.Count(), 2; got != want {
		t.Errorf("count = %d, want %d", got, want)
	}
	// The timer path is not raced here; clearing is exercised directly.
	n.clear()
	if got, want := n.Count(), 0; got != want {
		t.Errorf("count after clear = %d, want %d", got, want)
	}
}
