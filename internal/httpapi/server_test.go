package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matzehuels/gangsheet/pkg/config"
	"github.com/matzehuels/gangsheet/pkg/sheet"
	"github.com/matzehuels/gangsheet/pkg/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(config.Default(), store.NewMemoryStore(), nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, testServer(t), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLayoutEndpoint(t *testing.T) {
	body := snapshotRequest{
		Snapshot: sheet.Snapshot{
			Items: []sheet.Item{
				{ID: 1, WidthIn: 10, HeightIn: 5, Copies: 1},
			},
			Counter: 1,
		},
	}
	rec := doJSON(t, testServer(t), http.MethodPost, "/v1/layout", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp layoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if got, want := len(resp.Items), 1; got != want {
		t.Fatalf("items = %d, want %d", got, want)
	}
	// A lone 10in item on the default 24in canvas centers horizontally.
	it := resp.Items[0]
	if it.PosX <= 0 || it.PosX >= 14 {
		t.Errorf("pos x = %v, want centered", it.PosX)
	}
	if resp.HeightIn <= 0 {
		t.Errorf("height = %v, want positive", resp.HeightIn)
	}
}

func TestLayoutRejectsBadSnapshot(t *testing.T) {
	body := snapshotRequest{
		Snapshot: sheet.Snapshot{
			Items: []sheet.Item{
				{ID: 1, WidthIn: 2, HeightIn: 2, Copies: 1},
				{ID: 1, WidthIn: 2, HeightIn: 2, Copies: 1},
			},
			Counter: 1,
		},
	}
	rec := doJSON(t, testServer(t), http.MethodPost, "/v1/layout", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLayoutRejectsBadMarginOverride(t *testing.T) {
	body := snapshotRequest{
		Canvas: &config.Canvas{WidthIn: 24, HeightIn: 19.5, MarginIn: 0.3, GridPx: 20},
	}
	rec := doJSON(t, testServer(t), http.MethodPost, "/v1/layout", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	body := snapshotRequest{
		Snapshot: sheet.Snapshot{
			Items: []sheet.Item{
				{ID: 1, Name: "logo.png", WidthIn: 12, HeightIn: 12, Copies: 2},
			},
			Counter: 1,
		},
	}
	rec := doJSON(t, testServer(t), http.MethodPost, "/v1/summary", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var sum sheet.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatal(err)
	}
	if got, want := sum.TotalAreaSqFt, 2.0; got != want {
		t.Errorf("area = %v, want %v", got, want)
	}
	if got, want := sum.ImageNames[0], "logo"; got != want {
		t.Errorf("name = %q, want %q", got, want)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	body := snapshotRequest{
		Snapshot: sheet.Snapshot{
			Items:   []sheet.Item{{ID: 1, WidthIn: 4, HeightIn: 4, Copies: 1}},
			Counter: 1,
		},
	}
	rec := doJSON(t, testServer(t), http.MethodPost, "/v1/preview?scale=5", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got, want := rec.Header().Get("Content-Type"), "image/png"; got != want {
		t.Errorf("content type = %q, want %q", got, want)
	}
	if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Fatal(err)
	}
}

func TestProbeEndpoint(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 300, 150))); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/probe", &buf)
	rec := httptest.NewRecorder()
	testServer(t).Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		WidthIn float64 `json:"width_in"`
		DPI     int     `json:"dpi"`
		LowDPI  bool    `json:"low_dpi"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.WidthIn != 2 || resp.DPI != 150 || !resp.LowDPI {
		t.Errorf("probe = %+v", resp)
	}
}

func TestCropEndpointRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/crop", bytes.NewBufferString("junk"))
	rec := httptest.NewRecorder()
	testServer(t).Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSheetLifecycle(t *testing.T) {
	s := testServer(t)

	save := saveSheetRequest{
		Name: "order 1043",
		Snapshot: sheet.Snapshot{
			Items:   []sheet.Item{{ID: 1, WidthIn: 4, HeightIn: 4, Copies: 1}},
			Counter: 1,
		},
	}
	rec := doJSON(t, s, http.MethodPost, "/v1/sheets/", save)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body)
	}
	var saved store.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Fatal("no id assigned")
	}

	rec = doJSON(t, s, http.MethodGet, "/v1/sheets/"+saved.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("load status = %d", rec.Code)
	}
	var loaded store.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "order 1043" || len(loaded.Snapshot.Items) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}

	rec = doJSON(t, s, http.MethodGet, "/v1/sheets/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/v1/sheets/%s", saved.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/v1/sheets/"+saved.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("load after delete = %d, want 404", rec.Code)
	}
}

func TestSheetsWithoutStore(t *testing.T) {
	s := NewServer(config.Default(), nil, nil)
	rec := doJSON(t, s, http.MethodGet, "/v1/sheets/", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
