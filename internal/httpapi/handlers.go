package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/gangsheet/pkg/config"
	"github.com/matzehuels/gangsheet/pkg/errors"
	"github.com/matzehuels/gangsheet/pkg/render/preview"
	"github.com/matzehuels/gangsheet/pkg/sheet"
	"github.com/matzehuels/gangsheet/pkg/sheet/crop"
	"github.com/matzehuels/gangsheet/pkg/sheet/layout"
	"github.com/matzehuels/gangsheet/pkg/store"
	"github.com/matzehuels/gangsheet/pkg/units"
)

// snapshotRequest is the common request body for snapshot-based endpoints.
// Canvas settings default to the server configuration when omitted.
type snapshotRequest struct {
	Snapshot sheet.Snapshot `json:"snapshot"`
	Canvas   *config.Canvas `json:"canvas,omitempty"`
}

// decode validates the snapshot into a store and resolves canvas settings.
func (s *Server) decodeSnapshot(r *http.Request) (*sheet.Store, config.Canvas, error) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, config.Canvas{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse request")
	}

	canvas := s.cfg.Canvas
	if req.Canvas != nil {
		canvas = *req.Canvas
		if err := canvas.Validate(); err != nil {
			return nil, config.Canvas{}, err
		}
	}

	st := sheet.NewStore()
	if err := st.Import(req.Snapshot); err != nil {
		return nil, config.Canvas{}, err
	}
	return st, canvas, nil
}

type layoutResponse struct {
	Items    []sheet.Item `json:"items"`
	HeightIn float64      `json:"height_in"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	st, canvas, err := s.decodeSnapshot(r)
	if err != nil {
		writeError(w, err)
		return
	}

	opts := layout.Options{
		CanvasWidthIn: canvas.WidthIn,
		SpacingIn:     canvas.SpacingIn,
		MarginIn:      canvas.MarginIn,
	}
	layout.Apply(st, opts)
	writeJSON(w, http.StatusOK, layoutResponse{
		Items:    st.Items(),
		HeightIn: layout.Height(st.Items(), opts),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	st, canvas, err := s.decodeSnapshot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet.Summarize(st.Items(), canvas, s.cfg.Pricing))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	st, canvas, err := s.decodeSnapshot(r)
	if err != nil {
		writeError(w, err)
		return
	}

	opts := []preview.Option{}
	if v := r.URL.Query().Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid scale %q", v))
			return
		}
		opts = append(opts, preview.WithScale(scale))
	}
	if r.URL.Query().Get("grid") == "1" {
		opts = append(opts, preview.WithGrid(canvas.GridUnitIn()))
	}
	if r.URL.Query().Get("labels") == "1" {
		opts = append(opts, preview.WithLabels())
	}

	png, err := preview.Render(st.Items(), canvas, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	data, err := readImageBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := units.Resolve(data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"width_px":  info.WidthPx,
		"height_px": info.HeightPx,
		"dpi":       info.DPI,
		"width_in":  info.WidthIn,
		"height_in": info.HeightIn,
		"low_dpi":   info.LowDPI,
	})
}

func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	data, err := readImageBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := crop.Crop(data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"width_px":  res.WidthPx,
		"height_px": res.HeightPx,
		"width_in":  res.WidthIn,
		"height_in": res.HeightIn,
		"data_url":  res.DataURL(),
	})
}

type saveSheetRequest struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Snapshot sheet.Snapshot `json:"snapshot"`
}

func (s *Server) handleSaveSheet(w http.ResponseWriter, r *http.Request) {
	var req saveSheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse request"))
		return
	}

	// Reject snapshots that would fail to load later.
	if err := sheet.NewStore().Import(req.Snapshot); err != nil {
		writeError(w, err)
		return
	}

	rec := store.Record{ID: req.ID, Name: req.Name, Snapshot: req.Snapshot}
	if err := s.sheets.Save(r.Context(), &rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	recs, err := s.sheets.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	// Listings omit snapshots; clients load a sheet to get its items.
	type listing struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Items     int    `json:"items"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
	}
	out := make([]listing, 0, len(recs))
	for _, rec := range recs {
		out = append(out, listing{
			ID:        rec.ID,
			Name:      rec.Name,
			Items:     len(rec.Snapshot.Items),
			CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt: rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLoadSheet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.sheets.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteSheet(w http.ResponseWriter, r *http.Request) {
	if err := s.sheets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
