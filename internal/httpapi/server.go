// Package httpapi exposes the gang sheet engine over HTTP.
//
// The API is stateless with respect to editing: clients submit a full
// snapshot and receive derived data (layout positions, summary, preview)
// back. Saved sheets are the only server-side state, delegated to a
// pluggable store.
//
// # Routes
//
//	GET    /healthz            liveness probe
//	POST   /v1/layout          compute nested positions for a snapshot
//	POST   /v1/summary         compute the sheet summary for a snapshot
//	POST   /v1/preview         render a snapshot as a PNG preview
//	POST   /v1/probe           resolve physical size for raw image bytes
//	POST   /v1/crop            auto-crop raw image bytes
//	POST   /v1/sheets          save a sheet
//	GET    /v1/sheets          list saved sheets
//	GET    /v1/sheets/{id}     load a saved sheet
//	DELETE /v1/sheets/{id}     delete a saved sheet
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/gangsheet/pkg/config"
	"github.com/matzehuels/gangsheet/pkg/errors"
	"github.com/matzehuels/gangsheet/pkg/store"
)

// MaxImageBytes caps the request body for image endpoints.
const MaxImageBytes = 64 << 20

// Server is the HTTP API server.
type Server struct {
	cfg    config.Config
	sheets store.Store
	logger *log.Logger
	router chi.Router
}

// NewServer creates the API server. The sheet store may be nil, in which
// case the saved-sheet routes respond with 503.
func NewServer(cfg config.Config, sheets store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{cfg: cfg, sheets: sheets, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/summary", s.handleSummary)
		r.Post("/preview", s.handlePreview)
		r.Post("/probe", s.handleProbe)
		r.Post("/crop", s.handleCrop)
		r.Route("/sheets", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Post("/", s.handleSaveSheet)
			r.Get("/", s.handleListSheets)
			r.Get("/{id}", s.handleLoadSheet)
			r.Delete("/{id}", s.handleDeleteSheet)
		})
	})
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sheets == nil {
			writeError(w, errors.New(errors.ErrCodeUnsupported, "no sheet store configured"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidMargin,
		errors.ErrCodeInvalidSnapshot, errors.ErrCodeInvalidFormat,
		errors.ErrCodeDecodeFailed, errors.ErrCodeEmptyImage:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeItemNotFound,
		errors.ErrCodeSheetNotFound, errors.ErrCodeFileNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeGestureActive, errors.ErrCodeItemLocked:
		status = http.StatusConflict
	case errors.ErrCodeUnsupported:
		status = http.StatusServiceUnavailable
	}
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, errorResponse{Code: code, Message: errors.UserMessage(err)})
}

func readImageBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxImageBytes))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty request body")
	}
	return data, nil
}
