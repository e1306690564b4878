package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/i18n"
	"xdao.co/c2paview/model"
	"xdao.co/c2paview/reader"
	"xdao.co/c2paview/render"
	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/summary"
)

// server serves the summary views over HTTP.
type server struct {
	cas     storage.CAS
	logger  *zap.Logger
	catalog *i18n.Catalog

	defaultLocale string
	viewMoreURL   string
	maxBodyBytes  int64

	views *viewRegistry
}

func newServer(cas storage.CAS, logger *zap.Logger) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{
		cas:     cas,
		logger:  logger,
		catalog: i18n.Default(),
		views:   newViewRegistry(),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /summary/{cid}", s.handleSummaryHTML)
	mux.HandleFunc("GET /details/{cid}", s.handleDetailsHTML)
	mux.HandleFunc("GET /api/summary/{cid}", s.handleSummaryJSON)
	mux.HandleFunc("POST /api/snapshots", s.handleIngest)
	mux.HandleFunc("GET /cas/{cid}", s.handleBlob)
	mux.HandleFunc("GET /thumbnail/{cid}", s.handleThumbnail)
	mux.HandleFunc("PUT /api/views/{name}", s.handleViewUpdate)
	mux.HandleFunc("GET /api/views/{name}", s.handleViewGet)
	return s.logRequests(mux)
}

func (s *server) reader() *reader.CASReader {
	return &reader.CASReader{CAS: s.cas, Logger: s.logger}
}

func (s *server) summarizeOptions() model.SummarizeOptions {
	return model.SummarizeOptions{
		Reader:       s.reader(),
		Logger:       s.logger,
		ThumbnailURL: func(c string) string { return "/cas/" + c },
	}
}

// localizer picks the display locale: ?locale= first, then Accept-Language,
// then the configured default.
func (s *server) localizer(r *http.Request) i18n.Localizer {
	locale := s.catalog.Match(r.URL.Query().Get("locale"), r.Header.Get("Accept-Language"), s.defaultLocale)
	return s.catalog.Localizer(locale)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *server) handleSummaryHTML(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("cid")
	req := model.SummaryRequest{SnapshotCID: id, HideContentSummary: queryBool(r, "hideContentSummary")}
	cfg := render.Config{HideContentSummary: req.HideContentSummary, ViewMoreURL: s.viewMoreURL}
	if cfg.ViewMoreURL != "" {
		cfg.ViewMoreURL += id
	}

	res, err := model.Evaluate(r.Context(), req, s.summarizeOptions())
	if err != nil {
		ce := model.AsCodedError(err)
		s.logger.Warn("summary failed", zap.String("snapshot_cid", id), zap.String("code", string(ce.Code)), zap.Error(err))
		errView := summary.Projection{State: summary.StateError, Sections: []summary.Section{summary.ManifestError{}}}
		templ.Handler(render.ManifestSummary(errView, cfg, s.localizer(r)), templ.WithStatus(httpStatus(ce.Code))).ServeHTTP(w, r)
		return
	}
	templ.Handler(render.ManifestSummary(res.Projection, cfg, s.localizer(r))).ServeHTTP(w, r)
}

func (s *server) handleDetailsHTML(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("cid")
	res, err := model.Evaluate(r.Context(), model.SummaryRequest{SnapshotCID: id, IncludeDetails: true}, s.summarizeOptions())
	if err != nil {
		s.writeError(w, err)
		return
	}
	templ.Handler(render.DetailsTable(res.Details, s.localizer(r))).ServeHTTP(w, r)
}

func (s *server) handleSummaryJSON(w http.ResponseWriter, r *http.Request) {
	req := model.SummaryRequest{
		SnapshotCID:        r.PathValue("cid"),
		HideContentSummary: queryBool(r, "hideContentSummary"),
		IncludeDetails:     queryBool(r, "details"),
		IncludeReceipt:     queryBool(r, "receipt"),
	}
	resp, err := model.Summarize(r.Context(), req, s.summarizeOptions())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type ingestResponse struct {
	CID string `json:"cid"`
}

func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if s.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, model.NewError(model.ErrInvalidRequest, "snapshot exceeds size limit"))
			return
		}
		writeJSON(w, http.StatusBadRequest, model.NewError(model.ErrInvalidRequest, err.Error()))
		return
	}
	id, err := reader.Ingest(r.Context(), s.cas, b)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("snapshot ingested", zap.String("snapshot_cid", id.String()), zap.Int("bytes", len(b)))
	writeJSON(w, http.StatusCreated, ingestResponse{CID: id.String()})
}

// handleBlob serves raw CAS bytes such as thumbnails. Content is immutable
// under its CID.
func (s *server) handleBlob(w http.ResponseWriter, r *http.Request) {
	id, err := cidutil.Parse(r.PathValue("cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.NewError(model.ErrInvalidCID, err.Error()))
		return
	}
	b, err := s.cas.Get(r.Context(), id)
	if err != nil {
		switch {
		case storage.IsNotFound(err):
			writeJSON(w, http.StatusNotFound, model.NewError(model.ErrNotFound, "blob not found"))
		case errors.Is(err, storage.ErrCIDMismatch):
			writeJSON(w, http.StatusBadGateway, model.NewError(model.ErrCIDMismatch, err.Error()))
		default:
			s.writeError(w, err)
		}
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(b))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("ETag", `"`+id.String()+`"`)
	_, _ = w.Write(b)
}

// handleThumbnail serves the thumbnail of the snapshot named by the path.
func (s *server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	rd := s.reader()
	_, src, err := rd.Read(r.Context(), r.PathValue("cid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	b, err := rd.Thumbnail(r.Context(), src)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if b == nil {
		writeJSON(w, http.StatusNotFound, model.NewError(model.ErrNotFound, "snapshot has no thumbnail"))
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(b))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(b)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	ce := model.AsCodedError(err)
	status := httpStatus(ce.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("code", string(ce.Code)), zap.Error(err))
	}
	writeJSON(w, status, ce)
}

func httpStatus(code model.ErrorCode) int {
	switch code {
	case model.ErrInvalidRequest, model.ErrInvalidCID:
		return http.StatusBadRequest
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrDecode, model.ErrDateParse:
		return http.StatusUnprocessableEntity
	case model.ErrCIDMismatch:
		return http.StatusBadGateway
	case model.ErrMissingCAS:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryBool(r *http.Request, key string) bool {
	switch r.URL.Query().Get(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
