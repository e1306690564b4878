package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"xdao.co/c2paview/model"
	"xdao.co/c2paview/render"
	"xdao.co/c2paview/summary"
)

// A view is a named, long-lived summary that can be pointed at a new snapshot
// (for example after an asset is re-signed). Each move reports what changed.
type view struct {
	snapshotCID string
	tracker     *summary.Tracker
}

type viewRegistry struct {
	mu    sync.Mutex
	views map[string]*view
}

func newViewRegistry() *viewRegistry {
	return &viewRegistry{views: make(map[string]*view)}
}

type viewUpdateRequest struct {
	SnapshotCID        string `json:"snapshotCID"`
	HideContentSummary bool   `json:"hideContentSummary,omitempty"`
}

type viewDiff struct {
	StateChanged bool     `json:"stateChanged"`
	Added        []string `json:"added,omitempty"`
	Removed      []string `json:"removed,omitempty"`
	Changed      []string `json:"changed,omitempty"`
}

type viewResponse struct {
	Name        string          `json:"name"`
	SnapshotCID string          `json:"snapshotCID"`
	State       string          `json:"state"`
	Sections    []model.Section `json:"sections"`
	Diff        *viewDiff       `json:"diff,omitempty"`
}

func (s *server) handleViewUpdate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req viewUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.NewError(model.ErrInvalidRequest, "invalid body: "+err.Error()))
		return
	}
	if req.SnapshotCID == "" {
		writeJSON(w, http.StatusBadRequest, model.NewError(model.ErrInvalidRequest, "missing snapshotCID"))
		return
	}

	store, _, err := s.reader().Read(r.Context(), req.SnapshotCID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Every PUT carries the full view settings; the tracker takes them as given.
	opts := summary.Options{HideContentSummary: req.HideContentSummary, Logger: s.logger}
	s.views.mu.Lock()
	v, ok := s.views.views[name]
	if !ok {
		v = &view{tracker: summary.NewTracker(opts)}
		s.views.views[name] = v
	}
	p, d := v.tracker.UpdateWith(store, opts)
	v.snapshotCID = req.SnapshotCID
	s.views.mu.Unlock()

	if !d.Empty() {
		s.logger.Info("view updated",
			zap.String("view", name),
			zap.String("snapshot_cid", req.SnapshotCID),
			zap.Bool("state_changed", d.StateChanged),
			zap.Int("added", len(d.Added)),
			zap.Int("removed", len(d.Removed)),
			zap.Int("changed", len(d.Changed)),
		)
	}
	resp := viewResponse{
		Name:        name,
		SnapshotCID: req.SnapshotCID,
		State:       string(p.State),
		Sections:    model.FromProjection(p),
		Diff:        toViewDiff(d),
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *server) handleViewGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.views.mu.Lock()
	v, ok := s.views.views[name]
	var snapshotCID string
	if ok {
		snapshotCID = v.snapshotCID
	}
	s.views.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, model.NewError(model.ErrNotFound, "view not found"))
		return
	}
	p, _ := v.tracker.Current()

	if r.URL.Query().Get("format") == "html" {
		cfg := render.Config{}
		if s.viewMoreURL != "" && snapshotCID != "" {
			cfg.ViewMoreURL = s.viewMoreURL + snapshotCID
		}
		templ.Handler(render.ManifestSummary(p, cfg, s.localizer(r))).ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{
		Name:        name,
		SnapshotCID: snapshotCID,
		State:       string(p.State),
		Sections:    model.FromProjection(p),
	})
}

func toViewDiff(d summary.Diff) *viewDiff {
	return &viewDiff{
		StateChanged: d.StateChanged,
		Added:        kindStrings(d.Added),
		Removed:      kindStrings(d.Removed),
		Changed:      kindStrings(d.Changed),
	}
}

func kindStrings(ks []summary.Kind) []string {
	if len(ks) == 0 {
		return nil
	}
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return out
}
