package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dgallion1/tmplinspect/internal/document"
	"github.com/dgallion1/tmplinspect/internal/snapshot"
	"github.com/go-chi/chi/v5"
)

type createSnapshotRequest struct {
	HTML  string `json:"html"`
	Title string `json:"title"`
}

// handleCreateSnapshot parses and stores a page. The body is either raw
// HTML or a JSON createSnapshotRequest.
func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+64*1024) // headroom for JSON framing

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, fmt.Sprintf("snapshot exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	raw := body
	title := r.URL.Query().Get("title")
	if isJSON(r) {
		var req createSnapshotRequest
		if err := json.Unmarshal(body, &req); err != nil {
			jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
			return
		}
		raw = []byte(req.HTML)
		if req.Title != "" {
			title = req.Title
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		jsonError(w, "html is required", http.StatusBadRequest)
		return
	}
	if int64(len(raw)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("snapshot exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	root, err := document.Parse(bytes.NewReader(raw))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if title == "" {
		title = document.FindTitle(root)
	}

	snap := snapshot.New(root, title, raw)
	s.store.Put(snap)

	info := snap.Info()
	s.log.Info("snapshot stored",
		"snapshot_id", info.ID,
		"size", info.Size,
		"regions", info.Regions,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"snapshot_id":  info.ID,
		"content_hash": info.ContentHash,
		"title":        info.Title,
		"regions":      info.Regions,
		"resolve_url":  fmt.Sprintf("/api/snapshots/%s/resolve", info.ID),
	})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookupSnapshot(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap.Info())
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "snapshotID")
	if !s.store.Delete(id) {
		jsonError(w, "snapshot not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRegions lists every annotated region of a snapshot as JSON, or as
// a Markdown/HTML report with ?format=markdown|html.
func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookupSnapshot(w, r)
	if !ok {
		return
	}
	o := snap.Outline()

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"snapshot_id": snap.ID,
			"count":       o.Count(),
			"paths":       o.Paths(),
			"outline":     o,
		})
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, o.Markdown(snap.Title))
	case "html":
		out, err := o.HTML(snap.Title)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, out)
	default:
		jsonError(w, fmt.Sprintf("unsupported format: %s", format), http.StatusBadRequest)
	}
}

func (s *Server) lookupSnapshot(w http.ResponseWriter, r *http.Request) (*snapshot.Snapshot, bool) {
	id := chi.URLParam(r, "snapshotID")
	snap, err := s.store.Get(id)
	if errors.Is(err, snapshot.ErrNotFound) {
		jsonError(w, "snapshot not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return snap, true
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mt, "application/json")
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
