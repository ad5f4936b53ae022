package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dgallion1/tmplinspect/internal/combo"
	"github.com/dgallion1/tmplinspect/internal/document"
	"github.com/dgallion1/tmplinspect/internal/inspector"
	"golang.org/x/net/html"
)

type resolveRequest struct {
	XPath string `json:"xpath"`
	ID    string `json:"id"`
}

type resolveResponse struct {
	Found bool `json:"found"`
	*inspector.Inspection
}

// handleResolve answers which template produced the selected element.
// A missing region is a normal answer ({"found": false}), not an error.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if (req.XPath == "") == (req.ID == "") {
		jsonError(w, "exactly one of xpath or id is required", http.StatusBadRequest)
		return
	}

	snap, ok := s.lookupSnapshot(w, r)
	if !ok {
		return
	}

	var target *html.Node
	var err error
	if req.XPath != "" {
		target, err = document.Select(snap.Root(), req.XPath)
	} else {
		target, err = document.ByID(snap.Root(), req.ID)
	}
	if errors.Is(err, document.ErrNoMatch) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	insp, found := inspector.Inspect(target)
	s.stats.Record(time.Since(start), found)

	resp := resolveResponse{Found: found}
	if found {
		resp.Inspection = &insp
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type comboRequest struct {
	Combo string         `json:"combo"`
	Event combo.KeyEvent `json:"event"`
}

// handleCombo evaluates a keydown event. With an explicit combo it only
// reports the match. Otherwise the event drives the server's inspector
// toggle for the configured combo, and the resulting state is returned.
func (s *Server) handleCombo(w http.ResponseWriter, r *http.Request) {
	var req comboRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4*1024)).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if req.Combo != "" {
		json.NewEncoder(w).Encode(map[string]any{
			"combo": req.Combo,
			"match": combo.IsCombo(req.Combo, req.Event),
		})
		return
	}

	match := combo.IsCombo(s.toggle.Combo, req.Event)
	enabled := s.toggle.HandleKey(req.Event)
	json.NewEncoder(w).Encode(map[string]any{
		"combo":   s.toggle.Combo,
		"match":   match,
		"enabled": enabled,
	})
}

func (s *Server) handleGetToggle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"combo":        s.toggle.Combo,
		"enabled":      s.toggle.Enabled(),
		"keep_enabled": s.toggle.KeepEnabled,
	})
}

// handleToggleOpened is called once the client has opened a template path
// in the editor.
func (s *Server) handleToggleOpened(w http.ResponseWriter, r *http.Request) {
	enabled := s.toggle.Opened()
	s.log.Debug("template path opened", "enabled", enabled)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"enabled": enabled})
}
